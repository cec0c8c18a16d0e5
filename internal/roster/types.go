package roster

import (
	"time"
)

// DayKeyLayout renders the external day key ("Wed 08 Oct") from a calendar date.
const DayKeyLayout = "Mon 02 Jan"

// Flight is one duty leg of a day. Optional text fields are empty when absent.
type Flight struct {
	Duty        string
	Origin      string
	Destination string
	DepTime     string
	ArrivalTime string
	CheckIn     string
	CheckOut    string
	Aircraft    string
	CockpitCrew string
	CabinCrew   string
}

// Equal reports whether two flights describe the same leg. Crew, aircraft and
// check-in/out times do not take part in equality.
func (f Flight) Equal(other Flight) bool {
	return f.Duty == other.Duty &&
		f.Origin == other.Origin &&
		f.Destination == other.Destination &&
		f.DepTime == other.DepTime &&
		f.ArrivalTime == other.ArrivalTime
}

// Route returns the "ORIGIN-DEST" label used in summaries.
func (f Flight) Route() string {
	return f.Origin + "-" + f.Destination
}

// Day is one calendar day of the schedule, joined to calendar dates by Key.
type Day struct {
	Key      string
	Date     string
	DutyType string
	Flights  []Flight
}

// Equal compares days by key only.
func (d Day) Equal(other Day) bool {
	return d.Key == other.Key
}

// HasFlights reports whether the day carries at least one flight.
func (d Day) HasFlights() bool {
	return len(d.Flights) > 0
}

// Snapshot is one complete fetched or cached schedule. It is never mutated
// after construction; readers receive clones.
type Snapshot struct {
	Days      []Day
	FetchedAt time.Time
}

// NewSnapshot builds a snapshot stamped with fetchedAt in UTC at second
// precision, the resolution the cache file can carry.
func NewSnapshot(days []Day, fetchedAt time.Time) Snapshot {
	return Snapshot{Days: days, FetchedAt: NormalizeTime(fetchedAt)}
}

// NormalizeTime strips sub-second precision, monotonic reading and zone.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// DayKey formats t as an external day key.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// IsEmpty reports whether the snapshot has no days.
func (s Snapshot) IsEmpty() bool {
	return len(s.Days) == 0
}

// Day returns the day whose key equals key.
func (s Snapshot) Day(key string) (Day, bool) {
	for _, d := range s.Days {
		if d.Key == key {
			return d, true
		}
	}
	return Day{}, false
}

// FlightCount returns the number of flights across all days.
func (s Snapshot) FlightCount() int {
	n := 0
	for _, d := range s.Days {
		n += len(d.Flights)
	}
	return n
}

// Clone returns a deep copy so callers can hold it across store updates.
func (s Snapshot) Clone() Snapshot {
	dup := Snapshot{FetchedAt: s.FetchedAt}
	if len(s.Days) == 0 {
		return dup
	}
	dup.Days = make([]Day, len(s.Days))
	for i, d := range s.Days {
		dup.Days[i] = d
		if len(d.Flights) > 0 {
			dup.Days[i].Flights = make([]Flight, len(d.Flights))
			copy(dup.Days[i].Flights, d.Flights)
		}
	}
	return dup
}
