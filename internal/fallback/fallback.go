// Package fallback supplies a built-in schedule used when the crew API cannot
// be reached or its answer cannot be decoded. The pair it returns differs only
// in the tracked day's flights, so the regular diff pipeline always has a
// departure change, an arrival change and a new duty to work with.
package fallback

import (
	"time"

	"github.com/five82/crewsync/internal/roster"
)

// DefaultTrackedDay keys the flying day when no tracked day is given.
const DefaultTrackedDay = "Wed 08 Oct"

// GeneratedAt stamps both fallback snapshots.
var GeneratedAt = time.Date(2025, 10, 8, 3, 0, 0, 0, time.UTC)

// Provide returns the built-in (previous, current) pair. The day carrying the
// differing flights is keyed by trackedDay; the surrounding days keep their
// fixed keys unless one collides with trackedDay, in which case it is
// dropped so day keys stay unique.
func Provide(trackedDay string) (previous, current roster.Snapshot) {
	if trackedDay == "" {
		trackedDay = DefaultTrackedDay
	}
	previous = roster.NewSnapshot(build(trackedDay, previousLegs()), GeneratedAt)
	current = roster.NewSnapshot(build(trackedDay, currentLegs()), GeneratedAt)
	return previous, current
}

func build(trackedDay string, legs []roster.Flight) []roster.Day {
	days := []roster.Day{
		{Key: "Mon 06 Oct", Date: "2025-10-06", DutyType: "Day Off"},
		{Key: "Tue 07 Oct", Date: "2025-10-07", Flights: []roster.Flight{
			{Duty: "DY1302", Origin: "OSL", Destination: "CPH", DepTime: "07:10", ArrivalTime: "08:20",
				CheckIn: "06:25", Aircraft: "LN-NGE", CockpitCrew: "CPT Lunde / FO Aas", CabinCrew: "SCC Moe, CC Vik, CC Ruud"},
			{Duty: "DY1303", Origin: "CPH", Destination: "OSL", DepTime: "09:05", ArrivalTime: "10:15",
				CheckOut: "10:45", Aircraft: "LN-NGE", CockpitCrew: "CPT Lunde / FO Aas", CabinCrew: "SCC Moe, CC Vik, CC Ruud"},
		}},
		{Key: trackedDay, Flights: legs},
		{Key: "Thu 09 Oct", Date: "2025-10-09", DutyType: "Standby"},
		{Key: "Fri 10 Oct", Date: "2025-10-10", DutyType: "Day Off"},
	}
	if trackedDay == DefaultTrackedDay {
		days[2].Date = "2025-10-08"
	}

	out := make([]roster.Day, 0, len(days))
	for i, d := range days {
		if i != 2 && d.Key == trackedDay {
			continue
		}
		out = append(out, d)
	}
	return out
}

func previousLegs() []roster.Flight {
	return []roster.Flight{
		leg("DY600", "OSL", "BGO", "04:45", "07:45"),
		leg("DY611", "BGO", "OSL", "08:30", "09:25"),
	}
}

func currentLegs() []roster.Flight {
	return []roster.Flight{
		leg("DY600", "OSL", "BGO", "05:15", "07:45"),
		leg("DY611", "BGO", "OSL", "08:30", "09:50"),
		leg("DY630", "OSL", "TRD", "11:10", "12:05"),
	}
}

func leg(duty, from, to, dep, arr string) roster.Flight {
	return roster.Flight{
		Duty:        duty,
		Origin:      from,
		Destination: to,
		DepTime:     dep,
		ArrivalTime: arr,
		Aircraft:    "LN-NGA",
		CockpitCrew: "CPT Hansen / FO Berg",
		CabinCrew:   "SCC Lie, CC Dahl, CC Strand",
	}
}
