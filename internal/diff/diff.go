package diff

import (
	"github.com/five82/crewsync/internal/roster"
)

// Change describes one flight that moved or appeared. OldDepTime and
// OldArrivalTime are set only when the matching time changed.
type Change struct {
	Flight           roster.Flight
	OldDepTime       string
	OldArrivalTime   string
	IsNewDepTime     bool
	IsNewArrivalTime bool
	IsNew            bool
}

// Compare returns the changes to trackedDay between previous and current, in
// the current day's flight order.
func Compare(previous, current roster.Snapshot, trackedDay string) []Change {
	prevDay, ok := previous.Day(trackedDay)
	if !ok {
		return nil
	}
	currDay, ok := current.Day(trackedDay)
	if !ok || !currDay.HasFlights() {
		return nil
	}

	before := make(map[string]roster.Flight, len(prevDay.Flights))
	for _, f := range prevDay.Flights {
		before[f.Duty] = f
	}

	var changes []Change
	for _, f := range currDay.Flights {
		old, known := before[f.Duty]
		if !known {
			changes = append(changes, Change{
				Flight:           f,
				IsNew:            true,
				IsNewDepTime:     true,
				IsNewArrivalTime: true,
			})
			continue
		}

		c := Change{Flight: f}
		if old.DepTime != f.DepTime {
			c.IsNewDepTime = true
			c.OldDepTime = old.DepTime
		}
		if old.ArrivalTime != f.ArrivalTime {
			c.IsNewArrivalTime = true
			c.OldArrivalTime = old.ArrivalTime
		}
		if c.IsNewDepTime || c.IsNewArrivalTime {
			changes = append(changes, c)
		}
	}
	return changes
}

// HasChanges reports whether a comparison warrants a change notification.
func HasChanges(changes []Change) bool {
	return len(changes) > 0
}
