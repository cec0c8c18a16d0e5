package diff

import (
	"fmt"
	"strings"
)

// Summary is the human readable form of a change list, handed to whatever
// delivers notifications.
type Summary struct {
	TrackedDay string
	Title      string
	Lines      []string
}

// Summarize renders changes to trackedDay. The result is empty when there is
// nothing to report.
func Summarize(trackedDay string, changes []Change) Summary {
	s := Summary{TrackedDay: trackedDay}
	if len(changes) == 0 {
		return s
	}
	noun := "flight"
	if len(changes) > 1 {
		noun = "flights"
	}
	s.Title = fmt.Sprintf("Schedule change on %s: %d %s updated", trackedDay, len(changes), noun)
	for _, c := range changes {
		s.Lines = append(s.Lines, describe(c))
	}
	return s
}

// Empty reports whether the summary carries no changes.
func (s Summary) Empty() bool {
	return len(s.Lines) == 0
}

// Body joins the per-flight lines.
func (s Summary) Body() string {
	return strings.Join(s.Lines, "\n")
}

// String renders title and body.
func (s Summary) String() string {
	if s.Empty() {
		return ""
	}
	return s.Title + "\n" + s.Body()
}

func describe(c Change) string {
	label := c.Flight.Duty + " " + c.Flight.Route()
	if c.IsNew {
		return fmt.Sprintf("%s added, departs %s arrives %s", label, c.Flight.DepTime, c.Flight.ArrivalTime)
	}
	var parts []string
	if c.IsNewDepTime {
		parts = append(parts, fmt.Sprintf("departs %s (was %s)", c.Flight.DepTime, c.OldDepTime))
	}
	if c.IsNewArrivalTime {
		parts = append(parts, fmt.Sprintf("arrives %s (was %s)", c.Flight.ArrivalTime, c.OldArrivalTime))
	}
	return label + " " + strings.Join(parts, ", ")
}
