package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/five82/crewsync/internal/diff"
	"github.com/five82/crewsync/internal/engine"
	"github.com/five82/crewsync/internal/roster"
	"github.com/five82/crewsync/internal/state"
	"github.com/five82/crewsync/internal/ui"
)

const fetchedLayout = "2006-01-02 15:04 MST"

func renderResult(w io.Writer, styles ui.Styles, result engine.Result, st state.EngineState) {
	label := styles.MutedText.Render(result.String())
	switch result {
	case engine.ResultNewData:
		label = styles.Changed.Render(result.String())
	case engine.ResultFailed:
		label = styles.DangerText.Render(result.String())
	}
	fmt.Fprintf(w, "%s %s\n", styles.AccentText.Render("Sync"), label)

	if st.UsingFallback && st.LastError != nil {
		fmt.Fprintf(w, "%s %v\n", styles.WarningText.Render("Using built-in schedule:"), st.LastError)
	}
	if st.CacheError != nil {
		fmt.Fprintf(w, "%s %v\n", styles.WarningText.Render("Cache not updated:"), st.CacheError)
	}

	summary := diff.Summarize(st.TrackedDay, st.Changes)
	if summary.Empty() {
		fmt.Fprintf(w, "No changes on %s\n", st.TrackedDay)
		return
	}
	fmt.Fprintln(w, styles.Changed.Render(summary.Title))
	for _, line := range summary.Lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func renderSnapshot(w io.Writer, styles ui.Styles, snap roster.Snapshot, day string) error {
	days := snap.Days
	if day != "" {
		d, ok := snap.Day(day)
		if !ok {
			return fmt.Errorf("day %q is not in the cached schedule", day)
		}
		days = []roster.Day{d}
	}

	meta := fmt.Sprintf("fetched %s, %s, %s",
		snap.FetchedAt.Format(fetchedLayout),
		plural(len(snap.Days), "day"),
		plural(snap.FlightCount(), "flight"))
	fmt.Fprintf(w, "%s %s\n", styles.AccentText.Render("Schedule"), styles.MutedText.Render(meta))

	for _, d := range days {
		label := d.DutyType
		if d.HasFlights() {
			label = plural(len(d.Flights), "flight")
		}
		if label == "" {
			label = "no duty"
		}
		fmt.Fprintf(w, "\n%s  %s\n", styles.AccentText.Render(d.Key), styles.MutedText.Render(label))
		for _, f := range d.Flights {
			line := fmt.Sprintf("  %-7s %-8s %s → %s", f.Duty, f.Route(), f.DepTime, f.ArrivalTime)
			if f.Aircraft != "" {
				line += "  " + styles.MutedText.Render(f.Aircraft)
			}
			fmt.Fprintln(w, strings.TrimRight(line, " "))
		}
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
