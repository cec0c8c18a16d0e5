package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/crewsync/internal/diff"
	"github.com/five82/crewsync/internal/roster"
)

const (
	daysPaneWidth = 26
	timeLayout    = "02 Jan 15:04"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if line := m.renderProblems(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) days() []roster.Day {
	if m.state.Snapshot == nil {
		return nil
	}
	return m.state.Snapshot.Days
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	st := m.state

	parts := []string{styles.AccentText.Render("crewsync")}
	if st.TrackedDay != "" {
		parts = append(parts, "tracking "+st.TrackedDay)
	}
	if st.LastSynced.IsZero() {
		parts = append(parts, styles.MutedText.Render("never synced"))
	} else {
		parts = append(parts, styles.MutedText.Render("synced "+st.LastSynced.Format(timeLayout)))
	}
	if st.Loading {
		parts = append(parts, m.spinner.View()+" "+st.Phase.String())
	}
	if st.IsOffline() {
		parts = append(parts, styles.DangerText.Render("offline"))
	}
	if st.UsingFallback {
		parts = append(parts, styles.WarningText.Render("built-in data"))
	}
	if st.HasPendingChanges {
		parts = append(parts, styles.Changed.Render(pluralize(len(st.Changes), "change")))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, " · "))
}

func (m Model) renderProblems() string {
	styles := m.theme.Styles()
	var lines []string
	if err := m.state.LastError; err != nil {
		lines = append(lines, styles.DangerText.Render("sync: ")+styles.Text.Render(err.Error()))
	}
	if err := m.state.CacheError; err != nil {
		lines = append(lines, styles.WarningText.Render("cache: ")+styles.Text.Render(err.Error()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBody() string {
	styles := m.theme.Styles()
	days := m.days()
	if len(days) == 0 {
		return styles.Pane.Render(styles.MutedText.Render("No schedule yet. Press r to sync."))
	}

	left := styles.Pane.Width(daysPaneWidth).Render(m.renderDays(days))
	rightWidth := m.width - lipgloss.Width(left) - 2
	if rightWidth < 30 {
		rightWidth = 30
	}
	right := styles.Pane.Width(rightWidth).Render(m.renderFlights(days[m.selected]))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderDays(days []roster.Day) string {
	styles := m.theme.Styles()
	lines := make([]string, 0, len(days))
	for i, d := range days {
		marker := "  "
		if d.Key == m.state.TrackedDay {
			marker = "▸ "
		}
		detail := d.DutyType
		if d.HasFlights() {
			detail = pluralize(len(d.Flights), "flight")
		}
		line := fmt.Sprintf("%s%-10s %s", marker, d.Key, detail)
		if i == m.selected {
			line = styles.Selected.Render(line)
		} else if !d.HasFlights() {
			line = styles.MutedText.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFlights(day roster.Day) string {
	styles := m.theme.Styles()

	title := styles.AccentText.Render(day.Key)
	if day.DutyType != "" {
		title += "  " + styles.MutedText.Render(day.DutyType)
	}
	lines := []string{title}
	if !day.HasFlights() {
		lines = append(lines, styles.MutedText.Render("No flights"))
		return strings.Join(lines, "\n")
	}

	changes := map[string]diff.Change{}
	if day.Key == m.state.TrackedDay {
		for _, c := range m.state.Changes {
			changes[c.Flight.Duty] = c
		}
	}

	for _, f := range day.Flights {
		lines = append(lines, m.renderFlight(f, changes))
		if crew := crewLine(f); crew != "" {
			lines = append(lines, styles.FaintText.Render("    "+crew))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFlight(f roster.Flight, changes map[string]diff.Change) string {
	styles := m.theme.Styles()
	c, changed := changes[f.Duty]

	dep := styles.Text.Render(f.DepTime)
	arr := styles.Text.Render(f.ArrivalTime)
	var notes []string
	switch {
	case changed && c.IsNew:
		dep = styles.Added.Render(f.DepTime)
		arr = styles.Added.Render(f.ArrivalTime)
		notes = append(notes, styles.Added.Render("new"))
	case changed:
		if c.IsNewDepTime {
			dep = styles.Changed.Render(f.DepTime)
			notes = append(notes, styles.MutedText.Render("dep was "+c.OldDepTime))
		}
		if c.IsNewArrivalTime {
			arr = styles.Changed.Render(f.ArrivalTime)
			notes = append(notes, styles.MutedText.Render("arr was "+c.OldArrivalTime))
		}
	}

	line := fmt.Sprintf("%-7s %-8s %s → %s", f.Duty, f.Route(), dep, arr)
	if f.Aircraft != "" {
		line += "  " + styles.MutedText.Render(f.Aircraft)
	}
	if len(notes) > 0 {
		line += "  " + strings.Join(notes, ", ")
	}
	return line
}

func crewLine(f roster.Flight) string {
	var parts []string
	if f.CheckIn != "" {
		parts = append(parts, "check-in "+f.CheckIn)
	}
	if f.CheckOut != "" {
		parts = append(parts, "check-out "+f.CheckOut)
	}
	if f.CockpitCrew != "" {
		parts = append(parts, f.CockpitCrew)
	}
	if f.CabinCrew != "" {
		parts = append(parts, f.CabinCrew)
	}
	return strings.Join(parts, " · ")
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	line := m.help.View(m.keys)
	if m.status != "" {
		line = styles.InfoText.Render(m.status) + "  " + line
	}
	return styles.Footer.Width(m.width).Render(line)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
