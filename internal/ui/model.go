package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/crewsync/internal/prefs"
	"github.com/five82/crewsync/internal/state"
)

// Engine is the part of the sync engine the viewer drives.
type Engine interface {
	State() state.EngineState
	Subscribe() (<-chan state.EngineState, func())
	Go(ctx context.Context) bool
	PinTrackedDay(key string)
	AcknowledgeChanges()
}

// Options configures the viewer.
type Options struct {
	Context   context.Context
	Engine    Engine
	Prefs     prefs.Prefs
	PrefsPath string
}

// Model is the root Bubble Tea model. It only reads published engine state
// and forwards user intents to the engine.
type Model struct {
	ctx       context.Context
	engine    Engine
	prefs     prefs.Prefs
	prefsPath string

	updates     <-chan state.EngineState
	unsubscribe func()

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	theme   Theme

	width  int
	height int
	ready  bool

	state    state.EngineState
	received bool
	spinning bool
	selected int
	status   string
}

// New creates a viewer model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(opts.Prefs.Theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Styles().AccentText

	m := Model{
		ctx:       ctx,
		engine:    opts.Engine,
		prefs:     opts.Prefs,
		prefsPath: prefsPath,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		theme:     theme,
	}
	if m.engine != nil {
		m.updates, m.unsubscribe = m.engine.Subscribe()
	}
	return m
}

// Close stops the state subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case updateMsg:
		// Re-arm the wait so exactly one receive is pending at a time.
		next, cmd := m.applyState(msg.state)
		wait := waitForState(m.updates)
		if cmd == nil {
			return next, wait
		}
		return next, tea.Batch(cmd, wait)

	case stateMsg:
		return m.applyState(state.EngineState(msg))

	case spinner.TickMsg:
		if !m.state.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) applyState(st state.EngineState) (tea.Model, tea.Cmd) {
	m.state = st
	days := m.days()
	if !m.received && st.HasSnapshot() {
		// Start on the tracked day.
		m.received = true
		for i, d := range days {
			if d.Key == st.TrackedDay {
				m.selected = i
				break
			}
		}
	}
	if m.selected >= len(days) {
		m.selected = max(len(days)-1, 0)
	}

	if st.Loading && !m.spinning {
		m.spinning = true
		return m, m.spinner.Tick
	}
	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sync):
		if m.engine == nil {
			return m, nil
		}
		if m.engine.Go(m.ctx) {
			m.status = "sync started"
		} else {
			m.status = "sync already in progress"
		}
		return m, fetchStateCmd(m.engine)

	case key.Matches(msg, m.keys.Pin):
		return m.togglePin()

	case key.Matches(msg, m.keys.Acknowledge):
		if m.engine == nil || !m.state.HasPendingChanges {
			return m, nil
		}
		m.engine.AcknowledgeChanges()
		m.status = "changes acknowledged"
		return m, fetchStateCmd(m.engine)

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = m.theme.Styles().AccentText
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.days())-1 {
			m.selected++
		}
		return m, nil
	}

	return m, nil
}

// togglePin makes the selected day the tracked day, or clears the pin when
// it already is.
func (m Model) togglePin() (tea.Model, tea.Cmd) {
	days := m.days()
	if m.engine == nil || len(days) == 0 {
		return m, nil
	}
	day := days[m.selected].Key
	if m.prefs.TrackedDay == day {
		m.prefs.TrackedDay = ""
		m.engine.PinTrackedDay("")
		m.status = "tracking default day"
	} else {
		m.prefs.TrackedDay = day
		m.engine.PinTrackedDay(day)
		m.status = fmt.Sprintf("tracking %s", day)
	}
	m.savePrefs()
	return m, fetchStateCmd(m.engine)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.status = fmt.Sprintf("save prefs: %v", err)
	}
}

// Messages

// updateMsg carries a state received from the engine subscription.
type updateMsg struct {
	state state.EngineState
}

// stateMsg carries a state read directly after a user action.
type stateMsg state.EngineState

// Commands

// waitForState blocks on the subscription. A closed channel ends the loop.
func waitForState(updates <-chan state.EngineState) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return updateMsg{state: st}
	}
}

func fetchStateCmd(engine Engine) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(engine.State())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
