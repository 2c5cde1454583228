package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

const (
	// statusInterval is how often the status snapshot is polled.
	statusInterval = 200 * time.Millisecond
	// requestTimeout bounds each backend call.
	requestTimeout = 5 * time.Second

	maxEvents     = 8
	maxLogRecords = 500
)

// Backend is what the console drives: the daemon client, or a rig running
// in this process.
type Backend interface {
	Status(ctx context.Context) (*engine.Status, error)
	Reset(ctx context.Context) error
	Next(ctx context.Context) error
	Calibrate(ctx context.Context) error
	SetWork(ctx context.Context, on bool) error
	SetParams(ctx context.Context, params map[string]any) error
	WatchEvents(ctx context.Context) (<-chan engine.Event, error)
}

// Options configures the console.
type Options struct {
	Backend Backend
	// Source describes the backend in the header, e.g. a socket path.
	Source string
	// Logs enables the log pane. Logging must have been initialised with
	// Capture for it to show anything.
	Logs bool
}

// Model is the Bubble Tea model for the operator console.
type Model struct {
	options Options
	ctx     context.Context
	cancel  context.CancelFunc

	status    *engine.Status
	statusErr error
	events    []engine.Event
	eventCh   <-chan engine.Event
	watching  bool
	notice    string
	noticeErr bool

	logs      *logRingBuffer
	logCh     <-chan logging.Record
	logCancel func()
	showLogs  bool
	logLevel  logging.Level

	spinner spinner.Model
	width   int
	height  int
}

// NewModel creates a console model.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(warningColor)

	m := Model{
		options:  opts,
		ctx:      ctx,
		cancel:   cancel,
		logs:     newLogRingBuffer(maxLogRecords),
		logLevel: logging.LevelInfo,
		spinner:  s,
		width:    80,
		height:   24,
	}
	if opts.Logs {
		if h := logging.Recent(); h != nil {
			for _, rec := range h.Tail(maxLogRecords) {
				m.logs.Add(rec)
			}
		}
		m.logCh, m.logCancel = logging.Subscribe()
		m.showLogs = true
	}
	return m
}

// Run starts the console and blocks until the user quits.
func Run(opts Options) error {
	m := NewModel(opts)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Close releases the event watch and log subscription.
func (m Model) Close() {
	m.cancel()
	if m.logCancel != nil {
		m.logCancel()
	}
}

type tickMsg struct{}

type statusMsg struct {
	status *engine.Status
	err    error
}

type watchMsg struct {
	ch  <-chan engine.Event
	err error
}

type eventMsg engine.Event

type eventsDoneMsg struct{}

type logMsg logging.Record

// actionDoneMsg reports a finished key command.
type actionDoneMsg struct {
	what string
	err  error
}

// Init starts polling, the event watch and the log listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.fetchStatus(),
		m.watchEvents(),
		m.tick(),
	}
	if m.logCh != nil {
		cmds = append(cmds, m.waitForLog())
	}
	return tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		st, err := m.options.Backend.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) watchEvents() tea.Cmd {
	return func() tea.Msg {
		ch, err := m.options.Backend.WatchEvents(m.ctx)
		return watchMsg{ch: ch, err: err}
	}
}

func waitForEvent(ch <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsDoneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) waitForLog() tea.Cmd {
	ch := m.logCh
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

// action runs a backend call and reports it as an actionDoneMsg.
func (m Model) action(what string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return actionDoneMsg{what: what, err: fn(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), m.tick())

	case statusMsg:
		m.statusErr = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, nil

	case watchMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("event watch unavailable: %v", msg.err), true)
			return m, nil
		}
		m.eventCh = msg.ch
		m.watching = true
		return m, waitForEvent(msg.ch)

	case eventMsg:
		m.addEvent(engine.Event(msg))
		return m, waitForEvent(m.eventCh)

	case eventsDoneMsg:
		m.watching = false
		return m, nil

	case logMsg:
		m.logs.Add(logging.Record(msg))
		return m, m.waitForLog()

	case actionDoneMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("%s failed: %v", msg.what, msg.err), true)
		} else {
			m.setNotice(msg.what, false)
		}
		return m, m.fetchStatus()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setNotice(s string, isErr bool) {
	m.notice = s
	m.noticeErr = isErr
}

func (m *Model) addEvent(ev engine.Event) {
	m.events = append(m.events, ev)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// handleKey maps keys to engine commands.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.options.Backend
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.cancel()
		return m, tea.Quit

	case "r":
		return m, m.action("reset", b.Reset)

	case "n", "enter":
		return m, m.action("next", b.Next)

	case "c":
		return m, m.action("calibrate", b.Calibrate)

	case "w", " ":
		on := m.status == nil || !m.status.Work
		what := "work off"
		if on {
			what = "work on"
		}
		return m, m.action(what, func(ctx context.Context) error { return b.SetWork(ctx, on) })

	case "+", "=":
		return m, m.adjust("number_of_plans", 1)
	case "-", "_":
		return m, m.adjust("number_of_plans", -1)
	case "]":
		return m, m.adjust("latency", 1)
	case "[":
		return m, m.adjust("latency", -1)

	case "l":
		if m.options.Logs {
			m.showLogs = !m.showLogs
		}
		return m, nil

	case "v":
		m.logLevel = nextLevel(m.logLevel)
		return m, nil
	}
	return m, nil
}

// adjust nudges an integer parameter relative to the last status.
func (m Model) adjust(key string, delta int) tea.Cmd {
	if m.status == nil {
		return nil
	}
	var cur int
	switch key {
	case "number_of_plans":
		cur = m.status.NumberOfPlans
	case "latency":
		cur = m.status.Latency
	}
	next := cur + delta
	if next < 1 {
		return nil
	}
	b := m.options.Backend
	return m.action(fmt.Sprintf("%s=%d", key, next), func(ctx context.Context) error {
		return b.SetParams(ctx, map[string]any{key: next})
	})
}

// View renders the console.
func (m Model) View() string {
	width := max(m.width-4, 40)

	sections := []string{
		m.renderHeader(),
		dividerStyle.Render(strings.Repeat("─", width)),
		m.renderStatus(width),
		dividerStyle.Render(strings.Repeat("─", width)),
		m.renderEvents(width),
	}
	if m.showLogs {
		sections = append(sections,
			dividerStyle.Render(strings.Repeat("─", width)),
			m.renderLogs(width),
		)
	}
	if m.notice != "" {
		style := successTextStyle
		if m.noticeErr {
			style = errorTextStyle
		}
		sections = append(sections, style.Render(truncate(m.notice, width)))
	}
	sections = append(sections, m.renderHelp())

	return outerBoxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
