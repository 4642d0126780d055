package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/sensornode/internal/pairing"
	"github.com/muurk/sensornode/internal/ui"
)

const (
	// DefaultInterval is the refresh period of the dashboard
	DefaultInterval = 2 * time.Second

	fetchTimeout = 5 * time.Second
)

// Fetcher reads an agent's status. *pairing.Client implements it.
type Fetcher interface {
	FetchStatus(ctx context.Context) (*pairing.DeviceStatus, error)
}

// Messages for async operations
type statusMsg struct {
	status *pairing.DeviceStatus
	err    error
	at     time.Time
}

type tickMsg time.Time

// keyMap defines the dashboard key bindings
type keyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Quit}}
}

// Model is the live status dashboard for one agent.
type Model struct {
	Target   string
	Interval time.Duration

	// Latest successful fetch; kept when a later refresh fails
	Status    *pairing.DeviceStatus
	Err       error
	LastFetch time.Time
	Fetching  bool
	Refreshes int

	// UI state
	Width   int
	Spinner spinner.Model
	Help    help.Model
	Keys    keyMap

	fetcher Fetcher
}

// NewModel creates a dashboard polling f every interval.
func NewModel(target string, f Fetcher, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.PrimaryColor)

	return Model{
		Target:   target,
		Interval: interval,
		Width:    ui.MinTerminalWidth,
		Spinner:  s,
		Help:     help.New(),
		Keys: keyMap{
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		fetcher: f,
	}
}

// Init starts the first fetch
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.fetcher), m.Spinner.Tick)
}

func fetchStatus(f Fetcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		st, err := f.FetchStatus(ctx)
		return statusMsg{status: st, err: err, at: time.Now()}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Refresh):
			if m.Fetching {
				return m, nil
			}
			m.Fetching = true
			return m, fetchStatus(m.fetcher)
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case statusMsg:
		m.Fetching = false
		m.Refreshes++
		m.LastFetch = msg.at
		m.Err = msg.err
		if msg.err == nil {
			m.Status = msg.status
		}
		return m, tick(m.Interval)

	case tickMsg:
		if m.Fetching {
			return m, nil
		}
		m.Fetching = true
		return m, fetchStatus(m.fetcher)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render("SENSORNODE STATUS"))
	b.WriteString("\n")
	b.WriteString(ui.CommandStyle.Render(m.Target))
	b.WriteString("\n\n")

	if m.Status == nil {
		if m.Err != nil {
			b.WriteString("  " + ui.ErrorMessageStyle.Render(ui.FailureMarker+" "+m.Err.Error()))
		} else {
			b.WriteString("  " + m.Spinner.View() + " Connecting to agent...")
		}
		b.WriteString("\n\n")
		b.WriteString(m.Help.View(m.Keys))
		return b.String()
	}

	st := m.Status
	row := func(k, v string) {
		b.WriteString("  " + ui.KeyStyle.Render(k) + ui.ValueStyle.Render(v) + "\n")
	}

	row("Device", st.DeviceName)
	b.WriteString("  " + ui.KeyStyle.Render("State") + ui.StateBadge(st.State) + "\n")
	row("Network", orNone(st.SSID))
	row("Description", orNone(st.Description))
	row("Uploads", fmt.Sprintf("%d ok, %d failed", st.UploadsOK, st.UploadsFailed))
	if st.LastUpload != nil {
		row("Last upload", st.LastUpload.Local().Format("15:04:05"))
	} else {
		row("Last upload", "never")
	}
	row("Joins", fmt.Sprintf("%d attempts, %d failed", st.JoinAttempts, st.JoinFailures))
	if st.Version != "" {
		row("Version", st.Version)
	}

	b.WriteString("\n")
	if m.Err != nil {
		b.WriteString("  " + ui.ErrorMessageStyle.Render(ui.WarningMarker+" refresh failed: "+m.Err.Error()) + "\n")
	} else if !m.LastFetch.IsZero() {
		b.WriteString("  " + ui.MutedStyle.Render("updated "+m.LastFetch.Format("15:04:05")) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.Help.View(m.Keys))

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Run shows the dashboard until the user quits.
func Run(target string, f Fetcher, interval time.Duration) error {
	p := tea.NewProgram(NewModel(target, f, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
