// Package progress renders a live spinner with page and item counters
// while an extraction runs.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/nhle/jira-metrics/internal/extract"
	"github.com/nhle/jira-metrics/internal/keys"
	"github.com/nhle/jira-metrics/internal/theme"
)

// PageMsg reports one fetched page.
type PageMsg extract.PageEvent

// doneMsg is sent when the work function returns.
type doneMsg struct{ err error }

// Model is the bubbletea model behind the progress line.
type Model struct {
	title     string
	spinner   spinner.Model
	help      help.Model
	keys      *keys.KeyMap
	cancel    context.CancelFunc
	started   time.Time
	pages     int
	malformed int
	items     int
	done      bool
	aborted   bool
	err       error
}

// New creates a progress model. cancel is called when the user presses ctrl+c.
func New(title string, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle

	return Model{
		title:   title,
		spinner: sp,
		help:    help.New(),
		keys:    keys.DefaultKeyMap(),
		cancel:  cancel,
		started: time.Now(),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles page events, completion and interrupts.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PageMsg:
		m.pages = msg.Index
		m.items = msg.Total
		if msg.Malformed {
			m.malformed++
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) {
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress line.
func (m Model) View() string {
	var b strings.Builder

	switch {
	case m.aborted:
		b.WriteString(theme.WarningStyle.Render("aborted"))
	case m.done && m.err != nil:
		b.WriteString(theme.ErrorStyle.Render("failed"))
	case m.done:
		b.WriteString(theme.SuccessStyle.Render("done"))
	default:
		b.WriteString(m.spinner.View())
	}

	fmt.Fprintf(&b, " %s  pages %d  items %d", m.title, m.pages, m.items)
	if m.malformed > 0 {
		b.WriteString(theme.WarningStyle.Render(fmt.Sprintf("  skipped %d", m.malformed)))
	}
	b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("  %s", time.Since(m.started).Round(time.Second))))
	if !m.done && !m.aborted {
		b.WriteString("  " + m.help.View(m.keys))
	}
	b.WriteString("\n")

	return b.String()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run executes work while rendering progress to out. When out is not a
// terminal, work runs without any rendering and the observer is a no-op.
func Run(ctx context.Context, out io.Writer, title string, work func(ctx context.Context, obs extract.Observer) error) error {
	if !IsTerminal(out) {
		return work(ctx, extract.ObserverFunc(func(extract.PageEvent) {}))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(title, cancel), tea.WithOutput(out))

	errCh := make(chan error, 1)
	go func() {
		err := work(ctx, extract.ObserverFunc(func(ev extract.PageEvent) {
			p.Send(PageMsg(ev))
		}))
		errCh <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("rendering progress: %w", err)
	}

	return <-errCh
}
