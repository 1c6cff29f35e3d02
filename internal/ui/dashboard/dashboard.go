// Package dashboard is the live terminal view of the offline queue and the
// learner's progression.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/study"
	"github.com/skulwise/skulwise/internal/ui/components"
	"github.com/skulwise/skulwise/internal/ui/layout"
	"github.com/skulwise/skulwise/internal/ui/theme"
)

// RefreshInterval is how often the view polls its sources.
const RefreshInterval = 2 * time.Second

// Queue is the part of the offline manager the dashboard reads.
type Queue interface {
	Pending() []offline.Record
	Online() bool
	Sync(ctx context.Context) offline.SyncResult
}

// Snapshotter supplies the progression projection.
type Snapshotter interface {
	Snapshot(ctx context.Context) (study.Snapshot, error)
}

type keyMap struct {
	Sync key.Binding
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Sync: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Sync now")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "Quit")),
	}
}

type tickMsg time.Time

type refreshedMsg struct {
	pending []offline.Record
	online  bool
	snap    study.Snapshot
	err     error
}

type syncedMsg offline.SyncResult

// Model is the dashboard's Bubble Tea model.
type Model struct {
	ctx    context.Context
	queue  Queue
	source Snapshotter
	keys   keyMap

	width, height int

	pending  []offline.Record
	online   bool
	snap     study.Snapshot
	err      error
	syncing  bool
	lastSync *offline.SyncResult
	syncedAt time.Time
	now      func() time.Time
}

// New creates a dashboard over queue and source. ctx bounds the syncs it
// starts.
func New(ctx context.Context, queue Queue, source Snapshotter) Model {
	return Model{
		ctx:    ctx,
		queue:  queue,
		source: source,
		keys:   defaultKeys(),
		now:    time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.source.Snapshot(m.ctx)
		return refreshedMsg{
			pending: m.queue.Pending(),
			online:  m.queue.Online(),
			snap:    snap,
			err:     err,
		}
	}
}

func (m Model) sync() tea.Cmd {
	return func() tea.Msg { return syncedMsg(m.queue.Sync(m.ctx)) }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Sync):
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			return m, m.sync()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case refreshedMsg:
		m.pending = msg.pending
		m.online = msg.online
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
		}
		return m, nil

	case syncedMsg:
		res := offline.SyncResult(msg)
		m.syncing = false
		m.lastSync = &res
		m.syncedAt = m.now()
		return m, m.refresh()
	}
	return m, nil
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.SetContent(m.render())
	return v
}

func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	header := layout.RenderHeader("Sync", m.snap.Level(), m.snap.State.Streak, m.width)
	footer := layout.RenderFooter([]layout.KeyHint{
		{Key: m.keys.Sync.Help().Key, Description: m.keys.Sync.Help().Desc},
		{Key: m.keys.Quit.Help().Key, Description: m.keys.Quit.Help().Desc},
	}, m.width)

	return layout.RenderFrame(header, m.content(), footer, m.width, m.height)
}

func (m Model) content() string {
	var b strings.Builder

	status := theme.Offline.Render("● offline")
	if m.online {
		status = theme.Online.Render("● online")
	}
	row := func(label, value string) {
		b.WriteString(theme.Label.Render(label) + value + "\n")
	}

	row("Connection", status)
	row("Queued", theme.Body.Render(fmt.Sprintf("%d", len(m.pending))))
	switch {
	case m.syncing:
		row("Last sync", theme.Warning.Render("syncing..."))
	case m.lastSync != nil:
		r := m.lastSync
		summary := fmt.Sprintf("%d applied, %d failed, %d left (%s)",
			r.Applied, r.Failed, r.Remaining, m.syncedAt.Format("15:04:05"))
		if r.Skipped {
			summary = "skipped, another sync was running"
		}
		row("Last sync", theme.Body.Render(summary))
	default:
		row("Last sync", theme.Hint.Render("none yet"))
	}

	progress := m.snap.State.Progress()
	b.WriteString("\n")
	row("Total XP", theme.Body.Render(fmt.Sprintf("%d", m.snap.State.TotalXP)))
	b.WriteString(components.NewProgressBar(
		fmt.Sprintf("Level %d", progress.Level), progress.Percentage, true, min(m.width-4, 60),
	).View() + "\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%d XP to level %d", progress.XPToNextLevel, progress.Level+1)) + "\n")

	if len(m.pending) > 0 {
		b.WriteString("\n" + theme.Title.Render("Pending") + "\n")
		limit := min(len(m.pending), 8)
		for _, rec := range m.pending[:limit] {
			b.WriteString(theme.Body.Render(fmt.Sprintf("  %-20s %s",
				rec.Action.Kind(), rec.CreatedAt.Local().Format("Jan 02 15:04:05"))) + "\n")
		}
		if more := len(m.pending) - limit; more > 0 {
			b.WriteString(theme.Hint.Render(fmt.Sprintf("  ... and %d more", more)) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + theme.Offline.Render("progression unavailable: "+m.err.Error()) + "\n")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, queue Queue, source Snapshotter) error {
	p := tea.NewProgram(New(ctx, queue, source), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
