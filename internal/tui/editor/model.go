// Package editor is the interactive bubbletea editor built on an edit session.
package editor

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/cristianoliveira/pixedit/internal/dispatch"
	"github.com/cristianoliveira/pixedit/internal/errors"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

const (
	defaultWidth       = 100
	defaultHeight      = 30
	chromeLines        = 4
	statusClearDelay   = 5 * time.Second
	paramSteps         = 20
	previewPlaceholder = "load an image to start editing"
)

// Options configures the editor.
type Options struct {
	Session *session.Session
	// ExportPath is where the e key writes the current image.
	ExportPath   string
	ExportFormat string
}

// Model is the editor state.
type Model struct {
	ctx     context.Context
	session *session.Session
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	errorHandler *errors.TUIHandler
	// statusSeq identifies the status message a clear tick belongs to.
	statusSeq int

	filters []filter.ID
	cursor  int
	pending int

	surface image.Image
	// surfaceClock stamps each surface copy when it is taken; shownSeq is the
	// stamp of the displayed one. Older copies arriving late are dropped.
	surfaceClock *atomic.Uint64
	shownSeq     uint64
	width        int
	height       int

	exportPath   string
	exportFormat string
}

type (
	// appliedMsg reports the outcome of a filter dispatch.
	appliedMsg struct {
		filter  filter.ID
		snap    *snapshot.Snapshot
		err     error
		surface image.Image
		seq     uint64
	}
	// surfaceMsg carries a settled copy of the display surface.
	surfaceMsg struct {
		surface image.Image
		seq     uint64
	}
	exportedMsg struct {
		path string
		err  error
	}
	clearStatusMsg struct{ seq int }
)

// NewModel creates the editor. ctx bounds every session operation it starts.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("editor: session is required")
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	format := opts.ExportFormat
	if format == "" {
		format = "png"
	}
	path := opts.ExportPath
	if path == "" {
		path = "pixedit-export." + format
	}
	return &Model{
		ctx:          ctx,
		session:      opts.Session,
		keys:         defaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		errorHandler: errors.NewTUIHandler(nil),
		filters:      filter.All(),
		surfaceClock: new(atomic.Uint64),
		width:        defaultWidth,
		height:       defaultHeight,
		exportPath:   path,
		exportFormat: format,
	}, nil
}

// Init paints the restored session.
func (m *Model) Init() tea.Cmd {
	return m.refresh()
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case appliedMsg:
		return m, m.handleApplied(msg)
	case surfaceMsg:
		m.show(msg.surface, msg.seq)
		return m, nil
	case exportedMsg:
		if msg.err != nil {
			return m, m.report(msg.err)
		}
		return m, m.notify(m.errorHandler.Success, fmt.Sprintf("exported %s", msg.path))
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.errorHandler.Clear()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.filters)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Apply):
		return m.apply()
	case key.Matches(msg, m.keys.Undo):
		return m.move("undo", m.session.Undo)
	case key.Matches(msg, m.keys.Redo):
		return m.move("redo", m.session.Redo)
	case key.Matches(msg, m.keys.Inc):
		return m.adjust(1)
	case key.Matches(msg, m.keys.Dec):
		return m.adjust(-1)
	case key.Matches(msg, m.keys.Clear):
		m.session.ClearSelection(m.ctx)
		return tea.Batch(m.refresh(), m.notify(m.errorHandler.Info, "selection cleared"))
	case key.Matches(msg, m.keys.Export):
		return m.export()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// Selected returns the highlighted filter.
func (m *Model) Selected() filter.ID {
	return m.filters[m.cursor]
}

// apply dispatches off the UI goroutine: capturing the surface waits for
// pending renders, which may be fetching a hosted image.
func (m *Model) apply() tea.Cmd {
	id := m.Selected()
	m.pending++
	ctx, s, clock := m.ctx, m.session, m.surfaceClock
	run := func() tea.Msg {
		ticket, err := s.ApplyFilter(ctx, string(id))
		if err != nil {
			return appliedMsg{filter: id, err: err}
		}
		return awaitApplied(ctx, s, clock, id, ticket)
	}
	if m.pending == 1 {
		return tea.Batch(m.spinner.Tick, run)
	}
	return run
}

func awaitApplied(ctx context.Context, s *session.Session, clock *atomic.Uint64, id filter.ID, ticket *dispatch.Ticket) tea.Msg {
	snap, err := ticket.Wait(ctx)
	msg := appliedMsg{filter: id, snap: snap, err: err}
	if err == nil {
		_ = s.Settle(ctx)
		msg.seq = clock.Add(1)
		msg.surface = s.Image()
	}
	return msg
}

func (m *Model) handleApplied(msg appliedMsg) tea.Cmd {
	if m.pending > 0 {
		m.pending--
	}
	if msg.err != nil {
		return m.report(msg.err)
	}
	m.show(msg.surface, msg.seq)
	return m.notify(m.errorHandler.Success, fmt.Sprintf("applied %s", msg.filter))
}

func (m *Model) show(surface image.Image, seq uint64) {
	if seq < m.shownSeq {
		return
	}
	m.shownSeq = seq
	m.surface = surface
}

func (m *Model) move(name string, step func(context.Context) (bool, error)) tea.Cmd {
	moved, err := step(m.ctx)
	if err != nil {
		return m.report(err)
	}
	if !moved {
		return m.notify(m.errorHandler.Info, "nothing to "+name)
	}
	return m.refresh()
}

func (m *Model) adjust(dir int) tea.Cmd {
	id := m.Selected()
	p, ok := filter.ParamOf(id)
	if !ok {
		return m.notify(m.errorHandler.Info, fmt.Sprintf("%s has no intensity", id))
	}
	cur, err := m.session.Parameter(string(id))
	if err != nil {
		return m.report(err)
	}
	step := max((p.Max-p.Min)/paramSteps, 1)
	next := min(max(cur+dir*step, p.Min), p.Max)
	if next == cur {
		return nil
	}
	if err := m.session.SetParameter(string(id), next); err != nil {
		return m.report(err)
	}
	return nil
}

func (m *Model) export() tea.Cmd {
	ctx, s, path, format := m.ctx, m.session, m.exportPath, m.exportFormat
	return func() tea.Msg {
		return exportedMsg{path: path, err: app.ExportFile(ctx, s, path, format)}
	}
}

// refresh settles the surface off the UI goroutine and delivers a copy.
func (m *Model) refresh() tea.Cmd {
	ctx, s, clock := m.ctx, m.session, m.surfaceClock
	return func() tea.Msg {
		_ = s.Settle(ctx)
		seq := clock.Add(1)
		if s.Current() == nil {
			return surfaceMsg{seq: seq}
		}
		return surfaceMsg{surface: s.Image(), seq: seq}
	}
}

func (m *Model) report(err error) tea.Cmd {
	errors.Report(m.errorHandler, err)
	return m.scheduleClear()
}

func (m *Model) notify(fn func(string), text string) tea.Cmd {
	fn(text)
	return m.scheduleClear()
}

func (m *Model) scheduleClear() tea.Cmd {
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusClearDelay, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// Status returns the latest status message.
func (m *Model) Status() (errors.Message, bool) {
	return m.errorHandler.GetLatest()
}
