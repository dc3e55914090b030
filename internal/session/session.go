// Package session is the edit session aggregate: the working image, its
// undo/redo history, the selection, filter parameters and the display surface.
//
// Session methods are safe for concurrent use. The internal lock is held for
// state mutations only; decoding, surface capture and remote calls run
// outside it, and their results are re-validated before being applied.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"maps"
	"sync"
	"time"

	"github.com/cristianoliveira/pixedit/internal/canvas"
	"github.com/cristianoliveira/pixedit/internal/dispatch"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/history"
	"github.com/cristianoliveira/pixedit/internal/ingest"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// ErrNoImage indicates an operation that needs a loaded image.
var ErrNoImage = errors.New("session: no image loaded")

// Options configures a session. Zero values select defaults.
type Options struct {
	Bounds    ingest.Bounds
	Processor dispatch.Processor
	Resolver  snapshot.Resolver
	Style     canvas.Style
	// Parameters overrides the initial value of parametric filters.
	Parameters    map[filter.ID]int
	ExportQuality int
	Logger        logging.Logger
}

// Session is one editing session.
type Session struct {
	pipeline   *ingest.Pipeline
	surface    *canvas.Compositor
	dispatcher *dispatch.Dispatcher
	quality    int
	logger     logging.Logger

	mu           sync.Mutex
	history      *history.History
	selection    *selection.Tracker
	activeFilter filter.ID
	params       map[filter.ID]int
}

// New creates an empty session. Processor is required for filter application.
func New(opts Options) (*Session, error) {
	if opts.Processor == nil {
		return nil, errors.New("session: processor is required")
	}
	if opts.Resolver == nil {
		opts.Resolver = snapshot.NewHTTPResolver(60 * time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobal()
	}

	params := filter.DefaultParameters()
	for id, v := range opts.Parameters {
		if err := filter.Validate(id, v); err != nil {
			return nil, err
		}
		params[id] = v
	}

	pipeline := ingest.NewPipeline(opts.Bounds)
	b := pipeline.Bounds()
	return &Session{
		pipeline:   pipeline,
		surface:    canvas.New(b.Width, b.Height, opts.Resolver, opts.Style),
		dispatcher: dispatch.New(opts.Processor),
		quality:    opts.ExportQuality,
		logger:     opts.Logger.With("component", "session"),
		history:    history.New(),
		selection:  selection.NewTracker(),
		params:     params,
	}, nil
}

// Close releases the display surface.
func (s *Session) Close() error {
	return s.surface.Close()
}

// LoadFile ingests the image at path. See Load.
func (s *Session) LoadFile(ctx context.Context, path string) error {
	res, err := s.pipeline.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	return s.install(ctx, res)
}

// Load ingests an image and starts a fresh history with it. The selection and
// active filter are cleared and outstanding dispatches become stale. On
// failure the session is unchanged.
func (s *Session) Load(ctx context.Context, r io.Reader) error {
	res, err := s.pipeline.Ingest(ctx, r)
	if err != nil {
		return err
	}
	return s.install(ctx, res)
}

func (s *Session) install(ctx context.Context, res *ingest.Result) error {
	w, h := res.Snapshot.Size()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.surface.Resize(w, h); err != nil {
		return err
	}
	s.dispatcher.Invalidate()
	s.history.Reset(res.Snapshot)
	s.selection.Clear()
	s.activeFilter = ""
	s.renderLocked(ctx)

	s.logger.Info("image loaded", "snapshot", res.Snapshot.ID(), "source_width", res.SourceWidth,
		"source_height", res.SourceHeight, "width", w, "height", h, "format", res.Format)
	return nil
}

// renderLocked requests a repaint of the current snapshot with the selection.
// The repaint outlives the caller's context. Stale outcomes are expected and
// only logged.
func (s *Session) renderLocked(ctx context.Context) {
	done := s.surface.Render(context.WithoutCancel(ctx), canvas.Frame{Snapshot: s.history.Current(), Selection: s.selection.Ptr()})
	go func() {
		if err := <-done; err != nil && !errors.Is(err, canvas.ErrStaleRender) {
			s.logger.Warn("render failed", "error", err)
		}
	}()
}

// ApplyFilter starts applying the named filter to the current surface and
// returns immediately with a ticket for the outcome. The current selection
// and, for parametric filters, the current parameter go with the request.
func (s *Session) ApplyFilter(ctx context.Context, name string) (*dispatch.Ticket, error) {
	id, err := filter.Lookup(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cur := s.history.Current()
	if cur == nil {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	req := filter.Request{Filter: id, Selection: s.selection.Ptr()}
	if v, ok := s.params[id]; ok {
		req.Parameter = &v
	}
	s.activeFilter = id
	s.mu.Unlock()

	img, err := s.surface.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: capture surface: %w", err)
	}
	req.Image = img

	ticket, err := s.dispatcher.Dispatch(ctx, req, cur.ID(), func(stamp dispatch.Stamp, snap *snapshot.Snapshot) error {
		return s.commit(ctx, stamp, snap)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("filter dispatched", "filter", string(id), "seq", ticket.Seq, "base", cur.ID())
	return ticket, nil
}

func (s *Session) commit(ctx context.Context, stamp dispatch.Stamp, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.history.Current()
	if cur == nil {
		return fmt.Errorf("%w: session cleared", dispatch.ErrStaleResponse)
	}
	if err := s.dispatcher.Check(stamp, cur.ID()); err != nil {
		return err
	}
	discarded := s.history.Record(snap)
	s.renderLocked(ctx)
	s.logger.Info("filter applied", "filter", snap.Filter(), "snapshot", snap.ID(), "cursor", s.history.Cursor(), "discarded", discarded)
	return nil
}

// Apply applies the named filter and waits for the outcome.
func (s *Session) Apply(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	ticket, err := s.ApplyFilter(ctx, name)
	if err != nil {
		return nil, err
	}
	return ticket.Wait(ctx)
}

// Undo moves to the previous snapshot and repaints it. It reports false when
// already at the first snapshot.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	return s.move(ctx, s.history.Undo)
}

// Redo moves to the next snapshot and repaints it. It reports false when
// already at the last snapshot.
func (s *Session) Redo(ctx context.Context) (bool, error) {
	return s.move(ctx, s.history.Redo)
}

func (s *Session) move(ctx context.Context, step func() (*snapshot.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.Cursor() < 0 {
		return false, ErrNoImage
	}
	if _, ok := step(); !ok {
		return false, nil
	}
	s.renderLocked(ctx)
	return true, nil
}

// SetSelection replaces the selection and repaints the overlay.
func (s *Session) SetSelection(ctx context.Context, r selection.Region) error {
	if _, err := selection.NewRegion(r.X, r.Y, r.Width, r.Height); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Set(r)
	if s.history.Cursor() >= 0 {
		s.renderLocked(ctx)
	}
	return nil
}

// ClearSelection removes the selection and repaints.
func (s *Session) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
	if s.history.Cursor() >= 0 {
		s.renderLocked(ctx)
	}
}

// Selection returns the active selection.
func (s *Session) Selection() (selection.Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Get()
}

// SetParameter stores the parameter used by later applications of a parametric filter.
func (s *Session) SetParameter(name string, v int) error {
	id, err := filter.Lookup(name)
	if err != nil {
		return err
	}
	if err := filter.Validate(id, v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[id] = v
	return nil
}

// Parameter returns the current parameter of a parametric filter.
func (s *Session) Parameter(name string) (int, error) {
	id, err := filter.Lookup(name)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.params[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", filter.ErrNotParametric, id)
	}
	return v, nil
}

// Parameters returns a copy of all filter parameters.
func (s *Session) Parameters() map[filter.ID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.params)
}

// Export writes the displayed surface, overlay included, as png or jpeg.
func (s *Session) Export(ctx context.Context, w io.Writer, format string) error {
	s.mu.Lock()
	loaded := s.history.Cursor() >= 0
	s.mu.Unlock()
	if !loaded {
		return ErrNoImage
	}
	return s.surface.Export(ctx, w, format, s.quality)
}

// Settle waits for the latest repaint to finish.
func (s *Session) Settle(ctx context.Context) error {
	return s.surface.Settle(ctx)
}

// Current returns the current snapshot, nil before the first load.
func (s *Session) Current() *snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// Cursor returns the history cursor, -1 before the first load.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Cursor()
}

// History returns the snapshots in order.
func (s *Session) History() []*snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// CanUndo reports whether Undo would move.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would move.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// ActiveFilter returns the last dispatched filter, empty after a load.
func (s *Session) ActiveFilter() filter.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFilter
}

// Pending returns the number of filter requests awaiting a response.
func (s *Session) Pending() int {
	return s.dispatcher.InFlight()
}

// SurfaceSize returns the display surface dimensions.
func (s *Session) SurfaceSize() (int, int) {
	return s.surface.Size()
}

// Image returns a copy of the displayed surface.
func (s *Session) Image() image.Image {
	return s.surface.Image()
}
