package session

import (
	"context"
	"maps"

	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// State is a point-in-time copy of a session used to persist it between
// command invocations. Snapshots are shared, not copied; they are immutable.
type State struct {
	Snapshots    []*snapshot.Snapshot
	Cursor       int
	ActiveFilter filter.ID
	Selection    *selection.Region
	Parameters   map[filter.ID]int
	Width        int
	Height       int
}

// Loaded reports whether the state holds an image.
func (st State) Loaded() bool { return st.Cursor >= 0 && len(st.Snapshots) > 0 }

// State captures the session.
func (s *Session) State() State {
	w, h := s.surface.Size()
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Snapshots:    s.history.Entries(),
		Cursor:       s.history.Cursor(),
		ActiveFilter: s.activeFilter,
		Selection:    s.selection.Ptr(),
		Parameters:   maps.Clone(s.params),
		Width:        w,
		Height:       h,
	}
}

// Restore replaces the session with st and repaints. Outstanding dispatches
// become stale. An invalid state leaves the session unchanged.
func (s *Session) Restore(ctx context.Context, st State) error {
	params := filter.DefaultParameters()
	for id, v := range st.Parameters {
		if err := filter.Validate(id, v); err != nil {
			return err
		}
		params[id] = v
	}
	if st.Selection != nil {
		if _, err := selection.NewRegion(st.Selection.X, st.Selection.Y, st.Selection.Width, st.Selection.Height); err != nil {
			return err
		}
	}
	if st.ActiveFilter != "" {
		if _, err := filter.Lookup(string(st.ActiveFilter)); err != nil {
			return err
		}
	}

	w, h := st.Width, st.Height
	if w <= 0 || h <= 0 {
		b := s.pipeline.Bounds()
		w, h = b.Width, b.Height
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.Restore(st.Snapshots, st.Cursor); err != nil {
		return err
	}
	if err := s.surface.Resize(w, h); err != nil {
		return err
	}
	s.dispatcher.Invalidate()
	s.params = params
	s.activeFilter = st.ActiveFilter
	if st.Selection != nil {
		s.selection.Set(*st.Selection)
	} else {
		s.selection.Clear()
	}
	if s.history.Cursor() >= 0 {
		s.renderLocked(ctx)
	}
	s.logger.Debug("session restored", "entries", len(st.Snapshots), "cursor", st.Cursor)
	return nil
}
