package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/storage"
)

// errSkipSave ends a run successfully without persisting the session.
var errSkipSave = errors.New("workspace: skip save")

// Workspace runs operations against the persisted session: restore, operate,
// persist. Runs sharing a state directory are serialized across processes.
type Workspace struct {
	store    storage.Storage
	opts     session.Options
	stateDir string
}

// NewWorkspace creates a workspace. An empty stateDir disables the cross-process lock.
func NewWorkspace(store storage.Storage, opts session.Options, stateDir string) *Workspace {
	if store == nil {
		panic("NewWorkspace: store dependency cannot be nil")
	}
	return &Workspace{store: store, opts: opts, stateDir: stateDir}
}

// Run restores the saved session, calls fn and saves the session when fn
// succeeds. A missing workspace starts from an empty session.
func (w *Workspace) Run(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	if w.stateDir == "" {
		return w.run(ctx, fn)
	}
	return storage.WithLock(ctx, w.stateDir, func() error {
		return w.run(ctx, fn)
	})
}

func (w *Workspace) run(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	s, err := session.New(w.opts)
	if err != nil {
		return err
	}
	defer func() {
		// Let a repaint in flight finish before the surface is released.
		_ = s.Settle(context.WithoutCancel(ctx))
		_ = s.Close()
	}()

	st, err := w.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoWorkspace):
	case err != nil:
		return fmt.Errorf("workspace: load: %w", err)
	default:
		if err := s.Restore(ctx, st); err != nil {
			return fmt.Errorf("workspace: restore: %w", err)
		}
	}

	if err := fn(ctx, s); err != nil {
		if errors.Is(err, errSkipSave) {
			return nil
		}
		return err
	}

	if err := w.store.Save(ctx, s.State()); err != nil {
		return fmt.Errorf("workspace: save: %w", err)
	}
	return nil
}

// View restores the saved session and calls fn without saving afterwards.
func (w *Workspace) View(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	return w.Run(ctx, func(ctx context.Context, s *session.Session) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		return errSkipSave
	})
}

// Reset discards the saved workspace.
func (w *Workspace) Reset(ctx context.Context) error {
	return w.store.Clear(ctx)
}

// Close releases the underlying store.
func (w *Workspace) Close() error {
	return w.store.Close()
}
