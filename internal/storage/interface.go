// Package storage persists the editing workspace so one-shot commands can
// continue the same session.
package storage

import (
	"context"

	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/storage/sqlite"
)

// ErrNoWorkspace indicates that nothing has been saved yet.
var ErrNoWorkspace = sqlite.ErrNoWorkspace

// Storage saves and loads one workspace.
type Storage interface {
	Save(ctx context.Context, st session.State) error
	Load(ctx context.Context) (session.State, error)
	Clear(ctx context.Context) error
	Close() error
}
