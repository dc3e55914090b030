package storage

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cristianoliveira/pixedit/internal/session"
)

// MemoryStorage keeps the workspace in process memory. It backs the
// interactive editor and tests; nothing survives the process.
type MemoryStorage struct {
	mu    sync.Mutex
	state *session.State
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Save(_ context.Context, st session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyState(st)
	m.state = &cp
	return nil
}

func (m *MemoryStorage) Load(_ context.Context) (session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return session.State{}, ErrNoWorkspace
	}
	return copyState(*m.state), nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *MemoryStorage) Close() error { return nil }

// copyState detaches the containers of st. Snapshots are immutable and shared.
func copyState(st session.State) session.State {
	st.Snapshots = slices.Clone(st.Snapshots)
	st.Parameters = maps.Clone(st.Parameters)
	if st.Selection != nil {
		r := *st.Selection
		st.Selection = &r
	}
	return st
}
