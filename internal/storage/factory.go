package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/cristianoliveira/pixedit/internal/storage/sqlite"
)

const (
	// BackendMemory keeps the workspace in process memory.
	BackendMemory = "memory"
	// BackendSQLite selects SQLite-backed storage.
	BackendSQLite = "sqlite"

	workspaceDBFileName = "workspace.db"
)

var _ Storage = (*sqlite.SQLiteStorage)(nil)

// NewFromConfig creates a storage backend based on configuration.
func NewFromConfig() (Storage, error) {
	config.Load()
	backend := config.Get("storage_backend", BackendSQLite)
	return NewForBackend(backend, GetStateDir())
}

// NewForBackend creates a storage backend for the provided backend name.
// SQLite failures fall back to memory with a warning.
func NewForBackend(backend, stateDir string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case "", BackendSQLite:
		if strings.TrimSpace(stateDir) == "" {
			return nil, fmt.Errorf("storage: state directory is not configured")
		}
		s, err := sqlite.NewSQLiteStorage(filepath.Join(stateDir, workspaceDBFileName))
		if err != nil {
			colors.Warning(fmt.Sprintf("failed to initialize sqlite backend, falling back to memory: %v", err))
			return NewMemoryStorage(), nil
		}
		return s, nil
	default:
		colors.Warning(fmt.Sprintf("unknown storage backend '%s', falling back to sqlite", backend))
		return NewForBackend(BackendSQLite, stateDir)
	}
}
