package storage

import (
	"fmt"
	"os"
	"time"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/config"
)

// File permission constants
const (
	// FileModeDir is the permission for directories (rwxr-xr-x)
	FileModeDir os.FileMode = 0755
	// FileModeFile is the permission for data files (rw-r--r--)
	FileModeFile os.FileMode = 0644
)

// StateDirEnv overrides the configured state directory.
const StateDirEnv = config.EnvPrefix + "STATE_DIR"

// GetStateDir returns the state directory path.
func GetStateDir() string {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir
	}
	config.Load()
	return config.Get("state_dir", "")
}

// Init ensures the state directory exists and returns it.
func Init() (string, error) {
	start := time.Now()
	dir := GetStateDir()
	if dir == "" {
		err := fmt.Errorf("storage initialization failed: %s not configured", StateDirEnv)
		colors.StructuredError("storage", "init", "failed", err, "", nil)
		return "", err
	}
	if err := os.MkdirAll(dir, FileModeDir); err != nil {
		err = fmt.Errorf("failed to create state directory: %w", err)
		colors.StructuredError("storage", "init", "failed", err, "", nil)
		return "", err
	}
	colors.StructuredDebug("storage", "init", "completed", nil, "", map[string]any{
		"state_dir":        dir,
		"duration_seconds": time.Since(start).Seconds(),
	})
	return dir, nil
}
