package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	"github.com/cristianoliveira/pixedit/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func testState(t *testing.T) session.State {
	t.Helper()
	snap, err := snapshot.NewEncoded("png", []byte{1}, snapshot.Options{Width: 2, Height: 2})
	require.NoError(t, err)
	return session.State{
		Snapshots:  []*snapshot.Snapshot{snap},
		Cursor:     0,
		Selection:  &selection.Region{X: 1, Y: 1, Width: 1, Height: 1},
		Parameters: map[filter.ID]int{filter.Blur: 2},
		Width:      2,
		Height:     2,
	}
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	_, err := m.Load(ctx)
	require.ErrorIs(t, err, ErrNoWorkspace)

	st := testState(t)
	require.NoError(t, m.Save(ctx, st))

	// Mutating the caller's copy must not leak into the store.
	st.Parameters[filter.Blur] = 9
	st.Selection.X = 50
	st.Snapshots[0] = nil

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, got.Parameters[filter.Blur])
	require.Equal(t, 1, got.Selection.X)
	require.NotNil(t, got.Snapshots[0])

	require.NoError(t, m.Clear(ctx))
	_, err = m.Load(ctx)
	require.ErrorIs(t, err, ErrNoWorkspace)
	require.NoError(t, m.Close())
}

func TestNewForBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := NewForBackend("memory", dir)
	require.NoError(t, err)
	require.IsType(t, &MemoryStorage{}, s)

	s, err = NewForBackend(" SQLite ", dir)
	require.NoError(t, err)
	require.IsType(t, &sqlite.SQLiteStorage{}, s)
	require.NoError(t, s.Close())
	require.FileExists(t, filepath.Join(dir, workspaceDBFileName))

	s, err = NewForBackend("tsv", dir)
	require.NoError(t, err)
	require.IsType(t, &sqlite.SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	_, err = NewForBackend("sqlite", "")
	require.Error(t, err)
}

func TestNewForBackendFallsBackToMemory(t *testing.T) {
	dir := t.TempDir()
	// A directory where the database file should be makes sqlite unusable.
	require.NoError(t, os.Mkdir(filepath.Join(dir, workspaceDBFileName), 0o755))

	s, err := NewForBackend("sqlite", dir)
	require.NoError(t, err)
	require.IsType(t, &MemoryStorage{}, s)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv(StateDirEnv, filepath.Join(dir, "state"))
	t.Setenv("PIXEDIT_STORAGE_BACKEND", "memory")

	s, err := NewFromConfig()
	require.NoError(t, err)
	require.IsType(t, &MemoryStorage{}, s)
}

func TestInitCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	t.Setenv(StateDirEnv, dir)

	got, err := Init()
	require.NoError(t, err)
	require.Equal(t, dir, got)
	require.DirExists(t, dir)
}

func TestWithLockSerializes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- WithLock(ctx, dir, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	l := NewLock(filepath.Join(dir, lockDirName))
	l.timeout = 150 * time.Millisecond
	require.ErrorContains(t, l.Acquire(ctx), "locked by another process")

	close(release)
	require.NoError(t, <-done)
	require.NoDirExists(t, filepath.Join(dir, lockDirName))

	ran := false
	require.NoError(t, WithLock(ctx, dir, func() error { ran = true; return nil }))
	require.True(t, ran)
}

func TestStaleLockIsBroken(t *testing.T) {
	dir := t.TempDir()
	lockDir := filepath.Join(dir, lockDirName)
	require.NoError(t, os.Mkdir(lockDir, 0o755))
	old := time.Now().Add(-2 * lockStale)
	require.NoError(t, os.Chtimes(lockDir, old, old))

	require.NoError(t, WithLock(context.Background(), dir, func() error { return nil }))
}

func TestLockHonoursContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, lockDirName), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithLock(ctx, dir, func() error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
