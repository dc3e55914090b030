// Package sqlite provides a SQLite-backed workspace store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	_ "modernc.org/sqlite"
)

// ErrNoWorkspace indicates that nothing has been saved yet.
var ErrNoWorkspace = errors.New("storage: no saved workspace")

const (
	keyCursor       = "cursor"
	keyActiveFilter = "active_filter"
	keySelection    = "selection"
	keyParameters   = "parameters"
	keyWidth        = "width"
	keyHeight       = "height"
)

// SQLiteStorage persists one workspace in a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates the database at dbPath and migrates it.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite storage: db path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite storage: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: open db: %w", err)
	}

	storage := &SQLiteStorage{db: db, path: dbPath}
	if err := storage.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return storage, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.path }

// Close closes the underlying SQLite connection.
func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("sqlite storage: set busy timeout: %w", err)
	}
	if err := migrate(ctx, s.db); err != nil {
		return fmt.Errorf("sqlite storage: %w", err)
	}
	return nil
}

// Save replaces the stored workspace with st in a single transaction.
func (s *SQLiteStorage) Save(ctx context.Context, st session.State) (err error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite storage: begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = clearTx(ctx, tx); err != nil {
		return err
	}

	for i, snap := range st.Snapshots {
		w, h := snap.Size()
		_, err = tx.ExecContext(ctx, `INSERT INTO snapshots
			(position, id, kind, format, data, url, width, height, filter, placement, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, snap.ID(), string(snap.Kind()), snap.Format(), snap.Data(), snap.URL(), w, h,
			snap.Filter(), string(snap.Placement()), snap.CreatedAt().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("sqlite storage: save snapshot %d: %w", i, err)
		}
	}

	params, err := json.Marshal(st.Parameters)
	if err != nil {
		return fmt.Errorf("sqlite storage: encode parameters: %w", err)
	}
	values := map[string]string{
		keyCursor:       strconv.Itoa(st.Cursor),
		keyActiveFilter: string(st.ActiveFilter),
		keyParameters:   string(params),
		keyWidth:        strconv.Itoa(st.Width),
		keyHeight:       strconv.Itoa(st.Height),
	}
	if st.Selection != nil {
		sel, err := json.Marshal(st.Selection)
		if err != nil {
			return fmt.Errorf("sqlite storage: encode selection: %w", err)
		}
		values[keySelection] = string(sel)
	}
	for k, v := range values {
		if _, err = tx.ExecContext(ctx, "INSERT INTO workspace (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("sqlite storage: save %s: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite storage: commit save: %w", err)
	}
	colors.StructuredDebug("storage", "save", "completed", nil, "", map[string]any{
		"snapshots":        len(st.Snapshots),
		"cursor":           st.Cursor,
		"duration_seconds": time.Since(start).Seconds(),
	})
	return nil
}

// Load reads the stored workspace. It returns ErrNoWorkspace when nothing was saved.
func (s *SQLiteStorage) Load(ctx context.Context) (session.State, error) {
	values, err := s.readValues(ctx)
	if err != nil {
		return session.State{}, err
	}
	if _, ok := values[keyCursor]; !ok {
		return session.State{}, ErrNoWorkspace
	}

	st := session.State{ActiveFilter: filter.ID(values[keyActiveFilter])}
	if st.Cursor, err = atoi(values, keyCursor); err != nil {
		return session.State{}, err
	}
	if st.Width, err = atoi(values, keyWidth); err != nil {
		return session.State{}, err
	}
	if st.Height, err = atoi(values, keyHeight); err != nil {
		return session.State{}, err
	}
	if raw := values[keyParameters]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Parameters); err != nil {
			return session.State{}, fmt.Errorf("sqlite storage: decode parameters: %w", err)
		}
	}
	if raw, ok := values[keySelection]; ok {
		var r selection.Region
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return session.State{}, fmt.Errorf("sqlite storage: decode selection: %w", err)
		}
		st.Selection = &r
	}

	if st.Snapshots, err = s.readSnapshots(ctx); err != nil {
		return session.State{}, err
	}
	return st, nil
}

func (s *SQLiteStorage) readValues(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM workspace")
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: read workspace: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlite storage: scan workspace: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite storage: read workspace: %w", err)
	}
	return values, nil
}

func (s *SQLiteStorage) readSnapshots(ctx context.Context) ([]*snapshot.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, format, data, url, width, height, filter, placement, created_at
		FROM snapshots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: read snapshots: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		var (
			id, kind, format, url, filterName, placement, created string
			data                                                  []byte
			width, height                                         int
		)
		if err := rows.Scan(&id, &kind, &format, &data, &url, &width, &height, &filterName, &placement, &created); err != nil {
			return nil, fmt.Errorf("sqlite storage: scan snapshot: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("sqlite storage: snapshot %s: invalid created_at %q: %w", id, created, err)
		}
		opts := snapshot.Options{
			ID:        id,
			Width:     width,
			Height:    height,
			Filter:    filterName,
			Placement: snapshot.Placement(placement),
			CreatedAt: createdAt,
		}

		var snap *snapshot.Snapshot
		switch snapshot.Kind(kind) {
		case snapshot.KindEncoded:
			snap, err = snapshot.NewEncoded(format, data, opts)
		case snapshot.KindHosted:
			snap, err = snapshot.NewHosted(url, opts)
		default:
			err = fmt.Errorf("unknown kind %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite storage: snapshot %s: %w", id, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite storage: read snapshots: %w", err)
	}
	return out, nil
}

// Clear removes the stored workspace.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite storage: begin clear: %w", err)
	}
	if err := clearTx(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite storage: commit clear: %w", err)
	}
	return nil
}

func clearTx(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots"); err != nil {
		return fmt.Errorf("sqlite storage: clear snapshots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM workspace"); err != nil {
		return fmt.Errorf("sqlite storage: clear workspace: %w", err)
	}
	return nil
}

func atoi(values map[string]string, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("sqlite storage: invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
