// Package history implements the linear undo/redo stack of an edit session.
package history

import (
	"errors"
	"fmt"

	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// ErrInvalidCursor indicates a restore cursor outside the entry range.
var ErrInvalidCursor = errors.New("history: cursor out of range")

// History holds ordered snapshots and a cursor into them. A cursor of -1
// means nothing has been loaded. Branching is not supported: recording after
// an undo discards the redo-able future.
//
// History is not safe for concurrent use; the owning session serializes access.
type History struct {
	entries []*snapshot.Snapshot
	cursor  int
}

// New creates an empty history.
func New() *History {
	return &History{cursor: -1}
}

// Reset replaces all entries with s and points the cursor at it.
func (h *History) Reset(s *snapshot.Snapshot) {
	h.entries = []*snapshot.Snapshot{s}
	h.cursor = 0
}

// Record truncates everything after the cursor, appends s and moves the cursor to it.
// It returns the number of discarded future entries.
func (h *History) Record(s *snapshot.Snapshot) int {
	discarded := len(h.entries) - (h.cursor + 1)
	// Clear dropped tail pointers so discarded snapshots can be collected.
	for i := h.cursor + 1; i < len(h.entries); i++ {
		h.entries[i] = nil
	}
	h.entries = append(h.entries[:h.cursor+1], s)
	h.cursor = len(h.entries) - 1
	return discarded
}

// Undo moves the cursor back one entry. It is a no-op at the first entry.
func (h *History) Undo() (*snapshot.Snapshot, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo moves the cursor forward one entry. It is a no-op at the last entry.
func (h *History) Redo() (*snapshot.Snapshot, bool) {
	if h.cursor >= len(h.entries)-1 {
		return nil, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Current returns the snapshot under the cursor, or nil when empty.
func (h *History) Current() *snapshot.Snapshot {
	if h.cursor < 0 {
		return nil
	}
	return h.entries[h.cursor]
}

// Cursor returns the cursor index.
func (h *History) Cursor() int { return h.cursor }

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// CanUndo reports whether Undo would move the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Entries returns a copy of the entry list.
func (h *History) Entries() []*snapshot.Snapshot {
	out := make([]*snapshot.Snapshot, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear returns the history to its empty state.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = -1
}

// Restore installs a previously saved entry list and cursor.
func (h *History) Restore(entries []*snapshot.Snapshot, cursor int) error {
	if len(entries) == 0 {
		if cursor != -1 {
			return fmt.Errorf("%w: %d with no entries", ErrInvalidCursor, cursor)
		}
		h.Clear()
		return nil
	}
	if cursor < 0 || cursor >= len(entries) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidCursor, cursor, len(entries)-1)
	}
	for i, e := range entries {
		if e == nil {
			return fmt.Errorf("history: restore: nil entry at %d", i)
		}
	}
	h.entries = make([]*snapshot.Snapshot, len(entries))
	copy(h.entries, entries)
	h.cursor = cursor
	return nil
}
