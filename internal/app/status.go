package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
)

// Status is a summary of the persisted session.
type Status struct {
	Loaded       bool              `json:"loaded"`
	Step         int               `json:"step"`
	Steps        int               `json:"steps"`
	Current      string            `json:"current,omitempty"`
	ActiveFilter string            `json:"active_filter,omitempty"`
	Selection    *selection.Region `json:"selection,omitempty"`
	Parameters   map[string]int    `json:"parameters"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	CanUndo      bool              `json:"can_undo"`
	CanRedo      bool              `json:"can_redo"`
}

// Status output formats.
const (
	StatusFormatSummary = "summary"
	StatusFormatJSON    = "json"
)

// DetermineStatusFormat resolves the effective format: the flag when given,
// then the environment, then summary.
func DetermineStatusFormat(formatFlag, envFormat string, flagChanged bool) string {
	result := formatFlag
	if !flagChanged && envFormat != "" {
		result = envFormat
	}
	if result == "" {
		result = StatusFormatSummary
	}
	return result
}

// ValidateStatusFormat validates status output format.
func ValidateStatusFormat(format string) error {
	switch format {
	case StatusFormatSummary, StatusFormatJSON:
		return nil
	default:
		return fmt.Errorf("status: unknown format: %s", format)
	}
}

// StatusOf summarizes a session.
func StatusOf(s *session.Session) Status {
	st := Status{
		Step:         s.Cursor() + 1,
		Steps:        len(s.History()),
		ActiveFilter: string(s.ActiveFilter()),
		Parameters:   make(map[string]int),
		CanUndo:      s.CanUndo(),
		CanRedo:      s.CanRedo(),
	}
	if cur := s.Current(); cur != nil {
		st.Loaded = true
		st.Current = cur.String()
	}
	if r, ok := s.Selection(); ok {
		st.Selection = &r
	}
	for id, v := range s.Parameters() {
		st.Parameters[string(id)] = v
	}
	st.Width, st.Height = s.SurfaceSize()
	return st
}

// WriteStatus prints st in the given format.
func WriteStatus(w io.Writer, st Status, format string) error {
	if format == StatusFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	if !st.Loaded {
		_, err := fmt.Fprintln(w, "no image loaded")
		return err
	}
	sel := "none"
	if st.Selection != nil {
		sel = st.Selection.String()
	}
	active := st.ActiveFilter
	if active == "" {
		active = "none"
	}
	names := make([]string, 0, len(st.Parameters))
	for name := range st.Parameters {
		names = append(names, name)
	}
	slices.Sort(names)
	params := make([]string, 0, len(names))
	for _, name := range names {
		params = append(params, fmt.Sprintf("%s=%d", name, st.Parameters[name]))
	}

	_, err := fmt.Fprintf(w, "image:      %s\nsurface:    %dx%d\nstep:       %d of %d (undo: %t, redo: %t)\nfilter:     %s\nselection:  %s\nparameters: %s\n",
		st.Current, st.Width, st.Height, st.Step, st.Steps, st.CanUndo, st.CanRedo, active, sel, strings.Join(params, " "))
	return err
}

// Status prints the persisted session summary.
func (u *EditUseCase) Status(ctx context.Context, w io.Writer, format string) error {
	if err := ValidateStatusFormat(format); err != nil {
		return err
	}
	return u.runner.View(ctx, func(_ context.Context, s *session.Session) error {
		return WriteStatus(w, StatusOf(s), format)
	})
}

// History prints the snapshots in order, marking the current one.
func (u *EditUseCase) History(ctx context.Context, w io.Writer) error {
	return u.runner.View(ctx, func(_ context.Context, s *session.Session) error {
		entries := s.History()
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "history is empty")
			return err
		}
		cursor := s.Cursor()
		for i, snap := range entries {
			marker := " "
			if i == cursor {
				marker = "*"
			}
			if _, err := fmt.Fprintf(w, "%s %3d  %s\n", marker, i+1, snap); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteFilters lists the filter vocabulary with parameter ranges.
func WriteFilters(w io.Writer) error {
	for _, id := range filter.All() {
		line := string(id)
		if p, ok := filter.ParamOf(id); ok {
			line = fmt.Sprintf("%-18s %s %d-%d (default %d)", id, p.Field, p.Min, p.Max, p.Default)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
