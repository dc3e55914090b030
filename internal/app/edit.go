package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/hooks"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
)

// Runner executes operations against the persisted session.
type Runner interface {
	Run(ctx context.Context, fn func(context.Context, *session.Session) error) error
	View(ctx context.Context, fn func(context.Context, *session.Session) error) error
}

// HookRunner runs the user scripts of a hook point.
type HookRunner interface {
	Run(ctx context.Context, point string, env map[string]string) error
}

type noHooks struct{}

func (noHooks) Run(context.Context, string, map[string]string) error { return nil }

// EditUseCase coordinates the editing commands.
type EditUseCase struct {
	runner Runner
	hooks  HookRunner
}

// NewEditUseCase creates an edit use-case. A nil h runs no hooks.
func NewEditUseCase(runner Runner, h HookRunner) *EditUseCase {
	if runner == nil {
		panic("NewEditUseCase: runner dependency cannot be nil")
	}
	if h == nil {
		h = noHooks{}
	}
	return &EditUseCase{runner: runner, hooks: h}
}

// Load ingests the image at path and starts a new history.
func (u *EditUseCase) Load(ctx context.Context, path string) error {
	var width, height int
	err := u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		if err := s.LoadFile(ctx, path); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		width, height = s.SurfaceSize()
		colors.Success(fmt.Sprintf("loaded %s (%dx%d)", path, width, height))
		return nil
	})
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return u.runHook(ctx, hooks.PostLoad, map[string]string{
		"PIXEDIT_IMAGE_PATH": abs,
		"PIXEDIT_WIDTH":      strconv.Itoa(width),
		"PIXEDIT_HEIGHT":     strconv.Itoa(height),
	})
}

func (u *EditUseCase) runHook(ctx context.Context, point string, env map[string]string) error {
	if err := u.hooks.Run(ctx, point, env); err != nil {
		return fmt.Errorf("%s hook: %w", point, err)
	}
	return nil
}

// ApplyInput represents apply command inputs after flag parsing.
type ApplyInput struct {
	Filter string
	// Intensity, when set, replaces the filter's parameter before applying.
	Intensity *int
}

// Apply applies a filter and waits for the result.
func (u *EditUseCase) Apply(ctx context.Context, input ApplyInput) error {
	id, err := filter.Lookup(input.Filter)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	env := map[string]string{"PIXEDIT_FILTER": string(id)}
	if err := u.runHook(ctx, hooks.PreApply, env); err != nil {
		return fmt.Errorf("apply %s: %w", id, err)
	}

	err = u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		if input.Intensity != nil {
			if err := s.SetParameter(string(id), *input.Intensity); err != nil {
				return fmt.Errorf("apply: %w", err)
			}
		}
		snap, err := s.Apply(ctx, string(id))
		if err != nil {
			return fmt.Errorf("apply %s: %w", id, err)
		}
		step, steps := s.Cursor()+1, len(s.History())
		colors.Success(fmt.Sprintf("applied %s -> %s (step %d of %d)", id, snap, step, steps))
		env["PIXEDIT_SNAPSHOT_ID"] = snap.ID()
		env["PIXEDIT_STEP"] = strconv.Itoa(step)
		env["PIXEDIT_STEPS"] = strconv.Itoa(steps)
		return nil
	})
	if err != nil {
		return err
	}
	return u.runHook(ctx, hooks.PostApply, env)
}

// Undo moves back one step.
func (u *EditUseCase) Undo(ctx context.Context) error {
	return u.move(ctx, "undo", (*session.Session).Undo)
}

// Redo moves forward one step.
func (u *EditUseCase) Redo(ctx context.Context) error {
	return u.move(ctx, "redo", (*session.Session).Redo)
}

func (u *EditUseCase) move(ctx context.Context, name string, step func(*session.Session, context.Context) (bool, error)) error {
	return u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		moved, err := step(s, ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !moved {
			colors.Info(fmt.Sprintf("nothing to %s", name))
			return nil
		}
		colors.Success(fmt.Sprintf("%s: now at step %d of %d", name, s.Cursor()+1, len(s.History())))
		return nil
	})
}

// Select replaces the selection.
func (u *EditUseCase) Select(ctx context.Context, r selection.Region) error {
	return u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		if err := s.SetSelection(ctx, r); err != nil {
			return fmt.Errorf("select: %w", err)
		}
		colors.Success(fmt.Sprintf("selection set to %s", r))
		return nil
	})
}

// ClearSelection removes the selection.
func (u *EditUseCase) ClearSelection(ctx context.Context) error {
	return u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		s.ClearSelection(ctx)
		colors.Success("selection cleared")
		return nil
	})
}

// SetParameter stores a filter parameter for later applications.
func (u *EditUseCase) SetParameter(ctx context.Context, name string, v int) error {
	return u.runner.Run(ctx, func(ctx context.Context, s *session.Session) error {
		if err := s.SetParameter(name, v); err != nil {
			return fmt.Errorf("param: %w", err)
		}
		id, _ := filter.Lookup(name)
		colors.Success(fmt.Sprintf("%s parameter set to %d", id, v))
		return nil
	})
}

// ShowParameter prints the current parameter of a parametric filter.
func (u *EditUseCase) ShowParameter(ctx context.Context, w io.Writer, name string) error {
	return u.runner.View(ctx, func(_ context.Context, s *session.Session) error {
		v, err := s.Parameter(name)
		if err != nil {
			return fmt.Errorf("param: %w", err)
		}
		id, _ := filter.Lookup(name)
		p, _ := filter.ParamOf(id)
		_, err = fmt.Fprintf(w, "%s %s=%d (range %d-%d)\n", id, p.Field, v, p.Min, p.Max)
		return err
	})
}
