package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cristianoliveira/pixedit/internal/canvas"
	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/hooks"
	"github.com/cristianoliveira/pixedit/internal/session"
)

// ExportInput represents export command inputs after flag parsing.
type ExportInput struct {
	Path string
	// Format is png or jpeg; empty derives it from the path extension.
	Format string
	// DefaultFormat is used when neither Format nor the extension decide.
	DefaultFormat string
}

// ResolveExportFormat picks the export format: explicit flag, then file
// extension, then the configured default.
func ResolveExportFormat(input ExportInput) (string, error) {
	format := strings.TrimSpace(input.Format)
	if format == "" {
		switch strings.ToLower(filepath.Ext(input.Path)) {
		case ".png":
			format = canvas.FormatPNG
		case ".jpg", ".jpeg":
			format = canvas.FormatJPEG
		default:
			format = input.DefaultFormat
		}
	}
	normalized := canvas.NormalizeFormat(format)
	if normalized != canvas.FormatPNG && normalized != canvas.FormatJPEG {
		return "", fmt.Errorf("export: %w: %q", canvas.ErrUnsupportedFormat, format)
	}
	return normalized, nil
}

// Export writes the displayed image of the persisted session to a file.
func (u *EditUseCase) Export(ctx context.Context, input ExportInput) error {
	if strings.TrimSpace(input.Path) == "" {
		return fmt.Errorf("export: output path cannot be empty")
	}
	format, err := ResolveExportFormat(input)
	if err != nil {
		return err
	}

	err = u.runner.View(ctx, func(ctx context.Context, s *session.Session) error {
		if err := ExportFile(ctx, s, input.Path, format); err != nil {
			return err
		}
		colors.Success(fmt.Sprintf("exported %s (%s)", input.Path, format))
		return nil
	})
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(input.Path)
	if err != nil {
		abs = input.Path
	}
	return u.runHook(ctx, hooks.PostExport, map[string]string{
		"PIXEDIT_EXPORT_PATH":   abs,
		"PIXEDIT_EXPORT_FORMAT": format,
	})
}

// ExportFile writes the displayed image of s to path. The file is replaced atomically.
func ExportFile(ctx context.Context, s *session.Session, path, format string) error {
	if s.Current() == nil {
		return fmt.Errorf("export: %w", session.ErrNoImage)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pixedit-export-*")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.Export(ctx, tmp, format); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
