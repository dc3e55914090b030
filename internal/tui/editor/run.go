package editor

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/pixedit/internal/colors"
)

// Run starts the editor on the terminal and blocks until it quits.
func Run(ctx context.Context, opts Options, progOpts ...tea.ProgramOption) error {
	m, err := NewModel(ctx, opts)
	if err != nil {
		return err
	}

	// Structured events on stderr would corrupt the alternate screen.
	colors.DisableStructuredLogging()
	defer colors.EnableStructuredLogging()

	progOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, progOpts...)
	if _, err := tea.NewProgram(m, progOpts...).Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}
