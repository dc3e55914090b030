/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/tui/editor"
	"github.com/spf13/cobra"
)

type tuiClient interface {
	Run(ctx context.Context, fn func(context.Context, *session.Session) error) error
}

// runEditor is replaced in tests so the terminal is not taken over.
var runEditor = editor.Run

// NewTUICmd creates the tui command with explicit dependencies.
func NewTUICmd(client tuiClient) *cobra.Command {
	if client == nil {
		panic("NewTUICmd: client dependency cannot be nil")
	}

	var exportPath string

	tuiCmd := &cobra.Command{
		Use:   "tui [file]",
		Short: "Open the interactive editor",
		Long: `Open the interactive editor on the saved workspace.

When a file is given it is loaded first. The workspace is saved when the
editor quits.

KEYS:
    j/k, up/down   Move through the filters
    enter          Apply the highlighted filter
    u / r          Undo / redo
    + / -          Change the intensity of the highlighted filter
    c              Clear the selection
    e              Export to the --export path
    ?              Toggle help
    q              Quit

OPTIONS:
    --export=<file>   Where the e key writes the image (default: pixedit-export.<format>)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := config.Get("export_format", "png")
			path := exportPath
			if path == "" {
				path = "pixedit-export." + format
			}
			return client.Run(cmd.Context(), func(ctx context.Context, s *session.Session) error {
				if len(args) == 1 {
					if err := s.LoadFile(ctx, args[0]); err != nil {
						return fmt.Errorf("tui: %w", err)
					}
				}
				return runEditor(ctx, editor.Options{
					Session:      s,
					ExportPath:   path,
					ExportFormat: format,
				})
			})
		},
	}

	tuiCmd.Flags().StringVar(&exportPath, "export", "", "export path used by the e key")
	return tuiCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewTUICmd(workspace))
}
