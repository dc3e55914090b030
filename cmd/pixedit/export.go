/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/spf13/cobra"
)

type exportClient interface {
	Export(ctx context.Context, input app.ExportInput) error
}

// NewExportCmd creates the export command with explicit dependencies.
func NewExportCmd(client exportClient) *cobra.Command {
	if client == nil {
		panic("NewExportCmd: client dependency cannot be nil")
	}

	var formatFlag string

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the current image to a file",
		Long: `Write the displayed image, as shown on the canvas, to a file.

The format comes from --format, then the file extension, then the
export_format setting. Supported formats are png and jpeg.

EXAMPLES:
    pixedit export out.png
    pixedit export out --format jpeg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Export(cmd.Context(), app.ExportInput{
				Path:          args[0],
				Format:        formatFlag,
				DefaultFormat: config.Get("export_format", "png"),
			})
		},
	}

	exportCmd.Flags().StringVar(&formatFlag, "format", "", "output format: png or jpeg")
	return exportCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewExportCmd(editClient))
}
