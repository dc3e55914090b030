/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"io"
	"os"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/spf13/cobra"
)

// statusFormatEnv sets the default status output format.
const statusFormatEnv = config.EnvPrefix + "STATUS_FORMAT"

type statusClient interface {
	Status(ctx context.Context, w io.Writer, format string) error
}

// NewStatusCmd creates the status command with explicit dependencies.
func NewStatusCmd(client statusClient) *cobra.Command {
	if client == nil {
		panic("NewStatusCmd: client dependency cannot be nil")
	}

	var formatFlag string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workspace summary",
		Long: `Show the loaded image, the history position, the active filter, the
selection and the filter intensities.

OPTIONS:
    --format=<format>   summary or json (default: summary, env PIXEDIT_STATUS_FORMAT)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := app.DetermineStatusFormat(formatFlag, os.Getenv(statusFormatEnv), cmd.Flags().Changed("format"))
			return client.Status(cmd.Context(), cmd.OutOrStdout(), format)
		},
	}

	statusCmd.Flags().StringVar(&formatFlag, "format", "", "output format: summary or json")
	return statusCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewStatusCmd(editClient))
}
