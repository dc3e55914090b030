/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"strings"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/spf13/cobra"
)

type applyClient interface {
	Apply(ctx context.Context, input app.ApplyInput) error
}

// NewApplyCmd creates the apply command with explicit dependencies.
func NewApplyCmd(client applyClient) *cobra.Command {
	if client == nil {
		panic("NewApplyCmd: client dependency cannot be nil")
	}

	var intensity int

	applyCmd := &cobra.Command{
		Use:   "apply <filter>",
		Short: "Apply a filter through the filter service",
		Long: `Send the current image to the filter service and add the result to the history.

Filter names are case-insensitive; multi-word names may be passed as separate
arguments. Blur, Noise and Pixalate take an intensity. When the current
selection is set the filter only affects that region.

OPTIONS:
    --intensity=<n>   Set the filter intensity before applying

EXAMPLES:
    pixedit apply grayscale
    pixedit apply halftone add
    pixedit apply blur --intensity 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := app.ApplyInput{Filter: strings.Join(args, " ")}
			if cmd.Flags().Changed("intensity") {
				input.Intensity = &intensity
			}
			return client.Apply(cmd.Context(), input)
		},
	}

	applyCmd.Flags().IntVar(&intensity, "intensity", 0, "filter intensity (Blur, Noise, Pixalate)")
	return applyCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewApplyCmd(editClient))
}
