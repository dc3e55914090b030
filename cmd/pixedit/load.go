/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/spf13/cobra"
)

type loadClient interface {
	Load(ctx context.Context, path string) error
}

// NewLoadCmd creates the load command with explicit dependencies.
func NewLoadCmd(client loadClient) *cobra.Command {
	if client == nil {
		panic("NewLoadCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load an image and start a new history",
		Long: `Load an image file into the workspace.

The image is decoded, downscaled to fit the configured bounds and becomes the
first step of a new history. Any previous history is discarded.

EXAMPLES:
    pixedit load photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Load(cmd.Context(), args[0])
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewLoadCmd(editClient))
}
