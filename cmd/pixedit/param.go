/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/spf13/cobra"
)

type paramClient interface {
	SetParameter(ctx context.Context, name string, v int) error
	ShowParameter(ctx context.Context, w io.Writer, name string) error
}

// NewParamCmd creates the param command with explicit dependencies.
func NewParamCmd(client paramClient) *cobra.Command {
	if client == nil {
		panic("NewParamCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "param <filter> [value]",
		Short: "Show or set a filter intensity",
		Long: `Show or set the intensity used by Blur, Noise and Pixalate.

Without a value the current intensity and its range are printed. The stored
value is sent with every later application of that filter.

EXAMPLES:
    pixedit param blur
    pixedit param noise 120`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return client.ShowParameter(cmd.Context(), cmd.OutOrStdout(), args[0])
			}
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("param: invalid value %q", args[1])
			}
			return client.SetParameter(cmd.Context(), args[0], v)
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewParamCmd(editClient))
}
