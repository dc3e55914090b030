/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/spf13/cobra"
)

type selectClient interface {
	Select(ctx context.Context, r selection.Region) error
	ClearSelection(ctx context.Context) error
}

// NewSelectCmd creates the select command with explicit dependencies.
func NewSelectCmd(client selectClient) *cobra.Command {
	if client == nil {
		panic("NewSelectCmd: client dependency cannot be nil")
	}

	var clearFlag bool

	selectCmd := &cobra.Command{
		Use:   "select <x y width height>",
		Short: "Set or clear the selection region",
		Long: `Set the rectangular region that filters are restricted to.

Coordinates are surface pixels and may be given as four arguments or as a
single comma-separated value. Width and height must not be negative.

OPTIONS:
    --clear   Remove the selection

EXAMPLES:
    pixedit select 10 20 100 50
    pixedit select 10,20,100,50
    pixedit select -- -10 0 50 50
    pixedit select --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearFlag {
				if len(args) > 0 {
					return fmt.Errorf("select: --clear takes no arguments")
				}
				return client.ClearSelection(cmd.Context())
			}
			r, err := parseRegion(args)
			if err != nil {
				return err
			}
			return client.Select(cmd.Context(), r)
		},
	}

	selectCmd.Flags().BoolVar(&clearFlag, "clear", false, "remove the selection")
	return selectCmd
}

func parseRegion(args []string) (selection.Region, error) {
	switch len(args) {
	case 1:
		return selection.Parse(args[0])
	case 4:
		return selection.Parse(strings.Join(args, ","))
	default:
		return selection.Region{}, fmt.Errorf("select: expected x y width height, got %d arguments", len(args))
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewSelectCmd(editClient))
}
