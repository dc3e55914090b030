/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/spf13/cobra"
)

// NewFiltersCmd creates the filters command.
func NewFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the available filters",
		Long:  `List the filters the service understands, with intensity ranges for the parametric ones.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.WriteFilters(cmd.OutOrStdout())
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewFiltersCmd())
}
