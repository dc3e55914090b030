/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"io"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/spf13/cobra"
)

type historyClient interface {
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	History(ctx context.Context, w io.Writer) error
}

// NewUndoCmd creates the undo command with explicit dependencies.
func NewUndoCmd(client historyClient) *cobra.Command {
	if client == nil {
		panic("NewUndoCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "undo",
		Short: "Step back to the previous image",
		Long:  `Step back one entry in the history. Nothing happens at the first step.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Undo(cmd.Context())
		},
	}
}

// NewRedoCmd creates the redo command with explicit dependencies.
func NewRedoCmd(client historyClient) *cobra.Command {
	if client == nil {
		panic("NewRedoCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "redo",
		Short: "Step forward to the next image",
		Long: `Step forward one entry in the history. Nothing happens at the last step.
Applying a filter after undo discards the steps that could be redone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Redo(cmd.Context())
		},
	}
}

// NewHistoryCmd creates the history command with explicit dependencies.
func NewHistoryCmd(client historyClient) *cobra.Command {
	if client == nil {
		panic("NewHistoryCmd: client dependency cannot be nil")
	}

	return &cobra.Command{
		Use:   "history",
		Short: "List the history steps",
		Long:  `List every step of the history. The current step is marked with *.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.History(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewUndoCmd(editClient), NewRedoCmd(editClient), NewHistoryCmd(editClient))
}
