/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/spf13/cobra"
)

type resetClient interface {
	Reset(ctx context.Context) error
}

// NewResetCmd creates the reset command with explicit dependencies.
func NewResetCmd(client resetClient) *cobra.Command {
	if client == nil {
		panic("NewResetCmd: client dependency cannot be nil")
	}

	var yes bool

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved workspace",
		Long: `Discard the saved image, history, selection and intensities.

The command asks for confirmation unless --yes is given or CI is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && os.Getenv("CI") == "" && !confirmReset(cmd.InOrStdin(), cmd.OutOrStdout()) {
				colors.Info("Operation cancelled")
				return nil
			}
			if err := client.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			colors.Success("workspace reset")
			return nil
		},
	}

	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return resetCmd
}

// confirmReset asks the user for confirmation before discarding the workspace.
func confirmReset(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Discard the saved workspace? [y/N] ")
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	cmd.RootCmd.AddCommand(NewResetCmd(workspace))
}
