/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/cristianoliveira/pixedit/internal/errors"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/cristianoliveira/pixedit/internal/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
	quietFlag  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:           "pixedit",
	Short:         "A terminal photo editor backed by a remote filter service.",
	Long:          `A terminal photo editor backed by a remote filter service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute runs the root command and reports a failure through the CLI handler.
func Execute() error {
	defer func() { _ = logging.ShutdownGlobal() }()

	err := RootCmd.Execute()
	if err != nil {
		errors.Report(errors.NewDefaultCLIHandler(), err)
	}
	return err
}

func init() {
	RootCmd.Version = version.String()
	RootCmd.CompletionOptions.HiddenDefaultCmd = true

	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pixedit/config.toml)")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "print debug output and structured events")
	RootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "suppress informational output")

	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != cmd.Root() {
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(cmd.Long))
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		PrintHelp(cmd, cmd.OutOrStdout())
	})
}

func setup(cmd *cobra.Command) error {
	if configPath != "" {
		if err := os.Setenv(config.ConfigPathEnv, configPath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	config.Load()

	colors.SetDebug(debugFlag || config.GetBool("debug", false))
	colors.SetQuiet(quietFlag || config.GetBool("quiet", false))

	if err := logging.InitGlobal(); err != nil {
		// The editor still works without a log file.
		colors.Warning(fmt.Sprintf("file logging disabled: %v", err))
	}
	colors.StructuredDebug("cli", "command", "started", nil, "", map[string]any{"command": cmd.Name()})
	return nil
}

// commandOrder is the order commands are listed in the help output.
var commandOrder = []string{
	"load",
	"apply",
	"undo",
	"redo",
	"history",
	"select",
	"param",
	"status",
	"export",
	"filters",
	"reset",
	"tui",
	"serve-stub",
	"help",
	"version",
}

// PrintHelp writes the root help text to w.
func PrintHelp(cmd *cobra.Command, w io.Writer) {
	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %s%-20s%s %s%s%s", colors.Cyan, found.Use, colors.Reset, colors.Green, found.Short, colors.Reset))
	}

	versionStr := cmd.Version
	if versionStr == "" {
		versionStr = "0.0.0"
	}

	fmt.Fprintf(w, `%spixedit v%s%s

%s%s%s

%sUSAGE:%s
    pixedit [COMMAND] [OPTIONS]

%sCOMMANDS:%s
%s

%sOPTIONS:%s
    --config <file>   Use this config file
    --debug           Print debug output
    --quiet           Suppress informational output
    -h, --help        Show help message
`, colors.Blue, versionStr, colors.Reset,
		colors.Cyan, cmd.Short, colors.Reset,
		colors.Blue, colors.Reset,
		colors.Blue, colors.Reset, strings.Join(cmdLines, "\n"),
		colors.Blue, colors.Reset)
}
