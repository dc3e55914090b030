/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/filterstub"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/spf13/cobra"
)

// NewServeStubCmd creates the serve-stub command.
func NewServeStubCmd() *cobra.Command {
	var (
		addr string
		mode string
	)

	serveCmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Run a local stand-in for the filter service",
		Long: `Run a local HTTP server that accepts the same process-image requests as the
filter service. It validates every request and returns the uploaded image
unchanged, either inline as pixel rows or as a hosted URL.

OPTIONS:
    --addr=<host:port>   Listen address (default: :5000)
    --mode=<mode>        inline or hosted (default: inline)

EXAMPLES:
    pixedit serve-stub
    PIXEDIT_FILTER_ENDPOINT=http://localhost:5000/process-image pixedit apply blur`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := filterstub.Mode(mode)
			if m != filterstub.ModeInline && m != filterstub.ModeHosted {
				return fmt.Errorf("serve-stub: unknown mode %q (use inline or hosted)", mode)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("serve-stub: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			colors.Info(fmt.Sprintf("filter stub listening on %s (%s mode)", ln.Addr(), m))
			return filterstub.New(m, logging.GetGlobal()).Serve(ctx, ln)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	serveCmd.Flags().StringVar(&mode, "mode", string(filterstub.ModeInline), "response mode: inline or hosted")
	return serveCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewServeStubCmd())
}

