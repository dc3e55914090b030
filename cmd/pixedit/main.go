package main

import (
	"os"

	"github.com/cristianoliveira/pixedit/cmd"
	"github.com/cristianoliveira/pixedit/internal/colors"
)

func main() {
	os.Exit(run(os.Args[1:], cmd.Execute))
}

// run executes the CLI and returns the process exit code. The interactive
// editor owns the terminal, so startup events are skipped for it.
func run(args []string, execute func() error) int {
	interactive := len(args) > 0 && args[0] == "tui"
	if !interactive {
		colors.StructuredInfo("startup", "main", "started", nil, "", nil)
	}
	if err := execute(); err != nil {
		if !interactive {
			colors.StructuredError("startup", "main", "failed", err, "", nil)
		}
		return 1
	}
	if !interactive {
		colors.StructuredInfo("startup", "main", "completed", nil, "", nil)
	}
	return 0
}
