package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestPrintHelpListsCommandsInOrder(t *testing.T) {
	root := &cobra.Command{Use: "pixedit", Short: "Test root", Version: "0.3.0"}
	root.AddCommand(
		&cobra.Command{Use: "version", Short: "Show version information"},
		&cobra.Command{Use: "apply <filter>", Short: "Apply a filter"},
		&cobra.Command{Use: "load <file>", Short: "Load an image"},
		&cobra.Command{Use: "hidden-extra", Short: "Not listed"},
	)

	var buf bytes.Buffer
	PrintHelp(root, &buf)
	out := buf.String()

	require.Contains(t, out, "pixedit v0.3.0")
	require.Contains(t, out, "Test root")
	load := strings.Index(out, "load <file>")
	apply := strings.Index(out, "apply <filter>")
	ver := strings.Index(out, "version")
	require.True(t, load >= 0 && apply > load && ver > apply, "unexpected order:\n%s", out)
	require.NotContains(t, out, "hidden-extra")
}

func TestPrintHelpDefaultsVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&cobra.Command{Use: "pixedit"}, &buf)
	require.Contains(t, buf.String(), "pixedit v0.0.0")
}

func TestSetupAppliesConfigPathFlag(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("PIXEDIT_CONFIG_PATH", "")
	path := dir + "/custom.toml"
	require.NoError(t, os.WriteFile(path, []byte("export_format = \"jpeg\"\n"), 0o644))

	orig := configPath
	t.Cleanup(func() { configPath = orig })
	configPath = path

	require.NoError(t, setup(&cobra.Command{Use: "status"}))
	require.Equal(t, path, os.Getenv("PIXEDIT_CONFIG_PATH"))
	require.Equal(t, "jpeg", config.Get("export_format", ""))
}
