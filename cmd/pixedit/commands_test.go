package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/tui/editor"
	"github.com/cristianoliveira/pixedit/internal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type fakeEditClient struct {
	calls     []string
	applied   []app.ApplyInput
	region    selection.Region
	paramName string
	paramVal  int
	status    string
	exported  app.ExportInput
	err       error
}

func (f *fakeEditClient) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeEditClient) Load(_ context.Context, path string) error {
	return f.record("load " + path)
}

func (f *fakeEditClient) Apply(_ context.Context, input app.ApplyInput) error {
	f.applied = append(f.applied, input)
	return f.record("apply")
}

func (f *fakeEditClient) Undo(context.Context) error { return f.record("undo") }
func (f *fakeEditClient) Redo(context.Context) error { return f.record("redo") }

func (f *fakeEditClient) History(_ context.Context, w io.Writer) error {
	fmt.Fprintln(w, "*   1  history")
	return f.record("history")
}

func (f *fakeEditClient) Select(_ context.Context, r selection.Region) error {
	f.region = r
	return f.record("select")
}

func (f *fakeEditClient) ClearSelection(context.Context) error { return f.record("clear") }

func (f *fakeEditClient) SetParameter(_ context.Context, name string, v int) error {
	f.paramName, f.paramVal = name, v
	return f.record("set-param")
}

func (f *fakeEditClient) ShowParameter(_ context.Context, w io.Writer, name string) error {
	fmt.Fprintf(w, "%s shown\n", name)
	return f.record("show-param")
}

func (f *fakeEditClient) Status(_ context.Context, _ io.Writer, format string) error {
	f.status = format
	return f.record("status")
}

func (f *fakeEditClient) Export(_ context.Context, input app.ExportInput) error {
	f.exported = input
	return f.record("export")
}

func (f *fakeEditClient) Reset(context.Context) error { return f.record("reset") }

type fakeTUIClient struct {
	ran bool
	err error
}

func (f *fakeTUIClient) Run(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	f.ran = true
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	c.SetOut(out)
	c.SetErr(out)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsPanicWhenClientIsNil(t *testing.T) {
	constructors := map[string]func(){
		"load":    func() { NewLoadCmd(nil) },
		"apply":   func() { NewApplyCmd(nil) },
		"undo":    func() { NewUndoCmd(nil) },
		"redo":    func() { NewRedoCmd(nil) },
		"history": func() { NewHistoryCmd(nil) },
		"select":  func() { NewSelectCmd(nil) },
		"param":   func() { NewParamCmd(nil) },
		"status":  func() { NewStatusCmd(nil) },
		"export":  func() { NewExportCmd(nil) },
		"reset":   func() { NewResetCmd(nil) },
		"tui":     func() { NewTUICmd(nil) },
	}
	for name, fn := range constructors {
		t.Run(name, func(t *testing.T) {
			require.PanicsWithValue(t, fmt.Sprintf("New%sCmd: client dependency cannot be nil", commandTypeName(name)), fn)
		})
	}
}

func commandTypeName(name string) string {
	if name == "tui" {
		return "TUI"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func TestLoadCmd(t *testing.T) {
	client := &fakeEditClient{}
	_, err := execute(t, NewLoadCmd(client), "photo.png")
	require.NoError(t, err)
	require.Equal(t, []string{"load photo.png"}, client.calls)

	_, err = execute(t, NewLoadCmd(client))
	require.Error(t, err)
}

func TestApplyCmdJoinsFilterWords(t *testing.T) {
	client := &fakeEditClient{}
	_, err := execute(t, NewApplyCmd(client), "halftone", "add")
	require.NoError(t, err)
	require.Len(t, client.applied, 1)
	require.Equal(t, "halftone add", client.applied[0].Filter)
	require.Nil(t, client.applied[0].Intensity)
}

func TestApplyCmdPassesIntensityOnlyWhenSet(t *testing.T) {
	client := &fakeEditClient{}
	_, err := execute(t, NewApplyCmd(client), "blur", "--intensity", "4")
	require.NoError(t, err)
	require.NotNil(t, client.applied[0].Intensity)
	require.Equal(t, 4, *client.applied[0].Intensity)

	_, err = execute(t, NewApplyCmd(client), "noise", "--intensity", "0")
	require.NoError(t, err)
	require.NotNil(t, client.applied[1].Intensity)
	require.Equal(t, 0, *client.applied[1].Intensity)
}

func TestApplyCmdReturnsClientError(t *testing.T) {
	client := &fakeEditClient{err: errors.New("service down")}
	_, err := execute(t, NewApplyCmd(client), "grayscale")
	require.EqualError(t, err, "service down")
}

func TestHistoryCommands(t *testing.T) {
	client := &fakeEditClient{}
	_, err := execute(t, NewUndoCmd(client))
	require.NoError(t, err)
	_, err = execute(t, NewRedoCmd(client))
	require.NoError(t, err)
	out, err := execute(t, NewHistoryCmd(client))
	require.NoError(t, err)
	require.Equal(t, "*   1  history\n", out)
	require.Equal(t, []string{"undo", "redo", "history"}, client.calls)

	_, err = execute(t, NewUndoCmd(client), "extra")
	require.Error(t, err)
}

func TestSelectCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    selection.Region
		wantErr string
	}{
		{name: "four arguments", args: []string{"10", "20", "30", "40"}, want: selection.Region{X: 10, Y: 20, Width: 30, Height: 40}},
		{name: "comma separated", args: []string{"5,0,8,9"}, want: selection.Region{X: 5, Y: 0, Width: 8, Height: 9}},
		{name: "wrong count", args: []string{"1", "2"}, wantErr: "expected x y width height"},
		{name: "negative size", args: []string{"0,0,-1,4"}, wantErr: "must be >= 0"},
		{name: "not a number", args: []string{"a", "b", "c", "d"}, wantErr: "invalid number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeEditClient{}
			_, err := execute(t, NewSelectCmd(client), tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				require.Empty(t, client.calls)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, client.region)
		})
	}
}

func TestSelectCmdClear(t *testing.T) {
	client := &fakeEditClient{}
	_, err := execute(t, NewSelectCmd(client), "--clear")
	require.NoError(t, err)
	require.Equal(t, []string{"clear"}, client.calls)

	_, err = execute(t, NewSelectCmd(client), "--clear", "1,2,3,4")
	require.ErrorContains(t, err, "--clear takes no arguments")
}

func TestParamCmd(t *testing.T) {
	client := &fakeEditClient{}
	out, err := execute(t, NewParamCmd(client), "blur")
	require.NoError(t, err)
	require.Equal(t, "blur shown\n", out)

	_, err = execute(t, NewParamCmd(client), "noise", "120")
	require.NoError(t, err)
	require.Equal(t, "noise", client.paramName)
	require.Equal(t, 120, client.paramVal)

	_, err = execute(t, NewParamCmd(client), "noise", "lots")
	require.ErrorContains(t, err, `invalid value "lots"`)
}

func TestStatusCmdFormat(t *testing.T) {
	client := &fakeEditClient{}
	t.Setenv(statusFormatEnv, "")
	_, err := execute(t, NewStatusCmd(client))
	require.NoError(t, err)
	require.Equal(t, app.StatusFormatSummary, client.status)

	t.Setenv(statusFormatEnv, "json")
	_, err = execute(t, NewStatusCmd(client))
	require.NoError(t, err)
	require.Equal(t, app.StatusFormatJSON, client.status)

	_, err = execute(t, NewStatusCmd(client), "--format", "summary")
	require.NoError(t, err)
	require.Equal(t, app.StatusFormatSummary, client.status)
}

func TestExportCmd(t *testing.T) {
	config.Set("export_format", "jpeg")
	t.Cleanup(func() { config.Set("export_format", "png") })

	client := &fakeEditClient{}
	_, err := execute(t, NewExportCmd(client), "out", "--format", "png")
	require.NoError(t, err)
	require.Equal(t, app.ExportInput{Path: "out", Format: "png", DefaultFormat: "jpeg"}, client.exported)
}

func TestFiltersCmd(t *testing.T) {
	out, err := execute(t, NewFiltersCmd())
	require.NoError(t, err)
	require.Contains(t, out, "Grayscale\n")
	require.Contains(t, out, "blurIntensity 1-10 (default 1)")
}

func TestResetCmd(t *testing.T) {
	t.Setenv("CI", "")

	t.Run("confirmed", func(t *testing.T) {
		client := &fakeEditClient{}
		c := NewResetCmd(client)
		c.SetIn(strings.NewReader("y\n"))
		out, err := execute(t, c)
		require.NoError(t, err)
		require.Contains(t, out, "[y/N]")
		require.Equal(t, []string{"reset"}, client.calls)
	})

	t.Run("declined", func(t *testing.T) {
		client := &fakeEditClient{}
		c := NewResetCmd(client)
		c.SetIn(strings.NewReader("n\n"))
		_, err := execute(t, c)
		require.NoError(t, err)
		require.Empty(t, client.calls)
	})

	t.Run("no input", func(t *testing.T) {
		client := &fakeEditClient{}
		c := NewResetCmd(client)
		c.SetIn(strings.NewReader(""))
		_, err := execute(t, c)
		require.NoError(t, err)
		require.Empty(t, client.calls)
	})

	t.Run("yes flag", func(t *testing.T) {
		client := &fakeEditClient{}
		_, err := execute(t, NewResetCmd(client), "--yes")
		require.NoError(t, err)
		require.Equal(t, []string{"reset"}, client.calls)
	})

	t.Run("error is wrapped", func(t *testing.T) {
		client := &fakeEditClient{err: errors.New("locked")}
		_, err := execute(t, NewResetCmd(client), "-y")
		require.EqualError(t, err, "reset: locked")
	})
}

func TestTUICmdRunsEditorInsideWorkspace(t *testing.T) {
	orig := runEditor
	t.Cleanup(func() { runEditor = orig })

	var got editor.Options
	runEditor = func(_ context.Context, opts editor.Options, _ ...tea.ProgramOption) error {
		got = opts
		return nil
	}

	client := &fakeTUIClient{}
	_, err := execute(t, NewTUICmd(client), "--export", "edited.png")
	require.NoError(t, err)
	require.True(t, client.ran)
	require.Equal(t, "edited.png", got.ExportPath)

	_, err = execute(t, NewTUICmd(client))
	require.NoError(t, err)
	require.Equal(t, "pixedit-export."+got.ExportFormat, got.ExportPath)
}

func TestTUICmdReturnsWorkspaceError(t *testing.T) {
	orig := runEditor
	t.Cleanup(func() { runEditor = orig })
	runEditor = func(context.Context, editor.Options, ...tea.ProgramOption) error {
		t.Fatal("editor must not start")
		return nil
	}

	_, err := execute(t, NewTUICmd(&fakeTUIClient{err: errors.New("workspace is locked by another process")}))
	require.ErrorContains(t, err, "locked")
}

func TestServeStubCmdRejectsUnknownMode(t *testing.T) {
	_, err := execute(t, NewServeStubCmd(), "--mode", "mirror")
	require.ErrorContains(t, err, `unknown mode "mirror"`)
}

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit := version.Version, version.Commit
	t.Cleanup(func() { version.Version, version.Commit = origVersion, origCommit })
	version.Version = "1.2.0"
	version.Commit = "abcdef123"

	out, err := execute(t, NewVersionCmd())
	require.NoError(t, err)
	require.Equal(t, "pixedit version 1.2.0+abcdef1\n", out)

	out, err = execute(t, NewVersionCmd(), "--json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, "1.2.0", info.Version)
	require.Equal(t, "abcdef123", info.Commit)
}
