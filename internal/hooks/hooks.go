// Package hooks runs user scripts around editing operations.
//
// Scripts live in <hooks_dir>/<hook point>/ and run in name order. A script
// is skipped unless it is executable. Every script receives the hook point,
// a timestamp and the operation details as PIXEDIT_* environment variables.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/config"
)

// Hook points.
const (
	PostLoad   = "post-load"
	PreApply   = "pre-apply"
	PostApply  = "post-apply"
	PostExport = "post-export"
)

// Failure modes.
const (
	FailureAbort  = "abort"
	FailureWarn   = "warn"
	FailureIgnore = "ignore"
)

// DirEnv overrides the configured hooks directory.
const DirEnv = config.EnvPrefix + "HOOKS_DIR"

const defaultTimeout = 30 * time.Second

// Runner executes the scripts of a hook point.
type Runner struct {
	dir         string
	failureMode string
	timeout     time.Duration
	output      io.Writer
}

// NewRunner creates a runner. Empty or unknown values fall back to warn mode
// and a 30 second timeout; a nil output discards script output.
func NewRunner(dir, failureMode string, timeout time.Duration, output io.Writer) *Runner {
	switch failureMode {
	case FailureAbort, FailureWarn, FailureIgnore:
	default:
		failureMode = FailureWarn
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if output == nil {
		output = io.Discard
	}
	return &Runner{dir: dir, failureMode: failureMode, timeout: timeout, output: output}
}

// NewFromConfig creates a runner from the loaded configuration. Script output
// goes to stderr.
func NewFromConfig() *Runner {
	config.Load()
	dir := os.Getenv(DirEnv)
	if dir == "" {
		dir = config.Get("hooks_dir", "")
	}
	return NewRunner(
		dir,
		config.Get("hooks_failure_mode", FailureWarn),
		time.Duration(config.GetInt("hooks_timeout_seconds", 30))*time.Second,
		os.Stderr,
	)
}

// Dir returns the hooks directory.
func (r *Runner) Dir() string { return r.dir }

// Run executes the scripts of point with env added to the process
// environment. In abort mode the first failing script stops the run and its
// error is returned; otherwise failures are reported and Run returns nil.
func (r *Runner) Run(ctx context.Context, point string, env map[string]string) error {
	scripts, err := r.scripts(point)
	if err != nil || len(scripts) == 0 {
		return err
	}

	vars := map[string]string{
		config.EnvPrefix + "HOOK_POINT":     point,
		config.EnvPrefix + "HOOK_TIMESTAMP": time.Now().UTC().Format(time.RFC3339),
	}
	if exe, err := os.Executable(); err == nil {
		vars[config.EnvPrefix+"BINARY"] = exe
	}
	for k, v := range env {
		vars[k] = v
	}
	environ := os.Environ()
	for k, v := range vars {
		environ = append(environ, k+"="+v)
	}

	colors.Debug(fmt.Sprintf("running %s hooks (%d script(s))", point, len(scripts)))
	for _, script := range scripts {
		if err := r.runScript(ctx, point, script, environ); err != nil {
			switch r.failureMode {
			case FailureAbort:
				return err
			case FailureWarn:
				colors.Warning(err.Error())
			}
		}
	}
	return nil
}

func (r *Runner) scripts(point string) ([]string, error) {
	if r.dir == "" {
		return nil, nil
	}
	dir := filepath.Join(r.dir, point)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("hooks: read %s: %w", dir, err)
	}

	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		scripts = append(scripts, path)
	}
	sort.Strings(scripts)
	return scripts, nil
}

func (r *Runner) runScript(ctx context.Context, point, path string, environ []string) error {
	start := time.Now()
	name := filepath.Base(path)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path)
	cmd.Env = environ
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children of a killed script may keep the output pipe open.
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	if out.Len() > 0 {
		_, _ = r.output.Write(out.Bytes())
	}

	fields := map[string]any{
		"point":            point,
		"script":           name,
		"duration_seconds": time.Since(start).Seconds(),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", r.timeout)
		}
		err = fmt.Errorf("hook %s/%s failed: %w: %s", point, name, err, strings.TrimSpace(out.String()))
		colors.StructuredWarn("hooks", "run", "failed", err, "", fields)
		return err
	}
	colors.StructuredDebug("hooks", "run", "completed", nil, "", fields)
	return nil
}
