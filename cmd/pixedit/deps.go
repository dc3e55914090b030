package main

import (
	"context"
	"fmt"

	"github.com/cristianoliveira/pixedit/internal/app"
	"github.com/cristianoliveira/pixedit/internal/hooks"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/storage"
)

// workspaceClient opens the configured workspace for each call, so commands
// that never touch it (version, filters, serve-stub) do not create state.
type workspaceClient struct{}

var _ app.Runner = workspaceClient{}

func (workspaceClient) open() (*app.Workspace, error) {
	stateDir, err := storage.Init()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFromConfig()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	opts, err := app.SessionOptionsFromConfig()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app.NewWorkspace(store, opts, stateDir), nil
}

func (c workspaceClient) with(fn func(*app.Workspace) error) error {
	ws, err := c.open()
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ws)
}

func (c workspaceClient) Run(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	return c.with(func(ws *app.Workspace) error { return ws.Run(ctx, fn) })
}

func (c workspaceClient) View(ctx context.Context, fn func(context.Context, *session.Session) error) error {
	return c.with(func(ws *app.Workspace) error { return ws.View(ctx, fn) })
}

func (c workspaceClient) Reset(ctx context.Context) error {
	return c.with(func(ws *app.Workspace) error { return ws.Reset(ctx) })
}

// configHooks reads the hooks settings when a hook point fires, after the
// root command has loaded the configuration.
type configHooks struct{}

func (configHooks) Run(ctx context.Context, point string, env map[string]string) error {
	return hooks.NewFromConfig().Run(ctx, point, env)
}

var (
	workspace  = workspaceClient{}
	editClient = app.NewEditUseCase(workspace, configHooks{})
)
