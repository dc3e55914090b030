// Package app holds the editing use-cases shared by the CLI commands.
package app

import (
	"fmt"
	"time"

	"github.com/cristianoliveira/pixedit/internal/canvas"
	"github.com/cristianoliveira/pixedit/internal/config"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/ingest"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// SessionOptionsFromConfig builds session options from the loaded configuration:
// the filter service client, display bounds, overlay style and initial parameters.
func SessionOptionsFromConfig() (session.Options, error) {
	config.Load()

	timeout := time.Duration(config.GetInt("request_timeout_seconds", 60)) * time.Second
	client, err := filter.NewClient(config.Get("filter_endpoint", filter.DefaultEndpoint), timeout)
	if err != nil {
		return session.Options{}, fmt.Errorf("filter client: %w", err)
	}

	return session.Options{
		Bounds: ingest.Bounds{
			Width:  config.GetInt("max_width", ingest.DefaultBounds.Width),
			Height: config.GetInt("max_height", ingest.DefaultBounds.Height),
		},
		Processor: client,
		Resolver:  snapshot.NewHTTPResolver(timeout),
		Style: canvas.Style{
			SelectionColor: config.Get("selection_color", canvas.DefaultStyle.SelectionColor),
			SelectionWidth: float64(config.GetInt("selection_width", int(canvas.DefaultStyle.SelectionWidth))),
		},
		Parameters: map[filter.ID]int{
			filter.Blur:     config.GetInt("blur_intensity", 1),
			filter.Noise:    config.GetInt("noise_intensity", 25),
			filter.Pixalate: config.GetInt("pixel_intensity", 1),
		},
		ExportQuality: config.GetInt("export_quality", 92),
		Logger:        logging.GetGlobal(),
	}, nil
}
