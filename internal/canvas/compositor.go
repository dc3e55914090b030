// Package canvas renders the current snapshot and selection overlay onto the
// display surface and captures the image layer for dispatch and export.
//
// The compositor keeps two layers. The image layer holds only snapshot
// pixels; the display layer is the image layer plus the selection outline.
// Capture and Export encode the image layer, so the outline never reaches
// the filter service or the exported file.
package canvas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	"github.com/gogpu/gg"
)

var (
	// ErrStaleRender reports a render superseded by a newer request before it could paint.
	ErrStaleRender = errors.New("canvas: stale render discarded")
	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("canvas: unsupported export format")
)

// Export formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// Style configures the selection overlay.
type Style struct {
	// SelectionColor is a hex color such as "#ff0000".
	SelectionColor string
	SelectionWidth float64
}

// DefaultStyle is a 2px red outline.
var DefaultStyle = Style{SelectionColor: "#ff0000", SelectionWidth: 2}

// Frame is what the compositor paints: a snapshot and an optional selection.
type Frame struct {
	Snapshot  *snapshot.Snapshot
	Selection *selection.Region
}

// Compositor owns the surfaces. Rendering is deterministic per frame;
// decode happens off the caller's goroutine and only the latest requested
// frame may paint.
type Compositor struct {
	mu sync.Mutex
	// base holds the snapshot pixels, dc the displayed composite.
	base     *gg.Context
	dc       *gg.Context
	resolver snapshot.Resolver
	style    Style

	seq        uint64
	latestDone chan struct{}
	// decoded holds resolved pixels by snapshot ID so undo/redo does not refetch.
	decoded map[string]image.Image
}

// New creates a compositor with a width x height surface.
func New(width, height int, resolver snapshot.Resolver, style Style) *Compositor {
	if style.SelectionColor == "" {
		style.SelectionColor = DefaultStyle.SelectionColor
	}
	if style.SelectionWidth <= 0 {
		style.SelectionWidth = DefaultStyle.SelectionWidth
	}
	done := make(chan struct{})
	close(done)
	return &Compositor{
		base:       gg.NewContext(max(width, 1), max(height, 1)),
		dc:         gg.NewContext(max(width, 1), max(height, 1)),
		resolver:   resolver,
		style:      style,
		latestDone: done,
		decoded:    make(map[string]image.Image),
	}
}

// Size returns the surface dimensions.
func (c *Compositor) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Width(), c.dc.Height()
}

// Resize changes the surface dimensions and clears it. Cached decodes are dropped.
func (c *Compositor) Resize(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, layer := range []*gg.Context{c.base, c.dc} {
		if err := layer.Resize(width, height); err != nil {
			return fmt.Errorf("canvas: resize: %w", err)
		}
		layer.Clear()
	}
	c.decoded = make(map[string]image.Image)
	return nil
}

// Render requests that f be painted. The returned channel receives nil once
// painted, ErrStaleRender if a newer Render superseded it, or a decode error.
func (c *Compositor) Render(ctx context.Context, f Frame) <-chan error {
	result := make(chan error, 1)
	done := make(chan struct{})

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.latestDone = done
	cached, hit := c.lookup(f.Snapshot)
	c.mu.Unlock()

	go func() {
		defer close(done)
		img := cached
		if f.Snapshot != nil && !hit {
			var err error
			img, err = c.resolver.Resolve(ctx, f.Snapshot)
			if err != nil {
				colors.StructuredWarn("canvas", "render", "decode_failed", err, f.Snapshot.ID(), nil)
				result <- fmt.Errorf("canvas: render %s: %w", f.Snapshot.ID(), err)
				return
			}
		}
		result <- c.paint(seq, f, img)
	}()
	return result
}

func (c *Compositor) lookup(s *snapshot.Snapshot) (image.Image, bool) {
	if s == nil {
		return nil, true
	}
	img, ok := c.decoded[s.ID()]
	return img, ok
}

func (c *Compositor) paint(seq uint64, f Frame, img image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Snapshot != nil && img != nil {
		c.decoded[f.Snapshot.ID()] = img
	}
	if seq != c.seq {
		colors.StructuredDebug("canvas", "render", "stale", nil, "", map[string]interface{}{"seq": seq, "latest": c.seq})
		return ErrStaleRender
	}

	c.base.Clear()
	if img != nil {
		b := img.Bounds()
		x, y := 0.0, 0.0
		if f.Snapshot.Placement() == snapshot.PlaceCenter {
			x = float64(c.base.Width()-b.Dx()) / 2
			y = float64(c.base.Height()-b.Dy()) / 2
		}
		drawAt(c.base, img, x, y)
	}

	c.dc.Clear()
	drawAt(c.dc, c.base.Image(), 0, 0)
	if f.Selection != nil {
		c.dc.SetHexColor(c.style.SelectionColor)
		c.dc.SetLineWidth(c.style.SelectionWidth)
		r := f.Selection
		c.dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
		if err := c.dc.Stroke(); err != nil {
			return fmt.Errorf("canvas: stroke selection: %w", err)
		}
	}
	return nil
}

func drawAt(dc *gg.Context, img image.Image, x, y float64) {
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             x,
		Y:             y,
		Interpolation: gg.InterpNearest,
		Opacity:       1.0,
		BlendMode:     gg.BlendNormal,
	})
}

// Settle blocks until the most recently requested render has finished.
func (c *Compositor) Settle(ctx context.Context) error {
	for {
		c.mu.Lock()
		seq, done := c.seq, c.latestDone
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		stable := seq == c.seq
		c.mu.Unlock()
		if stable {
			return nil
		}
	}
}

// Capture settles pending renders and returns the image layer as PNG bytes.
// The selection outline is not included.
func (c *Compositor) Capture(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Export(ctx, &buf, FormatPNG, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export settles pending renders and writes the image layer as png or jpeg.
func (c *Compositor) Export(ctx context.Context, w io.Writer, format string, quality int) error {
	if err := c.Settle(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch NormalizeFormat(format) {
	case FormatPNG:
		if err := c.base.EncodePNG(w); err != nil {
			return fmt.Errorf("canvas: encode png: %w", err)
		}
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = 92
		}
		if err := c.base.EncodeJPEG(w, quality); err != nil {
			return fmt.Errorf("canvas: encode jpeg: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Image returns a copy of the displayed pixels, selection outline included.
func (c *Compositor) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc.Image()
}

// Close releases both layers.
func (c *Compositor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.base.Close(), c.dc.Close())
}

// NormalizeFormat maps format aliases to an export format; unknown values pass through.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		return FormatPNG
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return format
	}
}
