// Package ingest loads a source image, fits it to the display bounds and
// produces the first snapshot of an edit session.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode indicates the source asset could not be rasterized.
	ErrDecode = errors.New("ingest: cannot decode image")
	// ErrEmptyImage indicates an empty asset or a zero-sized image.
	ErrEmptyImage = errors.New("ingest: empty image")
)

// Bounds is the maximum display size of an ingested image.
type Bounds struct {
	Width  int
	Height int
}

// DefaultBounds matches the editor's display area.
var DefaultBounds = Bounds{Width: 800, Height: 600}

// Fit returns the display size of a w x h image within b. Images already within
// bounds keep their native size; larger ones are scaled down preserving aspect
// ratio so the constraining dimension hits its bound.
func Fit(w, h int, b Bounds) (int, int) {
	if w <= 0 || h <= 0 || b.Width <= 0 || b.Height <= 0 {
		return w, h
	}
	if w <= b.Width && h <= b.Height {
		return w, h
	}
	scale := math.Min(float64(b.Width)/float64(w), float64(b.Height)/float64(h))
	fw := int(math.Round(float64(w) * scale))
	fh := int(math.Round(float64(h) * scale))
	return max(fw, 1), max(fh, 1)
}

// Result is the outcome of a successful ingestion.
type Result struct {
	Snapshot *snapshot.Snapshot
	// Image is the rasterized display-size image the snapshot encodes.
	Image  image.Image
	Format string
	// SourceWidth and SourceHeight are the dimensions before fitting.
	SourceWidth  int
	SourceHeight int
}

// Pipeline decodes and fits source images.
type Pipeline struct {
	bounds Bounds
	scaler xdraw.Scaler
}

// NewPipeline creates a pipeline for the given bounds.
func NewPipeline(b Bounds) *Pipeline {
	if b.Width <= 0 || b.Height <= 0 {
		b = DefaultBounds
	}
	return &Pipeline{bounds: b, scaler: xdraw.CatmullRom}
}

// Bounds returns the pipeline's display bounds.
func (p *Pipeline) Bounds() Bounds { return p.bounds }

// IngestFile opens path and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return p.Ingest(ctx, f)
}

// Ingest decodes r, scales it to the display bounds and encodes the first snapshot.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: read: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, ErrEmptyImage
	}

	w, h := Fit(sb.Dx(), sb.Dy(), p.bounds)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	p.scaler.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	colors.Debug(fmt.Sprintf("ingest: %s %dx%d -> %dx%d", format, sb.Dx(), sb.Dy(), w, h))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("ingest: encode: %w", err)
	}
	snap, err := snapshot.NewEncoded("png", buf.Bytes(), snapshot.Options{
		Width:     w,
		Height:    h,
		Placement: snapshot.PlaceOrigin,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Snapshot:     snap,
		Image:        dst,
		Format:       format,
		SourceWidth:  sb.Dx(),
		SourceHeight: sb.Dy(),
	}, nil
}
