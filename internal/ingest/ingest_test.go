package ingest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cristianoliveira/pixedit/internal/snapshot"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	b := Bounds{Width: 800, Height: 600}
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "matching aspect ratio", w: 1600, h: 1200, wantW: 800, wantH: 600},
		{name: "width constrained", w: 1200, h: 600, wantW: 800, wantH: 400},
		{name: "height constrained", w: 600, h: 1200, wantW: 300, wantH: 600},
		{name: "within bounds", w: 640, h: 480, wantW: 640, wantH: 480},
		{name: "exactly bounds", w: 800, h: 600, wantW: 800, wantH: 600},
		{name: "one dimension over", w: 900, h: 100, wantW: 800, wantH: 89},
		{name: "extreme strip keeps one pixel", w: 100000, h: 1, wantW: 800, wantH: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, b)
			require.Equal(t, tt.wantW, w)
			require.Equal(t, tt.wantH, h)
		})
	}
}

func TestIngestScalesToBounds(t *testing.T) {
	p := NewPipeline(Bounds{Width: 80, Height: 60})
	res, err := p.Ingest(context.Background(), bytes.NewReader(encodePNG(t, 160, 120)))
	require.NoError(t, err)

	w, h := res.Snapshot.Size()
	require.Equal(t, 80, w)
	require.Equal(t, 60, h)
	require.Equal(t, 160, res.SourceWidth)
	require.Equal(t, "png", res.Format)
	require.Equal(t, snapshot.PlaceOrigin, res.Snapshot.Placement())
	require.Empty(t, res.Snapshot.Filter())

	decoded, err := png.Decode(bytes.NewReader(res.Snapshot.Data()))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 80, 60), decoded.Bounds())
}

func TestIngestKeepsSmallImagesNative(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	p := NewPipeline(DefaultBounds)
	res, err := p.Ingest(context.Background(), &buf)
	require.NoError(t, err)
	w, h := res.Snapshot.Size()
	require.Equal(t, 30, w)
	require.Equal(t, 20, h)
	require.Equal(t, "jpeg", res.Format)
}

func TestIngestErrors(t *testing.T) {
	p := NewPipeline(DefaultBounds)

	_, err := p.Ingest(context.Background(), strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptyImage)

	_, err = p.Ingest(context.Background(), strings.NewReader("definitely not an image"))
	require.ErrorIs(t, err, ErrDecode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Ingest(ctx, bytes.NewReader(encodePNG(t, 4, 4)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 12, 8), 0o644))

	p := NewPipeline(Bounds{})
	require.Equal(t, DefaultBounds, p.Bounds())

	res, err := p.IngestFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 12, res.Image.Bounds().Dx())

	_, err = p.IngestFile(context.Background(), filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}
