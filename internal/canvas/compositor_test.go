package canvas

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	"github.com/stretchr/testify/require"
)

// fakeResolver returns solid images keyed by snapshot filter label and can
// hold individual snapshots until released.
type fakeResolver struct {
	mu     sync.Mutex
	colors map[string]color.NRGBA
	size   map[string]image.Point
	gates  map[string]chan struct{}
	calls  map[string]int
	fail   map[string]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		colors: make(map[string]color.NRGBA),
		size:   make(map[string]image.Point),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

func (f *fakeResolver) Resolve(ctx context.Context, s *snapshot.Snapshot) (image.Image, error) {
	f.mu.Lock()
	f.calls[s.ID()]++
	gate := f.gates[s.ID()]
	c := f.colors[s.ID()]
	sz := f.size[s.ID()]
	err := f.fail[s.ID()]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, sz.X, sz.Y))
	for y := 0; y < sz.Y; y++ {
		for x := 0; x < sz.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

func (f *fakeResolver) add(t *testing.T, c color.NRGBA, w, h int, placement snapshot.Placement) *snapshot.Snapshot {
	t.Helper()
	s, err := snapshot.NewEncoded("png", []byte{1}, snapshot.Options{Width: w, Height: h, Placement: placement})
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colors[s.ID()] = c
	f.size[s.ID()] = image.Pt(w, h)
	return s
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("render did not complete")
		return nil
	}
}

func rgbaAt(img image.Image, x, y int) (uint8, uint8, uint8, uint8) {
	r, g, b, a := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)
}

func TestRenderAtOrigin(t *testing.T) {
	res := newFakeResolver()
	c := New(10, 10, res, DefaultStyle)
	s := res.add(t, red, 4, 4, snapshot.PlaceOrigin)

	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s})))

	img := c.Image()
	r, g, _, a := rgbaAt(img, 1, 1)
	require.Equal(t, uint8(255), r)
	require.Equal(t, uint8(0), g)
	require.Equal(t, uint8(255), a)

	_, _, _, a = rgbaAt(img, 8, 8)
	require.Equal(t, uint8(0), a, "outside the image the surface stays clear")
}

func TestRenderCentersFilterResults(t *testing.T) {
	res := newFakeResolver()
	c := New(10, 10, res, DefaultStyle)
	s := res.add(t, blue, 4, 4, snapshot.PlaceCenter)

	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s})))

	img := c.Image()
	_, _, b, _ := rgbaAt(img, 5, 5)
	require.Equal(t, uint8(255), b)
	_, _, _, a := rgbaAt(img, 0, 0)
	require.Equal(t, uint8(0), a)
}

func TestRenderDrawsSelectionOutline(t *testing.T) {
	res := newFakeResolver()
	c := New(20, 20, res, Style{SelectionColor: "#ff0000", SelectionWidth: 2})
	s := res.add(t, white, 20, 20, snapshot.PlaceOrigin)

	sel := selection.Region{X: 5, Y: 5, Width: 10, Height: 10}
	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s, Selection: &sel})))

	img := c.Image()
	r, g, _, _ := rgbaAt(img, 5, 10)
	require.Greater(t, r, uint8(200))
	require.Less(t, g, uint8(200), "outline pixel should be tinted by the stroke color")

	_, g, _, _ = rgbaAt(img, 10, 10)
	require.Equal(t, uint8(255), g, "interior stays untouched")
}

func TestCaptureExcludesSelectionOutline(t *testing.T) {
	res := newFakeResolver()
	c := New(20, 20, res, DefaultStyle)
	s := res.add(t, white, 20, 20, snapshot.PlaceOrigin)

	sel := selection.Region{X: 5, Y: 5, Width: 10, Height: 10}
	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s, Selection: &sel})))

	_, g, _, _ := rgbaAt(c.Image(), 5, 10)
	require.Less(t, g, uint8(200), "display shows the outline")

	data, err := c.Capture(context.Background())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := rgbaAt(img, 5, 10)
	require.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
}

func TestStaleRenderIsDiscarded(t *testing.T) {
	res := newFakeResolver()
	c := New(4, 4, res, DefaultStyle)

	slow := res.add(t, red, 4, 4, snapshot.PlaceOrigin)
	fast := res.add(t, blue, 4, 4, snapshot.PlaceOrigin)
	gate := make(chan struct{})
	res.gates[slow.ID()] = gate

	slowCh := c.Render(context.Background(), Frame{Snapshot: slow})
	fastCh := c.Render(context.Background(), Frame{Snapshot: fast})
	require.NoError(t, wait(t, fastCh))

	close(gate)
	require.ErrorIs(t, wait(t, slowCh), ErrStaleRender)

	_, _, b, _ := rgbaAt(c.Image(), 2, 2)
	require.Equal(t, uint8(255), b, "the newer frame must stay painted")
}

func TestDecodedImagesAreCached(t *testing.T) {
	res := newFakeResolver()
	c := New(4, 4, res, DefaultStyle)
	s := res.add(t, red, 4, 4, snapshot.PlaceOrigin)

	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s})))
	require.NoError(t, wait(t, c.Render(context.Background(), Frame{Snapshot: s})))
	res.mu.Lock()
	defer res.mu.Unlock()
	require.Equal(t, 1, res.calls[s.ID()])
}

func TestRenderReportsDecodeFailure(t *testing.T) {
	res := newFakeResolver()
	c := New(4, 4, res, DefaultStyle)
	s := res.add(t, red, 4, 4, snapshot.PlaceOrigin)
	res.fail[s.ID()] = errors.New("boom")

	err := wait(t, c.Render(context.Background(), Frame{Snapshot: s}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestSettleWaitsForLatestRender(t *testing.T) {
	res := newFakeResolver()
	c := New(4, 4, res, DefaultStyle)
	s := res.add(t, red, 4, 4, snapshot.PlaceOrigin)
	gate := make(chan struct{})
	res.gates[s.ID()] = gate

	c.Render(context.Background(), Frame{Snapshot: s})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Settle(ctx), context.DeadlineExceeded)

	close(gate)
	require.NoError(t, c.Settle(context.Background()))
}

func TestCaptureAndExport(t *testing.T) {
	res := newFakeResolver()
	c := New(6, 3, res, DefaultStyle)
	s := res.add(t, red, 6, 3, snapshot.PlaceOrigin)
	c.Render(context.Background(), Frame{Snapshot: s})

	data, err := c.Capture(context.Background())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 6, 3), img.Bounds())

	var buf bytes.Buffer
	require.NoError(t, c.Export(context.Background(), &buf, "jpg", 80))
	_, err = jpeg.Decode(&buf)
	require.NoError(t, err)

	err = c.Export(context.Background(), &buf, "gif", 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResize(t *testing.T) {
	c := New(4, 4, newFakeResolver(), Style{})
	require.NoError(t, c.Resize(8, 2))
	w, h := c.Size()
	require.Equal(t, 8, w)
	require.Equal(t, 2, h)
	require.Error(t, c.Resize(0, 2))
	require.NoError(t, c.Close())
}

func TestNormalizeFormat(t *testing.T) {
	require.Equal(t, FormatPNG, NormalizeFormat(""))
	require.Equal(t, FormatPNG, NormalizeFormat("PNG"))
	require.Equal(t, FormatJPEG, NormalizeFormat("jpg"))
	require.Equal(t, "bmp", NormalizeFormat("bmp"))
}
