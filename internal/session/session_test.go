package session_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cristianoliveira/pixedit/internal/dispatch"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/filterstub"
	"github.com/cristianoliveira/pixedit/internal/ingest"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	stub    *filterstub.Server
	session *session.Session
}

func newFixture(t *testing.T, mode filterstub.Mode) *fixture {
	t.Helper()
	stub := filterstub.New(mode, logging.NewNoopLogger())
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)

	client, err := filter.NewClient(srv.URL+"/process-image", 5*time.Second)
	require.NoError(t, err)
	s, err := session.New(session.Options{
		Bounds:    ingest.Bounds{Width: 80, Height: 60},
		Processor: client,
		Resolver:  snapshot.NewHTTPResolver(5 * time.Second),
		Logger:    logging.NewNoopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{stub: stub, session: s}
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestEmptySession(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session

	require.Equal(t, -1, s.Cursor())
	require.Nil(t, s.Current())
	require.Empty(t, s.History())

	_, err := s.ApplyFilter(ctx(t), "Grayscale")
	require.ErrorIs(t, err, session.ErrNoImage)
	require.ErrorIs(t, s.Export(ctx(t), &bytes.Buffer{}, "png"), session.ErrNoImage)
	_, err = s.Undo(ctx(t))
	require.ErrorIs(t, err, session.ErrNoImage)
	require.Empty(t, f.stub.Requests())
}

func TestLoadScalesAndResetsState(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session

	require.NoError(t, s.Load(ctx(t), bytes.NewReader(solidPNG(t, 160, 120, color.White))))
	require.Equal(t, 0, s.Cursor())
	w, h := s.Current().Size()
	require.Equal(t, 80, w)
	require.Equal(t, 60, h)
	sw, sh := s.SurfaceSize()
	require.Equal(t, 80, sw)
	require.Equal(t, 60, sh)

	require.NoError(t, s.SetSelection(ctx(t), selection.Region{X: 1, Y: 1, Width: 5, Height: 5}))
	_, err := s.Apply(ctx(t), "Grayscale")
	require.NoError(t, err)
	require.Equal(t, filter.Grayscale, s.ActiveFilter())

	require.NoError(t, s.Load(ctx(t), bytes.NewReader(solidPNG(t, 120, 60, color.Black))))
	require.Len(t, s.History(), 1)
	require.Equal(t, 0, s.Cursor())
	require.Empty(t, s.ActiveFilter())
	_, ok := s.Selection()
	require.False(t, ok)
	w, h = s.Current().Size()
	require.Equal(t, 80, w)
	require.Equal(t, 40, h)
}

func TestLoadFailureLeavesSessionUnchanged(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	require.NoError(t, s.Load(ctx(t), bytes.NewReader(solidPNG(t, 10, 10, color.White))))
	before := s.Current()

	err := s.Load(ctx(t), bytes.NewReader([]byte("not an image")))
	require.ErrorIs(t, err, ingest.ErrDecode)
	require.Same(t, before, s.Current())

	err = s.Load(ctx(t), bytes.NewReader(nil))
	require.ErrorIs(t, err, ingest.ErrEmptyImage)
	require.Same(t, before, s.Current())
}

func TestLoadFile(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	path := filepath.Join(t.TempDir(), "photo.jpg")
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30)), nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	require.NoError(t, f.session.LoadFile(ctx(t), path))
	w, h := f.session.Current().Size()
	require.Equal(t, 40, w)
	require.Equal(t, 30, h)
}

func TestHistoryScenario(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)

	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 40, 30, color.White))))
	s0 := s.Current()

	s1, err := s.Apply(c, "Grayscale")
	require.NoError(t, err)
	require.Equal(t, []*snapshot.Snapshot{s0, s1}, s.History())
	require.Equal(t, 1, s.Cursor())

	moved, err := s.Undo(c)
	require.NoError(t, err)
	require.True(t, moved)
	require.Equal(t, 0, s.Cursor())
	require.Same(t, s0, s.Current())

	s2, err := s.Apply(c, "Blur")
	require.NoError(t, err)
	require.Equal(t, []*snapshot.Snapshot{s0, s2}, s.History())
	require.Equal(t, 1, s.Cursor())

	moved, err = s.Redo(c)
	require.NoError(t, err)
	require.False(t, moved)
	require.Equal(t, 1, s.Cursor())
	require.Same(t, s2, s.Current())
}

func TestUndoRedoRestoresSameSnapshot(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 20, 20, color.White))))
	_, err := s.Apply(c, "Voronoi")
	require.NoError(t, err)
	before := s.Current()

	_, err = s.Undo(c)
	require.NoError(t, err)
	_, err = s.Redo(c)
	require.NoError(t, err)
	require.Same(t, before, s.Current())

	moved, err := s.Undo(c)
	require.NoError(t, err)
	require.True(t, moved)
	moved, err = s.Undo(c)
	require.NoError(t, err)
	require.False(t, moved)
}

func TestNoiseRequestCarriesSelectionAndIntensityOnce(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 80, 60, color.White))))

	sel := selection.Region{X: 10, Y: 10, Width: 50, Height: 50}
	require.NoError(t, s.SetSelection(c, sel))
	require.NoError(t, s.SetParameter("noise", 100))

	_, err := s.Apply(c, "Noise")
	require.NoError(t, err)

	reqs := f.stub.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, filter.Noise, reqs[0].Filter)
	require.Len(t, reqs[0].Fields["noiseIntensity"], 1)
	require.Equal(t, []string{"100"}, reqs[0].Fields["noiseIntensity"])
	require.Len(t, reqs[0].Fields["selection"], 1)
	require.Equal(t, sel, *reqs[0].Selection)
	require.Equal(t, 80, reqs[0].Width)
	require.Equal(t, 60, reqs[0].Height)

	got, ok := s.Selection()
	require.True(t, ok)
	require.Equal(t, sel, got)
}

func TestFailedDispatchKeepsHistory(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 20, 20, color.White))))
	f.stub.FailWith(http.StatusInternalServerError)

	_, err := s.Apply(c, "Euclidean")
	require.ErrorIs(t, err, filter.ErrService)
	require.Len(t, s.History(), 1)
	require.Equal(t, 0, s.Cursor())
	require.Equal(t, filter.Euclidean, s.ActiveFilter())
}

func TestUnknownFilterMakesNoRequest(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	require.NoError(t, s.Load(ctx(t), bytes.NewReader(solidPNG(t, 20, 20, color.White))))

	_, err := s.ApplyFilter(ctx(t), "Sepia")
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
	require.Empty(t, f.stub.Requests())
}

func TestHostedResultIsRendered(t *testing.T) {
	f := newFixture(t, filterstub.ModeHosted)
	s := f.session
	c := ctx(t)
	red := color.NRGBA{R: 255, A: 255}
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 20, 20, red))))

	snap, err := s.Apply(c, "Strings")
	require.NoError(t, err)
	require.Equal(t, snapshot.KindHosted, snap.Kind())
	require.NoError(t, s.Settle(c))

	r, g, b, _ := s.Image().At(10, 10).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Zero(t, g)
	require.Zero(t, b)
}

func TestLoadInvalidatesOutstandingDispatch(t *testing.T) {
	gate := make(chan struct{})
	proc := gatedProcessor{gate: gate}
	s, err := session.New(session.Options{Processor: proc, Logger: logging.NewNoopLogger()})
	require.NoError(t, err)
	defer s.Close()
	c := ctx(t)

	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 10, 10, color.White))))
	ticket, err := s.ApplyFilter(c, "ASCII")
	require.NoError(t, err)
	require.Equal(t, 1, s.Pending())

	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 12, 12, color.Black))))
	close(gate)

	_, err = ticket.Wait(c)
	require.ErrorIs(t, err, dispatch.ErrStaleResponse)
	require.Len(t, s.History(), 1)
}

type gatedProcessor struct {
	gate chan struct{}
}

func (p gatedProcessor) Process(ctx context.Context, req filter.Request) (filter.ProcessedImage, error) {
	select {
	case <-p.gate:
	case <-ctx.Done():
		return filter.ProcessedImage{}, ctx.Err()
	}
	return filter.ProcessedImage{Kind: filter.ProcessedInline, Image: image.NewNRGBA(image.Rect(0, 0, 2, 2))}, nil
}

func TestParameters(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session

	v, err := s.Parameter("Blur")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, s.SetParameter("pixalate", 50))
	v, err = s.Parameter("Pixalate")
	require.NoError(t, err)
	require.Equal(t, 50, v)

	require.ErrorIs(t, s.SetParameter("Blur", 11), filter.ErrParameterRange)
	require.ErrorIs(t, s.SetParameter("Grayscale", 1), filter.ErrNotParametric)
	_, err = s.Parameter("Grayscale")
	require.ErrorIs(t, err, filter.ErrNotParametric)
	require.ErrorIs(t, s.SetParameter("Sepia", 1), filter.ErrUnknownFilter)

	params := s.Parameters()
	params[filter.Blur] = 9
	v, _ = s.Parameter("Blur")
	require.Equal(t, 1, v)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := session.New(session.Options{})
	require.Error(t, err)

	_, err = session.New(session.Options{Processor: gatedProcessor{}, Parameters: map[filter.ID]int{filter.Noise: 0}})
	require.ErrorIs(t, err, filter.ErrParameterRange)
}

func TestSelectionValidationAndOverlay(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 40, 40, color.White))))

	require.ErrorIs(t, s.SetSelection(c, selection.Region{Width: -1}), selection.ErrNegativeSize)

	require.NoError(t, s.SetSelection(c, selection.Region{X: 10, Y: 10, Width: 20, Height: 20}))
	require.NoError(t, s.Settle(c))
	r, g, _, _ := s.Image().At(10, 20).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Less(t, g, uint32(0x8000))

	s.ClearSelection(c)
	require.NoError(t, s.Settle(c))
	_, g, _, _ = s.Image().At(10, 20).RGBA()
	require.Equal(t, uint32(0xffff), g)
}

// echoProcessor returns the uploaded image unchanged and keeps the request.
type echoProcessor struct {
	mu   sync.Mutex
	sent []filter.Request
}

func (p *echoProcessor) Process(_ context.Context, req filter.Request) (filter.ProcessedImage, error) {
	p.mu.Lock()
	p.sent = append(p.sent, req)
	p.mu.Unlock()
	img, err := png.Decode(bytes.NewReader(req.Image))
	if err != nil {
		return filter.ProcessedImage{}, err
	}
	return filter.ProcessedImage{Kind: filter.ProcessedInline, Image: img}, nil
}

func TestSelectionOutlineStaysOutOfImageContent(t *testing.T) {
	proc := &echoProcessor{}
	s, err := session.New(session.Options{
		Bounds:    ingest.Bounds{Width: 80, Height: 60},
		Processor: proc,
		Logger:    logging.NewNoopLogger(),
	})
	require.NoError(t, err)
	defer s.Close()
	c := ctx(t)

	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 80, 60, color.White))))
	require.NoError(t, s.SetSelection(c, selection.Region{X: 10, Y: 10, Width: 20, Height: 20}))
	_, err = s.Apply(c, "Grayscale")
	require.NoError(t, err)

	require.Len(t, proc.sent, 1)
	sent, err := png.Decode(bytes.NewReader(proc.sent[0].Image))
	require.NoError(t, err)
	r, g, b, _ := sent.At(10, 20).RGBA()
	require.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "uploaded pixels carry no outline")
	require.NotNil(t, proc.sent[0].Selection)

	var out bytes.Buffer
	require.NoError(t, s.Export(c, &out, "png"))
	exported, err := png.Decode(&out)
	require.NoError(t, err)
	_, g, _, _ = exported.At(10, 20).RGBA()
	require.Equal(t, uint32(0xffff), g, "export carries no outline")

	s.ClearSelection(c)
	require.NoError(t, s.Settle(c))
	r, g, b, _ = s.Image().At(10, 20).RGBA()
	require.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "recorded snapshot carries no outline")
}

func TestExportFormats(t *testing.T) {
	f := newFixture(t, filterstub.ModeInline)
	s := f.session
	c := ctx(t)
	require.NoError(t, s.Load(c, bytes.NewReader(solidPNG(t, 30, 20, color.White))))

	var pngBuf, jpgBuf bytes.Buffer
	require.NoError(t, s.Export(c, &pngBuf, "png"))
	img, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	require.NoError(t, s.Export(c, &jpgBuf, "jpg"))
	_, err = jpeg.Decode(&jpgBuf)
	require.NoError(t, err)

	require.Error(t, s.Export(c, &bytes.Buffer{}, "gif"))
}
