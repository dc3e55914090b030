// Package filterstub serves the process-image contract for local development.
// It validates requests exactly like the real service expects them and echoes
// the uploaded pixels back unchanged; it never transforms an image.
package filterstub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	_ "image/jpeg"

	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/logging"
	"github.com/cristianoliveira/pixedit/internal/selection"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Mode selects how processed images are returned.
type Mode string

const (
	// ModeInline returns rows of [r,g,b] pixels.
	ModeInline Mode = "inline"
	// ModeHosted stores the image and returns a URL to it.
	ModeHosted Mode = "hosted"
)

const maxUploadBytes = 32 << 20

// Recorded is one accepted request, kept for inspection.
type Recorded struct {
	RequestID string
	Filter    filter.ID
	Parameter *int
	Selection *selection.Region
	Fields    map[string][]string
	Width     int
	Height    int
}

// Server is the stub service.
type Server struct {
	mode   Mode
	logger logging.Logger

	mu         sync.Mutex
	images     map[string][]byte
	requests   []Recorded
	failStatus int
}

// New creates a stub server.
func New(mode Mode, logger logging.Logger) *Server {
	if mode != ModeHosted {
		mode = ModeInline
	}
	if logger == nil {
		logger = logging.GetGlobal()
	}
	return &Server{
		mode:   mode,
		logger: logger.With("component", "filterstub"),
		images: make(map[string][]byte),
	}
}

// Router returns the chi router serving the stub endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/process-image", s.handleProcess)
	r.Get("/images/{id}", s.handleImage)
	return r
}

// FailWith makes every process request answer with status until reset with 0.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// Requests returns the accepted requests in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	s.mu.Lock()
	failStatus := s.failStatus
	s.mu.Unlock()
	if failStatus != 0 {
		http.Error(w, "simulated failure", failStatus)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.reject(w, reqID, http.StatusBadRequest, "invalid multipart body: %v", err)
		return
	}

	rec, img, status, err := s.parse(r)
	if err != nil {
		s.reject(w, reqID, status, "%v", err)
		return
	}
	rec.RequestID = reqID

	var path any
	switch s.mode {
	case ModeHosted:
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			s.reject(w, reqID, http.StatusInternalServerError, "encode: %v", err)
			return
		}
		id := uuid.New().String()
		s.mu.Lock()
		s.images[id] = buf.Bytes()
		s.mu.Unlock()
		path = fmt.Sprintf("%s://%s/images/%s", scheme(r), r.Host, id)
	default:
		path = filter.ImageToPixels(img)
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	s.logger.Info("processed image", "request_id", reqID, "filter", string(rec.Filter), "mode", string(s.mode), "width", rec.Width, "height", rec.Height)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"processed_image_path": path})
}

func (s *Server) parse(r *http.Request) (Recorded, image.Image, int, error) {
	form := r.MultipartForm
	rec := Recorded{Fields: make(map[string][]string, len(form.Value))}
	for k, v := range form.Value {
		rec.Fields[k] = append([]string(nil), v...)
	}

	names := form.Value[filter.FieldButtonText]
	if len(names) != 1 {
		return rec, nil, http.StatusBadRequest, fmt.Errorf("expected exactly one %s, got %d", filter.FieldButtonText, len(names))
	}
	id, err := filter.Lookup(names[0])
	if err != nil {
		return rec, nil, http.StatusBadRequest, err
	}
	rec.Filter = id

	for _, other := range filter.All() {
		p, ok := filter.ParamOf(other)
		if !ok {
			continue
		}
		vals := form.Value[p.Field]
		if other != id {
			if len(vals) > 0 {
				return rec, nil, http.StatusBadRequest, fmt.Errorf("unexpected field %s for %s", p.Field, id)
			}
			continue
		}
		if len(vals) != 1 {
			return rec, nil, http.StatusBadRequest, fmt.Errorf("expected exactly one %s, got %d", p.Field, len(vals))
		}
		v, err := strconv.Atoi(vals[0])
		if err != nil {
			return rec, nil, http.StatusBadRequest, fmt.Errorf("invalid %s: %v", p.Field, err)
		}
		if err := filter.Validate(id, v); err != nil {
			return rec, nil, http.StatusBadRequest, err
		}
		rec.Parameter = &v
	}

	if sels := form.Value[filter.FieldSelection]; len(sels) > 0 {
		if len(sels) != 1 {
			return rec, nil, http.StatusBadRequest, fmt.Errorf("expected at most one %s, got %d", filter.FieldSelection, len(sels))
		}
		var region selection.Region
		if err := json.Unmarshal([]byte(sels[0]), &region); err != nil {
			return rec, nil, http.StatusBadRequest, fmt.Errorf("invalid selection: %v", err)
		}
		if _, err := selection.NewRegion(region.X, region.Y, region.Width, region.Height); err != nil {
			return rec, nil, http.StatusBadRequest, err
		}
		rec.Selection = &region
	}

	files := form.File[filter.FieldImage]
	if len(files) != 1 {
		return rec, nil, http.StatusBadRequest, fmt.Errorf("expected exactly one %s file, got %d", filter.FieldImage, len(files))
	}
	f, err := files[0].Open()
	if err != nil {
		return rec, nil, http.StatusBadRequest, fmt.Errorf("open image: %v", err)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return rec, nil, http.StatusUnprocessableEntity, fmt.Errorf("decode image: %v", err)
	}
	rec.Width, rec.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return rec, img, http.StatusOK, nil
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid image id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	data, ok := s.images[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) reject(w http.ResponseWriter, reqID string, status int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn("rejected request", "request_id", reqID, "status", status, "error", msg)
	http.Error(w, msg, status)
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
