// Package snapshot provides the immutable image value recorded in edit history.
package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyData indicates an encoded snapshot without bytes.
	ErrEmptyData = errors.New("snapshot: empty image data")
	// ErrInvalidReference indicates a hosted snapshot without a usable URL.
	ErrInvalidReference = errors.New("snapshot: invalid hosted reference")
)

// Kind tags how a snapshot's pixels are obtained.
type Kind string

const (
	// KindEncoded snapshots carry encoded image bytes.
	KindEncoded Kind = "encoded"
	// KindHosted snapshots point to an externally hosted image.
	KindHosted Kind = "hosted"
)

// Placement controls where the compositor draws a snapshot on the surface.
type Placement string

const (
	// PlaceOrigin draws at the surface origin (ingested images).
	PlaceOrigin Placement = "origin"
	// PlaceCenter draws centered on the surface (filter results).
	PlaceCenter Placement = "center"
)

// Source is the tagged pixel source of a snapshot. Exactly one of Data or URL
// is meaningful, selected by Kind.
type Source struct {
	Kind   Kind
	Format string
	Data   []byte
	URL    string
}

// Snapshot is one point in edit history. It is never mutated after creation.
type Snapshot struct {
	id        string
	source    Source
	width     int
	height    int
	filter    string
	placement Placement
	createdAt time.Time
}

// Options carries the optional metadata of a new snapshot.
type Options struct {
	// ID overrides the generated identifier (used when restoring a workspace).
	ID        string
	Width     int
	Height    int
	Filter    string
	Placement Placement
	CreatedAt time.Time
}

// NewEncoded creates a snapshot from encoded image bytes. The bytes are copied.
func NewEncoded(format string, data []byte, opts Options) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if format == "" {
		format = "png"
	}
	return newSnapshot(Source{Kind: KindEncoded, Format: format, Data: buf}, opts), nil
}

// NewHosted creates a snapshot referencing an externally hosted image.
func NewHosted(url string, opts Options) (*Snapshot, error) {
	url = strings.TrimSpace(url)
	if !IsHostedReference(url) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, url)
	}
	return newSnapshot(Source{Kind: KindHosted, URL: url}, opts), nil
}

func newSnapshot(src Source, opts Options) *Snapshot {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	placement := opts.Placement
	if placement == "" {
		placement = PlaceOrigin
	}
	created := opts.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &Snapshot{
		id:        id,
		source:    src,
		width:     opts.Width,
		height:    opts.Height,
		filter:    opts.Filter,
		placement: placement,
		createdAt: created,
	}
}

// IsHostedReference reports whether value looks like a URL the compositor can fetch.
func IsHostedReference(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ID returns the snapshot identifier.
func (s *Snapshot) ID() string { return s.id }

// Kind returns the source kind.
func (s *Snapshot) Kind() Kind { return s.source.Kind }

// Format returns the encoding format of an encoded snapshot.
func (s *Snapshot) Format() string { return s.source.Format }

// URL returns the hosted reference, empty for encoded snapshots.
func (s *Snapshot) URL() string { return s.source.URL }

// Data returns a copy of the encoded bytes, nil for hosted snapshots.
func (s *Snapshot) Data() []byte {
	if s.source.Data == nil {
		return nil
	}
	buf := make([]byte, len(s.source.Data))
	copy(buf, s.source.Data)
	return buf
}

// Size returns the pixel dimensions. Hosted snapshots report 0x0 until known.
func (s *Snapshot) Size() (int, int) { return s.width, s.height }

// Filter returns the filter that produced the snapshot, empty for ingested images.
func (s *Snapshot) Filter() string { return s.filter }

// Placement returns where the snapshot is drawn on the surface.
func (s *Snapshot) Placement() Placement { return s.placement }

// CreatedAt returns the creation time.
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// String describes the snapshot for logs and CLI output.
func (s *Snapshot) String() string {
	label := s.filter
	if label == "" {
		label = "original"
	}
	if s.source.Kind == KindHosted {
		return fmt.Sprintf("%s [%s] %s", shortID(s.id), label, s.source.URL)
	}
	return fmt.Sprintf("%s [%s] %dx%d %s (%d bytes)", shortID(s.id), label, s.width, s.height, s.source.Format, len(s.source.Data))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
