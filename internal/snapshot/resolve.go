package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Decoders for the formats the filter service may return.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// maxHostedBytes bounds the size of a fetched hosted image.
const maxHostedBytes = 64 << 20

// Resolver turns a snapshot into pixels.
type Resolver interface {
	Resolve(ctx context.Context, s *Snapshot) (image.Image, error)
}

// HTTPResolver decodes encoded snapshots in memory and fetches hosted ones.
type HTTPResolver struct {
	Client *http.Client
}

// NewHTTPResolver creates a resolver with the given fetch timeout.
func NewHTTPResolver(timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{Client: &http.Client{Timeout: timeout}}
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, s *Snapshot) (image.Image, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot: resolve nil snapshot")
	}
	switch s.Kind() {
	case KindEncoded:
		return decode(s.source.Data)
	case KindHosted:
		data, err := r.fetch(ctx, s.URL())
		if err != nil {
			return nil, err
		}
		return decode(data)
	default:
		return nil, fmt.Errorf("snapshot: unknown source kind %q", s.Kind())
	}
}

func (r *HTTPResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: build fetch request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("snapshot: fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHostedBytes))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", url, err)
	}
	return data, nil
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return img, nil
}
