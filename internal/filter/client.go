package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the process-image endpoint of a locally running service.
const DefaultEndpoint = "http://localhost:5000/process-image"

// maxResponseBytes bounds the response body; inline pixel arrays are large.
const maxResponseBytes = 256 << 20

// ErrService indicates a failed filter application: non-success status or an
// unusable response. No partial result exists when it is returned.
var ErrService = errors.New("filter: service failure")

// ServiceError carries the status and body of a non-success response.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	body := truncate(strings.TrimSpace(e.Body), maxErrorBody)
	if body == "" {
		return fmt.Sprintf("filter service returned status %d", e.Status)
	}
	return fmt.Sprintf("filter service returned status %d: %s", e.Status, body)
}

// maxErrorBody is how many characters of a failure body an error message keeps.
const maxErrorBody = 200

// truncate cuts s after n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}

// Unwrap makes errors.Is(err, ErrService) hold.
func (e *ServiceError) Unwrap() error { return ErrService }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: malformed response: %s", ErrService, fmt.Sprintf(format, args...))
}

// Client posts filter requests to the remote service.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// NewClient creates a client for endpoint with the given request timeout.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("filter: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("filter: endpoint %q must be http or https", endpoint)
	}
	return &Client{endpoint: u, httpClient: &http.Client{Timeout: timeout}}, nil
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string { return c.endpoint.String() }

// Process sends req and returns the processed image.
func (c *Client) Process(ctx context.Context, req Request) (ProcessedImage, error) {
	if err := req.Validate(); err != nil {
		return ProcessedImage{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := req.WriteTo(mw); err != nil {
		return ProcessedImage{}, err
	}
	if err := mw.Close(); err != nil {
		return ProcessedImage{}, fmt.Errorf("filter: close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), &body)
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("filter: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("filter: post %s: %w", c.endpoint.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("filter: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProcessedImage{}, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	return ParseResponse(data, c.endpoint)
}
