package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/cristianoliveira/pixedit/internal/selection"
)

// Multipart field names of the process-image contract.
const (
	FieldImage      = "image"
	FieldButtonText = "buttonText"
	FieldSelection  = "selection"

	imageFileName = "canvas.png"
)

// ErrEmptyImage indicates a request without image bytes.
var ErrEmptyImage = errors.New("filter: request image is empty")

// Request is built fresh for every dispatch from the captured surface.
type Request struct {
	Image     []byte
	Filter    ID
	Parameter *int
	Selection *selection.Region
}

// Validate checks the request against the vocabulary and parameter ranges.
func (r Request) Validate() error {
	if len(r.Image) == 0 {
		return ErrEmptyImage
	}
	if _, err := Lookup(string(r.Filter)); err != nil {
		return err
	}
	if r.Parameter != nil {
		if err := Validate(r.Filter, *r.Parameter); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes the request fields into mw. Each optional field is written at most once.
func (r Request) WriteTo(mw *multipart.Writer) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldImage, imageFileName))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("filter: create image part: %w", err)
	}
	if _, err := part.Write(r.Image); err != nil {
		return fmt.Errorf("filter: write image part: %w", err)
	}

	if err := mw.WriteField(FieldButtonText, string(r.Filter)); err != nil {
		return fmt.Errorf("filter: write %s: %w", FieldButtonText, err)
	}

	if r.Parameter != nil {
		p, ok := ParamOf(r.Filter)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotParametric, r.Filter)
		}
		if err := mw.WriteField(p.Field, fmt.Sprintf("%d", *r.Parameter)); err != nil {
			return fmt.Errorf("filter: write %s: %w", p.Field, err)
		}
	}

	if r.Selection != nil {
		data, err := json.Marshal(r.Selection)
		if err != nil {
			return fmt.Errorf("filter: encode selection: %w", err)
		}
		if err := mw.WriteField(FieldSelection, string(data)); err != nil {
			return fmt.Errorf("filter: write %s: %w", FieldSelection, err)
		}
	}
	return nil
}
