package filter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"

	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// ProcessedKind tags the two forms a processed image may take.
type ProcessedKind string

const (
	// ProcessedHosted is a directly renderable reference such as a URL.
	ProcessedHosted ProcessedKind = "hosted"
	// ProcessedInline is pixel data delivered in the response body.
	ProcessedInline ProcessedKind = "inline"
)

// ProcessedImage is the response payload, resolved once into one variant.
type ProcessedImage struct {
	Kind ProcessedKind
	// URL is set for hosted images.
	URL string
	// Image is set for inline images.
	Image image.Image
	// Encoded holds the original bytes when the inline form was already
	// encoded (data URLs); nil for pixel arrays.
	Encoded []byte
	Format  string
}

type responseBody struct {
	ProcessedImagePath json.RawMessage `json:"processed_image_path"`
}

// ParseResponse decodes a success body. base resolves relative hosted paths.
func ParseResponse(body []byte, base *url.URL) (ProcessedImage, error) {
	var rb responseBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return ProcessedImage{}, malformed("decode body: %v", err)
	}
	raw := bytes.TrimSpace(rb.ProcessedImagePath)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ProcessedImage{}, malformed("missing processed_image_path")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ProcessedImage{}, malformed("decode processed_image_path: %v", err)
		}
		return parseReference(strings.TrimSpace(s), base)
	case '[':
		var rows [][][]int
		if err := json.Unmarshal(raw, &rows); err != nil {
			return ProcessedImage{}, malformed("decode pixel rows: %v", err)
		}
		img, err := PixelsToImage(rows)
		if err != nil {
			return ProcessedImage{}, err
		}
		return ProcessedImage{Kind: ProcessedInline, Image: img}, nil
	default:
		return ProcessedImage{}, malformed("unsupported processed_image_path %.32s", raw)
	}
}

func parseReference(s string, base *url.URL) (ProcessedImage, error) {
	switch {
	case snapshot.IsHostedReference(s):
		return ProcessedImage{Kind: ProcessedHosted, URL: s}, nil
	case strings.HasPrefix(strings.ToLower(s), "data:"):
		return parseDataURL(s)
	case strings.HasPrefix(s, "/") && base != nil:
		ref, err := url.Parse(s)
		if err != nil {
			return ProcessedImage{}, malformed("invalid path %q: %v", s, err)
		}
		return ProcessedImage{Kind: ProcessedHosted, URL: base.ResolveReference(ref).String()}, nil
	default:
		return ProcessedImage{}, malformed("unrecognized image reference %q", s)
	}
}

func parseDataURL(s string) (ProcessedImage, error) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return ProcessedImage{}, malformed("data url without payload")
	}
	meta := strings.ToLower(s[len("data:"):comma])
	if !strings.HasSuffix(meta, ";base64") {
		return ProcessedImage{}, malformed("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return ProcessedImage{}, malformed("data url payload: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ProcessedImage{}, malformed("data url image: %v", err)
	}
	return ProcessedImage{Kind: ProcessedInline, Image: img, Encoded: data, Format: format}, nil
}

// PixelsToImage converts rows of [r,g,b] or [r,g,b,a] values into an image.
func PixelsToImage(rows [][][]int) (*image.NRGBA, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, malformed("empty pixel array")
	}
	w, h := len(rows[0]), len(rows)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y, row := range rows {
		if len(row) != w {
			return nil, malformed("row %d has %d pixels, want %d", y, len(row), w)
		}
		for x, px := range row {
			if len(px) != 3 && len(px) != 4 {
				return nil, malformed("pixel (%d,%d) has %d channels", x, y, len(px))
			}
			c := color.NRGBA{A: 255}
			for i, v := range px {
				if v < 0 || v > 255 {
					return nil, malformed("pixel (%d,%d) channel %d out of range: %d", x, y, i, v)
				}
			}
			c.R, c.G, c.B = uint8(px[0]), uint8(px[1]), uint8(px[2])
			if len(px) == 4 {
				c.A = uint8(px[3])
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// ImageToPixels converts an image into rows of [r,g,b] values.
func ImageToPixels(img image.Image) [][][]int {
	b := img.Bounds()
	rows := make([][][]int, 0, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := make([][]int, 0, b.Dx())
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			row = append(row, []int{int(c.R), int(c.G), int(c.B)})
		}
		rows = append(rows, row)
	}
	return rows
}

// ToSnapshot converts the processed image into a history snapshot centered on
// the surface. Inline pixels are encoded once here.
func (p ProcessedImage) ToSnapshot(id ID) (*snapshot.Snapshot, error) {
	opts := snapshot.Options{Filter: string(id), Placement: snapshot.PlaceCenter}
	switch p.Kind {
	case ProcessedHosted:
		return snapshot.NewHosted(p.URL, opts)
	case ProcessedInline:
		if p.Image == nil {
			return nil, malformed("inline image without pixels")
		}
		b := p.Image.Bounds()
		opts.Width, opts.Height = b.Dx(), b.Dy()
		if len(p.Encoded) > 0 {
			return snapshot.NewEncoded(p.Format, p.Encoded, opts)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			return nil, fmt.Errorf("filter: encode inline pixels: %w", err)
		}
		return snapshot.NewEncoded("png", buf.Bytes(), opts)
	default:
		return nil, malformed("unknown processed image kind %q", p.Kind)
	}
}
