// Package selection tracks the optional rectangular selection of an edit session.
package selection

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ErrNegativeSize indicates a region with a negative width or height.
var ErrNegativeSize = errors.New("selection: width and height must be >= 0")

// Region is an axis-aligned rectangle in canvas pixel coordinates at the time
// it was drawn. It is not normalized and may fall outside the surface.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRegion validates and returns a region.
func NewRegion(x, y, width, height int) (Region, error) {
	if width < 0 || height < 0 {
		return Region{}, fmt.Errorf("%w: got %dx%d", ErrNegativeSize, width, height)
	}
	return Region{X: x, Y: y, Width: width, Height: height}, nil
}

// Parse reads a region from "x,y,width,height".
func Parse(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("selection: expected x,y,width,height, got %q", s)
	}
	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("selection: invalid number %q: %w", p, err)
		}
		vals[i] = n
	}
	return NewRegion(vals[0], vals[1], vals[2], vals[3])
}

// Rect converts the region to an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// String renders the region as "x,y,width,height".
func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// Tracker holds zero or one region. It is not safe for concurrent use.
type Tracker struct {
	region *Region
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set replaces any existing region.
func (t *Tracker) Set(r Region) {
	t.region = &r
}

// Clear removes the region.
func (t *Tracker) Clear() {
	t.region = nil
}

// Get returns the active region.
func (t *Tracker) Get() (Region, bool) {
	if t.region == nil {
		return Region{}, false
	}
	return *t.region, true
}

// Ptr returns a copy of the active region or nil.
func (t *Tracker) Ptr() *Region {
	if t.region == nil {
		return nil
	}
	r := *t.region
	return &r
}
