// Package filter defines the filter vocabulary and the wire client of the
// remote filter-processing service.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFilter indicates a name outside the fixed vocabulary.
	ErrUnknownFilter = errors.New("filter: unknown filter")
	// ErrNotParametric indicates a parameter was given for a filter without one.
	ErrNotParametric = errors.New("filter: filter takes no parameter")
	// ErrParameterRange indicates a parameter outside its allowed range.
	ErrParameterRange = errors.New("filter: parameter out of range")
)

// ID is a filter identifier as sent in the buttonText field.
type ID string

// Filter identifiers.
const (
	Grayscale       ID = "Grayscale"
	Euclidean       ID = "Euclidean"
	Minkowski       ID = "Minkowski"
	Manhattan       ID = "Manhattan"
	Chebyshev       ID = "Chebyshev"
	HalftoneAdd     ID = "Halftone Add"
	HalftoneSub     ID = "Halftone Sub"
	DiagonalTracing ID = "Diagonal Tracing"
	CircleScatter   ID = "Circle Scatter"
	SquareScatter   ID = "Square Scatter"
	Strings         ID = "Strings"
	Segment         ID = "Segment"
	ASCII           ID = "ASCII"
	Voronoi         ID = "Voronoi"
	FractalEffect   ID = "Fractal Effect"
	RemoveBG        ID = "RemoveBG"
	Blur            ID = "Blur"
	Noise           ID = "Noise"
	Pixalate        ID = "Pixalate"
)

// Param describes the numeric parameter of a parametric filter.
type Param struct {
	// Field is the multipart field name.
	Field   string
	Min     int
	Max     int
	Default int
}

// Contains reports whether v is within the allowed range.
func (p Param) Contains(v int) bool {
	return v >= p.Min && v <= p.Max
}

var all = []ID{
	Grayscale, Euclidean, Minkowski, Manhattan, Chebyshev,
	HalftoneAdd, HalftoneSub, DiagonalTracing, CircleScatter, SquareScatter,
	Strings, Segment, ASCII, Voronoi, FractalEffect, RemoveBG,
	Blur, Noise, Pixalate,
}

var params = map[ID]Param{
	Blur:     {Field: "blurIntensity", Min: 1, Max: 10, Default: 1},
	Noise:    {Field: "noiseIntensity", Min: 1, Max: 400, Default: 25},
	Pixalate: {Field: "pixelIntensity", Min: 1, Max: 50, Default: 1},
}

var byLowerName = func() map[string]ID {
	m := make(map[string]ID, len(all))
	for _, id := range all {
		m[strings.ToLower(string(id))] = id
	}
	return m
}()

// All returns the vocabulary in display order.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Lookup resolves a case-insensitive name to its canonical identifier.
func Lookup(name string) (ID, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	id, ok := byLowerName[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return id, nil
}

// ParamOf returns the parameter descriptor of a parametric filter.
func ParamOf(id ID) (Param, bool) {
	p, ok := params[id]
	return p, ok
}

// Parametric reports whether the filter takes a numeric parameter.
func (id ID) Parametric() bool {
	_, ok := params[id]
	return ok
}

// Validate checks v against the filter's parameter range.
func Validate(id ID, v int) error {
	p, ok := params[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotParametric, id)
	}
	if !p.Contains(v) {
		return fmt.Errorf("%w: %s %s=%d not in [%d, %d]", ErrParameterRange, id, p.Field, v, p.Min, p.Max)
	}
	return nil
}

// DefaultParameters returns the initial parameter of every parametric filter.
func DefaultParameters() map[ID]int {
	out := make(map[ID]int, len(params))
	for id, p := range params {
		out[id] = p.Default
	}
	return out
}
