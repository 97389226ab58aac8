// Package heightfield normalizes elevation grids into exaggeration-scaled
// height functions.
package heightfield

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/terraprint/pkg/dem"
)

// ErrInvalidExaggeration is returned for non-positive or non-finite factors.
var ErrInvalidExaggeration = errors.New("exaggeration must be a positive finite number")

// View is a read-only normalized projection of a grid.
type View struct {
	grid          *dem.Grid
	min           float64
	max           float64
	exaggeration  float64
	verticalScale float64
}

// Normalize computes the grid range and returns a view whose Height is
// Normalized * verticalScale * exaggeration. The grid must not be mutated
// while the view is in use.
func Normalize(g *dem.Grid, exaggeration, verticalScale float64) (*View, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !(exaggeration > 0) || math.IsInf(exaggeration, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExaggeration, exaggeration)
	}

	lo, hi := span(g.Values)
	return &View{
		grid:          g,
		min:           lo,
		max:           hi,
		exaggeration:  exaggeration,
		verticalScale: verticalScale,
	}, nil
}

// span returns the minimum and maximum of a non-empty slice in one pass.
func span(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		} else if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Rows returns the grid row count.
func (v *View) Rows() int { return v.grid.Rows }

// Cols returns the grid column count.
func (v *View) Cols() int { return v.grid.Cols }

// Range returns the elevation range in meters.
func (v *View) Range() (min, max float64) { return v.min, v.max }

// Exaggeration returns the relief multiplier.
func (v *View) Exaggeration() float64 { return v.exaggeration }

// Normalized returns the sample at (r, c) mapped to [0, 1].
// A flat grid yields 0 everywhere.
func (v *View) Normalized(r, c int) float64 {
	span := v.max - v.min
	if span == 0 {
		return 0
	}
	return (v.grid.At(r, c) - v.min) / span
}

// Height returns the display height at (r, c).
func (v *View) Height(r, c int) float64 {
	return v.Normalized(r, c) * v.verticalScale * v.exaggeration
}
