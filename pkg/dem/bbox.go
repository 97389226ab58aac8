// Package dem provides digital elevation model primitives: geographic bounding
// boxes, rectangular elevation grids and resampling.
package dem

import (
	"errors"
	"fmt"
	"math"
)

// Bounding box errors.
var (
	ErrInvalidBounds = errors.New("invalid bounding box")
)

// BoundingBox is a geographic rectangle in WGS84 degrees.
type BoundingBox struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
}

// Validate checks ordering and coordinate ranges.
func (b BoundingBox) Validate() error {
	for _, v := range [4]float64{b.LatMin, b.LatMax, b.LonMin, b.LonMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBounds)
		}
	}
	if b.LatMin < -90 || b.LatMax > 90 {
		return fmt.Errorf("%w: latitude outside [-90, 90]", ErrInvalidBounds)
	}
	if b.LonMin < -180 || b.LonMax > 180 {
		return fmt.Errorf("%w: longitude outside [-180, 180]", ErrInvalidBounds)
	}
	if b.LatMin >= b.LatMax {
		return fmt.Errorf("%w: lat_min %.6f must be below lat_max %.6f", ErrInvalidBounds, b.LatMin, b.LatMax)
	}
	if b.LonMin >= b.LonMax {
		return fmt.Errorf("%w: lon_min %.6f must be below lon_max %.6f", ErrInvalidBounds, b.LonMin, b.LonMax)
	}
	return nil
}

// Center returns the midpoint latitude and longitude.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.LatMin + b.LatMax) / 2, (b.LonMin + b.LonMax) / 2
}

// SamplePoint returns the coordinates of sample (row, col) in a rows x cols
// lattice spanning the box. Row 0 lies on LatMax, column 0 on LonMin.
func (b BoundingBox) SamplePoint(row, col, rows, cols int) (lat, lon float64) {
	lat = b.LatMax
	if rows > 1 {
		lat -= float64(row) * (b.LatMax - b.LatMin) / float64(rows-1)
	}
	lon = b.LonMin
	if cols > 1 {
		lon += float64(col) * (b.LonMax - b.LonMin) / float64(cols-1)
	}
	return lat, lon
}

// String returns a compact representation.
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.4f,%.4f]x[%.4f,%.4f]", b.LatMin, b.LatMax, b.LonMin, b.LonMax)
}
