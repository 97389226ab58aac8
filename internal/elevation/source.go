// Package elevation acquires elevation grids from rate-limited point lookup
// services.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Acquisition errors.
var (
	ErrRateLimited   = errors.New("elevation source rate limit exceeded")
	ErrShortBatch    = errors.New("elevation source returned wrong number of samples")
	ErrNoData        = errors.New("elevation source returned no valid samples")
	ErrUnknownSource = errors.New("unknown elevation source")
)

// Point is one sample location, tagged with its grid cell.
type Point struct {
	Row int
	Col int
	Lat float64
	Lon float64
}

// Source looks up elevations in meters for a batch of points. The result has
// one value per point in the same order; NaN marks a missing sample.
type Source interface {
	Name() string
	Lookup(ctx context.Context, points []Point) ([]float64, error)
}

// AcquisitionError reports a failed batch. The run is aborted; nothing retries.
type AcquisitionError struct {
	Source  string
	Batch   int // 1-based
	Batches int
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("elevation %s: batch %d/%d: %v", e.Source, e.Batch, e.Batches, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// NewSource returns the named source.
func NewSource(name, endpoint string, timeout time.Duration) (Source, error) {
	switch name {
	case SyntheticName:
		return NewSynthetic(), nil
	case OpenElevationName:
		return NewOpenElevation(endpoint, timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
