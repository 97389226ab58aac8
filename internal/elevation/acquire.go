package elevation

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/terraprint/internal/logger"
	"github.com/Faultbox/terraprint/pkg/dem"
)

// Progress reports acquisition state after each completed batch.
type Progress struct {
	Current int    // Points fetched so far
	Total   int    // Points requested
	Message string // Advisory, for display only
}

// ProgressFunc receives progress updates. It runs on the acquiring goroutine.
type ProgressFunc func(Progress)

// Options tunes batching and pacing.
type Options struct {
	MaxFetchResolution int
	BatchSize          int
	BatchInterval      time.Duration // Minimum spacing between batch starts; 0 disables pacing
}

// Acquirer fetches elevation grids in sequential, paced batches.
type Acquirer struct {
	source Source
	opts   Options
	log    *zap.Logger
}

// NewAcquirer creates an acquirer for the given source.
func NewAcquirer(source Source, opts Options) *Acquirer {
	return &Acquirer{
		source: source,
		opts:   opts,
		log:    logger.Named("elevation").With(zap.String("source", source.Name())),
	}
}

// Source returns the underlying source.
func (a *Acquirer) Source() Source {
	return a.source
}

// FetchResolution returns the per-axis sample count actually fetched for a
// requested display resolution.
func (a *Acquirer) FetchResolution(requested int) int {
	return max(2, min(requested, a.opts.MaxFetchResolution))
}

// Batches splits points into consecutive slices of at most size points.
func Batches(points []Point, size int) [][]Point {
	var out [][]Point
	for start := 0; start < len(points); start += size {
		out = append(out, points[start:min(start+size, len(points))])
	}
	return out
}

// Acquire fetches a FetchResolution x FetchResolution grid covering box.
// Upsampling to the requested resolution is left to the caller.
//
// Batches run one after another. Once ctx is done no further batch is
// issued and progress stops; the context error is returned as is.
func (a *Acquirer) Acquire(ctx context.Context, box dem.BoundingBox, resolution int, progress ProgressFunc) (*dem.Grid, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	n := a.FetchResolution(resolution)
	points := make([]Point, 0, n*n)
	for r := range n {
		for c := range n {
			lat, lon := box.SamplePoint(r, c, n, n)
			points = append(points, Point{Row: r, Col: c, Lat: lat, Lon: lon})
		}
	}

	batches := Batches(points, max(1, a.opts.BatchSize))
	grid := dem.NewGrid(n, n)
	total := len(points)
	done := 0

	a.log.Debug("acquisition started",
		zap.Stringer("bbox", box),
		zap.Int("requested", resolution),
		zap.Int("fetch", n),
		zap.Int("batches", len(batches)))

	var lastStart time.Time
	for i, batch := range batches {
		if i > 0 && a.opts.BatchInterval > 0 {
			if err := sleepCtx(ctx, time.Until(lastStart.Add(a.opts.BatchInterval))); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lastStart = time.Now()

		values, err := a.source.Lookup(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &AcquisitionError{Source: a.source.Name(), Batch: i + 1, Batches: len(batches), Err: err}
		}
		if len(values) != len(batch) {
			return nil, &AcquisitionError{
				Source: a.source.Name(), Batch: i + 1, Batches: len(batches),
				Err: fmt.Errorf("%w: got %d, want %d", ErrShortBatch, len(values), len(batch)),
			}
		}

		// Merge by cell, not arrival order
		for k, p := range batch {
			grid.Set(p.Row, p.Col, values[k])
		}
		done += len(batch)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.Debug("batch fetched", zap.Int("batch", i+1), zap.Int("points", done), zap.Int("total", total))
		if progress != nil {
			progress(Progress{
				Current: done,
				Total:   total,
				Message: fmt.Sprintf("Fetching elevation data (%d/%d)", i+1, len(batches)),
			})
		}
	}

	if err := fillMissing(grid); err != nil {
		return nil, &AcquisitionError{Source: a.source.Name(), Batch: len(batches), Batches: len(batches), Err: err}
	}
	return grid, nil
}

// fillMissing replaces non-finite samples with the mean of the finite ones.
func fillMissing(g *dem.Grid) error {
	finite := make([]float64, 0, g.Len())
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == g.Len() {
		return nil
	}
	if len(finite) == 0 {
		return ErrNoData
	}

	mean := stat.Mean(finite, nil)
	for i, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			g.Values[i] = mean
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
