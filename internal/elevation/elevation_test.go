package elevation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/terraprint/pkg/dem"
)

var testBox = dem.BoundingBox{LatMin: 45.8, LatMax: 45.9, LonMin: 6.8, LonMax: 6.9}

// fakeSource encodes each point's cell into its elevation.
type fakeSource struct {
	mu      sync.Mutex
	calls   int
	failOn  int // 1-based call that fails; 0 never
	short   bool
	missing bool
	onCall  func(call int)
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Lookup(_ context.Context, points []Point) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(call)
	}
	if call == f.failOn {
		return nil, ErrRateLimited
	}
	n := len(points)
	if f.short {
		n--
	}
	values := make([]float64, n)
	for i := range values {
		p := points[i]
		values[i] = float64(p.Row*1000 + p.Col)
		if f.missing && (p.Row+p.Col)%2 == 0 {
			values[i] = math.NaN()
		}
	}
	return values, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestAcquirer(src Source) *Acquirer {
	return NewAcquirer(src, Options{MaxFetchResolution: 64, BatchSize: 500})
}

func TestFetchResolution(t *testing.T) {
	a := newTestAcquirer(&fakeSource{})

	assert.Equal(t, 64, a.FetchResolution(256))
	assert.Equal(t, 64, a.FetchResolution(64))
	assert.Equal(t, 10, a.FetchResolution(10))
	assert.Equal(t, 2, a.FetchResolution(1))
}

func TestBatches(t *testing.T) {
	points := make([]Point, 64*64)

	batches := Batches(points, 500)
	require.Len(t, batches, 9)

	total := 0
	for i, b := range batches {
		if i < len(batches)-1 {
			assert.Len(t, b, 500)
		}
		total += len(b)
	}
	assert.Equal(t, 4096, total)
	assert.Len(t, batches[8], 96)

	assert.Empty(t, Batches(nil, 500))
}

func TestAcquireProgress(t *testing.T) {
	src := &fakeSource{}
	a := newTestAcquirer(src)

	var events []Progress
	grid, err := a.Acquire(context.Background(), testBox, 128, func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 64, grid.Rows)
	assert.Equal(t, 64, grid.Cols)
	assert.Equal(t, 9, src.Calls())

	require.Len(t, events, 9)
	prev := 0
	for _, e := range events {
		assert.Greater(t, e.Current, prev)
		assert.Equal(t, 4096, e.Total)
		prev = e.Current
	}
	assert.Equal(t, 4096, events[len(events)-1].Current)
	assert.Equal(t, "Fetching elevation data (9/9)", events[8].Message)
}

func TestAcquireMergesByCell(t *testing.T) {
	a := NewAcquirer(&fakeSource{}, Options{MaxFetchResolution: 8, BatchSize: 7})

	grid, err := a.Acquire(context.Background(), testBox, 8, nil)
	require.NoError(t, err)

	for r := range 8 {
		for c := range 8 {
			assert.Equal(t, float64(r*1000+c), grid.At(r, c))
		}
	}
}

func TestAcquireFillsMissing(t *testing.T) {
	a := NewAcquirer(&fakeSource{missing: true}, Options{MaxFetchResolution: 4, BatchSize: 100})

	grid, err := a.Acquire(context.Background(), testBox, 4, nil)
	require.NoError(t, err)
	require.NoError(t, grid.Validate())

	// Odd cells survive untouched
	assert.Equal(t, float64(1), grid.At(0, 1))
	assert.Equal(t, float64(1000), grid.At(1, 0))
	// Gaps take the mean of the eight surviving samples
	assert.Equal(t, 1501.5, grid.At(0, 0))
	assert.Equal(t, 1501.5, grid.At(3, 3))
}

func TestAcquireAllMissing(t *testing.T) {
	src := &allMissingSource{}
	a := NewAcquirer(src, Options{MaxFetchResolution: 4, BatchSize: 100})

	_, err := a.Acquire(context.Background(), testBox, 4, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

type allMissingSource struct{}

func (allMissingSource) Name() string { return "empty" }

func (allMissingSource) Lookup(_ context.Context, points []Point) ([]float64, error) {
	out := make([]float64, len(points))
	for i := range out {
		out[i] = math.NaN()
	}
	return out, nil
}

func TestAcquireFailure(t *testing.T) {
	src := &fakeSource{failOn: 3}
	a := newTestAcquirer(src)

	var events int
	_, err := a.Acquire(context.Background(), testBox, 64, func(Progress) { events++ })
	require.Error(t, err)

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, 3, acqErr.Batch)
	assert.Equal(t, 9, acqErr.Batches)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, events)
	assert.Equal(t, 3, src.Calls())
}

func TestAcquireShortBatch(t *testing.T) {
	a := newTestAcquirer(&fakeSource{short: true})

	_, err := a.Acquire(context.Background(), testBox, 16, nil)
	assert.ErrorIs(t, err, ErrShortBatch)
}

func TestAcquireInvalidBox(t *testing.T) {
	a := newTestAcquirer(&fakeSource{})

	_, err := a.Acquire(context.Background(), dem.BoundingBox{LatMin: 46, LatMax: 45, LonMin: 6, LonMax: 7}, 64, nil)
	assert.ErrorIs(t, err, dem.ErrInvalidBounds)
}

func TestAcquireCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}
	a := newTestAcquirer(src)

	var events []Progress
	_, err := a.Acquire(ctx, testBox, 64, func(p Progress) { events = append(events, p) })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, src.Calls())
	assert.Len(t, events, 1)
}

func TestAcquireCancelledDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	a := NewAcquirer(src, Options{MaxFetchResolution: 64, BatchSize: 500, BatchInterval: time.Hour})

	done := make(chan error, 1)
	go func() {
		_, err := a.Acquire(ctx, testBox, 64, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("acquire did not stop after cancel")
	}
	assert.Equal(t, 1, src.Calls())
}

func TestSyntheticDeterministic(t *testing.T) {
	s1 := NewSynthetic()
	s2 := NewSynthetic()

	points := []Point{{Lat: 45.83, Lon: 6.86}, {Lat: 47.0, Lon: 2.0}, {Lat: 48.2, Lon: -3.5}}
	v1, err := s1.Lookup(context.Background(), points)
	require.NoError(t, err)
	v2, err := s2.Lookup(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	for _, v := range v1 {
		assert.False(t, math.IsNaN(v))
	}
}

func TestSyntheticProfiles(t *testing.T) {
	s := NewSynthetic()

	// Mont Blanc massif sits in the alpine profile: [1500*0.7, 4000]
	alps := s.Elevation(45.83, 6.86)
	assert.GreaterOrEqual(t, alps, 1050.0)
	assert.LessOrEqual(t, alps, 4000.0)

	// Brittany stays low
	brittany := s.Elevation(48.2, -3.5)
	assert.GreaterOrEqual(t, brittany, 0.0)
	assert.LessOrEqual(t, brittany, 100.0)
}

func TestSyntheticHasRelief(t *testing.T) {
	a := NewAcquirer(NewSynthetic(), Options{MaxFetchResolution: 32, BatchSize: 500})

	grid, err := a.Acquire(context.Background(), testBox, 32, nil)
	require.NoError(t, err)

	lo, hi := grid.Values[0], grid.Values[0]
	for _, v := range grid.Values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	assert.Greater(t, hi-lo, 1.0)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(SyntheticName, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, SyntheticName, src.Name())

	src, err = NewSource(OpenElevationName, "http://localhost", time.Second)
	require.NoError(t, err)
	assert.Equal(t, OpenElevationName, src.Name())

	_, err = NewSource("srtm", "", time.Second)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestOpenElevationLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req lookupRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		resp := lookupResponse{Results: make([]lookupResult, len(req.Locations))}
		for i, loc := range req.Locations {
			resp.Results[i] = lookupResult{Latitude: loc.Latitude, Longitude: loc.Longitude}
			if i != 1 {
				elev := loc.Latitude * 10
				resp.Results[i].Elevation = &elev
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	src := NewOpenElevation(srv.URL, time.Second)
	values, err := src.Lookup(context.Background(), []Point{{Lat: 45}, {Lat: 46}, {Lat: 47}})
	require.NoError(t, err)

	require.Len(t, values, 3)
	assert.Equal(t, 450.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.Equal(t, 470.0, values[2])
}

func TestOpenElevationErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: ErrRateLimited,
		},
		{
			name: "short response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"results":[{"latitude":1,"longitude":2,"elevation":3}]}`))
			},
			wantErr: ErrShortBatch,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOpenElevation(srv.URL, time.Second).Lookup(context.Background(), []Point{{}, {}})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}
