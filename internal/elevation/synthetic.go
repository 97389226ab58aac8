package elevation

import (
	"context"
	"math"
	"math/rand/v2"
)

// SyntheticName is the data source tag of the offline generator.
const SyntheticName = "synthetic"

// cyclesPerDegree sets the noise frequency in geographic space. A region of
// roughly 0.12 degrees spans about four base wavelengths.
const cyclesPerDegree = 32.0

// profile is the base elevation and relief for a named area.
type profile struct {
	name                     string
	latMin, latMax           float64
	lonMin, lonMax           float64
	baseElevation, reliefMax float64
}

// Checked in order; the first match wins.
var profiles = []profile{
	{"alps", 44.5, 46.5, 5.5, 8.0, 1500, 2500},
	{"pyrenees", 42.5, 43.5, -2.0, 3.0, 800, 2000},
	{"massif-central", 44.5, 46.0, 2.0, 4.0, 600, 1000},
	{"corsica", 41.3, 43.0, 8.5, 9.6, 400, 2000},
	{"vosges", 47.5, 48.5, 6.5, 7.5, 400, 1000},
	{"jura", 46.0, 47.5, 5.5, 7.0, 500, 1200},
	{"brittany", 47.5, 49.0, -5.0, -1.0, 0, 100},
}

// profileAt picks base elevation and relief for a coordinate.
func profileAt(lat, lon float64) (base, relief float64) {
	for _, p := range profiles {
		if lat > p.latMin && lat < p.latMax && lon > p.lonMin && lon < p.lonMax {
			return p.baseElevation, p.reliefMax
		}
	}
	switch {
	case lon < -1.0: // Atlantic coast
		return 0, 150
	case lat < 44.0 && lon > 3.0: // Mediterranean coast
		return 50, 500
	default: // Plains
		return 100, 300
	}
}

type octave struct {
	freq, amp float64
	phases    [8]float64
}

// Synthetic generates deterministic multi-octave terrain. Each sample depends
// only on its coordinates, so batching and ordering do not change the result.
type Synthetic struct {
	octaves []octave
	valley  [8]float64
}

// NewSynthetic creates the generator with fixed seeds.
func NewSynthetic() *Synthetic {
	return &Synthetic{
		octaves: []octave{
			{freq: 1, amp: 0.5, phases: phases(42)},
			{freq: 2, amp: 0.25, phases: phases(123)},
			{freq: 4, amp: 0.15, phases: phases(456)},
			{freq: 8, amp: 0.1, phases: phases(789)},
		},
		valley: phases(999),
	}
}

// Name implements Source.
func (s *Synthetic) Name() string { return SyntheticName }

// Lookup implements Source.
func (s *Synthetic) Lookup(ctx context.Context, points []Point) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = s.Elevation(p.Lat, p.Lon)
	}
	return values, nil
}

// Elevation returns the synthetic elevation in meters at a coordinate.
func (s *Synthetic) Elevation(lat, lon float64) float64 {
	x := lon * cyclesPerDegree / 8
	y := lat * cyclesPerDegree / 8

	// Octave amplitudes sum to 1, so n stays in [-1, 1]
	var n float64
	for _, o := range s.octaves {
		n += o.amp * wave(x*o.freq, y*o.freq, o.phases)
	}

	base, relief := profileAt(lat, lon)
	h := base + (n+1)/2*relief
	if wave(x*0.5, y*0.5, s.valley) < -0.3 {
		h *= 0.7
	}
	return h
}

// wave sums four directional sinusoids, returning a value in [-1, 1].
func wave(x, y float64, ph [8]float64) float64 {
	var sum float64
	for i := range 4 {
		angle := float64(i)*math.Pi/4 + ph[i]
		freq := 1 + ph[i+4]*0.5
		sum += math.Sin(freq*(x*math.Cos(angle)+y*math.Sin(angle)) + ph[i])
	}
	return sum / 4
}

func phases(seed uint64) [8]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var out [8]float64
	for i := range out {
		out[i] = rng.Float64() * 2 * math.Pi
	}
	return out
}
