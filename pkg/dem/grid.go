package dem

import (
	"errors"
	"fmt"
	"math"
)

// Grid errors.
var (
	ErrGridTooSmall = errors.New("grid must be at least 2x2")
	ErrJaggedGrid   = errors.New("grid rows have different lengths")
	ErrNonFinite    = errors.New("grid contains non-finite elevation")
)

// Grid is a rectangular row-major grid of elevations in meters.
// Row 0 is the northern edge, column 0 the western edge.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewGrid allocates a zero-filled rows x cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows:   rows,
		Cols:   cols,
		Values: make([]float64, rows*cols),
	}
}

// FromRows builds a grid from nested rows, rejecting jagged input.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return nil, ErrGridTooSmall
	}
	cols := len(rows[0])
	g := NewGrid(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrJaggedGrid, r, len(row), cols)
		}
		copy(g.Values[r*cols:], row)
	}
	return g, nil
}

// At returns the elevation at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Values[row*g.Cols+col]
}

// Set stores the elevation at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Values[row*g.Cols+col] = v
}

// Len returns the number of samples.
func (g *Grid) Len() int {
	return g.Rows * g.Cols
}

// Validate checks the shape and that every sample is finite.
func (g *Grid) Validate() error {
	if g == nil || g.Rows < 2 || g.Cols < 2 {
		return ErrGridTooSmall
	}
	if len(g.Values) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %d values for %dx%d", ErrJaggedGrid, len(g.Values), g.Rows, g.Cols)
	}
	for i, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at row %d col %d", ErrNonFinite, i/g.Cols, i%g.Cols)
		}
	}
	return nil
}

// ToRows returns a nested copy of the grid, one slice per row.
func (g *Grid) ToRows() [][]float64 {
	out := make([][]float64, g.Rows)
	for r := range g.Rows {
		out[r] = append([]float64(nil), g.Values[r*g.Cols:(r+1)*g.Cols]...)
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{
		Rows:   g.Rows,
		Cols:   g.Cols,
		Values: append([]float64(nil), g.Values...),
	}
}
