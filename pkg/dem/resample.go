package dem

// Resample returns a rows x cols grid bilinearly interpolated from g.
// Corner samples are preserved exactly. Returns a clone when the shape
// already matches.
func Resample(g *Grid, rows, cols int) *Grid {
	if rows == g.Rows && cols == g.Cols {
		return g.Clone()
	}

	out := NewGrid(rows, cols)
	for r := range rows {
		fr := position(r, rows, g.Rows)
		for c := range cols {
			fc := position(c, cols, g.Cols)
			out.Set(r, c, g.Interpolate(fr, fc))
		}
	}
	return out
}

// Interpolate returns the bilinearly interpolated elevation at fractional
// grid coordinates, clamped to the grid edges.
func (g *Grid) Interpolate(row, col float64) float64 {
	r0 := clampi(int(row), 0, g.Rows-2)
	c0 := clampi(int(col), 0, g.Cols-2)

	fracR := clampf(row-float64(r0), 0, 1)
	fracC := clampf(col-float64(c0), 0, 1)

	// North edge (lower row): lerp between west and east
	north := g.At(r0, c0)*(1-fracC) + g.At(r0, c0+1)*fracC
	// South edge (higher row)
	south := g.At(r0+1, c0)*(1-fracC) + g.At(r0+1, c0+1)*fracC
	return north*(1-fracR) + south*fracR
}

// position maps index i of an n-sample axis onto a src-sample axis so that
// both end points line up.
func position(i, n, src int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) * float64(src-1) / float64(n-1)
}

func clampi(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
