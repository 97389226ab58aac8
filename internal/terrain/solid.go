package terrain

import (
	"fmt"
	"math"

	vmath "github.com/Faultbox/terraprint/pkg/math"
	"github.com/Faultbox/terraprint/pkg/stl"
)

// BuildSolid creates a printable solid from a heightfield.
//
// Grid vertex (i, j) sits at x = j*dx, y = i*dy and samples heightfield row
// R-1-i, so heightfield row 0 lands on the far (+Y) edge. With AddBase the
// boundary is walled down to a single plane baseZ = minZ - BaseThickness,
// which is also the plane of the base plate.
func BuildSolid(hf Heightfield, opts Options) (*Solid, error) {
	top, err := gridVertices(hf, opts)
	if err != nil {
		return nil, err
	}
	if opts.AddBase && !(opts.BaseThickness > 0) {
		return nil, &MeshBuildError{Reason: fmt.Sprintf("base thickness must be positive, got %v", opts.BaseThickness)}
	}

	rows, cols := hf.Rows(), hf.Cols()
	counts := TriangleCounts(rows, cols, opts.AddBase)
	s := &Solid{
		Triangles: make([]stl.Triangle, 0, counts.Total()),
		Bounds:    emptyBounds(),
		Counts:    counts,
		HasBase:   opts.AddBase,
	}

	// Terrain surface, counter-clockwise seen from +Z
	for i := range rows - 1 {
		for j := range cols - 1 {
			v00 := top[i*cols+j]
			v01 := top[i*cols+j+1]
			v10 := top[(i+1)*cols+j]
			v11 := top[(i+1)*cols+j+1]
			s.add(v00, v01, v11)
			s.add(v00, v11, v10)
		}
	}

	if !opts.AddBase {
		return s, nil
	}

	minZ := top[0].Z
	for _, v := range top {
		minZ = min(minZ, v.Z)
	}
	// One value for both skirt feet and base plate; never recompute it.
	baseZ := float32(float64(minZ) - opts.BaseThickness)
	s.BaseZ = baseZ

	var loop []int
	for _, edge := range boundaryEdges(rows, cols) {
		buildSkirt(s, top, edge, baseZ)
		loop = append(loop, edge[:len(edge)-1]...)
	}
	buildBase(s, top, loop, baseZ, opts)

	return s, nil
}

// gridVertices computes the top surface positions, row-major in (i, j).
func gridVertices(hf Heightfield, opts Options) ([]vmath.Vec3, error) {
	rows, cols := hf.Rows(), hf.Cols()
	if rows < 2 || cols < 2 {
		return nil, &MeshBuildError{Reason: fmt.Sprintf("heightfield %dx%d is smaller than 2x2", rows, cols)}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"footprint", opts.FootprintMM},
		{"scale_xy", opts.ScaleXY},
		{"scale_z", opts.ScaleZ},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return nil, &MeshBuildError{Reason: fmt.Sprintf("%s must be positive and finite, got %v", f.name, f.v)}
		}
	}

	side := opts.FootprintMM * opts.ScaleXY
	dx := side / float64(cols-1)
	dy := side / float64(rows-1)

	top := make([]vmath.Vec3, rows*cols)
	for i := range rows {
		for j := range cols {
			h := hf.Height(rows-1-i, j) * opts.ScaleZ
			if math.IsNaN(h) || math.IsInf(h, 0) {
				return nil, &MeshBuildError{Reason: fmt.Sprintf("non-finite height at row %d col %d", rows-1-i, j)}
			}
			top[i*cols+j] = vmath.Vec3{
				X: float32(float64(j) * dx),
				Y: float32(float64(i) * dy),
				Z: float32(h),
			}
		}
	}
	return top, nil
}

// boundaryEdges returns the south, east, north and west boundary spans as
// vertex indices. Together they walk the boundary counter-clockwise seen
// from +Z, and each span shares its end vertex with the next span's start.
func boundaryEdges(rows, cols int) [4][]int {
	var south, east, north, west []int
	for j := range cols {
		south = append(south, j)
	}
	for i := range rows {
		east = append(east, i*cols+cols-1)
	}
	for j := cols - 1; j >= 0; j-- {
		north = append(north, (rows-1)*cols+j)
	}
	for i := rows - 1; i >= 0; i-- {
		west = append(west, i*cols)
	}
	return [4][]int{south, east, north, west}
}

// buildSkirt walls one boundary span down to baseZ. The terrain owns the
// directed top edge a->b, so the wall uses b->a and faces outward.
func buildSkirt(s *Solid, top []vmath.Vec3, edge []int, baseZ float32) {
	for k := 0; k+1 < len(edge); k++ {
		a := top[edge[k]]
		b := top[edge[k+1]]
		aFoot := vmath.Vec3{X: a.X, Y: a.Y, Z: baseZ}
		bFoot := vmath.Vec3{X: b.X, Y: b.Y, Z: baseZ}
		s.add(b, a, aFoot)
		s.add(b, aFoot, bFoot)
	}
}

// buildBase closes the bottom at baseZ with a fan from the footprint center
// over every skirt foot so that no T-junctions remain.
func buildBase(s *Solid, top []vmath.Vec3, loop []int, baseZ float32, opts Options) {
	side := float32(opts.FootprintMM * opts.ScaleXY)
	center := vmath.Vec3{X: side, Y: side}.Scale(0.5)
	center.Z = baseZ

	n := len(loop)
	for k := range n {
		p := top[loop[k]]
		q := top[loop[(k+1)%n]]
		pFoot := vmath.Vec3{X: p.X, Y: p.Y, Z: baseZ}
		qFoot := vmath.Vec3{X: q.X, Y: q.Y, Z: baseZ}
		// Skirt owns pFoot->qFoot; reversed here so the cap faces -Z.
		s.add(center, qFoot, pFoot)
	}
}

func (s *Solid) add(a, b, c vmath.Vec3) {
	s.Triangles = append(s.Triangles, stl.Triangle{
		Normal:   vmath.TriangleNormal(a, b, c),
		Vertices: [3]vmath.Vec3{a, b, c},
	})
	s.Bounds.extend(a)
	s.Bounds.extend(b)
	s.Bounds.extend(c)
}
