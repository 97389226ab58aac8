package terrain

import (
	vmath "github.com/Faultbox/terraprint/pkg/math"
)

// BuildPreview creates an indexed terrain surface for interactive display.
// It shares BuildSolid's vertex placement and row flip but omits skirts and
// base, and carries smoothed per-vertex normals.
func BuildPreview(hf Heightfield, opts Options) (*Mesh, error) {
	top, err := gridVertices(hf, opts)
	if err != nil {
		return nil, err
	}

	rows, cols := hf.Rows(), hf.Cols()
	m := &Mesh{
		Vertices: make([]Vertex, len(top)),
		Indices:  make([]uint32, 0, 6*(rows-1)*(cols-1)),
		Bounds:   emptyBounds(),
	}
	for i, p := range top {
		m.Vertices[i] = Vertex{Position: p}
		m.Bounds.extend(p)
	}

	for i := range rows - 1 {
		for j := range cols - 1 {
			i00 := uint32(i*cols + j)
			i01 := i00 + 1
			i10 := uint32((i+1)*cols + j)
			i11 := i10 + 1
			m.Indices = append(m.Indices,
				i00, i01, i11,
				i00, i11, i10,
			)
		}
	}

	SmoothNormals(m)
	return m, nil
}

// SmoothNormals sets each vertex normal to the normalized sum of the
// area-weighted normals of the triangles that use it.
func SmoothNormals(m *Mesh) {
	sums := make([]vmath.Vec3, len(m.Vertices))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		pa, pb, pc := m.Vertices[a].Position, m.Vertices[b].Position, m.Vertices[c].Position
		// Unnormalized cross product weights by triangle area
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		sums[a] = sums[a].Add(n)
		sums[b] = sums[b].Add(n)
		sums[c] = sums[c].Add(n)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = sums[i].Normalize()
	}
}
