// Package terrain builds printable solids and preview meshes from heightfields.
package terrain

import (
	"fmt"

	vmath "github.com/Faultbox/terraprint/pkg/math"
	"github.com/Faultbox/terraprint/pkg/stl"
)

// Heightfield is the height source consumed by the builders.
// Height(r, c) is in millimeters before ScaleZ is applied.
type Heightfield interface {
	Rows() int
	Cols() int
	Height(r, c int) float64
}

// Options controls the physical shape of a built solid.
type Options struct {
	FootprintMM   float64 // Side of the square footprint before ScaleXY
	ScaleXY       float64 // Horizontal scale factor
	ScaleZ        float64 // Vertical scale factor
	AddBase       bool    // Close the solid with skirts and a base plate
	BaseThickness float64 // Base plate thickness in mm below the lowest terrain point
}

// DefaultOptions returns a 100mm footprint with a 5mm base.
func DefaultOptions() Options {
	return Options{
		FootprintMM:   100,
		ScaleXY:       1,
		ScaleZ:        1,
		AddBase:       true,
		BaseThickness: 5,
	}
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min vmath.Vec3
	Max vmath.Vec3
}

// Size returns the extent along each axis.
func (b Bounds) Size() vmath.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b *Bounds) extend(p vmath.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

func emptyBounds() Bounds {
	return Bounds{
		Min: vmath.Vec3{X: 1e30, Y: 1e30, Z: 1e30},
		Max: vmath.Vec3{X: -1e30, Y: -1e30, Z: -1e30},
	}
}

// Counts breaks a solid's triangles down by part.
type Counts struct {
	Terrain int
	Skirt   int
	Base    int
}

// Total returns the sum of all parts.
func (c Counts) Total() int {
	return c.Terrain + c.Skirt + c.Base
}

// TriangleCounts returns the exact per-part triangle counts BuildSolid
// produces for a rows x cols heightfield.
func TriangleCounts(rows, cols int, addBase bool) Counts {
	c := Counts{Terrain: 2 * (rows - 1) * (cols - 1)}
	if addBase {
		perimeter := 2 * ((rows - 1) + (cols - 1))
		c.Skirt = 2 * perimeter
		c.Base = perimeter
	}
	return c
}

// Solid is an immutable triangle soup. When built with a base it is a closed
// 2-manifold with outward-facing counter-clockwise triangles.
type Solid struct {
	Triangles []stl.Triangle
	Bounds    Bounds
	Counts    Counts
	BaseZ     float32 // Shared plane of skirt feet and base plate; zero without a base
	HasBase   bool
}

// TriangleCount implements stl.Mesh.
func (s *Solid) TriangleCount() int { return len(s.Triangles) }

// Triangle implements stl.Mesh.
func (s *Solid) Triangle(i int) stl.Triangle { return s.Triangles[i] }

// Vertex is a preview mesh vertex.
type Vertex struct {
	Position vmath.Vec3
	Normal   vmath.Vec3
}

// Mesh is an indexed preview mesh ready for upload to a renderer.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// MeshBuildError reports a heightfield or option set that cannot be meshed.
type MeshBuildError struct {
	Reason string
	Err    error
}

func (e *MeshBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mesh build: %s: %v", e.Reason, e.Err)
	}
	return "mesh build: " + e.Reason
}

func (e *MeshBuildError) Unwrap() error {
	return e.Err
}
