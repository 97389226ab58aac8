// Package estimate predicts export size and print time from settings alone,
// without building a mesh.
package estimate

import (
	"fmt"
	"math"
)

// Calibration constants.
const (
	HeaderBytes      = 84  // 80-byte header + 4-byte count
	BytesPerTriangle = 50  // 12 floats + 2 attribute bytes
	BaseResolution   = 128 // Resolution the print time is calibrated at
	BaseHours        = 2.0 // Print hours at BaseResolution and scale 1
)

// Result is the answer to an estimate query.
type Result struct {
	Resolution         int     `json:"resolution"`
	FileSizeBytes      int     `json:"file_size_bytes"`
	FileSizeMB         float64 `json:"file_size_mb"`
	EstimatedTriangles int     `json:"estimated_triangles"`
	PrintTimeHours     int     `json:"print_time_hours"`
	EstimatedPrintTime string  `json:"estimated_print_time"`
}

// TerrainTriangles returns the terrain surface triangle count for a square
// grid of the given resolution.
func TerrainTriangles(resolution int) int {
	n := resolution - 1
	return 2 * n * n
}

// Triangles returns the estimated total triangle count. The base is sized as
// a full terrain-sized cap, an upper bound on what the builder emits.
func Triangles(resolution int, addBase bool) int {
	terrain := TerrainTriangles(resolution)
	if !addBase {
		return terrain
	}
	base := terrain
	sides := 4 * 2 * (resolution - 1)
	return terrain + base + sides
}

// FileSize returns the binary STL size in bytes for the estimated triangles.
func FileSize(resolution int, addBase bool) int {
	return HeaderBytes + Triangles(resolution, addBase)*BytesPerTriangle
}

// PrintHours returns the unrounded print time heuristic.
func PrintHours(resolution int, scale float64) float64 {
	r := float64(resolution) / BaseResolution
	return BaseHours * r * r * scale * scale
}

// Exact returns the triangle count the solid builder really produces for a
// rows x cols grid.
func Exact(rows, cols int, addBase bool) int {
	terrain := 2 * (rows - 1) * (cols - 1)
	if !addBase {
		return terrain
	}
	perimeter := 2 * ((rows - 1) + (cols - 1))
	return terrain + 2*perimeter + perimeter
}

// Estimate answers an estimate query.
func Estimate(resolution int, addBase bool, scale float64) Result {
	size := FileSize(resolution, addBase)
	hours := PrintHours(resolution, scale)
	return Result{
		Resolution:         resolution,
		FileSizeBytes:      size,
		FileSizeMB:         math.Round(float64(size)/(1024*1024)*100) / 100,
		EstimatedTriangles: Triangles(resolution, addBase),
		PrintTimeHours:     int(math.Round(hours)),
		EstimatedPrintTime: FormatHours(hours),
	}
}

// FormatHours renders a duration in hours for display.
func FormatHours(hours float64) string {
	if hours < 1 {
		return fmt.Sprintf("%d minutes", int(hours*60))
	}
	return fmt.Sprintf("%.1f hours", hours)
}
