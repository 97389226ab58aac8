// Package pipeline drives a terrain from request to preview mesh and printable
// STL, one run at a time.
package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Faultbox/terraprint/internal/elevation"
	"github.com/Faultbox/terraprint/internal/terrain"
	"github.com/Faultbox/terraprint/pkg/dem"
)

// Pipeline errors.
var (
	ErrNoTerrain   = errors.New("no terrain generated")
	ErrSuperseded  = errors.New("run superseded by a newer request")
	ErrInvalidArgs = errors.New("invalid request")
)

// State is the pipeline stage of the active run.
type State int

const (
	Idle State = iota
	Acquiring
	Normalizing
	MeshBuilding
	Ready
	Serializing
	Failed
)

var stateNames = [...]string{
	Idle:         "idle",
	Acquiring:    "acquiring",
	Normalizing:  "normalizing",
	MeshBuilding: "mesh-building",
	Ready:        "ready",
	Serializing:  "serializing",
	Failed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Resolutions lists the accepted per-axis grid resolutions.
var Resolutions = []int{64, 96, 128, 160, 192, 224, 256}

// Accepted parameter ranges, inclusive.
const (
	MinExaggeration  = 0.5
	MaxExaggeration  = 5.0
	MinScaleXY       = 0.1
	MaxScaleXY       = 10.0
	MinScaleZ        = 0.5
	MaxScaleZ        = 5.0
	MinBaseThickness = 1.0
	MaxBaseThickness = 20.0
)

// Snapshot is an immutable view of the active run.
type Snapshot struct {
	Run       uint64
	State     State
	Progress  elevation.Progress
	TerrainID string
	Err       string // Set only in Failed
}

// Target selects the area to generate. It is either ByRegion or ByBoundingBox.
type Target interface {
	isTarget()
}

// ByRegion targets a catalog region.
type ByRegion struct {
	ID string
}

// ByBoundingBox targets an explicit area.
type ByBoundingBox struct {
	Box dem.BoundingBox
}

func (ByRegion) isTarget()      {}
func (ByBoundingBox) isTarget() {}

// GenerateRequest asks for a new terrain.
type GenerateRequest struct {
	Target       Target
	Resolution   int
	Exaggeration float64
	DataSource   string // Empty selects the session default
}

// ExportRequest asks for an STL of a generated terrain.
type ExportRequest struct {
	TerrainID     string
	Resolution    int
	ScaleXY       float64
	ScaleZ        float64
	AddBase       bool
	BaseThickness float64
}

// DefaultExportRequest returns export settings matching the model defaults.
func DefaultExportRequest(terrainID string, resolution int) ExportRequest {
	return ExportRequest{
		TerrainID:     terrainID,
		Resolution:    resolution,
		ScaleXY:       1,
		ScaleZ:        1,
		AddBase:       true,
		BaseThickness: 5,
	}
}

// Metadata describes a generated terrain.
type Metadata struct {
	CenterLat    float64   `json:"center_lat"`
	CenterLon    float64   `json:"center_lon"`
	MinElevation float64   `json:"min_elevation"`
	MaxElevation float64   `json:"max_elevation"`
	DataSource   string    `json:"data_source"`
	Timestamp    time.Time `json:"timestamp"`
	Resolution   int       `json:"resolution"`
}

// Terrain is the result of a generate run. It is not modified after creation.
type Terrain struct {
	ID           string
	Region       string // Catalog id, empty for an explicit box
	Grid         *dem.Grid
	Metadata     Metadata
	Bounds       dem.BoundingBox
	Exaggeration float64
	Preview      *terrain.Mesh
}

// Export is the result of an export run.
type Export struct {
	Filename string
	Data     []byte
	Counts   terrain.Counts
	Bounds   terrain.Bounds
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidArgs
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func validateResolution(res int) error {
	if !slices.Contains(Resolutions, res) {
		return invalid("resolution", "%d is not one of %v", res, Resolutions)
	}
	return nil
}

func validateRange(field string, v, lo, hi float64) error {
	if !(v >= lo && v <= hi) {
		return invalid(field, "%g outside [%g, %g]", v, lo, hi)
	}
	return nil
}

// Validate checks a generate request before any work starts.
func (r GenerateRequest) Validate() error {
	switch t := r.Target.(type) {
	case ByRegion:
		if t.ID == "" {
			return invalid("region", "empty id")
		}
	case ByBoundingBox:
		if err := t.Box.Validate(); err != nil {
			return &ValidationError{Field: "bbox", Reason: err.Error(), Err: err}
		}
	case nil:
		return invalid("target", "either a region or a bounding box is required")
	default:
		return invalid("target", "unsupported target %T", t)
	}
	if err := validateResolution(r.Resolution); err != nil {
		return err
	}
	return validateRange("height_exaggeration", r.Exaggeration, MinExaggeration, MaxExaggeration)
}

// Validate checks an export request before any work starts.
func (r ExportRequest) Validate() error {
	if err := validateResolution(r.Resolution); err != nil {
		return err
	}
	if err := validateRange("scale_xy", r.ScaleXY, MinScaleXY, MaxScaleXY); err != nil {
		return err
	}
	if err := validateRange("scale_z", r.ScaleZ, MinScaleZ, MaxScaleZ); err != nil {
		return err
	}
	if r.AddBase {
		return validateRange("base_thickness", r.BaseThickness, MinBaseThickness, MaxBaseThickness)
	}
	return nil
}

// Filename returns the suggested export file name.
func Filename(region string, resolution int) string {
	if region == "" {
		region = "custom"
	}
	return fmt.Sprintf("terrain_%s_%d.stl", region, resolution)
}
