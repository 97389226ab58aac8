// Package regions holds the catalog of named regions that can be generated
// without drawing a bounding box.
package regions

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/terraprint/pkg/dem"
)

//go:embed regions.yaml
var catalogYAML []byte

// ErrUnknownRegion is returned by Lookup for ids not in the catalog.
var ErrUnknownRegion = errors.New("unknown region")

// Region is a named area with a fixed bounding box.
type Region struct {
	ID                string          `yaml:"id" json:"id"`
	Name              string          `yaml:"name" json:"name"`
	BBox              dem.BoundingBox `yaml:"bbox" json:"bbox"`
	DefaultResolution int             `yaml:"default_resolution" json:"default_resolution"`
	ElevationRange    [2]float64      `yaml:"elevation_range" json:"elevation_range"`
	DataSources       []string        `yaml:"data_sources" json:"data_sources"`
	Description       string          `yaml:"description" json:"description,omitempty"`
}

// Catalog is an immutable set of regions keyed by id.
type Catalog struct {
	byID  map[string]Region
	order []string
}

// Parse decodes and validates a YAML list of regions.
func Parse(data []byte) (*Catalog, error) {
	var list []Region
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing region catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Region, len(list))}
	for _, r := range list {
		if r.ID == "" {
			return nil, fmt.Errorf("region %q: missing id", r.Name)
		}
		if r.ID != normalizeID(r.ID) {
			return nil, fmt.Errorf("region %q: id must be lowercase without surrounding spaces", r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("region %q: duplicate id", r.ID)
		}
		if err := r.BBox.Validate(); err != nil {
			return nil, fmt.Errorf("region %q: %w", r.ID, err)
		}
		c.byID[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	slices.Sort(c.order)
	return c, nil
}

// Lookup returns the region with the given id.
func (c *Catalog) Lookup(id string) (Region, error) {
	r, ok := c.byID[normalizeID(id)]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	return r, nil
}

// normalizeID is the form ids are stored in and looked up by.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// All returns every region sorted by id.
func (c *Catalog) All() []Region {
	out := make([]Region, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of regions.
func (c *Catalog) Len() int {
	return len(c.order)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// Lookup finds a region in the built-in catalog.
func Lookup(id string) (Region, error) {
	return Default().Lookup(id)
}

// All lists the built-in catalog.
func All() []Region {
	return Default().All()
}
