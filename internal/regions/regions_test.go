package regions

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	all := All()
	if len(all) != 12 {
		t.Fatalf("expected 12 regions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("regions not sorted: %s before %s", all[i-1].ID, all[i].ID)
		}
	}
	for _, r := range all {
		if err := r.BBox.Validate(); err != nil {
			t.Errorf("%s: %v", r.ID, err)
		}
		if r.DefaultResolution != 256 {
			t.Errorf("%s: expected default resolution 256, got %d", r.ID, r.DefaultResolution)
		}
		if r.ElevationRange[0] > r.ElevationRange[1] {
			t.Errorf("%s: inverted elevation range %v", r.ID, r.ElevationRange)
		}
	}
}

func TestLookup(t *testing.T) {
	r, err := Lookup("mont-blanc")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if r.Name != "Mont Blanc" {
		t.Errorf("expected Mont Blanc, got %s", r.Name)
	}
	if r.BBox.LatMin != 45.78 || r.BBox.LonMax != 6.95 {
		t.Errorf("unexpected bbox %v", r.BBox)
	}
	if r.ElevationRange[1] != 4808 {
		t.Errorf("expected max elevation 4808, got %v", r.ElevationRange[1])
	}

	if _, err := Lookup(" Chamonix "); err != nil {
		t.Errorf("lookup should normalize case and spaces: %v", err)
	}

	if _, err := Lookup("atlantis"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "- id: [oops"},
		{"missing id", "- name: Nowhere\n  bbox: {lat_min: 1, lat_max: 2, lon_min: 1, lon_max: 2}\n"},
		{"duplicate", "- id: a\n  bbox: {lat_min: 1, lat_max: 2, lon_min: 1, lon_max: 2}\n- id: a\n  bbox: {lat_min: 1, lat_max: 2, lon_min: 1, lon_max: 2}\n"},
		{"bad bbox", "- id: a\n  bbox: {lat_min: 2, lat_max: 1, lon_min: 1, lon_max: 2}\n"},
		{"uppercase id", "- id: Mont-Blanc\n  bbox: {lat_min: 1, lat_max: 2, lon_min: 1, lon_max: 2}\n"},
		{"padded id", "- id: \" alps\"\n  bbox: {lat_min: 1, lat_max: 2, lon_min: 1, lon_max: 2}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d", c.Len())
	}
}
