package main

import (
	"flag"
	"testing"

	"github.com/Faultbox/terraprint/internal/pipeline"
)

func TestParseBBox(t *testing.T) {
	box, err := parseBBox("45.78, 45.90,6.80,6.95")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if box.LatMin != 45.78 || box.LatMax != 45.90 || box.LonMin != 6.80 || box.LonMax != 6.95 {
		t.Errorf("unexpected box %v", box)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "46,45,6,7"} {
		if _, err := parseBBox(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTargetRequest(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, req pipeline.GenerateRequest)
	}{
		{
			name: "region",
			args: []string{"-region", "mont-blanc", "-r", "256", "-e", "2"},
			check: func(t *testing.T, req pipeline.GenerateRequest) {
				if req.Target != (pipeline.ByRegion{ID: "mont-blanc"}) {
					t.Errorf("unexpected target %#v", req.Target)
				}
				if req.Resolution != 256 || req.Exaggeration != 2 {
					t.Errorf("unexpected settings %+v", req)
				}
			},
		},
		{
			name: "bbox",
			args: []string{"-bbox", "45,46,6,7"},
			check: func(t *testing.T, req pipeline.GenerateRequest) {
				if _, ok := req.Target.(pipeline.ByBoundingBox); !ok {
					t.Errorf("expected bounding box target, got %#v", req.Target)
				}
				if req.Resolution != 128 {
					t.Errorf("expected default resolution 128, got %d", req.Resolution)
				}
			},
		},
		{name: "both", args: []string{"-region", "a", "-bbox", "45,46,6,7"}, wantErr: true},
		{name: "neither", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			target := addTargetFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			req, err := target.request()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, req)
		})
	}
}
