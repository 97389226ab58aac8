package math

import (
	"math"
	"testing"
)

func TestVec3Add(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	got := a.Add(b)
	want := Vec3{5, 7, 9}
	if got != want {
		t.Errorf("Vec3.Add() = %v, want %v", got, want)
	}
}

func TestVec3Sub(t *testing.T) {
	got := Vec3{4, 5, 6}.Sub(Vec3{1, 2, 3})
	want := Vec3{3, 3, 3}
	if got != want {
		t.Errorf("Vec3.Sub() = %v, want %v", got, want)
	}
}

func TestVec3Scale(t *testing.T) {
	v := Vec3{2, -4, 6}.Scale(0.5)
	if v != (Vec3{1, -2, 3}) {
		t.Errorf("Scale(0.5) = %v, want {1 -2 3}", v)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{2, 3, 6}
	got := v.Length()
	want := float32(7)
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 12}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}

	zero := Vec3{}.Normalize()
	if zero != (Vec3{}) {
		t.Errorf("Vec3{}.Normalize() = %v, want zero vector", zero)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got, want := a.Min(b), (Vec3{1, -1, -2}); got != want {
		t.Errorf("Vec3.Min() = %v, want %v", got, want)
	}
	if got, want := a.Max(b), (Vec3{3, 5, 0}); got != want {
		t.Errorf("Vec3.Max() = %v, want %v", got, want)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		v    Vec3
		want bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{float32(math.NaN()), 0, 0}, false},
		{Vec3{0, float32(math.Inf(1)), 0}, false},
		{Vec3{0, 0, float32(math.Inf(-1))}, false},
	}
	for _, tc := range tests {
		if got := tc.v.IsFinite(); got != tc.want {
			t.Errorf("%v.IsFinite() = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestTriangleNormal(t *testing.T) {
	// Counter-clockwise seen from +Z.
	n := TriangleNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if n != (Vec3{0, 0, 1}) {
		t.Errorf("TriangleNormal(ccw) = %v, want +Z", n)
	}

	// Clockwise flips it.
	n = TriangleNormal(Vec3{0, 0, 0}, Vec3{0, 1, 0}, Vec3{1, 0, 0})
	if n != (Vec3{0, 0, -1}) {
		t.Errorf("TriangleNormal(cw) = %v, want -Z", n)
	}

	// Degenerate triangles yield the zero vector.
	n = TriangleNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{2, 0, 0})
	if n != (Vec3{}) {
		t.Errorf("TriangleNormal(collinear) = %v, want zero", n)
	}
}
