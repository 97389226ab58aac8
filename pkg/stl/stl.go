// Package stl reads and writes binary stereolithography (STL) files.
//
// Layout (all little-endian):
//
//	[80]byte header
//	uint32   triangle count
//	per triangle (50 bytes):
//	    float32[3] normal
//	    float32[3] vertex 1
//	    float32[3] vertex 2
//	    float32[3] vertex 3
//	    uint16     attribute byte count (always 0)
package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	vmath "github.com/Faultbox/terraprint/pkg/math"
)

// Layout sizes in bytes.
const (
	HeaderSize   = 80
	CountSize    = 4
	TriangleSize = 50
	PreambleSize = HeaderSize + CountSize
)

// DefaultHeader is written at the start of every exported file.
const DefaultHeader = "terraprint binary STL"

// STL format errors.
var (
	ErrNoTriangles   = errors.New("mesh has no triangles")
	ErrTruncatedSTL  = errors.New("truncated STL data")
	ErrCountMismatch = errors.New("STL triangle count does not match data length")
)

// Triangle is a single facet: a normal and three counter-clockwise vertices.
type Triangle struct {
	Normal   vmath.Vec3
	Vertices [3]vmath.Vec3
}

// Mesh is any ordered source of triangles.
type Mesh interface {
	TriangleCount() int
	Triangle(i int) Triangle
}

// Size returns the exact encoded length for n triangles.
func Size(n int) int {
	return PreambleSize + n*TriangleSize
}

// Encode serializes the mesh into a new buffer. Normals are recomputed from
// the vertex winding.
func Encode(m Mesh) ([]byte, error) {
	if m == nil || m.TriangleCount() == 0 {
		return nil, ErrNoTriangles
	}

	buf := make([]byte, Size(m.TriangleCount()))
	copy(buf[:HeaderSize], DefaultHeader)
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(m.TriangleCount()))

	off := PreambleSize
	for i := range m.TriangleCount() {
		putTriangle(buf[off:off+TriangleSize], m.Triangle(i))
		off += TriangleSize
	}
	return buf, nil
}

// Write encodes the mesh to w.
func Write(w io.Writer, m Mesh) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes the mesh to a file at path. Nothing is created for an
// empty mesh.
func WriteFile(path string, m Mesh) error {
	if m == nil || m.TriangleCount() == 0 {
		return ErrNoTriangles
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating STL file: %w", err)
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func putTriangle(b []byte, t Triangle) {
	n := vmath.TriangleNormal(t.Vertices[0], t.Vertices[1], t.Vertices[2])
	putVec(b[0:12], n)
	putVec(b[12:24], t.Vertices[0])
	putVec(b[24:36], t.Vertices[1])
	putVec(b[36:48], t.Vertices[2])
	// b[48:50] attribute byte count stays zero
}

func putVec(b []byte, v vmath.Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Z))
}

// File is a decoded binary STL.
type File struct {
	Header    [HeaderSize]byte
	Triangles []Triangle
}

// TriangleCount implements Mesh.
func (f *File) TriangleCount() int { return len(f.Triangles) }

// Triangle implements Mesh.
func (f *File) Triangle(i int) Triangle { return f.Triangles[i] }

// HeaderText returns the header with trailing NUL bytes removed.
func (f *File) HeaderText() string {
	return string(bytes.TrimRight(f.Header[:], "\x00"))
}

// Bounds returns the axis-aligned bounds of all vertices.
func (f *File) Bounds() (lo, hi vmath.Vec3) {
	if len(f.Triangles) == 0 {
		return
	}
	lo = f.Triangles[0].Vertices[0]
	hi = lo
	for _, t := range f.Triangles {
		for _, v := range t.Vertices {
			lo = lo.Min(v)
			hi = hi.Max(v)
		}
	}
	return lo, hi
}

// Parse decodes a binary STL from raw bytes.
func Parse(data []byte) (*File, error) {
	if len(data) < PreambleSize {
		return nil, ErrTruncatedSTL
	}

	f := &File{}
	copy(f.Header[:], data[:HeaderSize])

	count := binary.LittleEndian.Uint32(data[HeaderSize:PreambleSize])
	if want := Size(int(count)); len(data) != want {
		return nil, fmt.Errorf("%w: count %d needs %d bytes, got %d", ErrCountMismatch, count, want, len(data))
	}

	r := bytes.NewReader(data[PreambleSize:])
	f.Triangles = make([]Triangle, count)
	for i := range f.Triangles {
		var raw struct {
			N, V1, V2, V3 [3]float32
			_             uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("%w: triangle %d", ErrTruncatedSTL, i)
		}
		f.Triangles[i] = Triangle{
			Normal:   vecOf(raw.N),
			Vertices: [3]vmath.Vec3{vecOf(raw.V1), vecOf(raw.V2), vecOf(raw.V3)},
		}
	}
	return f, nil
}

// ParseFile decodes a binary STL from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return Parse(data)
}

func vecOf(a [3]float32) vmath.Vec3 {
	return vmath.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
