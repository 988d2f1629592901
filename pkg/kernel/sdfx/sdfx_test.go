package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/medvol/pkg/kernel/marching"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func phantom(t *testing.T, n int) *volume.Volume {
	t.Helper()
	dims := [3]int{n, n, n}
	v, err := volume.New(dims, volume.Phantom(dims), volume.MRI)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestBandSDFSign(t *testing.T) {
	v := phantom(t, 16)
	s := NewBandSDF(v, volume.NewBand(0.65, 0.6))

	tests := []struct {
		name   string
		p      v3.Vec
		inside bool
	}{
		{"centre", v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, true},
		{"air corner", v3.Vec{X: 0.02, Y: 0.02, Z: 0.02}, false},
		{"outside volume", v3.Vec{X: 1.5, Y: 0.5, Z: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Evaluate(tt.p) < 0; got != tt.inside {
				t.Errorf("Evaluate(%+v) inside = %v, want %v", tt.p, got, tt.inside)
			}
		})
	}
}

func TestBandSDFLowBandExcludesAir(t *testing.T) {
	// Raw band [900, 2100) holds the soft tissue shell but not the air,
	// even though air normalizes to density 0 inside [-0.2, 0.4).
	s := NewBandSDF(phantom(t, 16), volume.NewBand(0.1, 0.3))
	if d := s.Evaluate(v3.Vec{X: 0.02, Y: 0.02, Z: 0.02}); d <= 0 {
		t.Errorf("air corner distance = %v, want positive", d)
	}
	if d := s.Evaluate(v3.Vec{X: 0.08, Y: 0.5, Z: 0.5}); d >= 0 {
		t.Errorf("tissue distance = %v, want negative", d)
	}
}

func TestBoundingBoxCoversVolume(t *testing.T) {
	bb := NewBandSDF(phantom(t, 8), volume.NewBand(0.5, 0.1)).BoundingBox()
	if bb.Min.X >= 0 || bb.Max.Z <= 1 {
		t.Errorf("bounding box %+v should enclose the unit cube with margin", bb)
	}
}

func TestExtractPhantom(t *testing.T) {
	v := phantom(t, 16)
	mesh, err := New().Extract(v, volume.NewBand(0.65, 0.6))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}

	// The outer phantom shell has radius 0.45 around the centre.
	min, max := mesh.Bounds()
	if math.Abs(min.X-0.05) > 0.1 || math.Abs(max.X-0.95) > 0.1 {
		t.Errorf("mesh x extent [%v, %v], want about [0.05, 0.95]", min.X, max.X)
	}

	ref, err := marching.New().Extract(v, volume.NewBand(0.65, 0.6))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("sdfx: %d triangles, marching: %d triangles", mesh.TriangleCount(), ref.TriangleCount())
}

func TestExtractDegenerateBand(t *testing.T) {
	mesh, err := New().Extract(phantom(t, 8), volume.NewBand(0.5, 0))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Errorf("degenerate band produced %d triangles", mesh.TriangleCount())
	}
}
