// Package sdfx implements kernel.Extractor on top of the
// github.com/deadsy/sdfx marching cubes renderer. The volume is exposed to
// sdfx as a signed field that is negative inside the density band.
package sdfx

import (
	"errors"
	"math"

	"github.com/chazu/medvol/pkg/kernel"
	"github.com/chazu/medvol/pkg/volume"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Extractor = (*Extractor)(nil)
	_ sdf.SDF3         = (*BandSDF)(nil)
)

// BandSDF is the band membership of a volume as an sdf.SDF3: negative where
// lo < s < hi, positive elsewhere, and positive outside the unit cube so the
// shell closes at the volume boundary.
type BandSDF struct {
	v      *volume.Volume
	lo, hi float64 // raw units
	scale  float64
	bb     sdf.Box3
}

// NewBandSDF wraps v for band b.
func NewBandSDF(v *volume.Volume, b volume.Band) *BandSDF {
	d := v.Dims()
	// One voxel of margin so the renderer samples outside the shell.
	margin := v3.Vec{X: 1 / float64(d[0]), Y: 1 / float64(d[1]), Z: 1 / float64(d[2])}
	n := v.Normalization()
	lo, hi := b.Raw(n)
	return &BandSDF{
		v:     v,
		lo:    lo,
		hi:    hi,
		scale: n.Scale,
		bb: sdf.Box3{
			Min: margin.MulScalar(-1),
			Max: v3.Vec{X: 1, Y: 1, Z: 1}.Add(margin),
		},
	}
}

// Evaluate returns the signed band distance at p, measured on raw samples
// and scaled back to density units.
func (s *BandSDF) Evaluate(p v3.Vec) float64 {
	r := s.v.RawSample(p)
	dist := math.Max(s.lo-r, r-s.hi) / s.scale
	return math.Max(dist, unitCube(p))
}

// BoundingBox returns the unit cube grown by one voxel.
func (s *BandSDF) BoundingBox() sdf.Box3 {
	return s.bb
}

// unitCube is the signed distance to [0,1]^3, negative inside.
func unitCube(p v3.Vec) float64 {
	q := v3.Vec{X: math.Abs(p.X-0.5) - 0.5, Y: math.Abs(p.Y-0.5) - 0.5, Z: math.Abs(p.Z-0.5) - 0.5}
	outside := v3.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)}
	return outside.Length() + math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
}

// Extractor implements kernel.Extractor using sdfx.
type Extractor struct {
	// Cells is the marching cubes resolution along the longest axis. Zero
	// means one cell per voxel plus the margin.
	Cells int
}

// New returns an Extractor at voxel resolution.
func New() *Extractor {
	return &Extractor{}
}

// Extract converts the band of v to a triangle mesh using marching cubes.
func (e *Extractor) Extract(v *volume.Volume, b volume.Band) (*kernel.Mesh, error) {
	if v == nil {
		return nil, errors.New("sdfx: nil volume")
	}
	if b.Degenerate() {
		return &kernel.Mesh{Name: "shell"}, nil
	}

	cells := e.Cells
	if cells <= 0 {
		d := v.Dims()
		cells = max(d[0], d[1], d[2]) + 2
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(NewBandSDF(v, b), renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	mesh := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
		Name:     "shell",
	}
	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			p := tri[j]
			mesh.Vertices = append(mesh.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			mesh.Normals = append(mesh.Normals, nx, ny, nz)
			mesh.Indices = append(mesh.Indices, uint32(i*3+j))
		}
	}
	return mesh, nil
}
