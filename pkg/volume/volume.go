// Package volume holds the normalized scalar density grid that both render
// modes sample.
//
// Normalized volume space is the unit cube. Voxel (i,j,k) of a W×H×D grid
// sits at the texel centre ((i+0.5)/W, (j+0.5)/H, (k+0.5)/D); lookups between
// centres are trilinear and lookups outside the grid clamp to the edge.
package volume

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Normalization constants for the MRI head scan.
const (
	DefaultOffset = 1300
	DefaultScale  = 2000
)

// GradientStep is the forward-difference step used by Gradient.
const GradientStep = 1.0 / 256

var (
	// ErrDims is returned for a grid with a non-positive dimension.
	ErrDims = errors.New("volume: dimensions must be positive")
	// ErrSize is returned when the sample count does not match the grid.
	ErrSize = errors.New("volume: sample count does not match dimensions")
)

// Normalization maps raw sensor samples into [0,1].
type Normalization struct {
	Offset float64 `json:"offset"`
	Scale  float64 `json:"scale"`
}

// MRI is the normalization used for 16-bit MRI samples.
var MRI = Normalization{Offset: DefaultOffset, Scale: DefaultScale}

// Apply returns clamp((raw - Offset) / Scale, 0, 1).
func (n Normalization) Apply(raw uint16) float32 {
	return float32(clamp01((float64(raw) - n.Offset) / n.Scale))
}

// Raw converts a normalized density back to raw sample units.
func (n Normalization) Raw(d float64) float64 {
	return d*n.Scale + n.Offset
}

// Volume is an immutable W×H×D grid of normalized densities. The raw
// samples are kept alongside so that band membership can tell air below
// the normalization offset apart from tissue sitting exactly at it.
type Volume struct {
	dims [3]int
	data []float32
	raw  []float32
	norm Normalization
}

// New normalizes raw samples laid out x-fastest, then y, then z.
func New(dims [3]int, raw []uint16, n Normalization) (*Volume, error) {
	if err := checkDims(dims, len(raw)); err != nil {
		return nil, err
	}
	data := make([]float32, len(raw))
	samples := make([]float32, len(raw))
	for i, r := range raw {
		data[i] = n.Apply(r)
		samples[i] = float32(r)
	}
	return &Volume{dims: dims, data: data, raw: samples, norm: n}, nil
}

// FromDensities builds a volume from already normalized values. Values are
// clamped into [0,1]; the slice is copied. The raw samples are derived
// through MRI, so density 0 reads as a sample at the offset.
func FromDensities(dims [3]int, densities []float32) (*Volume, error) {
	if err := checkDims(dims, len(densities)); err != nil {
		return nil, err
	}
	data := make([]float32, len(densities))
	samples := make([]float32, len(densities))
	for i, d := range densities {
		data[i] = float32(clamp01(float64(d)))
		samples[i] = float32(MRI.Raw(float64(data[i])))
	}
	return &Volume{dims: dims, data: data, raw: samples, norm: MRI}, nil
}

func checkDims(dims [3]int, n int) error {
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return fmt.Errorf("%w: %v", ErrDims, dims)
	}
	if want := dims[0] * dims[1] * dims[2]; n != want {
		return fmt.Errorf("%w: got %d, want %d for %v", ErrSize, n, want, dims)
	}
	return nil
}

// Dims returns the grid dimensions.
func (v *Volume) Dims() [3]int {
	return v.dims
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return len(v.data)
}

// At returns the density of voxel (i,j,k), clamping indices to the grid.
func (v *Volume) At(i, j, k int) float32 {
	i = clampIndex(i, v.dims[0])
	j = clampIndex(j, v.dims[1])
	k = clampIndex(k, v.dims[2])
	return v.data[i+v.dims[0]*(j+v.dims[1]*k)]
}

// RawAt returns the raw sample of voxel (i,j,k), clamping indices to the
// grid.
func (v *Volume) RawAt(i, j, k int) float64 {
	i = clampIndex(i, v.dims[0])
	j = clampIndex(j, v.dims[1])
	k = clampIndex(k, v.dims[2])
	return float64(v.raw[i+v.dims[0]*(j+v.dims[1]*k)])
}

// Normalization returns the mapping used to build the volume.
func (v *Volume) Normalization() Normalization {
	return v.norm
}

// RawSample returns the trilinear raw sample at p.
func (v *Volume) RawSample(p v3.Vec) float64 {
	i, fx := texel(p.X, v.dims[0])
	j, fy := texel(p.Y, v.dims[1])
	k, fz := texel(p.Z, v.dims[2])

	var r float64
	for c := 0; c < 8; c++ {
		dx, dy, dz := c&1, (c>>1)&1, (c>>2)&1
		if w := weight(fx, dx) * weight(fy, dy) * weight(fz, dz); w != 0 {
			r += w * v.RawAt(i+dx, j+dy, k+dz)
		}
	}
	return r
}

// Sample returns the trilinear density at p.
func (v *Volume) Sample(p v3.Vec) float64 {
	d, _ := v.Lookup(p)
	return d
}

// Lookup returns the trilinear density at p together with its coverage:
// the interpolated fraction of neighbouring voxels with non-zero density.
func (v *Volume) Lookup(p v3.Vec) (density, coverage float64) {
	i, fx := texel(p.X, v.dims[0])
	j, fy := texel(p.Y, v.dims[1])
	k, fz := texel(p.Z, v.dims[2])

	for c := 0; c < 8; c++ {
		dx, dy, dz := c&1, (c>>1)&1, (c>>2)&1
		w := weight(fx, dx) * weight(fy, dy) * weight(fz, dz)
		if w == 0 {
			continue
		}
		s := float64(v.At(i+dx, j+dy, k+dz))
		density += w * s
		if s > 0 {
			coverage += w
		}
	}
	return density, coverage
}

// Gradient returns the forward difference of the density at p.
func (v *Volume) Gradient(p v3.Vec) v3.Vec {
	s := v.Sample(p)
	return v3.Vec{
		X: v.Sample(v3.Vec{X: p.X + GradientStep, Y: p.Y, Z: p.Z}) - s,
		Y: v.Sample(v3.Vec{X: p.X, Y: p.Y + GradientStep, Z: p.Z}) - s,
		Z: v.Sample(v3.Vec{X: p.X, Y: p.Y, Z: p.Z + GradientStep}) - s,
	}
}

// Position returns the normalized coordinate of grid point (i,j,k).
func (v *Volume) Position(i, j, k float64) v3.Vec {
	return v3.Vec{
		X: (i + 0.5) / float64(v.dims[0]),
		Y: (j + 0.5) / float64(v.dims[1]),
		Z: (k + 0.5) / float64(v.dims[2]),
	}
}

// texel splits a normalized coordinate into a lower voxel index and the
// fractional weight toward the next voxel.
func texel(x float64, n int) (int, float64) {
	g := x*float64(n) - 0.5
	f := math.Floor(g)
	return int(f), g - f
}

func weight(f float64, upper int) float64 {
	if upper == 1 {
		return f
	}
	return 1 - f
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
