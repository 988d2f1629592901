// Package marching extracts the shell of a density band with table-driven
// marching cubes.
//
// The grid is padded by one cell on every side with samples that are
// outside the band, so regions touching the volume border are closed off
// there and the shell is always watertight.
package marching

import (
	"errors"
	"runtime"
	"sync"

	"github.com/chazu/medvol/pkg/kernel"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Extractor = (*Extractor)(nil)

// ErrNilVolume is returned when Extract is called without a volume.
var ErrNilVolume = errors.New("marching: nil volume")

// Extractor runs marching cubes over a volume.
type Extractor struct {
	// Workers is the number of z slabs processed concurrently.
	// Zero means runtime.NumCPU().
	Workers int
	// Smooth replaces flat face normals with area-weighted vertex normals.
	Smooth bool
}

// New returns an Extractor with flat normals and one worker per CPU.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the shell of the region of v whose density lies in b.
// Output order is deterministic regardless of Workers.
func (e *Extractor) Extract(v *volume.Volume, b volume.Band) (*kernel.Mesh, error) {
	if v == nil {
		return nil, ErrNilVolume
	}
	if b.Degenerate() {
		return &kernel.Mesh{Name: "shell"}, nil
	}

	f := newField(v, b)
	dims := v.Dims()

	// One slab per cube layer, z = -1 .. D-1.
	slabs := make([]*kernel.Mesh, dims[2]+1)
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	zs := make(chan int, len(slabs))
	for z := -1; z < dims[2]; z++ {
		zs <- z
	}
	close(zs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range zs {
				slabs[z+1] = f.slab(z)
			}
		}()
	}
	wg.Wait()

	out := &kernel.Mesh{Name: "shell"}
	for _, s := range slabs {
		out.Append(s)
	}
	if e.Smooth {
		out = kernel.SmoothNormals(out)
	}
	return out, nil
}

// field is the padded, classified view of a volume for one band. Samples
// are compared in raw units; padding reads as raw zero.
type field struct {
	v          *volume.Volume
	lo, hi     float64
	dims       [3]int
	inside     []bool // padded grid, (W+2)*(H+2)*(D+2)
	zeroInBand bool
}

func newField(v *volume.Volume, b volume.Band) *field {
	d := v.Dims()
	lo, hi := b.Raw(v.Normalization())
	f := &field{
		v:          v,
		lo:         lo,
		hi:         hi,
		dims:       d,
		inside:     make([]bool, (d[0]+2)*(d[1]+2)*(d[2]+2)),
		zeroInBand: lo <= 0 && 0 < hi,
	}
	for k := 0; k < d[2]; k++ {
		for j := 0; j < d[1]; j++ {
			for i := 0; i < d[0]; i++ {
				r := v.RawAt(i, j, k)
				f.inside[f.index(i, j, k)] = r >= lo && r < hi
			}
		}
	}
	return f
}

func (f *field) index(i, j, k int) int {
	return (i + 1) + (f.dims[0]+2)*((j+1)+(f.dims[1]+2)*(k+1))
}

func (f *field) padded(i, j, k int) bool {
	return i < 0 || j < 0 || k < 0 || i >= f.dims[0] || j >= f.dims[1] || k >= f.dims[2]
}

// value returns the raw sample at a grid point; padding reads as zero.
func (f *field) value(g [3]int) float64 {
	if f.padded(g[0], g[1], g[2]) {
		return 0
	}
	return f.v.RawAt(g[0], g[1], g[2])
}

// vertex returns the surface crossing on the grid edge that starts at g and
// runs one cell along axis.
func (f *field) vertex(g [3]int, axis int) v3.Vec {
	h := g
	h[axis]++

	var t float64
	if f.zeroInBand && (f.padded(g[0], g[1], g[2]) || f.padded(h[0], h[1], h[2])) {
		// Padding cannot act as raw zero here; close the shell on the
		// volume boundary, half way to the padding sample.
		t = 0.5
	} else {
		va, vb := f.value(g), f.value(h)
		out := vb
		if !f.inside[f.index(g[0], g[1], g[2])] {
			out = va
		}
		thr := f.hi
		if out < f.lo {
			thr = f.lo
		}
		t = (thr - va) / (vb - va)
	}

	p := [3]float64{float64(g[0]), float64(g[1]), float64(g[2])}
	p[axis] += t
	return f.v.Position(p[0], p[1], p[2])
}

// slab extracts every cube whose lower corner has the given z.
func (f *field) slab(z int) *kernel.Mesh {
	m := &kernel.Mesh{}
	for y := -1; y < f.dims[1]; y++ {
		for x := -1; x < f.dims[0]; x++ {
			c := 0
			for k, o := range cornerOffset {
				if f.inside[f.index(x+o[0], y+o[1], z+o[2])] {
					c |= 1 << k
				}
			}
			tris := triTable[c]
			if len(tris) == 0 {
				continue
			}
			var p [3]v3.Vec
			for i := 0; i < len(tris); i += 3 {
				for j := 0; j < 3; j++ {
					e := tris[i+j]
					b := edgeBase[e]
					p[j] = f.vertex([3]int{x + b[0], y + b[1], z + b[2]}, edgeAxis[e])
				}
				m.AddTriangle(p[0], p[1], p[2])
			}
		}
	}
	return m
}
