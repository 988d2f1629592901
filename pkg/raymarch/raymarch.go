// Package raymarch implements direct volume rendering: rays are clipped
// against the clip box and composited back to front through a transfer
// function.
package raymarch

import (
	"math"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/params"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// unitBox is the extent of the volume texture.
var unitBox = clip.Unit()

// Result is the outcome of one ray.
type Result struct {
	Accum   mgl64.Vec4 // composited march color
	Cap     mgl64.Vec4 // cross-section color at the entry point; zero alpha if none
	Hit     bool       // the ray crossed the clip box
	Samples int        // samples taken inside the box
}

// Pixel composites the result into an output color. Rays that miss the
// clip box are transparent; rays that cross it are opaque.
func (r Result) Pixel() mgl64.Vec4 {
	if !r.Hit {
		return mgl64.Vec4{}
	}
	inv := mgl64.Vec4{1 - r.Accum[0], 1 - r.Accum[1], 1 - r.Accum[2], 1 - r.Accum[3]}
	c := lerp4(inv, r.Cap, r.Cap[3])
	c[3] = 1
	return c
}

// Marcher integrates rays through one volume with fixed parameters.
type Marcher struct {
	Vol      *volume.Volume
	Box      clip.Box
	Steps    int // samples per unit of ray length
	Isocaps  bool
	Transfer Transfer
}

// New returns a Marcher for v configured from p.
func New(v *volume.Volume, p params.Params) *Marcher {
	return &Marcher{
		Vol:      v,
		Box:      p.ClipBox,
		Steps:    p.RaySteps,
		Isocaps:  p.Isocaps,
		Transfer: Transfer{IsoLevel: p.IsoLevel, IsoRange: p.IsoRange},
	}
}

// March integrates the ray ro + t·rd, rd unit length, in normalized volume
// coordinates. Samples are taken from the far end of the clipped segment
// toward the near end, so each blend lays a nearer sample over the farther
// ones.
func (m *Marcher) March(ro, rd v3.Vec) Result {
	t1, t2, ok := BoxIntersect(ro, rd, m.Box)
	if !ok {
		return Result{}
	}
	t1 = math.Max(t1, 0)
	res := Result{Hit: true}

	entry := ro.Add(rd.MulScalar(t1))
	if m.Isocaps && unitBox.Contains(entry) {
		s, cov := m.Vol.Lookup(entry)
		if m.Transfer.Highlights(s) {
			col := m.Transfer.CapColor(s, cov, m.Vol.Gradient(entry))
			res.Cap = mgl64.Vec4{1 - col[0], 1 - col[1], 1 - col[2], math.Sqrt(s) * cov}
		}
	}

	span := t2 - t1
	steps := int(math.Ceil(span * float64(m.Steps)))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := 1 - float64(i)/float64(steps)
		p := entry.Add(rd.MulScalar(span * t))
		if !m.Box.Contains(p) {
			continue
		}
		s, cov := m.Vol.Lookup(p)
		col := m.Transfer.Color(s, cov, m.Vol.Gradient(p))
		res.Accum = lerp4(res.Accum, col, col[3])
		res.Samples++
	}
	return res
}

func lerp4(a, b mgl64.Vec4, t float64) mgl64.Vec4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
