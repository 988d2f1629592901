// Package raster is a small software graphics pipeline: triangles are
// projected by a camera, rasterized with a shared-edge tie rule, and pass
// through stencil and depth tests before their color is resolved. Stencil
// counts are exact because adjacent triangles never both cover a pixel.
package raster

import (
	"fmt"
	"math"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// minW drops triangles with a vertex at or behind the eye plane.
const minW = 1e-6

// Stats counts the work done by Submit.
type Stats struct {
	Commands  int
	Triangles int
	Culled    int
	Fragments int
}

// Submit validates l and then executes its commands in order against fb.
func (l *List) Submit(fb *Framebuffer, cam *camera.Camera) (Stats, error) {
	var stats Stats
	if err := l.Validate(); err != nil {
		return stats, err
	}
	if cam.Width != fb.Width || cam.Height != fb.Height {
		return stats, fmt.Errorf("%w: camera %dx%d does not match framebuffer %dx%d",
			ErrInvalidCommand, cam.Width, cam.Height, fb.Width, fb.Height)
	}

	r := &rasterizer{
		fb:      fb,
		cam:     cam,
		pending: make([]mgl64.Vec4, fb.Width*fb.Height),
		has:     make([]bool, fb.Width*fb.Height),
	}
	for _, c := range l.Commands {
		stats.Commands++
		switch c.Kind {
		case KindClearColor:
			fb.ClearColor(c.Clear)
		case KindClearDepth:
			fb.ClearDepth()
		case KindClearStencil:
			fb.ClearStencil()
		case KindDraw:
			r.draw(c, &stats)
		}
	}
	return stats, nil
}

type rasterizer struct {
	fb      *Framebuffer
	cam     *camera.Camera
	pending []mgl64.Vec4
	has     []bool
	touched []int
}

// vertex is a projected mesh vertex.
type vertex struct {
	x, y  float64 // window coordinates, y down
	z     float64 // window depth
	invW  float64
	pos   v3.Vec
	nml   v3.Vec
	dist  float64
	ndcX  float64
	ndcY  float64
	valid bool
}

func (r *rasterizer) project(m *kernel.Mesh, i uint32) vertex {
	p := m.Position(i)
	clip := r.cam.Project(mgl64.Vec3{p.X, p.Y, p.Z})
	if clip[3] <= minW {
		return vertex{}
	}
	inv := 1 / clip[3]
	v := vertex{
		ndcX:  clip[0] * inv,
		ndcY:  clip[1] * inv,
		z:     (clip[2]*inv + 1) / 2,
		invW:  inv,
		pos:   p,
		nml:   m.Normal(i),
		valid: true,
	}
	v.x = (v.ndcX + 1) / 2 * float64(r.fb.Width)
	v.y = (1 - v.ndcY) / 2 * float64(r.fb.Height)
	if m.ClipDist != nil {
		v.dist = float64(m.ClipDist[i])
	}
	return v
}

func (r *rasterizer) draw(c Command, stats *Stats) {
	m := c.Mesh
	cache := make(map[uint32]vertex, m.VertexCount())
	get := func(i uint32) vertex {
		v, ok := cache[i]
		if !ok {
			v = r.project(m, i)
			cache[i] = v
		}
		return v
	}

	for t := 0; t < m.TriangleCount(); t++ {
		stats.Triangles++
		tri := m.Triangle(t)
		v0, v1, v2 := get(tri[0]), get(tri[1]), get(tri[2])
		if !v0.valid || !v1.valid || !v2.valid {
			stats.Culled++
			continue
		}
		ndcArea := (v1.ndcX-v0.ndcX)*(v2.ndcY-v0.ndcY) - (v1.ndcY-v0.ndcY)*(v2.ndcX-v0.ndcX)
		if ndcArea == 0 {
			stats.Culled++
			continue
		}
		front := ndcArea > 0
		if (c.Cull == CullBack && !front) || (c.Cull == CullFront && front) {
			stats.Culled++
			continue
		}
		stats.Fragments += r.triangle(c, v0, v1, v2, front)
	}
	r.resolve()
}

// edge is the edge function of a→b at p, evaluated with a canonical vertex
// order so that the two triangles sharing an edge get exactly opposite
// values.
func edge(a, b vertex, px, py float64) float64 {
	if a.x > b.x || (a.x == b.x && a.y > b.y) {
		return -edge(b, a, px, py)
	}
	return (px-a.x)*(b.y-a.y) - (py-a.y)*(b.x-a.x)
}

// owns reports whether a pixel centre lying exactly on edge a→b belongs to
// the triangle on its positive side.
func owns(a, b vertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return dy > 0 || (dy == 0 && dx < 0)
}

func inside(w float64, a, b vertex) bool {
	return w > 0 || (w == 0 && owns(a, b))
}

func (r *rasterizer) triangle(c Command, v0, v1, v2 vertex, front bool) int {
	area := edge(v0, v1, v2.x, v2.y)
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}
	if area == 0 {
		return 0
	}

	w, h := r.fb.Width, r.fb.Height
	minX := max(0, int(math.Floor(min(v0.x, v1.x, v2.x))))
	maxX := min(w-1, int(math.Ceil(max(v0.x, v1.x, v2.x))))
	minY := max(0, int(math.Floor(min(v0.y, v1.y, v2.y))))
	maxY := min(h-1, int(math.Ceil(max(v0.y, v1.y, v2.y))))

	n := 0
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(v1, v2, px, py)
			w1 := edge(v2, v0, px, py)
			w2 := edge(v0, v1, px, py)
			if !inside(w0, v1, v2) || !inside(w1, v2, v0) || !inside(w2, v0, v1) {
				continue
			}
			b0, b1, b2 := w0/area, w1/area, w2/area
			if r.fragment(c, x, y, front, [3]vertex{v0, v1, v2}, [3]float64{b0, b1, b2}) {
				n++
			}
		}
	}
	return n
}

// fragment runs the per-pixel pipeline and reports whether the fragment
// passed every test.
func (r *rasterizer) fragment(c Command, x, y int, front bool, v [3]vertex, b [3]float64) bool {
	idx := y*r.fb.Width + x
	z := b[0]*v[0].z + b[1]*v[1].z + b[2]*v[2].z

	// Perspective-correct weights.
	pw := [3]float64{b[0] * v[0].invW, b[1] * v[1].invW, b[2] * v[2].invW}
	sum := pw[0] + pw[1] + pw[2]
	for i := range pw {
		pw[i] /= sum
	}
	f := Fragment{
		X:     x,
		Y:     y,
		Depth: z,
		Front: front,
		Position: v[0].pos.MulScalar(pw[0]).Add(v[1].pos.MulScalar(pw[1])).
			Add(v[2].pos.MulScalar(pw[2])),
		Normal: v[0].nml.MulScalar(pw[0]).Add(v[1].nml.MulScalar(pw[1])).
			Add(v[2].nml.MulScalar(pw[2])),
		ClipDist: pw[0]*v[0].dist + pw[1]*v[1].dist + pw[2]*v[2].dist,
	}

	if c.Clip != nil && !c.Clip.Contains(f.Position) {
		return false
	}
	var col mgl64.Vec4
	if c.Shader != nil {
		var keep bool
		if col, keep = c.Shader.Shade(f); !keep {
			return false
		}
	}

	if c.Stencil.Test && !compare(c.Stencil.Func, c.Stencil.Ref, r.fb.Stencil[idx]) {
		return false
	}
	if c.Depth.Test && !compare(c.Depth.Func, z, r.fb.Depth[idx]) {
		return false
	}

	r.fb.Stencil[idx] = c.Stencil.Pass.apply(r.fb.Stencil[idx])
	if c.Depth.Write {
		r.fb.Depth[idx] = z
	}
	if c.ColorWrite {
		if !r.has[idx] {
			r.has[idx] = true
			r.touched = append(r.touched, idx)
		}
		r.pending[idx] = col
	}
	return true
}

// resolve writes the surviving color of each touched pixel once.
func (r *rasterizer) resolve() {
	for _, idx := range r.touched {
		r.fb.setColor(idx, r.pending[idx])
		r.has[idx] = false
	}
	r.touched = r.touched[:0]
}
