package kernel

import (
	"math"

	"github.com/chazu/medvol/pkg/clip"
)

// ClampToBox derives cap geometry from a shell: every vertex is clamped into
// box and ClipDist records how far it moved, measured in voxels of a grid
// with the given dims. Where the shell leaves the box, its clamped triangles
// lie flat on the box faces and cover the cross-section; the stencil pass
// decides which of those pixels are inside the solid. An empty box or shell
// yields an empty mesh.
func ClampToBox(shell *Mesh, box clip.Box, dims [3]int) *Mesh {
	if shell.IsEmpty() || box.Empty() {
		return &Mesh{Name: "cap"}
	}
	out := shell.Clone()
	out.Name = "cap"
	out.ClipDist = make([]float32, shell.VertexCount())

	for i := 0; i < shell.VertexCount(); i++ {
		p := shell.Position(uint32(i))
		c := box.Clamp(p)
		d := p.Sub(c)
		dist := math.Max(math.Abs(d.X)*float64(dims[0]),
			math.Max(math.Abs(d.Y)*float64(dims[1]), math.Abs(d.Z)*float64(dims[2])))

		out.Vertices[3*i] = float32(c.X)
		out.Vertices[3*i+1] = float32(c.Y)
		out.Vertices[3*i+2] = float32(c.Z)
		out.ClipDist[i] = float32(dist)
	}
	return out
}
