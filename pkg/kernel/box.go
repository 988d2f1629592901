package kernel

import (
	"github.com/chazu/medvol/pkg/clip"
)

// boxQuads lists the faces of a box as corner indices (see clip.Box.Corners),
// counter-clockwise seen from outside.
var boxQuads = [6][4]int{
	{0, 4, 6, 2}, // -X
	{1, 3, 7, 5}, // +X
	{0, 1, 5, 4}, // -Y
	{2, 6, 7, 3}, // +Y
	{0, 2, 3, 1}, // -Z
	{4, 5, 7, 6}, // +Z
}

// BoxMesh returns the 12 outward-facing triangles of box.
func BoxMesh(box clip.Box) *Mesh {
	m := &Mesh{Name: "clip-box"}
	if box.Empty() {
		return m
	}
	c := box.Corners()
	for _, q := range boxQuads {
		m.AddTriangle(c[q[0]], c[q[1]], c[q[2]])
		m.AddTriangle(c[q[0]], c[q[2]], c[q[3]])
	}
	return m
}
