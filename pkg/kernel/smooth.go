package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type posKey [3]float32

func (m *Mesh) key(i uint32) posKey {
	return posKey{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// SmoothNormals returns a copy of m whose normals are the area-weighted
// average of the face normals around each vertex position. Vertices are
// matched by exact position, so unshared triangles from marching cubes
// smooth across cube boundaries.
func SmoothNormals(m *Mesh) *Mesh {
	out := m.Clone()
	if m.IsEmpty() {
		return out
	}

	acc := make(map[posKey]v3.Vec, m.VertexCount()/2)
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := m.Position(tri[0]), m.Position(tri[1]), m.Position(tri[2])
		// Cross product length is twice the area.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, i := range tri {
			k := m.key(i)
			acc[k] = acc[k].Add(n)
		}
	}

	for i := 0; i < m.VertexCount(); i++ {
		n := acc[m.key(uint32(i))]
		l := n.Length()
		if l == 0 {
			continue
		}
		n = n.MulScalar(1 / l)
		out.Normals[3*i] = float32(n.X)
		out.Normals[3*i+1] = float32(n.Y)
		out.Normals[3*i+2] = float32(n.Z)
	}
	return out
}
