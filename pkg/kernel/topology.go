package kernel

// Topology summarizes the connectivity of a mesh after welding vertices by
// exact position.
type Topology struct {
	Vertices    int
	Edges       int
	Faces       int
	Boundary    int // edges used by exactly one triangle
	NonManifold int // edges used by more than two triangles
	Misoriented int // interior edges traversed twice in the same direction
}

// Euler returns V - E + F.
func (t Topology) Euler() int {
	return t.Vertices - t.Edges + t.Faces
}

// Closed reports whether every edge joins exactly two consistently oriented
// triangles.
func (t Topology) Closed() bool {
	return t.Boundary == 0 && t.NonManifold == 0 && t.Misoriented == 0
}

// MeasureTopology welds m and counts its vertices, edges and faces.
// Triangles that collapse to a point or segment after welding are skipped.
func MeasureTopology(m *Mesh) Topology {
	ids := make(map[posKey]int)
	weld := func(i uint32) int {
		k := m.key(i)
		id, ok := ids[k]
		if !ok {
			id = len(ids)
			ids[k] = id
		}
		return id
	}

	type edge struct{ a, b int }
	// directed use count per undirected edge: [forward, backward]
	uses := make(map[edge]*[2]int)

	used := make(map[int]bool)
	var topo Topology
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		v := [3]int{weld(tri[0]), weld(tri[1]), weld(tri[2])}
		if v[0] == v[1] || v[1] == v[2] || v[0] == v[2] {
			continue
		}
		topo.Faces++
		used[v[0]], used[v[1]], used[v[2]] = true, true, true
		for j := 0; j < 3; j++ {
			a, b := v[j], v[(j+1)%3]
			dir := 0
			if a > b {
				a, b = b, a
				dir = 1
			}
			e := edge{a, b}
			u, ok := uses[e]
			if !ok {
				u = &[2]int{}
				uses[e] = u
			}
			u[dir]++
		}
	}

	topo.Vertices = len(used)
	topo.Edges = len(uses)
	for _, u := range uses {
		switch n := u[0] + u[1]; {
		case n == 1:
			topo.Boundary++
		case n > 2:
			topo.NonManifold++
		case u[0] != 1:
			topo.Misoriented++
		}
	}
	return topo
}
