package marching

// Cube corners, edges and faces. Corner k sits at cornerOffset[k] within the
// cube; edge e joins edgeCorners[e][0] and edgeCorners[e][1]; each face lists
// its corners counter-clockwise seen from outside the cube.
var (
	cornerOffset = [8][3]int{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	edgeCorners = [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	faceLoops = [6][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
		{0, 4, 7, 3}, // -X
		{1, 2, 6, 5}, // +X
	}
)

// edgeBase and edgeAxis locate each cube edge on the grid: it starts at the
// cube origin plus edgeBase[e] and runs one cell along edgeAxis[e].
var (
	edgeBase [12][3]int
	edgeAxis [12]int
	edgeOf   [8][8]int
)

// triTable[c] lists triangles (edge index triples) for the cube whose
// inside corners are the set bits of c.
var triTable [256][]uint8

func init() {
	for a := range edgeOf {
		for b := range edgeOf[a] {
			edgeOf[a][b] = -1
		}
	}
	for e, c := range edgeCorners {
		a, b := cornerOffset[c[0]], cornerOffset[c[1]]
		for axis := 0; axis < 3; axis++ {
			if a[axis] != b[axis] {
				edgeAxis[e] = axis
			}
		}
		if b[edgeAxis[e]] < a[edgeAxis[e]] {
			a = b
		}
		edgeBase[e] = a
		edgeOf[c[0]][c[1]] = e
		edgeOf[c[1]][c[0]] = e
	}
	for c := range triTable {
		triTable[c] = buildCase(c)
	}
}

type crossing struct {
	edge   int
	in2out bool
}

// buildCase derives the triangles for one corner configuration from the
// contours on the six cube faces. On each face a contour segment runs from
// an inside-to-outside crossing back to the crossing before it, which keeps
// diagonally opposite inside corners apart on ambiguous faces. A face shared
// by two cubes produces the same segments for both, reversed, so the shell
// is closed and consistently wound.
func buildCase(c int) []uint8 {
	inside := func(k int) bool { return c&(1<<k) != 0 }

	next := make(map[int]int, 12)
	for _, f := range faceLoops {
		var cross []crossing
		for k := 0; k < 4; k++ {
			a, b := f[k], f[(k+1)%4]
			if inside(a) != inside(b) {
				cross = append(cross, crossing{edge: edgeOf[a][b], in2out: inside(a)})
			}
		}
		for i, x := range cross {
			if x.in2out {
				next[x.edge] = cross[(i+len(cross)-1)%len(cross)].edge
			}
		}
	}

	var tris []uint8
	visited := make(map[int]bool, 12)
	for e := 0; e < 12; e++ {
		if _, ok := next[e]; !ok || visited[e] {
			continue
		}
		var loop []int
		for cur := e; !visited[cur]; cur = next[cur] {
			visited[cur] = true
			loop = append(loop, cur)
		}
		// Reversed fan: faces point away from the inside corners.
		for i := 1; i+1 < len(loop); i++ {
			tris = append(tris, uint8(loop[0]), uint8(loop[i+1]), uint8(loop[i]))
		}
	}
	return tris
}
