package kernel

import (
	"math"
	"testing"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("nil mesh", func(t *testing.T) {
		var m *Mesh
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for nil mesh, want true")
		}
	})
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{}
		m.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestAddTriangleNormalFollowsWinding(t *testing.T) {
	m := &Mesh{}
	m.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	if n := m.Normal(0); n != (v3.Vec{Z: 1}) {
		t.Errorf("normal = %+v, want +Z", n)
	}
}

func TestAppend(t *testing.T) {
	a := &Mesh{}
	a.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	b := a.Clone()
	a.Append(b)
	if a.TriangleCount() != 2 {
		t.Fatalf("TriangleCount = %d, want 2", a.TriangleCount())
	}
	if tri := a.Triangle(1); tri != [3]uint32{3, 4, 5} {
		t.Errorf("appended indices = %v, want [3 4 5]", tri)
	}
}

// --- Extractor interface ---

// Compile-time check that a plain function satisfies Extractor.
var _ Extractor = ExtractorFunc(nil)

func TestExtractorFunc(t *testing.T) {
	calls := 0
	var e Extractor = ExtractorFunc(func(v *volume.Volume, b volume.Band) (*Mesh, error) {
		calls++
		return &Mesh{Name: "stub"}, nil
	})
	m, err := e.Extract(nil, volume.NewBand(0.5, 0.1))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if m.Name != "stub" || calls != 1 {
		t.Errorf("got mesh %q after %d calls", m.Name, calls)
	}
}

// --- Box mesh, topology, smoothing, caps ---

func TestBoxMeshIsClosedAndOutward(t *testing.T) {
	box := clip.New(v3.Vec{X: 0.2, Y: 0.1, Z: 0.3}, v3.Vec{X: 0.9, Y: 0.8, Z: 0.6})
	m := BoxMesh(box)
	if m.TriangleCount() != 12 {
		t.Fatalf("TriangleCount = %d, want 12", m.TriangleCount())
	}

	topo := MeasureTopology(m)
	if topo.Vertices != 8 || topo.Edges != 18 || topo.Faces != 12 {
		t.Errorf("topology = %+v, want V=8 E=18 F=12", topo)
	}
	if !topo.Closed() || topo.Euler() != 2 {
		t.Errorf("box should be a closed sphere: %+v", topo)
	}

	centre := box.Min.Add(box.Max).MulScalar(0.5)
	for tri := 0; tri < m.TriangleCount(); tri++ {
		idx := m.Triangle(tri)
		p := m.Position(idx[0]).Add(m.Position(idx[1])).Add(m.Position(idx[2])).MulScalar(1.0 / 3)
		if m.Normal(idx[0]).Dot(p.Sub(centre)) <= 0 {
			t.Errorf("triangle %d faces inward", tri)
		}
	}
}

func TestBoxMeshEmptyBox(t *testing.T) {
	m := BoxMesh(clip.New(v3.Vec{X: 1}, v3.Vec{}))
	if !m.IsEmpty() {
		t.Errorf("empty box produced %d triangles", m.TriangleCount())
	}
}

func TestTopologyDetectsBoundary(t *testing.T) {
	m := &Mesh{}
	m.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	topo := MeasureTopology(m)
	if topo.Boundary != 3 || topo.Closed() {
		t.Errorf("single triangle: %+v", topo)
	}
}

func TestTopologyDetectsMisorientation(t *testing.T) {
	m := &Mesh{}
	m.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	m.AddTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: -1})
	if topo := MeasureTopology(m); topo.Misoriented != 1 {
		t.Errorf("Misoriented = %d, want 1", topo.Misoriented)
	}
}

func TestSmoothNormals(t *testing.T) {
	m := BoxMesh(clip.Unit())
	s := SmoothNormals(m)

	// Corner (0,0,0) touches the -X, -Y and -Z faces, each contributing
	// triangles of equal area, so the smoothed normal points diagonally out.
	want := 1 / math.Sqrt(3)
	for i := 0; i < s.VertexCount(); i++ {
		if s.Position(uint32(i)) != (v3.Vec{}) {
			continue
		}
		n := s.Normal(uint32(i))
		for _, c := range []float64{n.X, n.Y, n.Z} {
			if math.Abs(c+want) > 1e-6 {
				t.Errorf("corner normal = %+v, want all components %v", n, -want)
				break
			}
		}
	}

	// Input must be untouched.
	if m.Normal(0) == s.Normal(0) {
		t.Error("SmoothNormals modified or failed to change normals")
	}
}

func TestClampToBox(t *testing.T) {
	shell := &Mesh{}
	shell.AddTriangle(v3.Vec{X: 0.1, Y: 0.5, Z: 0.5}, v3.Vec{X: 0.6, Y: 0.5, Z: 0.5}, v3.Vec{X: 0.6, Y: 0.9, Z: 0.5})
	box := clip.New(v3.Vec{X: 0.3}, v3.Vec{X: 1, Y: 0.7, Z: 1})

	cp := ClampToBox(shell, box, [3]int{10, 10, 10})
	if cp.Name != "cap" || cp.VertexCount() != 3 {
		t.Fatalf("cap mesh = %q with %d vertices", cp.Name, cp.VertexCount())
	}
	wants := []struct {
		pos  v3.Vec
		dist float64
	}{
		{v3.Vec{X: 0.3, Y: 0.5, Z: 0.5}, 2},
		{v3.Vec{X: 0.6, Y: 0.5, Z: 0.5}, 0},
		{v3.Vec{X: 0.6, Y: 0.7, Z: 0.5}, 2},
	}
	for i, w := range wants {
		p := cp.Position(uint32(i))
		if p.Sub(w.pos).Length() > 1e-6 {
			t.Errorf("vertex %d = %+v, want %+v", i, p, w.pos)
		}
		if math.Abs(float64(cp.ClipDist[i])-w.dist) > 1e-4 {
			t.Errorf("clip distance %d = %v, want %v", i, cp.ClipDist[i], w.dist)
		}
	}
	if shell.Position(0).X != float64(float32(0.1)) {
		t.Error("ClampToBox modified its input")
	}

	if !ClampToBox(shell, clip.New(v3.Vec{X: 1}, v3.Vec{}), [3]int{10, 10, 10}).IsEmpty() {
		t.Error("empty box should give empty cap mesh")
	}
}
