package raymarch

import (
	"math"
	"testing"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/params"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

func TestBoxIntersect(t *testing.T) {
	unit := clip.Unit()
	tests := []struct {
		name      string
		ro, rd    v3.Vec
		box       clip.Box
		wantHit   bool
		wantEnter float64
		wantExit  float64
	}{
		{"through unit box", v3.Vec{X: -1, Y: 0.5, Z: 0.5}, v3.Vec{X: 1}, unit, true, 1, 2},
		{"pointing away", v3.Vec{X: -1, Y: 0.5, Z: 0.5}, v3.Vec{X: -1}, unit, false, 0, 0},
		{"box behind origin", v3.Vec{X: 2, Y: 0.5, Z: 0.5}, v3.Vec{X: 1}, unit, false, 0, 0},
		{"origin inside", v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, v3.Vec{X: 1}, unit, true, -0.5, 0.5},
		{"parallel outside slab", v3.Vec{X: -1, Y: 2, Z: 0.5}, v3.Vec{X: 1}, unit, false, 0, 0},
		{"parallel on face plane", v3.Vec{X: -1, Y: 0, Z: 0.5}, v3.Vec{X: 1}, unit, true, 1, 2},
		{"empty box", v3.Vec{X: -1, Y: 0.5, Z: 0.5}, v3.Vec{X: 1},
			clip.New(v3.Vec{X: 0.7}, v3.Vec{X: 0.3, Y: 1, Z: 1}), false, 0, 0},
		{"sub box", v3.Vec{X: 0.5, Y: -1, Z: 0.5}, v3.Vec{Y: 1},
			clip.New(v3.Vec{Y: 0.25}, v3.Vec{X: 1, Y: 0.75, Z: 1}), true, 1.25, 1.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1, t2, ok := BoxIntersect(tt.ro, tt.rd, tt.box)
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && (math.Abs(t1-tt.wantEnter) > 1e-12 || math.Abs(t2-tt.wantExit) > 1e-12) {
				t.Errorf("t = (%v, %v), want (%v, %v)", t1, t2, tt.wantEnter, tt.wantExit)
			}
		})
	}
}

func TestTransfer(t *testing.T) {
	tf := Transfer{IsoLevel: 0.5, IsoRange: 0.1}
	if !tf.Highlights(0.6) || !tf.Highlights(0.4) {
		t.Error("highlight band should include both ends")
	}
	if tf.Highlights(0.61) {
		t.Error("0.61 should be outside the highlight band")
	}
	if a := tf.Alpha(0.5, 1); a != BandAlpha {
		t.Errorf("in-band alpha = %v, want %v", a, BandAlpha)
	}
	if a := tf.Alpha(0.9, 1); a != BaseAlpha {
		t.Errorf("out-of-band alpha = %v, want %v", a, BaseAlpha)
	}
	if a := tf.Color(0.5, 0, v3.Vec{})[3]; a != 0 {
		t.Errorf("zero coverage alpha = %v, want 0", a)
	}

	// At the isolevel with a flat field r = 0, so the ramps give
	// (0.5, -0.2, -0.3) before the swizzle and channel weights.
	c := tf.Color(0.5, 1, v3.Vec{})
	want := mgl64.Vec4{-0.225, -0.2, 0.25, BandAlpha}
	if !c.ApproxEqual(want) {
		t.Errorf("Color at isolevel = %v, want %v", c, want)
	}
}

// singleVoxel returns a 4³ volume with one dense voxel at (1,1,1).
func singleVoxel(t *testing.T) *volume.Volume {
	t.Helper()
	data := make([]float32, 64)
	data[1+4*(1+4*1)] = 1
	v, err := volume.FromDensities([3]int{4, 4, 4}, data)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestMarchSingleVoxel(t *testing.T) {
	v := singleVoxel(t)
	m := New(v, params.Default())
	c := v.Position(1, 1, 1)

	through := m.March(v3.Vec{X: -1, Y: c.Y, Z: c.Z}, v3.Vec{X: 1})
	if !through.Hit || through.Accum[3] <= 0 {
		t.Errorf("ray through voxel: hit %v, alpha %v", through.Hit, through.Accum[3])
	}

	past := m.March(v3.Vec{X: -1, Y: 0.9, Z: 0.9}, v3.Vec{X: 1})
	if !past.Hit {
		t.Fatal("ray inside the clip box should hit it")
	}
	if past.Accum[3] != 0 {
		t.Errorf("ray missing the voxel accumulated alpha %v", past.Accum[3])
	}

	miss := m.March(v3.Vec{X: -1, Y: 2, Z: 2}, v3.Vec{X: 1})
	if miss.Hit || miss.Pixel() != (mgl64.Vec4{}) {
		t.Errorf("ray missing the box should be transparent, got %+v", miss)
	}
	if through.Pixel()[3] != 1 {
		t.Errorf("hit pixel alpha = %v, want 1", through.Pixel()[3])
	}
}

func TestMarchSampleCount(t *testing.T) {
	v := singleVoxel(t)
	tests := []struct {
		name  string
		box   clip.Box
		steps int
		want  int
	}{
		{"unit box", clip.Unit(), 32, 33},
		{"half box", clip.New(v3.Vec{}, v3.Vec{X: 0.5, Y: 1, Z: 1}), 32, 17},
		{"many steps", clip.Unit(), 384, 385},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params.Default()
			p.ClipBox = tt.box
			p.RaySteps = tt.steps
			res := New(v, p).March(v3.Vec{X: -1, Y: 0.5, Z: 0.5}, v3.Vec{X: 1})
			if res.Samples != tt.want {
				t.Errorf("Samples = %d, want %d", res.Samples, tt.want)
			}
		})
	}
}

func TestMarchEmptyBox(t *testing.T) {
	p := params.Default()
	p.ClipBox = clip.New(v3.Vec{X: 1, Y: 1, Z: 1}, v3.Vec{})
	res := New(singleVoxel(t), p).March(v3.Vec{X: -1, Y: 0.5, Z: 0.5}, v3.Vec{X: 1})
	if res.Hit || res.Samples != 0 {
		t.Errorf("empty clip box: %+v", res)
	}
}

func TestMarchIsocaps(t *testing.T) {
	v := singleVoxel(t)
	c := v.Position(1, 1, 1)

	p := params.Default()
	p.ClipBox = clip.New(v3.Vec{X: c.X}, v3.Vec{X: 1, Y: 1, Z: 1})
	ro, rd := v3.Vec{X: -1, Y: c.Y, Z: c.Z}, v3.Vec{X: 1}

	without := New(v, p).March(ro, rd)
	if without.Cap[3] != 0 {
		t.Errorf("cap without isocaps: %v", without.Cap)
	}

	p.Isocaps = true
	with := New(v, p).March(ro, rd)
	if math.Abs(with.Cap[3]-1) > 1e-9 {
		t.Fatalf("cap alpha at dense voxel = %v, want 1", with.Cap[3])
	}
	px := with.Pixel()
	want := with.Cap
	want[3] = 1
	if !px.ApproxEqual(want) {
		t.Errorf("opaque cap should cover the march: pixel %v, cap %v", px, with.Cap)
	}
}
