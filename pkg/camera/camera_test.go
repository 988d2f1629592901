package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultEye(t *testing.T) {
	o := DefaultOrbit()
	e := o.Eye()
	if math.Abs(e.Len()-3) > 1e-9 {
		t.Errorf("eye distance = %v, want 3", e.Len())
	}
	if want := math.Sin(-0.5) * 3; math.Abs(e[1]-want) > 1e-9 {
		t.Errorf("eye y = %v, want %v", e[1], want)
	}
}

func TestDrag(t *testing.T) {
	tests := []struct {
		name      string
		start     Orbit
		dx, dy    float64
		wantTheta float64
		wantAlpha float64
	}{
		{"small", Orbit{Theta: 1, Alpha: 0}, 10, 10, 0.9, -0.1},
		{"theta wraps below zero", Orbit{Theta: 0.05, Alpha: 0}, 10, 0, 2*math.Pi - 0.05, 0},
		{"theta wraps past 2pi", Orbit{Theta: 6.2, Alpha: 0}, -10, 0, 6.3 - 2*math.Pi, 0},
		{"alpha clamps up", Orbit{Alpha: 1.5}, 0, -100, 0, MaxAlpha},
		{"alpha clamps down", Orbit{Alpha: -1.5}, 0, 100, 0, -MaxAlpha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Drag(tt.dx, tt.dy)
			if math.Abs(got.Theta-tt.wantTheta) > 1e-9 || math.Abs(got.Alpha-tt.wantAlpha) > 1e-9 {
				t.Errorf("Drag = (θ %v, α %v), want (θ %v, α %v)", got.Theta, got.Alpha, tt.wantTheta, tt.wantAlpha)
			}
		})
	}
}

func TestWheel(t *testing.T) {
	o := DefaultOrbit()
	if got := o.Wheel(10).Distance; got >= 3 {
		t.Errorf("positive wheel delta should zoom in, distance %v", got)
	}
	if got := o.Wheel(-10000).Distance; got != MaxDistance {
		t.Errorf("distance = %v, want clamp at %v", got, MaxDistance)
	}
	if got := o.Wheel(10000).Distance; got != MinDistance {
		t.Errorf("distance = %v, want clamp at %v", got, MinDistance)
	}
	if o.Distance != 3 {
		t.Error("Wheel mutated its receiver")
	}
}

func TestCentreProjectsToScreenCentre(t *testing.T) {
	c := New(DefaultOrbit(), 200, 100)
	clip := c.Project(mgl64.Vec3{0.5, 0.5, 0.5})
	ndc := clip.Vec3().Mul(1 / clip[3])
	if math.Abs(ndc[0]) > 1e-9 || math.Abs(ndc[1]) > 1e-9 {
		t.Errorf("volume centre projects to ndc %v, want origin", ndc)
	}
	if ndc[2] <= -1 || ndc[2] >= 1 {
		t.Errorf("volume centre depth %v outside the frustum", ndc[2])
	}
}

func TestRayRoundTrip(t *testing.T) {
	c := New(DefaultOrbit(), 64, 48)
	points := []mgl64.Vec3{
		{0.5, 0.5, 0.5},
		{0.1, 0.9, 0.3},
		{1, 0, 1},
	}
	for _, p := range points {
		clip := c.Project(p)
		ndc := clip.Vec3().Mul(1 / clip[3])
		u := (ndc[0] + 1) / 2
		v := (1 - ndc[1]) / 2

		ro, rd := c.Ray(u, v)
		if math.Abs(rd.Len()-1) > 1e-9 {
			t.Fatalf("direction not normalized: %v", rd)
		}
		// Distance from p to the ray line.
		toP := p.Sub(ro)
		perp := toP.Sub(rd.Mul(toP.Dot(rd)))
		if perp.Len() > 1e-6 {
			t.Errorf("ray through projection of %v misses it by %v", p, perp.Len())
		}
		if toP.Dot(rd) <= 0 {
			t.Errorf("point %v lies behind the ray origin", p)
		}
	}
}

func TestRayOriginNearEye(t *testing.T) {
	o := DefaultOrbit()
	c := New(o, 32, 32)
	ro, _ := c.PixelRay(16, 16)
	eye := c.InvModelView.Mul4x1(mgl64.Vec4{0, 0, 0, 1}).Vec3()
	if d := ro.Sub(eye).Len(); d > 0.2 {
		t.Errorf("ray origin %v is %v from the eye %v", ro, d, eye)
	}
}

func TestZeroScaleFallsBackToDefault(t *testing.T) {
	o := DefaultOrbit()
	o.Scale = mgl64.Vec3{}
	if c := New(o, 10, 10); c.Orbit.Scale != DefaultOrbit().Scale {
		t.Errorf("scale = %v, want default", c.Orbit.Scale)
	}
}
