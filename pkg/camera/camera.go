// Package camera derives view and projection transforms from an orbit
// around the volume, and maps pixels to rays in normalized volume space.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection planes.
const (
	Near = 0.1
	Far  = 100.0
)

// Orbit input tuning.
const (
	DragSensitivity = 0.01
	ZoomBase        = 1.01
	MinDistance     = 0.5
	MaxDistance     = 10.0
	// MaxAlpha stops just short of the poles, where the view up vector
	// would be parallel to the view direction.
	MaxAlpha = math.Pi/2 - 1e-4
)

// Orbit places the eye on a sphere around the volume centre.
type Orbit struct {
	Distance float64    `json:"distance"`
	Theta    float64    `json:"theta"` // azimuth, radians
	Alpha    float64    `json:"alpha"` // elevation, radians
	FOV      float64    `json:"fov"`   // vertical field of view, degrees
	Scale    mgl64.Vec3 `json:"scale"` // physical extent of the unit volume
}

// DefaultOrbit returns the startup view of the head scan.
func DefaultOrbit() Orbit {
	return Orbit{
		Distance: 3,
		Theta:    4,
		Alpha:    -0.5,
		FOV:      30,
		Scale:    mgl64.Vec3{1, 1, 0.55},
	}
}

// Eye returns the eye position in world space.
func (o Orbit) Eye() mgl64.Vec3 {
	return mgl64.Vec3{
		math.Cos(o.Theta) * math.Cos(o.Alpha),
		math.Sin(o.Alpha),
		math.Sin(o.Theta) * math.Cos(o.Alpha),
	}.Mul(o.Distance)
}

// Drag returns the orbit rotated by a pointer drag of (dx, dy) pixels.
// Theta wraps into [0, 2π); alpha is clamped short of the poles.
func (o Orbit) Drag(dx, dy float64) Orbit {
	o.Theta = math.Mod(o.Theta-dx*DragSensitivity, 2*math.Pi)
	if o.Theta < 0 {
		o.Theta += 2 * math.Pi
	}
	o.Alpha = math.Max(-MaxAlpha, math.Min(MaxAlpha, o.Alpha-dy*DragSensitivity))
	return o
}

// Wheel returns the orbit zoomed by a wheel delta.
func (o Orbit) Wheel(delta float64) Orbit {
	o.Distance = math.Max(MinDistance, math.Min(MaxDistance, o.Distance*math.Pow(ZoomBase, -delta)))
	return o
}

// Camera holds the per-frame transforms for an orbit and viewport.
// Model space is normalized volume space.
type Camera struct {
	Orbit  Orbit
	Width  int
	Height int

	ModelView     mgl64.Mat4
	Projection    mgl64.Mat4
	MVP           mgl64.Mat4
	InvModelView  mgl64.Mat4
	InvProjection mgl64.Mat4
	InvMVP        mgl64.Mat4
	NormalMatrix  mgl64.Mat3
}

// New builds the camera for o viewing a width×height image.
func New(o Orbit, width, height int) *Camera {
	aspect := 1.0
	if width > 0 && height > 0 {
		aspect = float64(width) / float64(height)
	}
	o.Alpha = math.Max(-MaxAlpha, math.Min(MaxAlpha, o.Alpha))
	s := o.Scale
	if s == (mgl64.Vec3{}) {
		s = DefaultOrbit().Scale
		o.Scale = s
	}

	view := mgl64.LookAtV(o.Eye(), mgl64.Vec3{}, mgl64.Vec3{0, -1, 0})
	model := mgl64.Translate3D(-s[0]/2, -s[1]/2, -s[2]/2).Mul4(mgl64.Scale3D(s[0], s[1], s[2]))

	c := &Camera{Orbit: o, Width: width, Height: height}
	c.ModelView = view.Mul4(model)
	c.Projection = mgl64.Perspective(mgl64.DegToRad(o.FOV), aspect, Near, Far)
	c.MVP = c.Projection.Mul4(c.ModelView)
	c.InvModelView = c.ModelView.Inv()
	c.InvProjection = c.Projection.Inv()
	c.InvMVP = c.MVP.Inv()
	c.NormalMatrix = c.ModelView.Mat3().Inv().Transpose()
	return c
}

// Ray returns the origin (on the near plane) and unit direction of the ray
// through normalized image coordinates (u, v), with v = 0 at the top row.
func (c *Camera) Ray(u, v float64) (origin, dir mgl64.Vec3) {
	x := 2*u - 1
	y := 1 - 2*v

	near := c.InvMVP.Mul4x1(mgl64.Vec4{x, y, -1, 1})
	far := c.InvMVP.Mul4x1(mgl64.Vec4{x, y, 1, 1})
	n := near.Vec3().Mul(1 / near[3])
	f := far.Vec3().Mul(1 / far[3])
	return n, f.Sub(n).Normalize()
}

// PixelRay returns the ray through the centre of pixel (x, y).
func (c *Camera) PixelRay(x, y int) (origin, dir mgl64.Vec3) {
	return c.Ray((float64(x)+0.5)/float64(c.Width), (float64(y)+0.5)/float64(c.Height))
}

// Project maps a model-space point to clip space.
func (c *Camera) Project(p mgl64.Vec3) mgl64.Vec4 {
	return c.MVP.Mul4x1(p.Vec4(1))
}

// ViewNormal transforms a model-space normal into view space.
func (c *Camera) ViewNormal(n mgl64.Vec3) mgl64.Vec3 {
	return c.NormalMatrix.Mul3x1(n)
}
