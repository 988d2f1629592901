package raymarch

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Opacities of the transfer function.
const (
	BaseAlpha = 0.005
	BandAlpha = 0.15
)

// Transfer maps a density sample to a color. Samples within IsoRange of
// IsoLevel are highlighted with a higher opacity.
type Transfer struct {
	IsoLevel float64
	IsoRange float64
}

// Highlights reports whether s falls in the highlight band. Unlike
// extraction the band is closed on both ends.
func (tf Transfer) Highlights(s float64) bool {
	return math.Abs(s-tf.IsoLevel) <= tf.IsoRange
}

// Alpha returns the opacity of a sample with the given coverage.
func (tf Transfer) Alpha(s, coverage float64) float64 {
	a := BaseAlpha
	if tf.Highlights(s) {
		a = BandAlpha
	}
	return a * coverage
}

// Color returns the marching color of a sample. Hue encodes the distance
// from the isolevel; brightness follows the gradient magnitude.
func (tf Transfer) Color(s, coverage float64, grad v3.Vec) mgl64.Vec4 {
	rgb := pseudocolor(math.Abs(s-tf.IsoLevel)*2, grad)
	return rgb.Vec4(tf.Alpha(s, coverage))
}

// CapColor is Color without the isolevel remap: hue encodes raw density.
func (tf Transfer) CapColor(s, coverage float64, grad v3.Vec) mgl64.Vec4 {
	rgb := pseudocolor(s, grad)
	return rgb.Vec4(tf.Alpha(s, coverage))
}

func pseudocolor(r float64, grad v3.Vec) mgl64.Vec3 {
	ramp := func(x float64) float64 { return 1 - math.Max(0, x+0.5) }
	// Channels are produced in reverse order.
	b, g, red := ramp(r*2), ramp(math.Abs(0.7-r)), ramp(0.8-r)
	col := mgl64.Vec3{red * 0.75, g, b * 0.5}

	ag := mgl64.Vec3{math.Abs(grad.X), math.Abs(grad.Y), math.Abs(grad.Z)}
	grey := (ag[0] + ag[1] + ag[2]) / 3
	return mgl64.Vec3{
		math.Sqrt(grey+ag[0]) + col[0],
		math.Sqrt(grey+ag[1]) + col[1],
		math.Sqrt(grey+ag[2]) + col[2],
	}
}
