package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Framebuffer holds the color, depth and stencil planes of one frame.
// Depth is window depth in [0,1], cleared to 1 (far).
type Framebuffer struct {
	Width   int
	Height  int
	Color   *image.RGBA
	Depth   []float64
	Stencil []int32
	// Writes counts color writes per pixel since the last color clear.
	Writes []uint8
}

// NewFramebuffer allocates a cleared width×height framebuffer.
func NewFramebuffer(width, height int) *Framebuffer {
	n := width * height
	fb := &Framebuffer{
		Width:   width,
		Height:  height,
		Color:   image.NewRGBA(image.Rect(0, 0, width, height)),
		Depth:   make([]float64, n),
		Stencil: make([]int32, n),
		Writes:  make([]uint8, n),
	}
	fb.ClearDepth()
	return fb
}

// ClearColor fills the color plane and resets the write counters.
func (fb *Framebuffer) ClearColor(c color.RGBA) {
	pix := fb.Color.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	clear(fb.Writes)
}

// ClearDepth resets every depth sample to far.
func (fb *Framebuffer) ClearDepth() {
	for i := range fb.Depth {
		fb.Depth[i] = 1
	}
}

// ClearStencil resets every stencil value to zero.
func (fb *Framebuffer) ClearStencil() {
	clear(fb.Stencil)
}

// MaxWrites returns the largest per-pixel color write count.
func (fb *Framebuffer) MaxWrites() int {
	m := 0
	for _, w := range fb.Writes {
		if int(w) > m {
			m = int(w)
		}
	}
	return m
}

func (fb *Framebuffer) setColor(idx int, c mgl64.Vec4) {
	rgba := ToRGBA(c)
	p := fb.Color.Pix[idx*4 : idx*4+4 : idx*4+4]
	p[0], p[1], p[2], p[3] = rgba.R, rgba.G, rgba.B, rgba.A
	if fb.Writes[idx] < math.MaxUint8 {
		fb.Writes[idx]++
	}
}

// ToRGBA converts a straight-alpha color with components in [0,1] to a
// premultiplied 8-bit color, clamping out-of-range components.
func ToRGBA(c mgl64.Vec4) color.RGBA {
	a := clamp01(c[3])
	return color.RGBA{
		R: uint8(math.Round(clamp01(c[0]) * a * 255)),
		G: uint8(math.Round(clamp01(c[1]) * a * 255)),
		B: uint8(math.Round(clamp01(c[2]) * a * 255)),
		A: uint8(math.Round(a * 255)),
	}
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
