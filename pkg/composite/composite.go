// Package composite turns a volume, render parameters and a camera into an
// image, either by direct volume rendering or by drawing the extracted
// isosurface shell with stencil-counted cross-section caps.
package composite

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/params"
	"github.com/chazu/medvol/pkg/tessellate"
	"github.com/chazu/medvol/pkg/volume"
)

// ErrNoVolume is returned when a renderer has no volume to draw.
var ErrNoVolume = errors.New("composite: no volume")

// Frame is everything a strategy needs to draw one image.
type Frame struct {
	Params     params.Params
	Camera     *camera.Camera
	Background color.RGBA
}

// Stats describes one rendered frame.
type Stats struct {
	Strategy  string
	HitPixels int // pixels that received a color
	Triangles int
	Commands  int
	MaxWrites int // most color writes any pixel received
	Duration  time.Duration
}

// Strategy draws a frame into dst, whose bounds must match the camera.
type Strategy interface {
	Name() string
	Render(f Frame, dst *image.RGBA) (Stats, error)
}

// Renderer picks a strategy per frame from the render mode.
type Renderer struct {
	Vol        *volume.Volume
	Cache      *tessellate.Cache
	// Builder, when set, supplies shells published by background builds.
	Builder    *tessellate.Builder
	Workers    int
	Preview    float64
	Background color.RGBA
}

// NewRenderer returns a renderer drawing v with meshes from cache.
func NewRenderer(v *volume.Volume, cache *tessellate.Cache) *Renderer {
	return &Renderer{Vol: v, Cache: cache, Background: color.RGBA{255, 255, 255, 255}}
}

// Strategy returns the strategy used for mode.
func (r *Renderer) Strategy(mode params.Mode) Strategy {
	if mode == params.ModeIsosurface {
		return &StencilShellStrategy{Vol: r.Vol, Cache: r.Cache, Builder: r.Builder}
	}
	return &RaymarchStrategy{Vol: r.Vol, Workers: r.Workers, PreviewScale: r.Preview}
}

// Render draws p as seen by cam into a new image of the camera's size.
func (r *Renderer) Render(p params.Params, cam *camera.Camera) (*image.RGBA, Stats, error) {
	if r.Vol == nil {
		return nil, Stats{}, ErrNoVolume
	}
	if cam.Width <= 0 || cam.Height <= 0 {
		return nil, Stats{}, fmt.Errorf("composite: invalid image size %dx%d", cam.Width, cam.Height)
	}
	p = p.Sanitize()
	s := r.Strategy(p.Mode)
	dst := image.NewRGBA(image.Rect(0, 0, cam.Width, cam.Height))

	start := time.Now()
	stats, err := s.Render(Frame{Params: p, Camera: cam, Background: r.Background}, dst)
	if err != nil {
		return nil, stats, fmt.Errorf("composite: %s: %w", s.Name(), err)
	}
	stats.Strategy = s.Name()
	stats.Duration = time.Since(start)
	logging.Logger().Debug("frame rendered",
		"strategy", stats.Strategy,
		"size", fmt.Sprintf("%dx%d", cam.Width, cam.Height),
		"hit", stats.HitPixels,
		"elapsed", stats.Duration)
	return dst, stats, nil
}

func fill(dst *image.RGBA, c color.RGBA) {
	pix := dst.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}
