package composite

import (
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/raster"
	"github.com/chazu/medvol/pkg/raymarch"
	"github.com/chazu/medvol/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
	xdraw "golang.org/x/image/draw"
)

const tileSize = 32

// RaymarchStrategy renders by marching one ray per pixel through the volume.
type RaymarchStrategy struct {
	Vol     *volume.Volume
	Workers int // 0 means runtime.NumCPU()
	// PreviewScale in (0,1) renders at reduced resolution and upsamples.
	PreviewScale float64
}

// Name implements Strategy.
func (s *RaymarchStrategy) Name() string { return "raymarch" }

type tile struct {
	x0, y0, x1, y1 int
}

// Render implements Strategy.
func (s *RaymarchStrategy) Render(f Frame, dst *image.RGBA) (Stats, error) {
	cam := f.Camera
	scale := s.PreviewScale
	if scale <= 0 || scale >= 1 {
		return s.render(f, cam, dst), nil
	}

	w := max(1, int(float64(cam.Width)*scale))
	h := max(1, int(float64(cam.Height)*scale))
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	stats := s.render(f, camera.New(cam.Orbit, w, h), small)
	xdraw.BiLinear.Scale(dst, dst.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return stats, nil
}

func (s *RaymarchStrategy) render(f Frame, cam *camera.Camera, dst *image.RGBA) Stats {
	fill(dst, f.Background)
	m := raymarch.New(s.Vol, f.Params)

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	nx := (cam.Width + tileSize - 1) / tileSize
	ny := (cam.Height + tileSize - 1) / tileSize
	tiles := make(chan tile, nx*ny)
	for ty := 0; ty < cam.Height; ty += tileSize {
		for tx := 0; tx < cam.Width; tx += tileSize {
			tiles <- tile{tx, ty, min(tx+tileSize, cam.Width), min(ty+tileSize, cam.Height)}
		}
	}
	close(tiles)

	var hits atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for t := range tiles {
				for y := t.y0; y < t.y1; y++ {
					for x := t.x0; x < t.x1; x++ {
						o, d := cam.PixelRay(x, y)
						res := m.March(v3.Vec{X: o[0], Y: o[1], Z: o[2]}, v3.Vec{X: d[0], Y: d[1], Z: d[2]})
						if !res.Hit {
							continue
						}
						dst.SetRGBA(x, y, raster.ToRGBA(res.Pixel()))
						n++
					}
				}
			}
			hits.Add(int64(n))
		}()
	}
	wg.Wait()
	stats := Stats{HitPixels: int(hits.Load())}
	if stats.HitPixels > 0 {
		stats.MaxWrites = 1
	}
	return stats
}
