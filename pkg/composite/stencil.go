package composite

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/kernel"
	"github.com/chazu/medvol/pkg/raster"
	"github.com/chazu/medvol/pkg/tessellate"
	"github.com/chazu/medvol/pkg/volume"
	"github.com/go-gl/mathgl/mgl64"
	xdraw "golang.org/x/image/draw"
)

// capEpsilon is the clamp distance, in voxels, above which a cap fragment
// lies on the clip box rather than on the shell.
const capEpsilon = 1e-3

// lightDir is the view-space direction of the single white light.
var lightDir = mgl64.Vec3{1, 1, 1}.Normalize()

// StencilShellStrategy draws the isosurface shell clipped to the clip box.
// Stencil counting over the shell decides, per pixel, whether the point where
// the view ray enters the clip box lies inside the solid; those pixels show a
// density cross-section instead of the shell.
type StencilShellStrategy struct {
	Vol     *volume.Volume
	Cache   *tessellate.Cache
	Builder *tessellate.Builder
}

// Name implements Strategy.
func (s *StencilShellStrategy) Name() string { return "stencil-shell" }

func keyOf(f Frame) tessellate.Key {
	p := f.Params
	return tessellate.Key{IsoLevel: p.IsoLevel, IsoRange: p.IsoRange, Smoothing: p.Smoothing}
}

// shell prefers the last published background build when it matches k.
func (s *StencilShellStrategy) shell(k tessellate.Key) (*kernel.Mesh, error) {
	if s.Builder != nil {
		if snap := s.Builder.Current(); snap != nil && snap.Key == k {
			return snap.Shell, nil
		}
	}
	return s.Cache.Shell(k)
}

// Commands builds the command list for f.
func (s *StencilShellStrategy) Commands(f Frame) (*raster.List, error) {
	if s.Cache == nil {
		return nil, errors.New("no mesh cache")
	}
	k := keyOf(f)
	shell, err := s.shell(k)
	if err != nil {
		return nil, err
	}
	box := f.Params.ClipBox
	less := raster.DepthState{Test: true, Func: raster.Less}
	lessWrite := raster.DepthState{Test: true, Func: raster.Less, Write: true}

	l := &raster.List{}
	l.Add(raster.Command{Name: "clear-color", Kind: raster.KindClearColor, Clear: f.Background})
	l.Add(raster.Command{Name: "clear-stencil", Kind: raster.KindClearStencil})
	l.Add(raster.Command{Name: "clear-depth", Kind: raster.KindClearDepth})

	// Depth now holds where each view ray enters the clip box.
	l.Add(raster.Command{Name: "clip-box-depth", Mesh: kernel.BoxMesh(box), Cull: raster.CullBack, Depth: lessWrite})

	// Count shell crossings in front of the box entry.
	l.Add(raster.Command{
		Name:    "count-back",
		Mesh:    shell,
		Cull:    raster.CullFront,
		Depth:   less,
		Stencil: raster.StencilState{Pass: raster.Incr},
	})
	l.Add(raster.Command{
		Name:    "count-front",
		Mesh:    shell,
		Cull:    raster.CullBack,
		Depth:   less,
		Stencil: raster.StencilState{Pass: raster.Decr},
	})
	l.Add(raster.Command{Name: "clear-depth", Kind: raster.KindClearDepth})

	l.Add(raster.Command{
		Name:       "shell",
		Mesh:       shell,
		Shader:     litShader(f.Camera),
		Cull:       raster.CullBack,
		Depth:      lessWrite,
		Stencil:    raster.StencilState{Test: true, Func: raster.Equal, Ref: 0},
		ColorWrite: true,
		Clip:       &box,
	})

	if f.Params.Isocaps {
		capMesh, err := s.Cache.Cap(k, box)
		if err != nil {
			return nil, err
		}
		l.Add(raster.Command{
			Name:       "cap",
			Mesh:       capMesh,
			Shader:     capShader(f.Camera, s.Vol),
			Cull:       raster.CullBack,
			Depth:      lessWrite,
			Stencil:    raster.StencilState{Test: true, Func: raster.NotEqual, Ref: 0},
			ColorWrite: true,
		})
	}
	return l, nil
}

// Render implements Strategy.
func (s *StencilShellStrategy) Render(f Frame, dst *image.RGBA) (Stats, error) {
	cam := f.Camera
	if b := dst.Bounds(); b.Dx() != cam.Width || b.Dy() != cam.Height {
		return Stats{}, fmt.Errorf("destination %v does not match camera %dx%d", b, cam.Width, cam.Height)
	}
	l, err := s.Commands(f)
	if err != nil {
		return Stats{}, err
	}
	fb := raster.NewFramebuffer(cam.Width, cam.Height)
	rs, err := l.Submit(fb, cam)
	if err != nil {
		return Stats{}, err
	}
	xdraw.Draw(dst, dst.Bounds(), fb.Color, image.Point{}, xdraw.Src)

	stats := Stats{
		Triangles: rs.Triangles,
		Commands:  rs.Commands,
		MaxWrites: fb.MaxWrites(),
	}
	for _, w := range fb.Writes {
		if w > 0 {
			stats.HitPixels++
		}
	}
	return stats, nil
}

func diffuse(cam *camera.Camera, f raster.Fragment) float64 {
	n := cam.ViewNormal(mgl64.Vec3{f.Normal.X, f.Normal.Y, f.Normal.Z})
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	}
	return math.Abs(n.Dot(lightDir))
}

func litShader(cam *camera.Camera) raster.ShaderFunc {
	return func(f raster.Fragment) (mgl64.Vec4, bool) {
		d := diffuse(cam, f)
		return mgl64.Vec4{d, d, d, 1}, true
	}
}

// capShader shows density on the clamped part of the cap and lights the
// part that still lies on the shell.
func capShader(cam *camera.Camera, v *volume.Volume) raster.ShaderFunc {
	return func(f raster.Fragment) (mgl64.Vec4, bool) {
		if f.ClipDist > capEpsilon {
			s := v.Sample(f.Position)
			return mgl64.Vec4{s, s, s, 1}, true
		}
		d := diffuse(cam, f)
		return mgl64.Vec4{d, d, d, 1}, true
	}
}
