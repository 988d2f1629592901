package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/composite"
	"github.com/chazu/medvol/pkg/config"
	"github.com/chazu/medvol/pkg/engine"
	"github.com/chazu/medvol/pkg/kernel"
	"github.com/chazu/medvol/pkg/kernel/marching"
	"github.com/chazu/medvol/pkg/kernel/sdfx"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/params"
	"github.com/chazu/medvol/pkg/tessellate"
	"github.com/chazu/medvol/pkg/volume"
)

// App ties one loaded volume to the preset engine, the mesh cache and the
// renderer. Presets change the current parameters; Render draws them.
type App struct {
	settings config.Settings
	vol      *volume.Volume
	engine   *engine.Engine
	cache    *tessellate.Cache
	builder  *tessellate.Builder
	renderer *composite.Renderer

	mu      sync.Mutex
	preset  engine.Preset
	pending <-chan error
}

// EvalErrorData is a located preset error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the outcome of evaluating a preset.
type EvalResult struct {
	Params   params.Params   `json:"params"`
	Camera   camera.Orbit    `json:"camera"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp loads the volume described by s and prepares the pipeline.
func NewApp(s config.Settings) (*App, error) {
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	vol, err := loadVolume(s.Volume)
	if err != nil {
		return nil, err
	}
	st := vol.Stats()
	logging.Logger().Info("volume loaded",
		"dims", vol.Dims(),
		"mean", st.Mean,
		"stddev", st.StdDev,
		"median", st.Median,
		"occupancy", st.Occupancy,
	)

	base := engine.Preset{Params: s.Params.Sanitize(), Orbit: s.Camera}
	eng := engine.NewEngine()
	eng.Base = base

	cache := tessellate.NewCache(vol, newExtractor(s.Render.Extractor, s.Render.Workers))
	r := composite.NewRenderer(vol, cache)
	r.Workers = s.Render.Workers
	r.Preview = s.Render.PreviewScale
	bg := s.Render.Background
	r.Background = color.RGBA{bg[0], bg[1], bg[2], bg[3]}
	r.Builder = tessellate.NewBuilder(cache)

	return &App{
		settings: s,
		vol:      vol,
		engine:   eng,
		cache:    cache,
		builder:  r.Builder,
		renderer: r,
		preset:   base,
	}, nil
}

func loadVolume(vs config.VolumeSettings) (*volume.Volume, error) {
	if vs.Path == "" {
		logging.Logger().Info("no volume path, using phantom", "dims", vs.Dims)
		return volume.New(vs.Dims, volume.Phantom(vs.Dims), vs.Normalization)
	}
	return volume.Load(vs.Path, vs.Dims, vs.ByteOrder(), vs.Normalization)
}

func newExtractor(name string, workers int) kernel.Extractor {
	if name == "sdfx" {
		return sdfx.New()
	}
	e := marching.New()
	if workers > 0 {
		e.Workers = workers
	}
	return e
}

// Evaluate runs preset source. On success the resulting preset becomes
// current and, in isosurface mode, its shell starts building in the
// background.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	p, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logging.Logger().Error("preset evaluation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	for _, w := range p.Warnings() {
		logging.Logger().Warn("preset warning", "field", w.Field, "message", w.Message)
		result.Warnings = append(result.Warnings, EvalErrorData{Field: w.Field, Message: w.Message})
	}
	result.Params, result.Camera = p.Params, p.Orbit

	a.mu.Lock()
	a.preset = *p
	a.pending = nil
	if p.Params.Mode == params.ModeIsosurface {
		a.pending = a.builder.Request(shellKey(p.Params))
	}
	a.mu.Unlock()
	return result
}

func shellKey(p params.Params) tessellate.Key {
	return tessellate.Key{IsoLevel: p.IsoLevel, IsoRange: p.IsoRange, Smoothing: p.Smoothing}
}

// Preset returns the current preset.
func (a *App) Preset() engine.Preset {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.preset
}

func (a *App) setMode(m params.Mode) {
	a.mu.Lock()
	a.preset.Params.Mode = m
	if m == params.ModeIsosurface && a.pending == nil {
		a.pending = a.builder.Request(shellKey(a.preset.Params))
	}
	a.mu.Unlock()
}

// Drag orbits the camera by a pointer drag of (dx, dy) pixels.
func (a *App) Drag(dx, dy float64) {
	a.mu.Lock()
	a.preset.Orbit = a.preset.Orbit.Drag(dx, dy)
	a.mu.Unlock()
}

// Zoom moves the camera by a wheel delta.
func (a *App) Zoom(delta float64) {
	a.mu.Lock()
	a.preset.Orbit = a.preset.Orbit.Wheel(delta)
	a.mu.Unlock()
}

// Render draws the current preset at the configured size.
func (a *App) Render() (*image.RGBA, composite.Stats, error) {
	a.mu.Lock()
	p := a.preset
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending != nil {
		if err := <-pending; err != nil && !errors.Is(err, tessellate.ErrSuperseded) {
			return nil, composite.Stats{}, fmt.Errorf("build shell: %w", err)
		}
	}

	cam := camera.New(p.Orbit, a.settings.Render.Width, a.settings.Render.Height)
	img, stats, err := a.renderer.Render(p.Params, cam)
	if err != nil {
		return nil, stats, err
	}
	logging.Logger().Info("frame",
		"strategy", stats.Strategy,
		"hit", stats.HitPixels,
		"triangles", stats.Triangles,
		"elapsed", stats.Duration)
	return img, stats, nil
}

// CacheStats returns the mesh cache counters.
func (a *App) CacheStats() tessellate.Stats {
	return a.cache.Stats()
}
