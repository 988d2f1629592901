// Package params defines the per-frame render parameter snapshot. A Params
// value is passed by value into every frame and never mutated by the core.
package params

import (
	"fmt"
	"math"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/volume"
)

// Ray step limits exposed to the user.
const (
	MinRaySteps     = 32
	MaxRaySteps     = 384
	DefaultRaySteps = 256
)

// Startup band.
const (
	DefaultIsoLevel = 0.65
	DefaultIsoRange = 0.6
)

// Mode selects the render strategy.
type Mode int

const (
	ModeVolume     Mode = iota // raymarched volume
	ModeIsosurface             // extracted surface with stencil caps
)

func (m Mode) String() string {
	switch m {
	case ModeVolume:
		return "volume"
	case ModeIsosurface:
		return "isosurface"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "volume":
		return ModeVolume, nil
	case "isosurface", "iso":
		return ModeIsosurface, nil
	}
	return 0, fmt.Errorf("params: unknown render mode %q, expected volume or isosurface", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Params is an immutable snapshot of the user-facing render settings.
type Params struct {
	IsoLevel  float64  `json:"isoLevel"`
	IsoRange  float64  `json:"isoRange"`
	RaySteps  int      `json:"raySteps"`
	Isocaps   bool     `json:"isocaps"`
	Smoothing bool     `json:"smoothing"`
	ClipBox   clip.Box `json:"clipBox"`
	Mode      Mode     `json:"renderer"`
}

// Default returns the startup parameters.
func Default() Params {
	return Params{
		IsoLevel: DefaultIsoLevel,
		IsoRange: DefaultIsoRange,
		RaySteps: DefaultRaySteps,
		ClipBox:  clip.Unit(),
		Mode:     ModeVolume,
	}
}

// Band returns the extraction band [IsoLevel-IsoRange, IsoLevel+IsoRange).
func (p Params) Band() volume.Band {
	return volume.NewBand(p.IsoLevel, p.IsoRange)
}

// thresholdSlack lifts the band top just above the largest density.
const thresholdSlack = 1e-6

// WithThreshold returns p with its band set to select every density at or
// above iso, the single-isovalue surface.
func (p Params) WithThreshold(iso float64) Params {
	p.IsoRange = (1-iso+thresholdSlack)/2
	p.IsoLevel = iso + p.IsoRange
	return p
}

// Sanitize returns p with every numeric field clamped into its legal range.
// NaN fields fall back to their defaults.
func (p Params) Sanitize() Params {
	p.IsoLevel = clampOr(p.IsoLevel, 0, 1, DefaultIsoLevel)
	p.IsoRange = clampOr(p.IsoRange, 0, 1, DefaultIsoRange)
	if p.RaySteps < MinRaySteps {
		p.RaySteps = MinRaySteps
	}
	if p.RaySteps > MaxRaySteps {
		p.RaySteps = MaxRaySteps
	}
	if p.Mode != ModeVolume && p.Mode != ModeIsosurface {
		p.Mode = ModeVolume
	}
	return p
}

func clampOr(x, lo, hi, def float64) float64 {
	if math.IsNaN(x) {
		return def
	}
	return math.Min(math.Max(x, lo), hi)
}
