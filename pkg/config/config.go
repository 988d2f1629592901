// Package config loads the renderer settings file. Missing files fall back
// to defaults; a present but malformed file is an error.
package config

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/params"
	"github.com/chazu/medvol/pkg/volume"
)

// DefaultPath is the settings file read when none is given.
const DefaultPath = "medvol.json"

// Settings is the full configuration of a render session.
type Settings struct {
	Volume VolumeSettings `json:"volume"`
	Render RenderSettings `json:"render"`
	Camera camera.Orbit   `json:"camera"`
	Params params.Params  `json:"params"`
}

// VolumeSettings describes the raw scan on disk. An empty Path selects the
// built-in phantom.
type VolumeSettings struct {
	Path          string               `json:"path"`
	Dims          [3]int               `json:"dims"`
	BigEndian     bool                 `json:"bigEndian"`
	Normalization volume.Normalization `json:"normalization"`
}

// ByteOrder returns the sample byte order.
func (v VolumeSettings) ByteOrder() binary.ByteOrder {
	if v.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// RenderSettings controls the output image and the software pipeline.
type RenderSettings struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Workers is the raymarch worker count; 0 means one per CPU.
	Workers int `json:"workers"`
	// PreviewScale renders the volume at a fraction of the output size and
	// upsamples. 1 disables it.
	PreviewScale float64 `json:"previewScale"`
	// Background is the RGBA clear color.
	Background [4]uint8 `json:"background"`
	// Extractor selects the marching cubes backend: "marching" or "sdfx".
	Extractor string `json:"extractor"`
}

// Default returns the built-in settings: the 256×256×109 big-endian MRI
// layout, an 800×600 white frame and the startup parameters.
func Default() Settings {
	return Settings{
		Volume: VolumeSettings{
			Dims:          [3]int{256, 256, 109},
			BigEndian:     true,
			Normalization: volume.MRI,
		},
		Render: RenderSettings{
			Width:        800,
			Height:       600,
			PreviewScale: 1,
			Background:   [4]uint8{255, 255, 255, 255},
			Extractor:    "marching",
		},
		Camera: camera.DefaultOrbit(),
		Params: params.Default(),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Logger().Info("no settings file, using defaults", "path", path)
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", path, err)
	}
	logging.Logger().Info("loaded settings", "path", path,
		"dims", s.Volume.Dims, "size", fmt.Sprintf("%dx%d", s.Render.Width, s.Render.Height))
	return s, nil
}

// Decode parses settings JSON over the defaults and checks the result.
func Decode(r io.Reader) (Settings, error) {
	s := Default()
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Check(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Check reports settings that cannot produce a frame.
func (s Settings) Check() error {
	d := s.Volume.Dims
	if d[0] <= 0 || d[1] <= 0 || d[2] <= 0 {
		return fmt.Errorf("volume dims %v must be positive", d)
	}
	if s.Volume.Normalization.Scale == 0 {
		return errors.New("volume normalization scale must be non-zero")
	}
	if s.Render.Width <= 0 || s.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d must be positive", s.Render.Width, s.Render.Height)
	}
	if s.Render.PreviewScale <= 0 || s.Render.PreviewScale > 1 {
		return fmt.Errorf("preview scale %v must be in (0, 1]", s.Render.PreviewScale)
	}
	switch s.Render.Extractor {
	case "marching", "sdfx":
	default:
		return fmt.Errorf("unknown extractor %q, expected marching or sdfx", s.Render.Extractor)
	}
	if errs := params.Validate(s.Params); params.HasErrors(errs) {
		return fmt.Errorf("params: %w", errs[0])
	}
	return nil
}
