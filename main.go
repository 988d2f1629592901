// Command medvol renders a medical volume scan to PNG, either as a
// raymarched volume or as a clipped isosurface with cross-section caps.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/chazu/medvol/pkg/config"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/params"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to settings JSON file")
	presetPath := flag.String("preset", "", "preset file evaluated after the settings")
	mode := flag.String("mode", "", "render mode override: volume or isosurface")
	output := flag.String("out", "frame.png", "output PNG file")
	width := flag.Int("width", 0, "image width override")
	height := flag.Int("height", 0, "image height override")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*configPath, *presetPath, *mode, *output, *width, *height); err != nil {
		fmt.Fprintln(os.Stderr, "medvol:", err)
		os.Exit(1)
	}
}

func run(configPath, presetPath, mode, output string, width, height int) error {
	s, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if width > 0 {
		s.Render.Width = width
	}
	if height > 0 {
		s.Render.Height = height
	}
	if mode != "" {
		m, err := params.ParseMode(mode)
		if err != nil {
			return err
		}
		s.Params.Mode = m
	}

	app, err := NewApp(s)
	if err != nil {
		return err
	}

	if presetPath != "" {
		src, err := os.ReadFile(presetPath)
		if err != nil {
			return fmt.Errorf("read preset: %w", err)
		}
		res := app.Evaluate(string(src))
		if len(res.Errors) > 0 {
			e := res.Errors[0]
			return fmt.Errorf("preset %s:%d: %s", presetPath, e.Line, e.Message)
		}
		// A mode given on the command line wins over the preset.
		if mode != "" {
			app.setMode(s.Params.Mode)
		}
	}

	img, _, err := app.Render()
	if err != nil {
		return err
	}
	return savePNG(output, img)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("save png: %w", err)
	}
	return f.Close()
}
