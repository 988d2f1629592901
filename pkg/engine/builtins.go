package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// preprocessSource rewrites preset source into something zygomys accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", which parseArgs
//     recognises, so keywords never collide with user variables.
//   - clip-box becomes clip_box; zygomys reads a hyphen between identifier
//     characters as subtraction.
//   - ; comments become // comments.
//
// String literals are copied unchanged.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// := is assignment, not a keyword.
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of the name.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// sexpVec3 carries a vector between builtins.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		// A keyword with no value, such as (renderer :volume).
		result.kw[name] = zygo.SexpNull
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false, numbers, and the keywords :on and :off.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpStr:
		switch strings.TrimPrefix(v.S, kwPrefix) {
		case "on", "true", "yes":
			return true, nil
		case "off", "false", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// floatArg reads a numeric keyword argument into dst when present.
func floatArg(pa kwArgs, fn, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// flagBuiltin installs a builtin that sets a boolean; no argument means true.
func flagBuiltin(env *zygo.Zlisp, fn string, dst *bool) {
	env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			*dst = true
			return zygo.SexpNull, nil
		}
		b, err := toBool(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		*dst = b
		return zygo.SexpNull, nil
	})
}

// registerBuiltins installs the preset builtins. Each one modifies p in
// place. Source must go through preprocessSource first so that keywords
// are recognisable.
func registerBuiltins(env *zygo.Zlisp, p *Preset) {

	// (iso :level 0.65 :range 0.6) or (iso 0.65 0.6)
	env.AddFunction("iso", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		level, rng := p.Params.IsoLevel, p.Params.IsoRange
		for i, dst := range []*float64{&level, &rng} {
			if i < len(pa.positional) {
				f, err := toFloat64(pa.positional[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("iso: argument %d: %w", i+1, err)
				}
				*dst = f
			}
		}
		if err := floatArg(pa, "iso", "level", &level); err != nil {
			return zygo.SexpNull, err
		}
		if err := floatArg(pa, "iso", "range", &rng); err != nil {
			return zygo.SexpNull, err
		}
		if level < 0 || level > 1 || rng < 0 || rng > 1 {
			return zygo.SexpNull, fmt.Errorf("iso: level %g and range %g must lie in [0, 1]", level, rng)
		}
		p.Params.IsoLevel, p.Params.IsoRange = level, rng
		return zygo.SexpNull, nil
	})

	// (threshold 0.4)
	env.AddFunction("threshold", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("threshold requires exactly 1 argument, got %d", len(args))
		}
		iso, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("threshold: %w", err)
		}
		if iso < 0 || iso >= 1 {
			return zygo.SexpNull, fmt.Errorf("threshold: %g must lie in [0, 1)", iso)
		}
		p.Params = p.Params.WithThreshold(iso)
		return zygo.SexpNull, nil
	})

	// (raymarch :steps 128)
	env.AddFunction("raymarch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["steps"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("raymarch requires :steps")
		}
		n, err := toInt(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("raymarch: steps: %w", err)
		}
		if n < params.MinRaySteps || n > params.MaxRaySteps {
			return zygo.SexpNull, fmt.Errorf("raymarch: steps %d outside [%d, %d]", n, params.MinRaySteps, params.MaxRaySteps)
		}
		p.Params.RaySteps = n
		return zygo.SexpNull, nil
	})

	// (isocaps true), (smoothing :off)
	flagBuiltin(env, "isocaps", &p.Params.Isocaps)
	flagBuiltin(env, "smoothing", &p.Params.Smoothing)

	// (renderer :isosurface)
	env.AddFunction("renderer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("renderer requires exactly 1 argument, got %d", len(args))
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("renderer: %w", err)
		}
		m, err := params.ParseMode(s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("renderer: %w", err)
		}
		p.Params.Mode = m
		return zygo.SexpNull, nil
	})

	// (vec3 0.5 0 1)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (clip-box :min (vec3 0 0 0) :max (vec3 0.5 1 1))
	//
	// Registered as clip_box; see preprocessSource.
	env.AddFunction("clip_box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		box := clip.Unit()
		if v, ok := pa.kw["min"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("clip-box: min: %w", err)
			}
			box.Min = vec
		}
		if v, ok := pa.kw["max"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("clip-box: max: %w", err)
			}
			box.Max = vec
		}
		p.Params.ClipBox = box
		return zygo.SexpNull, nil
	})

	// (orbit :distance 3 :theta 4 :alpha -0.5 :fov 30 :scale (vec3 1 1 0.55))
	env.AddFunction("orbit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		o := p.Orbit
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{"distance", &o.Distance},
			{"theta", &o.Theta},
			{"alpha", &o.Alpha},
			{"fov", &o.FOV},
		} {
			if err := floatArg(pa, "orbit", f.key, f.dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if v, ok := pa.kw["scale"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("orbit: scale: %w", err)
			}
			o.Scale[0], o.Scale[1], o.Scale[2] = vec.X, vec.Y, vec.Z
		}
		if o.Distance < camera.MinDistance || o.Distance > camera.MaxDistance {
			return zygo.SexpNull, fmt.Errorf("orbit: distance %g outside [%g, %g]", o.Distance, camera.MinDistance, camera.MaxDistance)
		}
		if o.FOV <= 0 || o.FOV >= 180 {
			return zygo.SexpNull, fmt.Errorf("orbit: fov %g must lie in (0, 180)", o.FOV)
		}
		p.Orbit = o
		return zygo.SexpNull, nil
	})
}
