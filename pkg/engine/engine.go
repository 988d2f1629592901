// Package engine evaluates render presets written in a small Lisp. Each
// preset runs in a fresh zygomys sandbox and adjusts a copy of the base
// render parameters and camera orbit.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/medvol/pkg/camera"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/params"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a finding about a preset that evaluated but will render
// nothing or less than expected.
type EvalWarning struct {
	Field   string
	Message string
}

// Preset is the outcome of evaluating preset source.
type Preset struct {
	Params params.Params `json:"params"`
	Orbit  camera.Orbit  `json:"camera"`
}

// DefaultPreset returns the startup parameters and view.
func DefaultPreset() Preset {
	return Preset{Params: params.Default(), Orbit: camera.DefaultOrbit()}
}

// Warnings returns the validation warnings of p.
func (p *Preset) Warnings() []EvalWarning {
	var out []EvalWarning
	for _, v := range params.Validate(p.Params) {
		if v.Severity == params.SeverityWarning {
			out = append(out, EvalWarning{Field: v.Field, Message: v.Message})
		}
	}
	return out
}

// Engine evaluates presets. It is safe for concurrent use; each call to
// Evaluate creates a fresh sandboxed environment, so results depend only on
// the source and Base.
type Engine struct {
	// Base is the preset that source code modifies.
	Base Preset
	// Timeout bounds a single evaluation.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine starting from DefaultPreset.
func NewEngine() *Engine {
	return &Engine{Base: DefaultPreset(), Timeout: EvalTimeout}
}

// Evaluate runs preset source and returns the resulting preset.
//
// Return semantics:
//   - On success: returns preset + nil errors + nil error
//   - On parse/eval failure: returns nil preset + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Preset, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	base := e.Base
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		p, evalErrs, err := evaluate(source, base)
		ch <- evalResult{preset: p, errors: evalErrs, err: err}
	}()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return waitWithTimeout(ch, gen, timeout, &e.mu, &e.generation)
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func evaluate(source string, base Preset) (*Preset, []EvalError, error) {
	p := base
	if strings.TrimSpace(source) == "" {
		return &p, nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, &p)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	logging.Logger().Debug("preset evaluated",
		"mode", p.Params.Mode.String(),
		"isoLevel", p.Params.IsoLevel,
		"isoRange", p.Params.IsoRange,
		"clipBox", p.Params.ClipBox.String())
	return &p, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values, pulling
// out the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
