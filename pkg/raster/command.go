package raster

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidCommand is returned by Submit for a command list that cannot be
// executed. Nothing is drawn in that case.
var ErrInvalidCommand = errors.New("raster: invalid command")

// Kind identifies the operation a command performs.
type Kind int

const (
	KindDraw Kind = iota
	KindClearColor
	KindClearDepth
	KindClearStencil
)

func (k Kind) String() string {
	switch k {
	case KindDraw:
		return "draw"
	case KindClearColor:
		return "clear-color"
	case KindClearDepth:
		return "clear-depth"
	case KindClearStencil:
		return "clear-stencil"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// CompareFunc is a depth or stencil comparison. The incoming value is on the
// left: Less passes when incoming < stored.
type CompareFunc int

const (
	Always CompareFunc = iota
	Never
	Less
	LessEqual
	Equal
	NotEqual
	Greater
	GreaterEqual
)

func compare[T int32 | float64](f CompareFunc, in, stored T) bool {
	switch f {
	case Never:
		return false
	case Less:
		return in < stored
	case LessEqual:
		return in <= stored
	case Equal:
		return in == stored
	case NotEqual:
		return in != stored
	case Greater:
		return in > stored
	case GreaterEqual:
		return in >= stored
	}
	return true
}

// StencilOp updates the stencil value of a fragment that passed both tests.
// Incr and Decr wrap instead of saturating, so counts may go negative.
type StencilOp int

const (
	Keep StencilOp = iota
	Zero
	Incr
	Decr
)

func (op StencilOp) apply(s int32) int32 {
	switch op {
	case Zero:
		return 0
	case Incr:
		return s + 1
	case Decr:
		return s - 1
	}
	return s
}

// Cull selects which triangle facing is skipped. Front faces wind counter
// clockwise in normalized device coordinates.
type Cull int

const (
	CullNone Cull = iota
	CullBack
	CullFront
)

// DepthState configures the depth test.
type DepthState struct {
	Test  bool
	Func  CompareFunc
	Write bool
}

// StencilState configures the stencil test. The incoming value is Ref.
type StencilState struct {
	Test bool
	Func CompareFunc
	Ref  int32
	Pass StencilOp
}

// Fragment is one covered pixel of a triangle with perspective-correct
// attributes in model space.
type Fragment struct {
	X, Y     int
	Depth    float64
	Position v3.Vec
	Normal   v3.Vec // interpolated, not normalized
	ClipDist float64
	Front    bool
}

// Shader colors a fragment. Returning false discards it before any depth
// or stencil update.
type Shader interface {
	Shade(f Fragment) (mgl64.Vec4, bool)
}

// ShaderFunc adapts a function to the Shader interface.
type ShaderFunc func(f Fragment) (mgl64.Vec4, bool)

// Shade calls s(f).
func (s ShaderFunc) Shade(f Fragment) (mgl64.Vec4, bool) {
	return s(f)
}

// Command is one step of a frame: a clear or a draw with its full pipeline
// state.
type Command struct {
	Name       string
	Kind       Kind
	Mesh       *kernel.Mesh
	Shader     Shader
	Cull       Cull
	Depth      DepthState
	Stencil    StencilState
	ColorWrite bool
	// Clip discards fragments whose model-space position lies outside it.
	Clip *clip.Box
	// Clear is the fill color of KindClearColor.
	Clear color.RGBA
}

func (c Command) validate() error {
	if c.Kind != KindDraw {
		if c.Kind < KindDraw || c.Kind > KindClearStencil {
			return fmt.Errorf("%w: %q has unknown kind %s", ErrInvalidCommand, c.Name, c.Kind)
		}
		return nil
	}
	if c.Mesh == nil {
		return fmt.Errorf("%w: draw %q has no mesh", ErrInvalidCommand, c.Name)
	}
	if c.ColorWrite && c.Shader == nil {
		return fmt.Errorf("%w: draw %q writes color without a shader", ErrInvalidCommand, c.Name)
	}
	if len(c.Mesh.Normals) != len(c.Mesh.Vertices) {
		return fmt.Errorf("%w: draw %q has %d normals for %d vertex floats",
			ErrInvalidCommand, c.Name, len(c.Mesh.Normals), len(c.Mesh.Vertices))
	}
	for _, i := range c.Mesh.Indices {
		if int(i) >= c.Mesh.VertexCount() {
			return fmt.Errorf("%w: draw %q indexes vertex %d of %d", ErrInvalidCommand, c.Name, i, c.Mesh.VertexCount())
		}
	}
	return nil
}

// List is an ordered command list submitted as a unit.
type List struct {
	Commands []Command
}

// Add appends c.
func (l *List) Add(c Command) {
	l.Commands = append(l.Commands, c)
}

// Validate checks every command without executing any.
func (l *List) Validate() error {
	for _, c := range l.Commands {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}
