// Package clip defines the axis-aligned clip box applied to both render
// modes. Coordinates are normalized volume space.
package clip

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Box is an axis-aligned box. A box whose Min exceeds Max on any axis is
// empty: nothing passes it.
type Box sdf.Box3

// Unit returns the box covering the whole volume.
func Unit() Box {
	return Box{Min: v3.Vec{}, Max: v3.Vec{X: 1, Y: 1, Z: 1}}
}

// New returns the box spanning min and max.
func New(min, max v3.Vec) Box {
	return Box{Min: min, Max: max}
}

// Empty reports whether the box excludes every point.
func (b Box) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Contains reports whether p lies inside the box, faces included.
func (b Box) Contains(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Clamp returns the point of the box nearest to p. The result is
// meaningless for an empty box.
func (b Box) Clamp(p v3.Vec) v3.Vec {
	return v3.Vec{
		X: math.Min(math.Max(p.X, b.Min.X), b.Max.X),
		Y: math.Min(math.Max(p.Y, b.Min.Y), b.Max.Y),
		Z: math.Min(math.Max(p.Z, b.Min.Z), b.Max.Z),
	}
}

// Size returns the extent of the box on each axis.
func (b Box) Size() v3.Vec {
	return b.Max.Sub(b.Min)
}

// Bounds returns the box as an sdfx bounding box.
func (b Box) Bounds() sdf.Box3 {
	return sdf.Box3(b)
}

// Corners returns the eight corners, indexed by bit mask (bit 0 = X max,
// bit 1 = Y max, bit 2 = Z max).
func (b Box) Corners() [8]v3.Vec {
	var c [8]v3.Vec
	for i := range c {
		c[i] = b.Min
		if i&1 != 0 {
			c[i].X = b.Max.X
		}
		if i&2 != 0 {
			c[i].Y = b.Max.Y
		}
		if i&4 != 0 {
			c[i].Z = b.Max.Z
		}
	}
	return c
}

func (b Box) String() string {
	return fmt.Sprintf("[%.3g %.3g %.3g]-[%.3g %.3g %.3g]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
