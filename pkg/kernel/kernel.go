// Package kernel defines the surface extraction interface and the mesh
// operations shared by its backends (marching, sdfx). Backends turn a scalar
// volume and a density band into a closed, consistently wound triangle shell.
package kernel

import (
	"github.com/chazu/medvol/pkg/volume"
)

// Extractor builds the shell of the region of v whose density lies in b.
// A degenerate band yields an empty mesh and no error.
type Extractor interface {
	Extract(v *volume.Volume, b volume.Band) (*Mesh, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(v *volume.Volume, b volume.Band) (*Mesh, error)

// Extract calls f(v, b).
func (f ExtractorFunc) Extract(v *volume.Volume, b volume.Band) (*Mesh, error) {
	return f(v, b)
}
