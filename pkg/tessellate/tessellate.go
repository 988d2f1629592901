// Package tessellate turns render parameters into shell and cap meshes,
// rebuilding each only when the parameters it depends on change.
package tessellate

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/medvol/pkg/clip"
	"github.com/chazu/medvol/pkg/kernel"
	"github.com/chazu/medvol/pkg/logging"
	"github.com/chazu/medvol/pkg/volume"
)

// Key holds the parameters the shell mesh depends on.
type Key struct {
	IsoLevel  float64
	IsoRange  float64
	Smoothing bool
}

// Band returns the density band selected by the key.
func (k Key) Band() volume.Band {
	return volume.NewBand(k.IsoLevel, k.IsoRange)
}

// Stats counts cache activity.
type Stats struct {
	ShellBuilds int
	CapBuilds   int
	Hits        int
	LastBuild   time.Duration
}

// Cache owns the meshes derived from one volume. The shell is rebuilt only
// when its Key changes; the cap only when the Key or the clip box changes.
// Safe for concurrent use.
type Cache struct {
	vol *volume.Volume
	ext kernel.Extractor

	mu        sync.Mutex
	shellKey  Key
	shell     *kernel.Mesh
	capKey    Key
	capBox    clip.Box
	cap       *kernel.Mesh
	stats     Stats
	haveShell bool
	haveCap   bool
}

// NewCache returns an empty cache extracting from v with ext.
func NewCache(v *volume.Volume, ext kernel.Extractor) *Cache {
	return &Cache{vol: v, ext: ext}
}

// Shell returns the shell mesh for k, extracting it if k differs from the
// key of the cached shell.
func (c *Cache) Shell(k Key) (*kernel.Mesh, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shellLocked(k)
}

func (c *Cache) shellLocked(k Key) (*kernel.Mesh, error) {
	if c.haveShell && c.shellKey == k {
		c.stats.Hits++
		return c.shell, nil
	}

	start := time.Now()
	m, err := c.ext.Extract(c.vol, k.Band())
	if err != nil {
		return nil, fmt.Errorf("tessellate: extract shell (level %.3f, range %.3f): %w", k.IsoLevel, k.IsoRange, err)
	}
	if k.Smoothing {
		m = kernel.SmoothNormals(m)
	}
	m.Name = "shell"

	c.shell, c.shellKey, c.haveShell = m, k, true
	c.haveCap = false
	c.stats.ShellBuilds++
	c.stats.LastBuild = time.Since(start)

	logging.Logger().Info("shell rebuilt",
		"level", k.IsoLevel, "range", k.IsoRange, "smoothing", k.Smoothing,
		"triangles", m.TriangleCount(), "elapsed", c.stats.LastBuild)
	return m, nil
}

// Cap returns the cap mesh for k clipped to box.
func (c *Cache) Cap(k Key, box clip.Box) (*kernel.Mesh, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	shell, err := c.shellLocked(k)
	if err != nil {
		return nil, err
	}
	if c.haveCap && c.capKey == k && c.capBox == box {
		c.stats.Hits++
		return c.cap, nil
	}

	c.cap = kernel.ClampToBox(shell, box, c.vol.Dims())
	c.capKey, c.capBox, c.haveCap = k, box, true
	c.stats.CapBuilds++
	logging.Logger().Debug("cap rebuilt", "box", box.String(), "triangles", c.cap.TriangleCount())
	return c.cap, nil
}

// Stats returns a copy of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
