package tessellate

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/medvol/pkg/kernel"
)

// BuildTimeout is the default limit for a background shell build.
const BuildTimeout = 30 * time.Second

var (
	// ErrSuperseded is reported for a build overtaken by a newer request.
	ErrSuperseded = errors.New("tessellate: build superseded by newer request")
	// ErrTimeout is reported when a build exceeds its time limit.
	ErrTimeout = errors.New("tessellate: build timed out")
)

// Snapshot is a completed shell build.
type Snapshot struct {
	Key        Key
	Shell      *kernel.Mesh
	Generation uint64
}

type buildResult struct {
	mesh *kernel.Mesh
	err  error
}

// Builder extracts shells off the render loop. Readers always see the last
// completed build through Current, never a partial one.
type Builder struct {
	cache   *Cache
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
	current    atomic.Pointer[Snapshot]
}

// NewBuilder returns a Builder backed by c.
func NewBuilder(c *Cache) *Builder {
	return &Builder{cache: c, Timeout: BuildTimeout}
}

// Current returns the last published snapshot, or nil before the first
// build completes.
func (b *Builder) Current() *Snapshot {
	return b.current.Load()
}

// Request starts building the shell for k. The returned channel receives
// nil once the result is published, or the reason it was not.
func (b *Builder) Request(k Key) <-chan error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.mu.Unlock()

	done := make(chan error, 1)
	ch := make(chan buildResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- buildResult{err: fmt.Errorf("tessellate: panic during build: %v", r)}
			}
		}()
		m, err := b.cache.Shell(k)
		ch <- buildResult{mesh: m, err: err}
	}()

	go func() {
		done <- b.wait(ch, gen, k)
	}()
	return done
}

// wait publishes the build result unless it timed out or a newer request
// was made in the meantime.
func (b *Builder) wait(ch <-chan buildResult, gen uint64, k Key) error {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = BuildTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if gen != b.generation {
			return ErrSuperseded
		}
		b.current.Store(&Snapshot{Key: k, Shell: res.mesh, Generation: gen})
		return nil

	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
