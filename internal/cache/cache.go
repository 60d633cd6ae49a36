// Package cache holds recently rendered wallpaper frames so that re-applying
// a wallpaper, or applying one wallpaper across several same-resolution
// outputs, does not decode and scale the image again.
package cache

import (
	"github.com/charmbracelet/log"

	"github.com/dustpile/fresco/internal/render"
	"github.com/dustpile/fresco/internal/spec"
)

// DefaultCapacity bounds resident frames. A 4K frame is about 32MiB, so
// five entries keeps the daemon comfortably under a quarter gigabyte even
// on large displays.
const DefaultCapacity = 5

type entry struct {
	key   spec.RenderKey
	frame *render.Frame
}

// FrameCache is an LRU keyed by render identity. It is not safe for
// concurrent use; the engine owns it from a single goroutine.
type FrameCache struct {
	capacity int
	// Most recently used first. Capacity is small enough that a slice
	// beats a linked list.
	entries []entry
	render  func(spec.RenderKey) (*render.Frame, error)
}

func New() *FrameCache {
	return NewWithCapacity(DefaultCapacity)
}

func NewWithCapacity(capacity int) *FrameCache {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameCache{capacity: capacity, render: render.Render}
}

// SetRenderFunc replaces the render function, used by tests to count and
// fake renders.
func (c *FrameCache) SetRenderFunc(fn func(spec.RenderKey) (*render.Frame, error)) {
	c.render = fn
}

// GetOrRender returns the cached frame for key, rendering and inserting it
// on a miss. Render failures are returned without disturbing the cache.
// Callers must treat the returned frame as immutable; Clone it before
// writing.
func (c *FrameCache) GetOrRender(key spec.RenderKey) (*render.Frame, error) {
	for i, e := range c.entries {
		if e.key == key {
			c.touch(i)
			return e.frame, nil
		}
	}
	frame, err := c.render(key)
	if err != nil {
		return nil, err
	}
	c.insert(key, frame)
	return frame, nil
}

// Peek reports whether the key is resident without affecting recency.
func (c *FrameCache) Peek(key spec.RenderKey) bool {
	for _, e := range c.entries {
		if e.key == key {
			return true
		}
	}
	return false
}

func (c *FrameCache) Len() int { return len(c.entries) }

// InvalidateResolution drops every entry rendered at the given size. Called
// when an output changes mode so stale geometry never gets re-presented.
func (c *FrameCache) InvalidateResolution(width, height int) {
	kept := c.entries[:0]
	dropped := 0
	for _, e := range c.entries {
		if e.key.Width == width && e.key.Height == height {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	c.entries = kept
	if dropped > 0 {
		log.Debugf("cache: invalidated %d frames at %dx%d", dropped, width, height)
	}
}

func (c *FrameCache) Clear() {
	c.entries = c.entries[:0]
}

func (c *FrameCache) touch(i int) {
	if i == 0 {
		return
	}
	e := c.entries[i]
	copy(c.entries[1:i+1], c.entries[:i])
	c.entries[0] = e
}

func (c *FrameCache) insert(key spec.RenderKey, frame *render.Frame) {
	if len(c.entries) >= c.capacity {
		evicted := c.entries[len(c.entries)-1]
		log.Debugf("cache: evicting %s", evicted.key)
		c.entries = c.entries[:len(c.entries)-1]
	}
	c.entries = append(c.entries, entry{})
	copy(c.entries[1:], c.entries[:len(c.entries)-1])
	c.entries[0] = entry{key: key, frame: frame}
}
