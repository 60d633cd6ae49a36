package engine

import (
	"errors"
	"time"

	"github.com/dustpile/fresco/internal/render"
)

// ErrNoFreeBuffer means the compositor is still holding both of a surface's
// shm buffers, so nothing can be presented right now.
var ErrNoFreeBuffer = errors.New("no free buffer")

// OutputInfo describes a display as the compositor advertises it.
type OutputInfo struct {
	ID     uint32
	Name   string
	Desc   string
	Width  int
	Height int
}

// Event is the tagged union the engine's single event loop consumes. The
// compositor backend normalizes protocol callbacks into these values; the
// loop is the only place that reacts to them.
type Event interface {
	isEvent()
}

// OutputAdded announces a new display.
type OutputAdded struct {
	Output OutputInfo
}

// OutputChanged reports a mode or metadata change on a known display.
type OutputChanged struct {
	Output OutputInfo
}

// OutputRemoved announces a disconnected display.
type OutputRemoved struct {
	ID uint32
}

// SurfaceConfigured is the compositor's size grant for an output's surface.
// Nothing may be presented on a surface before its first configure.
type SurfaceConfigured struct {
	OutputID uint32
	Width    uint32
	Height   uint32
}

// SurfaceClosed means the compositor tore the surface down.
type SurfaceClosed struct {
	OutputID uint32
}

// FrameDone is a wl_surface frame callback firing: the compositor is ready
// for the next frame on this output.
type FrameDone struct {
	OutputID uint32
	When     time.Time
}

// BufferReleased fires when the compositor returns one of an output's shm
// buffers.
type BufferReleased struct {
	OutputID uint32
}

// ConnectionLost reports an unrecoverable compositor connection failure,
// typically the session ending.
type ConnectionLost struct {
	Err error
}

func (OutputAdded) isEvent()       {}
func (OutputChanged) isEvent()     {}
func (OutputRemoved) isEvent()     {}
func (SurfaceConfigured) isEvent() {}
func (SurfaceClosed) isEvent()     {}
func (FrameDone) isEvent()         {}
func (BufferReleased) isEvent()    {}
func (ConnectionLost) isEvent()    {}

// Surface is one output's wallpaper surface. Present copies a frame into a
// free shm buffer and commits it; it fails with ErrNoFreeBuffer when the
// compositor still holds both buffers.
type Surface interface {
	// Present commits the frame. When wantCallback is set a wl_surface
	// frame callback is requested so a FrameDone event will follow.
	Present(f *render.Frame, wantCallback bool) error
	Destroy()
}

// Compositor is the engine's window to the display server. The production
// implementation speaks Wayland; tests substitute a fake.
type Compositor interface {
	// Events yields the normalized event stream. The channel closes when
	// the connection is gone.
	Events() <-chan Event
	// CreateSurface builds a background surface on the given output. The
	// surface is not usable until a SurfaceConfigured event arrives for
	// it.
	CreateSurface(out OutputInfo) (Surface, error)
	Close()
}
