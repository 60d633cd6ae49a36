package wayland

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/neurlang/wayland/wl"

	"github.com/dustpile/fresco/internal/engine"
	"github.com/dustpile/fresco/internal/render"
	"github.com/dustpile/fresco/internal/wayland/layershell"
)

// surface is one output's wallpaper surface with its pair of shm buffers.
// All mutable state is guarded by the client mutex since protocol events
// land on the dispatch goroutine while the engine calls Present.
type surface struct {
	client    *Client
	outputID  uint32
	wlSurface *wl.Surface
	layer     *layershell.LayerSurface

	buffers      [2]*shmBuffer
	framePending bool
	closed       bool
}

var _ engine.Surface = (*surface)(nil)

func (s *surface) Present(f *render.Frame, wantCallback bool) error {
	c := s.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.closed {
		return errors.New("surface is closed")
	}
	buf, err := s.freeBuffer(f.Width, f.Height)
	if err != nil {
		return err
	}
	if err := buf.write(f); err != nil {
		return err
	}

	if wantCallback && !s.framePending {
		cb, err := s.wlSurface.Frame()
		if err != nil {
			return fmt.Errorf("request frame callback: %w", err)
		}
		cb.AddDoneHandler(s)
		s.framePending = true
	}

	s.wlSurface.Attach(buf.buf, 0, 0)
	s.wlSurface.Damage(0, 0, int32(f.Width), int32(f.Height))
	s.wlSurface.Commit()
	buf.busy = true
	return nil
}

// freeBuffer returns a writable buffer of the given size, creating or
// resizing a slot as needed. Both slots busy means the compositor is
// holding on to our frames.
func (s *surface) freeBuffer(width, height int) (*shmBuffer, error) {
	for i, b := range s.buffers {
		if b != nil && b.busy {
			continue
		}
		if b != nil && (b.width != width || b.height != height) {
			b.destroy()
			s.buffers[i] = nil
			b = nil
		}
		if b == nil {
			nb, err := newShmBuffer(s.client.shm, width, height)
			if err != nil {
				return nil, err
			}
			nb.buf.AddReleaseHandler(&bufferRelease{s: s, b: nb})
			s.buffers[i] = nb
			b = nb
		}
		return b, nil
	}
	return nil, engine.ErrNoFreeBuffer
}

func (s *surface) Destroy() {
	c := s.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.layer.Destroy()
	s.wlSurface.Destroy()
	for i, b := range s.buffers {
		if b != nil {
			b.destroy()
			s.buffers[i] = nil
		}
	}
	delete(c.surfaces, s.outputID)
}

func (s *surface) HandleLayerSurfaceConfigure(ev layershell.LayerSurfaceConfigureEvent) {
	s.client.mu.Lock()
	if err := s.layer.AckConfigure(ev.Serial); err != nil {
		log.Errorf("ack configure: %v", err)
	}
	s.client.mu.Unlock()
	s.client.events <- engine.SurfaceConfigured{OutputID: s.outputID, Width: ev.Width, Height: ev.Height}
}

func (s *surface) HandleLayerSurfaceClosed(layershell.LayerSurfaceClosedEvent) {
	s.client.events <- engine.SurfaceClosed{OutputID: s.outputID}
}

func (s *surface) HandleCallbackDone(ev wl.CallbackDoneEvent) {
	s.client.mu.Lock()
	s.framePending = false
	s.client.mu.Unlock()
	s.client.events <- engine.FrameDone{OutputID: s.outputID, When: time.Now()}
}

// bufferRelease flips one buffer back to writable when the compositor
// returns it.
type bufferRelease struct {
	s *surface
	b *shmBuffer
}

func (r *bufferRelease) HandleBufferRelease(wl.BufferReleaseEvent) {
	r.s.client.mu.Lock()
	spurious := !r.b.busy
	r.b.busy = false
	r.s.client.mu.Unlock()
	if spurious {
		// A release for a buffer we never committed breaks the
		// busy/free discipline. Rebuild the surface instead of
		// trusting the pair's state.
		log.Warnf("output %d: spurious buffer release, rebuilding surface", r.s.outputID)
		r.s.client.events <- engine.SurfaceClosed{OutputID: r.s.outputID}
		return
	}
	r.s.client.events <- engine.BufferReleased{OutputID: r.s.outputID}
}
