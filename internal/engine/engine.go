// Package engine is the daemon's core: one goroutine that owns every
// output surface, the frame cache, and all in-flight transitions. Commands
// from the control socket and events from the compositor are serialized
// onto the same loop, so per-output state never needs locking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dustpile/fresco/internal/cache"
	"github.com/dustpile/fresco/internal/spec"
)

// Config carries the engine's tunables, resolved from the daemon's config
// file before startup. Transition durations are not here: each command
// arrives with its duration already resolved.
type Config struct {
	// FramerateLimit caps how many animation frames per second get
	// composited.
	FramerateLimit int
	// FrameGrace bounds how long a missing frame callback stalls an
	// animation before the engine falls back to timer pacing. Some
	// compositors throttle callbacks for occluded surfaces.
	FrameGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.FramerateLimit <= 0 {
		c.FramerateLimit = 60
	}
	if c.FrameGrace <= 0 {
		c.FrameGrace = 100 * time.Millisecond
	}
	return c
}

// ApplyResult reports the outcome of a command on one output. A failure on
// one output never blocks the others.
type ApplyResult struct {
	Output string `json:"output"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// OutputStatus is one output's entry in a status report.
type OutputStatus struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Wallpaper string `json:"wallpaper"`
	Animating bool   `json:"animating"`
}

// StatusReport summarizes the engine for the status command.
type StatusReport struct {
	Outputs      []OutputStatus `json:"outputs"`
	CachedFrames int            `json:"cached_frames"`
}

type applyCmd struct {
	spec  spec.Spec
	reply chan []ApplyResult
}

type statusCmd struct {
	reply chan StatusReport
}

type stopCmd struct{}

// Engine runs the event loop. Construct with New, drive with Run, and talk
// to it through Apply, Status and Stop from any goroutine.
type Engine struct {
	comp   Compositor
	cfg    Config
	frames *cache.FrameCache

	cmds chan any
	done chan struct{}

	// Test seams. Production uses the wall clock and a real ticker.
	now      func() time.Time
	tick     <-chan time.Time
	stopTick func()

	outputs map[uint32]*outputCtl
	// desired is the wallpaper new outputs warm up with. It tracks the
	// most recent all-output command.
	desired    spec.Spec
	hasDesired bool
}

// Option adjusts an Engine at construction, mostly for tests.
type Option func(*Engine)

// WithClock substitutes the time source used for transition sampling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTick substitutes the pacing ticker channel.
func WithTick(ch <-chan time.Time) Option {
	return func(e *Engine) {
		e.tick = ch
		e.stopTick = func() {}
	}
}

func New(comp Compositor, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		comp:    comp,
		cfg:     cfg.withDefaults(),
		frames:  cache.New(),
		cmds:    make(chan any),
		done:    make(chan struct{}),
		outputs: make(map[uint32]*outputCtl),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.tick == nil {
		t := time.NewTicker(time.Second / time.Duration(e.cfg.FramerateLimit))
		e.tick = t.C
		e.stopTick = t.Stop
	}
	return e
}

// Run processes events and commands until Stop is called, the context is
// cancelled, or the compositor connection dies.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.stopTick()
	defer e.destroyAll()

	events := e.comp.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-e.tick:
			e.animate(now)
		case c := <-e.cmds:
			switch c := c.(type) {
			case applyCmd:
				c.reply <- e.apply(c.spec)
			case statusCmd:
				c.reply <- e.status()
			case stopCmd:
				log.Info("stop requested")
				return nil
			}
		case ev, ok := <-events:
			if !ok {
				return errors.New("compositor event stream closed")
			}
			if err := e.handleEvent(ev); err != nil {
				return err
			}
		}
	}
}

// Apply submits a wallpaper command and waits for per-output results.
func (e *Engine) Apply(ctx context.Context, s spec.Spec) ([]ApplyResult, error) {
	cmd := applyCmd{spec: s, reply: make(chan []ApplyResult, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return nil, errors.New("engine stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-e.done:
		return nil, errors.New("engine stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status reports the engine's outputs and cache occupancy.
func (e *Engine) Status(ctx context.Context) (StatusReport, error) {
	cmd := statusCmd{reply: make(chan StatusReport, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return StatusReport{}, errors.New("engine stopped")
	case <-ctx.Done():
		return StatusReport{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, nil
	case <-e.done:
		return StatusReport{}, errors.New("engine stopped")
	case <-ctx.Done():
		return StatusReport{}, ctx.Err()
	}
}

// Stop asks the loop to exit. It is safe to call more than once.
func (e *Engine) Stop() {
	select {
	case e.cmds <- stopCmd{}:
	case <-e.done:
	}
}

func (e *Engine) handleEvent(ev Event) error {
	switch ev := ev.(type) {
	case OutputAdded:
		e.addOutput(ev.Output)
	case OutputChanged:
		e.changeOutput(ev.Output)
	case OutputRemoved:
		e.removeOutput(ev.ID)
	case SurfaceConfigured:
		e.configureSurface(ev)
	case SurfaceClosed:
		e.closeSurface(ev.OutputID)
	case FrameDone:
		if ctl := e.outputs[ev.OutputID]; ctl != nil {
			ctl.awaitingFrame = false
		}
	case BufferReleased:
		if ctl := e.outputs[ev.OutputID]; ctl != nil && ctl.starved {
			ctl.starved = false
			e.repaint(ctl)
		}
	case ConnectionLost:
		return fmt.Errorf("compositor connection lost: %w", ev.Err)
	}
	return nil
}

// animate advances every in-flight transition that is due for a frame.
func (e *Engine) animate(now time.Time) {
	for _, ctl := range e.outputs {
		if ctl.trans == nil {
			continue
		}
		// Callback pacing: while a frame callback is outstanding and
		// fresh, let the compositor set the tempo. Past the grace
		// window, fall back to the ticker so a throttled surface
		// still finishes its transition.
		if ctl.awaitingFrame && now.Sub(ctl.lastPresent) < e.cfg.FrameGrace {
			continue
		}
		e.present(ctl, now)
	}
}

func (e *Engine) status() StatusReport {
	report := StatusReport{CachedFrames: e.frames.Len()}
	for _, ctl := range e.outputs {
		report.Outputs = append(report.Outputs, OutputStatus{
			Name:      ctl.info.Name,
			Width:     ctl.width,
			Height:    ctl.height,
			Wallpaper: ctl.describe(),
			Animating: ctl.trans != nil,
		})
	}
	return report
}

func (e *Engine) destroyAll() {
	for id, ctl := range e.outputs {
		if ctl.surface != nil {
			ctl.surface.Destroy()
		}
		delete(e.outputs, id)
	}
	e.comp.Close()
}
