package engine

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dustpile/fresco/internal/anim"
	"github.com/dustpile/fresco/internal/render"
	"github.com/dustpile/fresco/internal/spec"
)

// outputCtl is the engine's per-output state: the surface, what is on it,
// and the transition moving it somewhere else. Only the engine goroutine
// touches it.
type outputCtl struct {
	info       OutputInfo
	surface    Surface
	configured bool
	width      int
	height     int

	// painted is false until the first buffer lands. The first paint on
	// a fresh surface is never animated.
	painted bool
	// current is the last fully settled frame, shared with the cache.
	// Treated as read-only.
	current     *render.Frame
	currentSpec spec.Spec
	hasSpec     bool
	// pending holds a command that arrived before the first configure.
	pending *spec.Spec

	trans         *anim.Transition
	awaitingFrame bool
	lastPresent   time.Time
	// starved means the last present found both buffers busy; retried
	// on the next buffer release.
	starved bool
}

func (ctl *outputCtl) describe() string {
	if !ctl.hasSpec {
		return "unset"
	}
	return ctl.currentSpec.String()
}

// apply fans a command out to its target outputs, collecting one result
// each. A render failure on one output leaves the rest untouched.
func (e *Engine) apply(s spec.Spec) []ApplyResult {
	if s.Output == "" {
		// All-output commands become the warmup wallpaper for displays
		// that appear later.
		e.desired = s
		e.hasDesired = true
	}

	var results []ApplyResult
	matched := false
	for _, ctl := range e.outputs {
		if s.Output != "" && ctl.info.Name != s.Output {
			continue
		}
		matched = true
		results = append(results, e.applyTo(ctl, s))
	}
	if s.Output != "" && !matched {
		results = append(results, ApplyResult{Output: s.Output, Error: "unknown output"})
	}
	return results
}

func (e *Engine) applyTo(ctl *outputCtl, s spec.Spec) ApplyResult {
	name := ctl.info.Name
	if ctl.surface == nil || !ctl.configured {
		// Hold the command until the surface is ready.
		held := s
		ctl.pending = &held
		return ApplyResult{Output: name, OK: true}
	}
	if err := e.startTransition(ctl, s, e.now()); err != nil {
		log.Errorf("output %s: %v", name, err)
		return ApplyResult{Output: name, Error: err.Error()}
	}
	return ApplyResult{Output: name, OK: true}
}

// startTransition renders the target frame and begins moving the output
// toward it. A command landing mid-transition starts from the exact frame
// currently on screen.
func (e *Engine) startTransition(ctl *outputCtl, s spec.Spec, now time.Time) error {
	key, err := s.Key(ctl.width, ctl.height)
	if err != nil {
		return err
	}
	target, err := e.frames.GetOrRender(key)
	if err != nil {
		return err
	}
	ctl.currentSpec = s
	ctl.hasSpec = true

	if !ctl.painted {
		err := ctl.surface.Present(target, false)
		if errors.Is(err, ErrNoFreeBuffer) {
			// Both buffers are still with the compositor. The paint
			// resumes on the next release.
			ctl.starved = true
			return nil
		}
		if err != nil {
			return err
		}
		ctl.painted = true
		ctl.current = target
		ctl.trans = nil
		ctl.awaitingFrame = false
		ctl.lastPresent = now
		log.Debugf("output %s: first paint %s", ctl.info.Name, s)
		return nil
	}

	from := ctl.current
	if ctl.trans != nil {
		// Superseded mid-animation: capture the composited frame as
		// it stands. The sample buffer is reused, so take a copy.
		sampled, _ := ctl.trans.Sample(now)
		from = sampled.Clone()
	}
	switch s.Kind {
	case spec.KindColour:
		ctl.trans = anim.NewToSolid(from, s.Colour, target, s.Transition, now)
	case spec.KindNone:
		ctl.trans = anim.NewToSolid(from, spec.RGB{}, target, s.Transition, now)
	default:
		ctl.trans = anim.New(from, target, s.Transition, now)
	}
	log.Debugf("output %s: %s over %dms", ctl.info.Name, s, s.Transition.Duration)
	e.present(ctl, now)
	return nil
}

// present pushes the transition's current sample to the surface. Buffer
// starvation skips the frame and retries on release; animation progress is
// tracked by time, so skipped frames are never "owed".
func (e *Engine) present(ctl *outputCtl, now time.Time) {
	if ctl.trans == nil || ctl.surface == nil {
		return
	}
	frame, done := ctl.trans.Sample(now)
	err := ctl.surface.Present(frame, !done)
	if errors.Is(err, ErrNoFreeBuffer) {
		ctl.starved = true
		return
	}
	if err != nil {
		log.Errorf("output %s: present: %v", ctl.info.Name, err)
		ctl.trans = nil
		return
	}
	ctl.lastPresent = now
	ctl.awaitingFrame = !done
	if done {
		ctl.current = ctl.trans.Target()
		ctl.trans = nil
	}
}

func (e *Engine) addOutput(info OutputInfo) {
	if _, ok := e.outputs[info.ID]; ok {
		return
	}
	ctl := &outputCtl{info: info}
	e.outputs[info.ID] = ctl

	surf, err := e.comp.CreateSurface(info)
	if err != nil {
		log.Errorf("output %s: create surface: %v", info.Name, err)
		return
	}
	ctl.surface = surf
}

func (e *Engine) changeOutput(info OutputInfo) {
	ctl := e.outputs[info.ID]
	if ctl == nil {
		e.addOutput(info)
		return
	}
	ctl.info = info
	// A mode change makes the compositor reconfigure the anchored
	// surface; the repaint happens there.
}

func (e *Engine) removeOutput(id uint32) {
	ctl := e.outputs[id]
	if ctl == nil {
		return
	}
	if ctl.surface != nil {
		ctl.surface.Destroy()
	}
	delete(e.outputs, id)
}

// configureSurface handles the compositor's size grant. The first
// configure triggers the warmup paint; a resize invalidates stale frames
// and repaints without animation.
func (e *Engine) configureSurface(ev SurfaceConfigured) {
	ctl := e.outputs[ev.OutputID]
	if ctl == nil {
		return
	}
	w, h := int(ev.Width), int(ev.Height)
	if w == 0 || h == 0 {
		w, h = ctl.info.Width, ctl.info.Height
	}

	first := !ctl.configured
	resized := ctl.configured && (w != ctl.width || h != ctl.height)
	oldW, oldH := ctl.width, ctl.height
	ctl.configured = true
	ctl.width, ctl.height = w, h

	if resized {
		if !e.resolutionLive(oldW, oldH) {
			e.frames.InvalidateResolution(oldW, oldH)
		}
		ctl.painted = false
		ctl.trans = nil
		ctl.awaitingFrame = false
		ctl.starved = false
		ctl.current = nil
	}
	if !first && !resized {
		return
	}

	s, ok := ctl.nextSpec(e)
	if !ok {
		// No wallpaper yet. Map the surface with a blank frame so its
		// buffers exist before the first command arrives.
		e.warm(ctl)
		return
	}
	if err := e.startTransition(ctl, s, e.now()); err != nil {
		log.Errorf("output %s: warmup: %v", ctl.info.Name, err)
	}
}

// resolutionLive reports whether any output still runs at the given size,
// keeping its cached frames worth holding on to.
func (e *Engine) resolutionLive(w, h int) bool {
	for _, ctl := range e.outputs {
		if ctl.configured && ctl.width == w && ctl.height == h {
			return true
		}
	}
	return false
}

// nextSpec picks what a freshly configured surface should show: a command
// held during configure, the output's own wallpaper after a resize, or the
// daemon-wide wallpaper for warmup.
func (ctl *outputCtl) nextSpec(e *Engine) (spec.Spec, bool) {
	switch {
	case ctl.pending != nil:
		s := *ctl.pending
		ctl.pending = nil
		return s, true
	case ctl.hasSpec:
		return ctl.currentSpec, true
	case e.hasDesired:
		return e.desired, true
	}
	return spec.Spec{}, false
}

// warm attaches a blank frame to a freshly configured surface, allocating
// its buffers ahead of the first command. The blank frame does not count
// as a paint, so the first wallpaper still lands unanimated.
func (e *Engine) warm(ctl *outputCtl) {
	blank := render.NewFrame(ctl.width, ctl.height)
	err := ctl.surface.Present(blank, false)
	if errors.Is(err, ErrNoFreeBuffer) {
		ctl.starved = true
		return
	}
	if err != nil {
		log.Errorf("output %s: warm: %v", ctl.info.Name, err)
		return
	}
	ctl.lastPresent = e.now()
	log.Debugf("output %s: warmed %dx%d", ctl.info.Name, ctl.width, ctl.height)
}

// repaint resumes whatever presentation was starved of buffers.
func (e *Engine) repaint(ctl *outputCtl) {
	if ctl.surface == nil || !ctl.configured {
		return
	}
	switch {
	case ctl.trans != nil:
		e.present(ctl, e.now())
	case ctl.hasSpec:
		if err := e.startTransition(ctl, ctl.currentSpec, e.now()); err != nil {
			log.Errorf("output %s: repaint: %v", ctl.info.Name, err)
		}
	default:
		e.warm(ctl)
	}
}

// closeSurface reacts to the compositor destroying a surface out from
// under us. If the output still exists the surface is rebuilt.
func (e *Engine) closeSurface(id uint32) {
	ctl := e.outputs[id]
	if ctl == nil {
		return
	}
	log.Warnf("output %s: surface closed by compositor", ctl.info.Name)
	if ctl.surface != nil {
		ctl.surface.Destroy()
	}
	ctl.surface = nil
	ctl.configured = false
	ctl.painted = false
	ctl.trans = nil
	ctl.awaitingFrame = false
	ctl.starved = false

	surf, err := e.comp.CreateSurface(ctl.info)
	if err != nil {
		log.Errorf("output %s: recreate surface: %v", ctl.info.Name, err)
		return
	}
	ctl.surface = surf
}
