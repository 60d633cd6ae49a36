// Package anim drives timed wallpaper transitions. A Transition is sampled
// with wall-clock times supplied by the caller, so the engine's pacing (and
// the tests' fake clock) fully determine which frames get produced.
package anim

import (
	"time"

	"github.com/dustpile/fresco/internal/render"
	"github.com/dustpile/fresco/internal/spec"
)

// Transition composites between two frames of identical dimensions over a
// fixed duration. Progress is a pure function of the sample time, never of
// how many samples occurred, so dropped frames shorten the animation's
// smoothness but not its length.
type Transition struct {
	from     *render.Frame
	to       *render.Frame
	kind     spec.Transition
	dir      spec.Direction
	start    time.Time
	duration time.Duration

	// Solid destination fast path for fades to a flat colour.
	toSolid bool
	solid   uint32

	// Scratch output reused across samples.
	out *render.Frame
}

// New starts a transition at the given instant. A none kind or
// non-positive duration completes immediately.
func New(from, to *render.Frame, tr spec.TransitionSpec, start time.Time) *Transition {
	return &Transition{
		from:     from,
		to:       to,
		kind:     tr.Effective(),
		dir:      tr.From,
		start:    start,
		duration: spec.DurationMS(tr.Duration),
	}
}

// NewToSolid starts a transition whose destination is a flat colour. Fades
// blend against the constant pixel instead of reading the target frame on
// every sample; wipes and the finished state still use the target frame.
func NewToSolid(from *render.Frame, colour spec.RGB, target *render.Frame, tr spec.TransitionSpec, start time.Time) *Transition {
	t := New(from, target, tr, start)
	if t.kind == spec.TransitionFade {
		t.toSolid = true
		t.solid = colour.XRGB()
	}
	return t
}

// Target returns the destination frame.
func (t *Transition) Target() *render.Frame { return t.to }

// Sample returns the composited frame for the given instant and whether
// the transition has finished. Once finished it keeps returning the target
// frame. The returned frame is only valid until the next Sample call.
func (t *Transition) Sample(now time.Time) (*render.Frame, bool) {
	if t.kind == spec.TransitionNone || !now.Before(t.start.Add(t.duration)) {
		return t.to, true
	}
	progress := float64(now.Sub(t.start)) / float64(t.duration)
	if progress < 0 {
		progress = 0
	}
	tt := easedT256(progress)
	if tt >= 256 {
		return t.to, true
	}

	if t.out == nil {
		t.out = render.NewFrame(t.to.Width, t.to.Height)
	}
	switch t.kind {
	case spec.TransitionFade:
		if t.toSolid {
			fadeSolidInto(t.out, t.from, t.solid, tt)
		} else {
			fadeInto(t.out, t.from, t.to, tt)
		}
	case spec.TransitionWipe:
		wipeInto(t.out, t.from, t.to, tt, t.dir)
	default:
		return t.to, true
	}
	return t.out, false
}

// easedT256 maps linear progress in [0,1] through ease-out cubic onto the
// fixed-point blend range 0..256.
func easedT256(progress float64) uint32 {
	if progress >= 1 {
		return 256
	}
	p := progress - 1
	eased := p*p*p + 1
	tt := uint32(eased*256 + 0.5)
	if tt > 256 {
		tt = 256
	}
	return tt
}

// fadeInto blends every pixel with 8-bit fixed point weights. The two
// colour channel groups are interpolated in parallel within one uint32.
func fadeInto(dst, from, to *render.Frame, tt uint32) {
	inv := 256 - tt
	fp := from.Pix
	tp := to.Pix
	dp := dst.Pix
	for i := range dp {
		a := fp[i]
		b := tp[i]
		rb := ((a&0x00FF00FF)*inv + (b&0x00FF00FF)*tt) >> 8 & 0x00FF00FF
		g := ((a&0x0000FF00)*inv + (b&0x0000FF00)*tt) >> 8 & 0x0000FF00
		dp[i] = rb | g
	}
}

// fadeSolidInto blends every pixel toward one constant colour.
func fadeSolidInto(dst, from *render.Frame, solid, tt uint32) {
	inv := 256 - tt
	srb := (solid & 0x00FF00FF) * tt
	sg := (solid & 0x0000FF00) * tt
	fp := from.Pix
	dp := dst.Pix
	for i := range dp {
		a := fp[i]
		rb := ((a&0x00FF00FF)*inv + srb) >> 8 & 0x00FF00FF
		g := ((a&0x0000FF00)*inv + sg) >> 8 & 0x0000FF00
		dp[i] = rb | g
	}
}

// wipeInto reveals tt/256 of the target's columns from the chosen edge.
func wipeInto(dst, from, to *render.Frame, tt uint32, dir spec.Direction) {
	w := dst.Width
	cols := int(uint32(w) * tt / 256)
	for y := 0; y < dst.Height; y++ {
		row := dst.Pix[y*w : (y+1)*w]
		fromRow := from.Pix[y*w : (y+1)*w]
		toRow := to.Pix[y*w : (y+1)*w]
		if dir == spec.DirectionRight {
			copy(row[:w-cols], fromRow[:w-cols])
			copy(row[w-cols:], toRow[w-cols:])
		} else {
			copy(row[:cols], toRow[:cols])
			copy(row[cols:], fromRow[cols:])
		}
	}
}
