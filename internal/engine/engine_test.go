package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dustpile/fresco/internal/render"
	"github.com/dustpile/fresco/internal/spec"
)

// fakeCompositor drives the engine without a display server. Tests feed
// events through an unbuffered channel, so a completed send means the loop
// has fully handled the event before it can accept the next command.
type fakeCompositor struct {
	mu       sync.Mutex
	events   chan Event
	surfaces map[uint32]*fakeSurface
	closed   bool
}

func newFakeCompositor() *fakeCompositor {
	return &fakeCompositor{
		events:   make(chan Event),
		surfaces: make(map[uint32]*fakeSurface),
	}
}

func (c *fakeCompositor) Events() <-chan Event { return c.events }

func (c *fakeCompositor) CreateSurface(out OutputInfo) (Surface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &fakeSurface{id: out.ID}
	c.surfaces[out.ID] = s
	return s, nil
}

func (c *fakeCompositor) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeCompositor) surface(id uint32) *fakeSurface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfaces[id]
}

type presented struct {
	width    int
	height   int
	pixel    uint32
	callback bool
}

type fakeSurface struct {
	mu        sync.Mutex
	id        uint32
	presents  []presented
	destroyed bool
	starve    bool
}

func (s *fakeSurface) Present(f *render.Frame, wantCallback bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.starve {
		return ErrNoFreeBuffer
	}
	s.presents = append(s.presents, presented{f.Width, f.Height, f.Pix[0], wantCallback})
	return nil
}

func (s *fakeSurface) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
}

func (s *fakeSurface) setStarve(v bool) {
	s.mu.Lock()
	s.starve = v
	s.mu.Unlock()
}

func (s *fakeSurface) history() []presented {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]presented(nil), s.presents...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	t      *testing.T
	comp   *fakeCompositor
	eng    *Engine
	clk    *fakeClock
	ticks  chan time.Time
	runErr chan error
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	comp := newFakeCompositor()
	clk := &fakeClock{now: epoch}
	ticks := make(chan time.Time)
	eng := New(comp, Config{FrameGrace: 100 * time.Millisecond},
		WithClock(clk.Now), WithTick(ticks))

	f := &fixture{t: t, comp: comp, eng: eng, clk: clk, ticks: ticks, runErr: make(chan error, 1)}
	go func() { f.runErr <- eng.Run(context.Background()) }()
	t.Cleanup(func() {
		eng.Stop()
		select {
		case <-f.runErr:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return f
}

func (f *fixture) push(ev Event) {
	f.t.Helper()
	select {
	case f.comp.events <- ev:
	case <-time.After(2 * time.Second):
		f.t.Fatal("engine did not accept event")
	}
}

func (f *fixture) tick(at time.Time) {
	f.t.Helper()
	f.clk.Set(at)
	select {
	case f.ticks <- at:
	case <-time.After(2 * time.Second):
		f.t.Fatal("engine did not accept tick")
	}
}

func (f *fixture) apply(s spec.Spec) []ApplyResult {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := f.eng.Apply(ctx, s)
	if err != nil {
		f.t.Fatalf("apply: %v", err)
	}
	return res
}

func (f *fixture) status() StatusReport {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := f.eng.Status(ctx)
	if err != nil {
		f.t.Fatalf("status: %v", err)
	}
	return st
}

func (f *fixture) addOutput(id uint32, name string, w, h int) *fakeSurface {
	f.t.Helper()
	f.push(OutputAdded{Output: OutputInfo{ID: id, Name: name, Width: w, Height: h}})
	f.push(SurfaceConfigured{OutputID: id, Width: uint32(w), Height: uint32(h)})
	f.status() // drain so the configure is fully applied
	surf := f.comp.surface(id)
	if surf == nil {
		f.t.Fatalf("no surface created for output %d", id)
	}
	return surf
}

func fade(ms int) spec.TransitionSpec {
	return spec.TransitionSpec{Kind: spec.TransitionFade, Duration: ms}
}

func red() spec.RGB   { return spec.RGB{R: 255} }
func green() spec.RGB { return spec.RGB{G: 255} }
func blue() spec.RGB  { return spec.RGB{B: 255} }

func TestFirstPaintIsNotAnimated(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 8, 8)
	base := len(surf.history())

	res := f.apply(spec.Colour(red(), "", fade(550)))
	if len(res) != 1 || !res[0].OK || res[0].Output != "DP-1" {
		t.Fatalf("unexpected results %+v", res)
	}
	hist := surf.history()
	if len(hist) != base+1 {
		t.Fatalf("first paint should be a single present, got %d", len(hist)-base)
	}
	paint := hist[base]
	if paint.pixel != red().XRGB() {
		t.Errorf("painted %#x, want red", paint.pixel)
	}
	if paint.callback {
		t.Error("unanimated paint should not request a frame callback")
	}
	if st := f.status(); st.Outputs[0].Animating {
		t.Error("no animation should be running")
	}
}

func TestConfigureWithoutCommandWarmsSurface(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 8, 8)

	// With no command issued the surface still gets mapped with a blank
	// frame so its buffers exist up front.
	hist := surf.history()
	if len(hist) != 1 {
		t.Fatalf("configure should attach a blank frame, got %d presents", len(hist))
	}
	warm := hist[0]
	if warm.pixel != 0 || warm.width != 8 || warm.height != 8 || warm.callback {
		t.Fatalf("warm frame wrong: %+v", warm)
	}

	// The blank frame is not a wallpaper: the first real paint still
	// lands without animation.
	f.apply(spec.Colour(red(), "", fade(550)))
	hist = surf.history()
	paint := hist[len(hist)-1]
	if paint.pixel != red().XRGB() || paint.callback {
		t.Fatalf("first wallpaper after warm should be unanimated red, got %+v", paint)
	}
}

func TestWarmupPaintsNewOutput(t *testing.T) {
	f := newFixture(t)

	// Command arrives before any output exists.
	res := f.apply(spec.Colour(green(), "", fade(550)))
	if len(res) != 0 {
		t.Fatalf("no outputs yet, got results %+v", res)
	}

	surf := f.addOutput(1, "DP-1", 8, 8)
	hist := surf.history()
	if len(hist) != 1 {
		t.Fatalf("warmup should paint once, got %d", len(hist))
	}
	if hist[0].pixel != green().XRGB() || hist[0].callback {
		t.Errorf("warmup paint wrong: %+v", hist[0])
	}
}

func TestTransitionPacedByFrameCallbacks(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(red(), "", fade(0)))

	base := len(surf.history())

	f.apply(spec.Colour(blue(), "", fade(200)))
	hist := surf.history()
	if len(hist) != base+1 {
		t.Fatalf("transition start should present immediately, got %d presents", len(hist)-base)
	}
	start := hist[base]
	if !start.callback {
		t.Error("animated present must request a frame callback")
	}
	if start.pixel != red().XRGB() {
		t.Errorf("first sample should equal the previous wallpaper, got %#x", start.pixel)
	}
	if !f.status().Outputs[0].Animating {
		t.Fatal("status should report the animation")
	}

	// Callback arrives, next tick advances the animation.
	f.push(FrameDone{OutputID: 1, When: epoch.Add(50 * time.Millisecond)})
	f.tick(epoch.Add(100 * time.Millisecond))
	hist = surf.history()
	if len(hist) != base+2 {
		t.Fatalf("expected a mid-animation present, got %d", len(hist)-base)
	}
	mid := hist[base+1]
	if mid.pixel == red().XRGB() || mid.pixel == blue().XRGB() {
		t.Errorf("midpoint should be a blend, got %#x", mid.pixel)
	}

	// Past the end the target lands and pacing stops.
	f.push(FrameDone{OutputID: 1, When: epoch.Add(150 * time.Millisecond)})
	f.tick(epoch.Add(250 * time.Millisecond))
	hist = surf.history()
	last := hist[len(hist)-1]
	if last.pixel != blue().XRGB() {
		t.Errorf("final frame should be the target, got %#x", last.pixel)
	}
	if last.callback {
		t.Error("final frame should not request a callback")
	}
	if f.status().Outputs[0].Animating {
		t.Error("animation should be finished")
	}
}

func TestGraceWindowFallback(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(red(), "", fade(0)))
	f.apply(spec.Colour(blue(), "", fade(10_000)))
	base := len(surf.history())

	// Callback never arrives. Within the grace window ticks are ignored.
	f.tick(epoch.Add(50 * time.Millisecond))
	if got := len(surf.history()); got != base {
		t.Fatalf("tick inside grace window should not present, got %d presents", got)
	}

	// Past the grace window the ticker takes over.
	f.tick(epoch.Add(150 * time.Millisecond))
	if got := len(surf.history()); got != base+1 {
		t.Fatalf("tick past grace window should present, got %d presents", got)
	}

	// The fallback present re-arms the window relative to itself.
	f.tick(epoch.Add(200 * time.Millisecond))
	if got := len(surf.history()); got != base+1 {
		t.Fatal("tick inside the re-armed window should not present")
	}
}

func TestSupersessionStartsFromCurrentBlend(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(spec.RGB{}, "", fade(0)))
	f.apply(spec.Colour(spec.RGB{R: 255, G: 255, B: 255}, "", fade(1000)))

	// Halfway through, change course to red.
	f.clk.Set(epoch.Add(500 * time.Millisecond))
	f.apply(spec.Colour(red(), "", fade(1000)))
	hist := surf.history()
	start := hist[len(hist)-1]
	// The new transition starts from the mid-fade grey, not from either
	// endpoint.
	if start.pixel == 0 || start.pixel == 0x00ffffff || start.pixel == red().XRGB() {
		t.Errorf("superseding transition should start from the blend, got %#x", start.pixel)
	}

	f.tick(epoch.Add(2 * time.Second))
	f.status() // drain so the tick's present is fully applied
	hist = surf.history()
	if final := hist[len(hist)-1]; final.pixel != red().XRGB() {
		t.Errorf("superseding transition should land on red, got %#x", final.pixel)
	}
}

func TestPartialFailureLeavesOthersAlone(t *testing.T) {
	f := newFixture(t)
	f.addOutput(1, "DP-1", 4, 4)
	f.addOutput(2, "DP-2", 4, 4)

	res := f.apply(spec.Image("/nonexistent/wall.png", spec.ModeFill, spec.Black, "", fade(550)))
	if len(res) != 2 {
		t.Fatalf("want 2 results, got %+v", res)
	}
	for _, r := range res {
		if r.OK || r.Error == "" {
			t.Errorf("output %s should have failed, got %+v", r.Output, r)
		}
	}

	// The engine survives and still accepts commands.
	res = f.apply(spec.Colour(green(), "", fade(0)))
	for _, r := range res {
		if !r.OK {
			t.Errorf("recovery apply failed on %s: %s", r.Output, r.Error)
		}
	}
}

func TestTargetedApplyByOutputName(t *testing.T) {
	f := newFixture(t)
	s1 := f.addOutput(1, "DP-1", 4, 4)
	s2 := f.addOutput(2, "DP-2", 4, 4)

	b1, b2 := len(s1.history()), len(s2.history())
	res := f.apply(spec.Colour(red(), "DP-2", fade(0)))
	if len(res) != 1 || res[0].Output != "DP-2" || !res[0].OK {
		t.Fatalf("unexpected results %+v", res)
	}
	if len(s1.history()) != b1 {
		t.Error("untargeted output was painted")
	}
	if len(s2.history()) != b2+1 {
		t.Error("targeted output was not painted")
	}

	res = f.apply(spec.Colour(red(), "HDMI-9", fade(0)))
	if len(res) != 1 || res[0].OK || res[0].Error == "" {
		t.Fatalf("unknown output should error, got %+v", res)
	}
}

func TestOutputRemovalDestroysSurface(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(red(), "", fade(0)))

	f.push(OutputRemoved{ID: 1})
	st := f.status()
	if len(st.Outputs) != 0 {
		t.Fatalf("output should be gone, status has %d", len(st.Outputs))
	}
	surf.mu.Lock()
	destroyed := surf.destroyed
	surf.mu.Unlock()
	if !destroyed {
		t.Error("surface was not destroyed")
	}

	// A frame callback queued before removal may still fire; it must be
	// ignored.
	f.push(FrameDone{OutputID: 1, When: f.clk.Now()})
	f.push(BufferReleased{OutputID: 1})
	if st := f.status(); len(st.Outputs) != 0 {
		t.Fatal("late callbacks resurrected the output")
	}
}

func TestResizeRepaintsWithoutAnimation(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 8, 8)
	f.apply(spec.Colour(red(), "", fade(0)))

	f.push(SurfaceConfigured{OutputID: 1, Width: 16, Height: 16})
	st := f.status()
	hist := surf.history()
	repaint := hist[len(hist)-1]
	if repaint.width != 16 || repaint.height != 16 {
		t.Fatalf("repaint at %dx%d, want 16x16", repaint.width, repaint.height)
	}
	if repaint.callback {
		t.Error("resize repaint should not animate")
	}
	if st.Outputs[0].Width != 16 {
		t.Errorf("status width %d, want 16", st.Outputs[0].Width)
	}
}

func TestResizeRepaintRetriesAfterStarvation(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 8, 8)
	f.apply(spec.Colour(red(), "", fade(0)))

	// Both buffers busy when the resize lands: the repaint must wait for
	// a release instead of being dropped.
	surf.setStarve(true)
	f.push(SurfaceConfigured{OutputID: 1, Width: 16, Height: 16})
	base := len(surf.history())

	surf.setStarve(false)
	f.push(BufferReleased{OutputID: 1})
	f.status()
	hist := surf.history()
	if len(hist) != base+1 {
		t.Fatalf("release should repaint the resized output, presents %d want %d", len(hist), base+1)
	}
	repaint := hist[len(hist)-1]
	if repaint.width != 16 || repaint.height != 16 {
		t.Fatalf("repaint at %dx%d, want 16x16", repaint.width, repaint.height)
	}
	if repaint.pixel != red().XRGB() || repaint.callback {
		t.Fatalf("repaint should be the unanimated wallpaper, got %+v", repaint)
	}
}

func TestResizeKeepsFramesSharedWithSiblingOutput(t *testing.T) {
	f := newFixture(t)
	f.addOutput(1, "DP-1", 8, 8)
	f.addOutput(2, "DP-2", 8, 8)
	f.apply(spec.Colour(red(), "", fade(0)))
	if st := f.status(); st.CachedFrames != 1 {
		t.Fatalf("same-resolution outputs should share one frame, cached %d", st.CachedFrames)
	}

	// DP-2 still runs at 8x8, so its frame must survive DP-1's resize.
	f.push(SurfaceConfigured{OutputID: 1, Width: 16, Height: 16})
	if st := f.status(); st.CachedFrames != 2 {
		t.Fatalf("resize evicted the sibling's frame, cached %d want 2", st.CachedFrames)
	}
}

func TestBufferStarvationRetriesOnRelease(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(red(), "", fade(0)))

	surf.setStarve(true)
	f.apply(spec.Colour(blue(), "", fade(10_000)))
	base := len(surf.history())

	surf.setStarve(false)
	f.clk.Set(epoch.Add(20 * time.Millisecond))
	f.push(BufferReleased{OutputID: 1})
	f.status()
	if got := len(surf.history()); got != base+1 {
		t.Fatalf("release should trigger a retry, presents %d want %d", got, base+1)
	}
}

func TestUnsetFadesToBlack(t *testing.T) {
	f := newFixture(t)
	surf := f.addOutput(1, "DP-1", 4, 4)
	f.apply(spec.Colour(red(), "", fade(0)))

	f.apply(spec.Unset("", fade(200)))
	f.tick(epoch.Add(300 * time.Millisecond))
	f.status() // drain so the tick's present is fully applied
	hist := surf.history()
	if final := hist[len(hist)-1]; final.pixel != 0 {
		t.Errorf("unset should land on black, got %#x", final.pixel)
	}
	if st := f.status(); st.Outputs[0].Wallpaper != "unset" {
		t.Errorf("status wallpaper %q, want unset", st.Outputs[0].Wallpaper)
	}
}

func TestConnectionLostStopsRun(t *testing.T) {
	comp := newFakeCompositor()
	eng := New(comp, Config{}, WithClock(func() time.Time { return epoch }), WithTick(make(chan time.Time)))
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	want := errors.New("display gone")
	comp.events <- ConnectionLost{Err: want}
	select {
	case err := <-runErr:
		if err == nil || !errors.Is(err, want) {
			t.Fatalf("Run returned %v, want wrapped %v", err, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit")
	}
}

func TestStopExitsCleanly(t *testing.T) {
	comp := newFakeCompositor()
	eng := New(comp, Config{}, WithTick(make(chan time.Time)))
	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	eng.Stop()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit")
	}
	comp.mu.Lock()
	closed := comp.closed
	comp.mu.Unlock()
	if !closed {
		t.Error("compositor was not closed on shutdown")
	}
}
