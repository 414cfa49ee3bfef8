package apprt

import (
	"testing"

	"fomos/internal/framebuffer"
	"fomos/internal/heap"
	"fomos/internal/input"
	"fomos/internal/task"
	"fomos/internal/timer"
)

func newTestRuntime() *Runtime {
	h := heap.New(make([]byte, 4096))
	return New(h, input.New(), framebuffer.New(4, 4), timer.NewClock(), nil)
}

// TestRuntimeCallsAppsInOrderEveryFrame checks that apps run once per
// frame, in the order they were added, and that the loop never
// completes on its own (it must be driven by yield_once suspension
// points).
func TestRuntimeCallsAppsInOrderEveryFrame(t *testing.T) {
	r := newTestRuntime()

	var calls []uint64
	r.AddApp(NewStaticApp(1, func(ctx *Context) int32 {
		calls = append(calls, ctx.PID)
		return 0
	}))
	r.AddApp(NewStaticApp(2, func(ctx *Context) int32 {
		calls = append(calls, ctx.PID)
		return 0
	}))

	e := task.NewExecutor()
	e.SetHaltFunc(func() {})
	e.Spawn(r.Task(e))

	for i := 0; i < 3; i++ {
		e.Run(func() bool { return true })
	}

	if len(calls) != 6 {
		t.Fatalf("expected 6 app invocations across 3 frames, got %d: %v", len(calls), calls)
	}
	for i := 0; i < len(calls); i += 2 {
		if calls[i] != 1 || calls[i+1] != 2 {
			t.Fatalf("apps invoked out of order at frame %d: %v", i/2, calls[i:i+2])
		}
	}
}

// TestStoreSlotPersistsAcrossFrames exercises store
// protocol: whatever an app leaves in its slot on one frame is exactly
// what it receives back on the next, because Context.Store points
// directly at the app's own persistent slot.
func TestStoreSlotPersistsAcrossFrames(t *testing.T) {
	r := newTestRuntime()

	seen := make([]int, 0, 3)
	r.AddApp(NewStaticApp(7, func(ctx *Context) int32 {
		buf := ctx.Store.Take()
		if buf == nil {
			buf = ctx.CallocFn(1, 1)
		}
		buf[0]++
		seen = append(seen, int(buf[0]))
		ctx.Store.Replace(buf)
		return 0
	}))

	e := task.NewExecutor()
	e.SetHaltFunc(func() {})
	e.Spawn(r.Task(e))

	for i := 0; i < 3; i++ {
		e.Run(func() bool { return true })
	}

	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("store did not persist a monotonically incrementing counter: %v", seen)
	}
}

// TestFramebufferShareReflectsCurrentDimensions confirms the ABI's FB
// record is rebuilt fresh every frame rather than cached from
// construction, so a retarget would be visible to
// applications on the very next frame.
func TestFramebufferShareReflectsCurrentDimensions(t *testing.T) {
	r := newTestRuntime()

	var gotW, gotH uintptr
	r.AddApp(NewStaticApp(1, func(ctx *Context) int32 {
		gotW, gotH = ctx.FB.W, ctx.FB.H
		return 0
	}))

	e := task.NewExecutor()
	e.SetHaltFunc(func() {})
	e.Spawn(r.Task(e))
	e.Run(func() bool { return true })

	if gotW != 4 || gotH != 4 {
		t.Fatalf("FB dims = %dx%d, want 4x4", gotW, gotH)
	}

	r.fb.Retarget(make([]framebuffer.RGBA, 8*2), 8, 2)
	e.Run(func() bool { return true })

	if gotW != 8 || gotH != 2 {
		t.Fatalf("FB dims after retarget = %dx%d, want 8x2", gotW, gotH)
	}
}

// TestCallocCdallocRoundTrip exercises the heap-backed ABI callbacks
// directly: an allocation is zeroed, writable, and returns cleanly to
// the heap.
func TestCallocCdallocRoundTrip(t *testing.T) {
	r := newTestRuntime()

	buf := r.calloc(4, 8)
	if len(buf) != 32 {
		t.Fatalf("calloc(4, 8) length = %d, want 32", len(buf))
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatal("calloc returned non-zeroed memory")
		}
	}
	buf[0] = 0xAB
	r.cdalloc(buf)

	again := r.calloc(4, 8)
	if len(again) != 32 {
		t.Fatalf("second calloc(4, 8) length = %d, want 32", len(again))
	}
}

// TestInputStepCollapsesTransitionalStatesBetweenFrames checks the
// transitional-state collapse at the app-loop boundary: a key pressed
// mid-frame is observed as a transitional state by the app that frame
// and as the steady On state
// the next, because runFrame calls input.Step() after every app has run.
func TestInputStepCollapsesTransitionalStatesBetweenFrames(t *testing.T) {
	r := newTestRuntime()
	r.input.Update(func(s *input.Snapshot) { s.HandleKeyEvent(5, true) })

	var observed []uint8
	r.AddApp(NewStaticApp(1, func(ctx *Context) int32 {
		observed = append(observed, ctx.Input.Keys[5])
		return 0
	}))

	e := task.NewExecutor()
	e.SetHaltFunc(func() {})
	e.Spawn(r.Task(e))
	e.Run(func() bool { return true })
	e.Run(func() bool { return true })

	if len(observed) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observed))
	}
	if input.KeyState(observed[0]) != input.OnFromOff {
		t.Fatalf("frame 1 key state = %v, want OnFromOff", observed[0])
	}
	if input.KeyState(observed[1]) != input.On {
		t.Fatalf("frame 2 key state = %v, want On", observed[1])
	}
}
