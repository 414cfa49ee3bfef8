package apprt

import (
	"unsafe"

	"fomos/internal/framebuffer"
	"fomos/internal/heap"
	"fomos/internal/input"
	"fomos/internal/task"
	"fomos/internal/timer"
)

// Runtime is the per-frame application loop: it owns the fixed app
// list and the collaborators every Context is assembled from.
type Runtime struct {
	heap  *heap.Heap
	input *input.State
	fb    *framebuffer.Framebuffer
	clock *timer.Clock
	logFn func(msg []byte)

	apps []*App
}

// New builds a runtime over the kernel's singleton heap, input cell,
// framebuffer, and timer. logFn receives whatever bytes an app passes to
// its ABI log callback; a nil logFn discards them.
func New(h *heap.Heap, in *input.State, fb *framebuffer.Framebuffer, clock *timer.Clock, logFn func(msg []byte)) *Runtime {
	if logFn == nil {
		logFn = func([]byte) {}
	}
	return &Runtime{heap: h, input: in, fb: fb, clock: clock, logFn: logFn}
}

// AddApp appends app to the fixed list invoked every frame, in the order
// added.
func (r *Runtime) AddApp(app *App) {
	r.apps = append(r.apps, app)
}

// Task returns the never-completing Future that drives the application
// loop forever, one frame per suspension.
func (r *Runtime) Task(e *task.Executor) task.Future {
	return task.NewLoop(func() task.Future {
		r.runFrame()
		return task.YieldOnce(e)
	})
}

// runFrame calls every app exactly once with a fresh Context, then
// collapses the input snapshot's transitional key states.
func (r *Runtime) runFrame() {
	snap := r.input.Read()
	abiInput := snapshotToABI(&snap)
	view := r.fb.Share()

	for _, app := range r.apps {
		ctx := Context{
			Version:     ContextVersion,
			StartTimeMs: r.clock.NowMs(),
			LogFn:       r.logFn,
			PID:         app.PID,
			FB:          FB{Pixels: view.Pixels, W: uintptr(view.W), H: uintptr(view.H)},
			CallocFn:    r.calloc,
			CdallocFn:   r.cdalloc,
			Store:       &app.Store,
			Input:       abiInput,
		}
		app.Entry(&ctx)
	}

	r.input.Update(func(s *input.Snapshot) { s.Step() })
}

// snapshotToABI copies an internal/input.Snapshot into the ABI's Input
// record. Key states and ring entries are reduced to the raw u8/usize
// values defines the ABI in terms of; applications never see
// the richer internal/input.KeyState enum directly.
func snapshotToABI(snap *input.Snapshot) *Input {
	abi := &Input{
		MX:               uintptr(snap.MX),
		MY:               uintptr(snap.MY),
		HistoryLastIndex: uintptr(snap.HistoryLastIndex),
	}
	for i, k := range snap.Keys {
		abi.Keys[i] = uint8(k)
	}
	for i, ev := range snap.HistoryRing {
		abi.HistoryRing[i] = InputEvent{Trigger: ev.Trigger, Key: uintptr(ev.Key)}
	}
	return abi
}

// calloc is the ABI calloc callback: nmemb*size zeroed
// bytes from the shared kernel heap, or nil if the heap is exhausted.
func (r *Runtime) calloc(nmemb, size uintptr) []byte {
	n := nmemb * size
	if n == 0 {
		return nil
	}
	off := r.heap.Alloc(uint32(n))
	if off < 0 {
		return nil
	}
	buf := r.heap.Bytes()[off : uint32(off)+uint32(n)]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// cdalloc is the ABI cdalloc callback: frees a slice previously returned
// by calloc back to the shared heap.
func (r *Runtime) cdalloc(ptr []byte) {
	if len(ptr) == 0 {
		return
	}
	base := uintptr(unsafe.Pointer(&r.heap.Bytes()[0]))
	off := int32(uintptr(unsafe.Pointer(&ptr[0])) - base)
	r.heap.Free(off)
}
