package vgpu

import (
	"fomos/internal/config"
	"fomos/internal/framebuffer"
	"fomos/internal/task"
	"fomos/internal/virtio"
)

type waiterStatus uint8

const (
	waiterNone waiterStatus = iota
	waiterRegistered
	waiterDone
)

type waiterSlot struct {
	status waiterStatus
	waker  *task.Waker
	reply  []byte
	tail   uint16
}

// kicker is the subset of *virtio.Device this package depends on,
// mirroring internal/virtio/vinput's seam for host-testability.
type kicker interface {
	Kick(queueIndex uint16)
}

// Driver is the virtio-gpu task: the control queue, a waiter table
// keyed by request descriptor id, and the framebuffer it retargets once
// scanout is live.
type Driver struct {
	dev   kicker
	queue *virtio.Virtqueue
	fb    *framebuffer.Framebuffer

	waiters [config.GPUWaiterSlots]waiterSlot

	width, height uint32
	resourceID    uint32
	ctxID         uint32

	// allocBacking hands back a fresh identity-mapped pixel buffer of
	// w*h RGBA pixels plus its guest-physical address, for the scanout
	// resource's backing memory. In the real
	// kernel this is backed by internal/memory's frame allocator; tests
	// substitute a plain Go-slice-backed fake.
	allocBacking func(w, h uint32) (addr uint64, pixels []framebuffer.RGBA)

	// onScanoutLive, if set, runs once the framebuffer has been
	// retargeted onto the scanout resource's real backing memory
	// (stepAttachBackingAndRetarget) — the first point at which anything
	// drawn into fb is actually visible to the host. Nil is fine; it's
	// how a caller gets a "first frame" hook without the driver needing
	// to know what gets drawn.
	onScanoutLive func()
}

// New wires a negotiated virtio-gpu device's control queue (queue index
// 0) to fb. dev.SetupQueue must already have been called for queue 0.
// onScanoutLive, if non-nil, is called once fb has been retargeted onto
// the scanout resource's real backing memory.
func New(dev *virtio.Device, queue *virtio.Virtqueue, fb *framebuffer.Framebuffer, allocBacking func(w, h uint32) (uint64, []framebuffer.RGBA), onScanoutLive func()) *Driver {
	return &Driver{
		dev: dev, queue: queue, fb: fb,
		resourceID:    config.GPU2DResourceID,
		ctxID:         config.Virgl3DContextID,
		allocBacking:  allocBacking,
		onScanoutLive: onScanoutLive,
	}
}

// request is the single request/reply primitive every bring-up step and
// the steady-state loop build on: publish payload, wait for the
// device's reply, return its bytes. requestThen
// (steps.go) wraps this with the apply-the-reply-once behavior every
// caller needs.
func (d *Driver) request(payload []byte) *requestFuture {
	return &requestFuture{d: d, payload: payload}
}

type requestFuture struct {
	d       *Driver
	payload []byte
	phase   int // 0: not yet sent, 1: sent, awaiting reply
	head    uint16
	result  []byte
}

func (r *requestFuture) Poll(w *task.Waker) bool {
	if r.phase == 0 {
		head, tail, ok := r.d.queue.AddRequest(r.payload)
		if !ok {
			// Pool exhausted: retry next poll rather than failing the
			// bring-up sequence outright — a future tick's pump() may
			// free descriptors up by then.
			return false
		}
		r.head = head
		r.d.waiters[head] = waiterSlot{status: waiterRegistered, waker: w, tail: tail}
		r.d.dev.Kick(0)
		r.phase = 1
		return false
	}

	slot := &r.d.waiters[r.head]
	if slot.status != waiterDone {
		slot.waker = w // the executor may have handed us a new waker since last poll
		return false
	}
	r.result = slot.reply
	*slot = waiterSlot{}
	return true
}

// Result returns the reply bytes once the request future has reported
// ready. Callers must only call this after Poll returned true.
func (r *requestFuture) Result() []byte { return r.result }

// pump drains every used-ring entry and resolves the matching waiter,
// freeing both descriptors of the chain back to the pool.
func (d *Driver) pump() {
	for {
		used, ok := d.queue.NextUsed()
		if !ok {
			return
		}
		id := uint16(used.ID)
		slot := &d.waiters[id]
		if slot.status != waiterRegistered {
			// No one is waiting (should not happen in this driver's
			// strictly request/wait-for-reply usage, but tolerate it
			// rather than leak the descriptor).
			d.queue.SetFree(id)
			continue
		}
		reply := make([]byte, used.Len)
		copy(reply, d.queue.Buffer(id)[:used.Len])
		slot.reply = reply
		slot.status = waiterDone
		waker := slot.waker
		tail := slot.tail
		d.queue.SetFree(id)
		d.queue.SetFree(tail)
		if waker != nil {
			waker.Wake()
		}
	}
}

// pumpLoop is the background Future that keeps the used ring drained
// regardless of whether any request is currently awaiting a reply,
// spawned alongside the bring-up sequence and the steady-state loop so
// replies are never stranded in the ring.
func (d *Driver) pumpLoop(e *task.Executor) task.Future {
	return task.NewLoop(func() task.Future {
		d.pump()
		return task.YieldOnce(e)
	})
}

// Task returns the complete GPU driver: bring-up to steady state,
// running forever as one spawned task. Callers
// spawn both this and a separately spawned pump task (SpawnOnto) onto
// the executor during boot.
func (d *Driver) Task(e *task.Executor) task.Future {
	return d.bringUp(e)
}

// SpawnOnto spawns both the GPU driver's bring-up-then-steady-state task
// and its used-ring pump task onto e, returning their ids.
func SpawnOnto(e *task.Executor, d *Driver) (driverTask, pumpTask task.TaskID) {
	pumpTask = e.Spawn(d.pumpLoop(e))
	driverTask = e.Spawn(d.Task(e))
	return driverTask, pumpTask
}
