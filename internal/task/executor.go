// Package task implements the single-threaded cooperative executor that
// drives every other driver and the application loop as futures: a
// hand-rolled scheduling loop driving units of work to completion, built
// around explicit Future.Poll rather than OS-thread goroutines.
package task

import (
	"fomos/internal/asmx"
	"fomos/internal/config"
)

// TaskID uniquely and monotonically identifies a spawned task.
type TaskID uint64

type entry struct {
	id     TaskID
	future Future
	waker  *Waker
}

// Executor is the process-wide cooperative scheduler.
// There is exactly one instance, owned by the boot glue and driven from
// cmd/kernel's main loop after all drivers have been spawned onto it.
type Executor struct {
	nextID TaskID

	tasks map[TaskID]*entry

	ready   *ring[TaskID]
	spawn   *ring[spawnRequest]
	yielder *ring[*Waker]

	// haltFn is called when both queues are empty; it must block until
	// the next interrupt. Overridable by tests (real boot glue wires
	// asmx.HaltUntilInterrupt).
	haltFn func()
}

type spawnRequest struct {
	id     TaskID
	future Future
}

// NewExecutor builds an empty executor with the bounded queue capacities
// from internal/config.
func NewExecutor() *Executor {
	e := &Executor{
		tasks:   make(map[TaskID]*entry),
		ready:   newRing[TaskID](config.TaskQueueCapacity),
		spawn:   newRing[spawnRequest](config.TaskQueueCapacity),
		yielder: newRing[*Waker](config.YieldWakerCapacity),
		haltFn:  asmx.HaltUntilInterrupt,
	}
	return e
}

// SetHaltFunc overrides the idle-halt behavior; used by tests so Run can
// terminate instead of calling HLT.
func (e *Executor) SetHaltFunc(f func()) { e.haltFn = f }

// Spawn enqueues future to start running on the next Run loop iteration
// and returns its assigned id.
func (e *Executor) Spawn(f Future) TaskID {
	e.nextID++
	id := e.nextID
	e.spawn.push(spawnRequest{id: id, future: f})
	return id
}

func (e *Executor) makeWaker(id TaskID) *Waker {
	return &Waker{id: id, wake: e.wake}
}

func (e *Executor) wake(id TaskID) {
	if _, ok := e.tasks[id]; ok {
		e.ready.push(id)
	}
	// Waking an id with no task (already finished) is a no-op — this is
	// how the GPU driver's waiter table (internal/virtio/vgpu) tolerates
	// a completion racing a caller that already gave up.
}

// drainSpawn moves every pending spawn request into the task table and
// the ready queue.
func (e *Executor) drainSpawn() {
	for {
		req, ok := e.spawn.pop()
		if !ok {
			return
		}
		e.tasks[req.id] = &entry{id: req.id, future: req.future}
		e.ready.push(req.id)
	}
}

// drainYielders wakes every waker parked in the yield_once ring.
func (e *Executor) drainYielders() {
	for {
		w, ok := e.yielder.pop()
		if !ok {
			return
		}
		w.Wake()
	}
}

// runOnce drains spawns, polls every ready task once, and drains
// yielders. It returns true if any task was polled (i.e. progress was
// made), which callers use to decide whether to halt.
func (e *Executor) runOnce() bool {
	e.drainSpawn()

	madeProgress := !e.ready.empty()
	for {
		id, ok := e.ready.pop()
		if !ok {
			break
		}
		t, ok := e.tasks[id]
		if !ok {
			continue // task already finished; stale ready entry, ignore
		}
		if t.waker == nil {
			t.waker = e.makeWaker(id)
		}
		if t.future.Poll(t.waker) {
			delete(e.tasks, id)
		}
	}
	e.drainYielders()
	return madeProgress
}

// Run drives the executor forever: drain
// spawns, poll every ready task, halt if nothing is ready, repeat. Run
// only returns if stop is non-nil and reports true — used by tests; the
// real boot path never returns from Run.
func (e *Executor) Run(stop func() bool) {
	for {
		e.runOnce()
		if stop != nil && stop() {
			return
		}
		if e.ready.empty() && e.spawn.empty() {
			e.haltFn()
		}
	}
}

// TaskCount reports the number of live tasks, for tests and diagnostics.
func (e *Executor) TaskCount() int { return len(e.tasks) }
