// Package timer implements a millisecond counter driven by the
// local-APIC timer interrupt, and the sleep(ms) suspension primitive
// built on top of it: an interrupt handler bumps a shared counter that
// task-context code reads, and pending sleeps resolve by comparing
// against a waker-slot array rather than a real-goroutine wakeup.
package timer

import (
	"sync/atomic"

	"fomos/internal/config"
	"fomos/internal/task"
)

// Clock is the process-wide millisecond counter and sleep-waker
// registry. One instance is created during boot and its Tick method is
// called from the local-APIC timer interrupt handler (vector
// config.TimerVector); every other method may be called from task
// context.
type Clock struct {
	ms atomic.Uint64

	mu [config.SleepWakerSlots]slot
}

type slot struct {
	inUse    bool
	deadline uint64
	waker    *task.Waker
}

// NewClock returns a Clock at t=0.
func NewClock() *Clock {
	return &Clock{}
}

// Tick is called once per local-APIC timer interrupt. It advances the
// millisecond counter and wakes every registered waker unconditionally
//. It must be interrupt-safe: no allocation, no
// blocking.
func (c *Clock) Tick() {
	now := c.ms.Add(1)
	for i := range c.mu {
		s := &c.mu[i]
		if s.inUse {
			w := s.waker
			s.inUse = false
			s.waker = nil
			_ = now
			w.Wake()
		}
	}
}

// NowMs returns the number of local-APIC timer interrupts observed since
// startup.
func (c *Clock) NowMs() uint64 {
	return c.ms.Load()
}

// register finds a free waker slot and stores w in it, returning true on
// success. Wakers are single-use: a future polling
// Sleep registers a new slot on every poll that isn't yet ready.
func (c *Clock) register(deadline uint64, w *task.Waker) bool {
	for i := range c.mu {
		if !c.mu[i].inUse {
			c.mu[i] = slot{inUse: true, deadline: deadline, waker: w}
			return true
		}
	}
	return false
}

// sleepFuture is the Future returned by Sleep. Because timer ticks wake
// every registered waker unconditionally rather than only the ones whose
// deadline has passed, Poll must itself re-check the deadline and simply
// re-register if woken early — this is what makes the "wake everyone"
// design correct despite being coarse.
type sleepFuture struct {
	c        *Clock
	deadline uint64
}

func (s *sleepFuture) Poll(w *task.Waker) bool {
	if s.c.NowMs() >= s.deadline {
		return true
	}
	if !s.c.register(s.deadline, w) {
		panic("timer: sleep waker table full")
	}
	return false
}

// Sleep returns a Future that resolves once at least ms local-APIC timer
// ticks have elapsed from the moment Sleep was called. Resolution is the
// coarse 1-ms counter; promises no guarantee tighter than ±1
// tick.
func (c *Clock) Sleep(ms uint64) task.Future {
	return &sleepFuture{c: c, deadline: c.NowMs() + ms}
}
