package task

// Future is a single step of cooperative work. Poll is called with a
// Waker the future should retain (if it returns false) and invoke once
// it becomes ready to make progress again. Returning true means the
// future is done and will not be polled again — the executor drops it.
//
// This is a Go-native poll-based future: no goroutine, no channel,
// just "am I done yet, and if not, who do I tell when to check again".
type Future interface {
	Poll(w *Waker) (ready bool)
}

// FutureFunc adapts a plain poll function to the Future interface, for
// one-off futures that don't need their own named type.
type FutureFunc func(w *Waker) bool

func (f FutureFunc) Poll(w *Waker) bool { return f(w) }

// Waker is how a future tells the executor "I'm ready to be polled
// again". Wakers carry only a task id.
type Waker struct {
	id     TaskID
	wake   func(TaskID)
}

// Wake enqueues the owning task's id for re-polling. Safe to call from
// interrupt context (it only appends to a bounded ring) and safe to call
// more than once — redundant wakes just mean an extra, harmless poll.
func (w *Waker) Wake() {
	if w == nil || w.wake == nil {
		return
	}
	w.wake(w.id)
}
