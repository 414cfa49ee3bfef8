package task

// yieldOnce is a one-shot future that registers its waker into the
// executor's yielder ring on first poll (returning not-ready), then
// reports ready on the second poll. It is the mandatory cooperative
// scheduling point: any loop that would otherwise spin must await it.
type yieldOnce struct {
	e      *Executor
	polled bool
}

func (y *yieldOnce) Poll(w *Waker) bool {
	if y.polled {
		return true
	}
	y.polled = true
	y.e.yielder.push(w)
	return false
}

// YieldOnce returns a Future that suspends the calling task until the
// executor's next drain-yielders pass. Call it at least once per loop
// iteration from any task that would otherwise spin — the GPU driver's
// transfer/flush loop and the app runtime loop both rely on this to give
// other tasks (and the idle-halt path) a chance to run.
func YieldOnce(e *Executor) Future {
	return &yieldOnce{e: e}
}
