package task

import "testing"

func TestYieldOnceRequiresTwoPolls(t *testing.T) {
	e := NewExecutor()
	ran := 0
	e.Spawn(FutureFunc(func(w *Waker) bool {
		ran++
		if ran == 1 {
			return YieldOnce(e).Poll(w)
		}
		return true
	}))

	steps := 0
	e.SetHaltFunc(func() { t.Fatal("executor halted with pending work") })
	e.Run(func() bool {
		steps++
		return e.TaskCount() == 0
	})
	if ran != 2 {
		t.Fatalf("expected task to run twice across the yield point, ran %d times", ran)
	}
}

func TestSpawnDrainsBeforeReadyQueue(t *testing.T) {
	e := NewExecutor()
	order := []string{}
	e.Spawn(FutureFunc(func(w *Waker) bool {
		order = append(order, "a")
		return true
	}))
	e.runOnce()
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected task a to run once spawned, got %v", order)
	}
}

func TestWakeUnknownTaskIsNoop(t *testing.T) {
	e := NewExecutor()
	// wake() on an id with no entry must not panic and must not grow the
	// ready queue.
	e.wake(TaskID(9999))
	if e.ready.len() != 0 {
		t.Fatalf("expected ready queue to stay empty, got len %d", e.ready.len())
	}
}

func TestQueueOverflowPanics(t *testing.T) {
	r := newRing[int](2)
	r.push(1)
	r.push(2)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on ring overflow")
		}
	}()
	r.push(3)
}

func TestSequenceRunsStepsInOrder(t *testing.T) {
	var order []int
	mkStep := func(n int, readyAfter int) Step {
		polls := 0
		return func() Future {
			return FutureFunc(func(w *Waker) bool {
				polls++
				order = append(order, n)
				return polls >= readyAfter
			})
		}
	}
	seq := Sequence(mkStep(1, 1), mkStep(2, 2), mkStep(3, 1))

	done := false
	var w Waker
	for i := 0; i < 10 && !done; i++ {
		done = seq.Poll(&w)
	}
	if !done {
		t.Fatal("expected sequence to complete")
	}
	want := []int{1, 2, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
