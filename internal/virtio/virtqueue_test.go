package virtio_test

import (
	"testing"

	"fomos/internal/virtio"
)

func counterFrames() virtio.FrameSource {
	next := uint64(0)
	return func() (uint64, []byte) {
		addr := next
		next += 4096
		return addr, make([]byte, 4096)
	}
}

// allIDsDisjointAndComplete checks that, at any point, the free pool and
// the in-flight (awaiting-used) set are disjoint and together cover
// exactly {0..Q-1}.
func allIDsDisjointAndComplete(t *testing.T, q *virtio.Virtqueue, free map[uint16]bool, inFlight map[uint16]bool) {
	t.Helper()
	if len(free)+len(inFlight) != int(q.Size()) {
		t.Fatalf("free(%d) + inFlight(%d) != size(%d)", len(free), len(inFlight), q.Size())
	}
	for id := range free {
		if inFlight[id] {
			t.Fatalf("descriptor %d is in both free and inFlight", id)
		}
	}
}

// TestVirtqueueWrapsAcrossTwentySerialRequests drives an 8-entry queue
// through 20 strictly serial request/reply round trips (each one fully
// completed — reply consumed and descriptors freed —
// before the next starts), so avail.idx advances past the ring length
// 2.5 times over, and every round trip must find a free descriptor pair
// again, which only holds if each completed round trip returns its pair
// to the pool.
func TestVirtqueueWrapsAcrossTwentySerialRequests(t *testing.T) {
	const size = 8
	q := virtio.NewVirtqueue(size, counterFrames())

	for i := 0; i < 20; i++ {
		head, tail, ok := q.AddRequest([]byte{byte(i)})
		if !ok {
			t.Fatalf("round trip %d: AddRequest failed, pool should have recovered from round trip %d", i, i-1)
		}

		// Simulate the device: it reads the request, writes a reply into
		// the tail descriptor's buffer, and publishes one used entry
		// keyed by the chain head.
		q.PushUsed(head, 1)

		used, ok := q.NextUsed()
		if !ok {
			t.Fatalf("round trip %d: expected a used entry", i)
		}
		if used.ID != uint32(head) {
			t.Fatalf("round trip %d: used.ID = %d, want %d", i, used.ID, head)
		}
		q.SetFree(head)
		q.SetFree(tail)
	}

	if q.AvailIdx() != 20 {
		t.Fatalf("avail.idx = %d, want 20 after 20 published requests", q.AvailIdx())
	}
}

// TestFreePoolIDsAreDisjointFromInFlight drives several overlapping
// requests (without waiting for each reply before issuing the next) and
// checks the free/in-flight disjointness invariant holds once they're
// all outstanding, then again once they've all been resolved.
func TestFreePoolIDsAreDisjointFromInFlight(t *testing.T) {
	const size = 8
	q := virtio.NewVirtqueue(size, counterFrames())

	type pair struct{ head, tail uint16 }
	var pairs []pair
	for i := 0; i < 3; i++ {
		head, tail, ok := q.AddRequest([]byte{byte(i)})
		if !ok {
			t.Fatalf("request %d: AddRequest failed", i)
		}
		pairs = append(pairs, pair{head, tail})
		q.PushUsed(head, 1) // device replies immediately here
	}

	inFlight := map[uint16]bool{}
	for _, p := range pairs {
		inFlight[p.head] = true
		inFlight[p.tail] = true
	}
	free := map[uint16]bool{}
	for id := uint16(0); id < size; id++ {
		if !inFlight[id] {
			free[id] = true
		}
	}
	allIDsDisjointAndComplete(t, q, free, inFlight)

	for _, p := range pairs {
		used, ok := q.NextUsed()
		if !ok {
			t.Fatalf("expected a used entry")
		}
		if used.ID != uint32(p.head) {
			t.Fatalf("used.ID = %d, want %d", used.ID, p.head)
		}
		q.SetFree(p.head)
		q.SetFree(p.tail)
	}

	full := map[uint16]bool{}
	for id := uint16(0); id < size; id++ {
		full[id] = true
	}
	allIDsDisjointAndComplete(t, q, full, map[uint16]bool{})
}

func TestAddRequestFailsWhenPoolExhausted(t *testing.T) {
	const size = 2 // one request/reply pair exactly exhausts a 2-entry pool
	q := virtio.NewVirtqueue(size, counterFrames())

	if _, _, ok := q.AddRequest([]byte("x")); !ok {
		t.Fatalf("first request should succeed")
	}
	if _, _, ok := q.AddRequest([]byte("y")); ok {
		t.Fatalf("second request should fail: pool exhausted")
	}
}

func TestGetFreeTwiceChainsDescriptors(t *testing.T) {
	q := virtio.NewVirtqueue(4, counterFrames())
	head, tail, ok := q.GetFreeTwice()
	if !ok {
		t.Fatalf("expected two free descriptors on an empty 4-entry queue")
	}
	if head == tail {
		t.Fatalf("head and tail must be distinct descriptor ids")
	}
}
