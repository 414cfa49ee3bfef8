package vinput

import (
	"encoding/binary"
	"testing"

	"fomos/internal/input"
	"fomos/internal/virtio"
)

type fakeKicker struct{ kicks int }

func (f *fakeKicker) Kick(uint16) { f.kicks++ }

func counterFrames() virtio.FrameSource {
	next := uint64(0)
	return func() (uint64, []byte) {
		addr := next
		next += 4096
		return addr, make([]byte, 4096)
	}
}

func putEvent(buf []byte, typ, code uint16, value int32) {
	binary.LittleEndian.PutUint16(buf[0:2], typ)
	binary.LittleEndian.PutUint16(buf[2:4], code)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(value))
}

func TestDrainAvailableAppliesKeyPress(t *testing.T) {
	q := virtio.NewVirtqueue(8, counterFrames())
	id, ok := q.GetFreeDescID()
	if !ok {
		t.Fatal("expected a free descriptor")
	}
	putEvent(q.Buffer(id), evKey, 30, 1) // KEY_A pressed
	q.PushUsed(id, eventWireSize)

	state := input.New()
	k := &fakeKicker{}
	d := &Driver{dev: k, queue: q, state: state}

	d.drainAvailable()

	snap := state.Read()
	if snap.Keys[30] != input.OnFromOff {
		t.Fatalf("key 30 state = %v, want OnFromOff", snap.Keys[30])
	}
	if snap.HistoryLastIndex != 1 {
		t.Fatalf("history index = %d, want 1", snap.HistoryLastIndex)
	}
	if k.kicks != 1 {
		t.Fatalf("expected one kick to recycle the descriptor, got %d", k.kicks)
	}
}

func TestDrainAvailableAppliesRelativeMotion(t *testing.T) {
	q := virtio.NewVirtqueue(8, counterFrames())
	id, _ := q.GetFreeDescID()
	putEvent(q.Buffer(id), evRel, relAxisX, 5)
	q.PushUsed(id, eventWireSize)

	state := input.New()
	d := &Driver{dev: &fakeKicker{}, queue: q, state: state}
	d.drainAvailable()

	snap := state.Read()
	if snap.MX != 5 {
		t.Fatalf("MX = %d, want 5", snap.MX)
	}
}

func TestDrainAvailableIgnoresShortEvent(t *testing.T) {
	q := virtio.NewVirtqueue(8, counterFrames())
	id, _ := q.GetFreeDescID()
	q.PushUsed(id, 2) // shorter than eventWireSize: malformed, must be skipped

	state := input.New()
	d := &Driver{dev: &fakeKicker{}, queue: q, state: state}
	d.drainAvailable()

	snap := state.Read()
	if snap.HistoryLastIndex != 0 {
		t.Fatalf("expected no state change from a short event, history index = %d", snap.HistoryLastIndex)
	}
}
