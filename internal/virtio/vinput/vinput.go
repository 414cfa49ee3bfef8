// Package vinput implements the virtio-input driver. It polls
// queue 0 for input events the device has filled in, translates them
// into internal/input state-machine calls, and republishes the
// consumed buffer so the device can reuse it — all as a single
// cooperative task.
//
// It reuses the same transfer/flush polling loop style this codebase's
// other virtio drivers use, generalized from GPU command/response
// buffers to virtio-input's unsolicited event stream, decoding the
// Linux input event codes a desktop-shell application cares about.
package vinput

import (
	"encoding/binary"

	"fomos/internal/input"
	"fomos/internal/task"
	"fomos/internal/virtio"
)

// Linux input event types this driver understands (virtio-v1.0 §5.8.5
// reuses the Linux input-event-codes.h namespace).
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
)

// relAxisX/relAxisY are the REL_X/REL_Y codes under EV_REL.
const (
	relAxisX = 0x00
	relAxisY = 0x01
)

const eventWireSize = 8 // le16 type, le16 code, le32 value

// wireEvent decodes one virtio_input_event from a descriptor buffer.
type wireEvent struct {
	typ, code uint16
	value     int32
}

func decodeEvent(buf []byte) wireEvent {
	return wireEvent{
		typ:   binary.LittleEndian.Uint16(buf[0:2]),
		code:  binary.LittleEndian.Uint16(buf[2:4]),
		value: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}

// kicker is the one piece of device state the driver needs beyond the
// queue itself: a way to ring the doorbell after recycling a
// descriptor. *virtio.Device satisfies this; tests substitute a
// counting fake so the translation logic can run without PCI/MMIO.
type kicker interface {
	Kick(queueIndex uint16)
}

// Driver is the virtio-input task: it owns the event queue and the
// shared input state it feeds.
type Driver struct {
	dev   kicker
	queue *virtio.Virtqueue
	state *input.State
}

// New wires a negotiated virtio-input device's event queue (queue
// index 0) to state. dev.SetupQueue must already have been called for
// queue 0 before New is invoked.
func New(dev *virtio.Device, queue *virtio.Virtqueue, state *input.State) *Driver {
	return &Driver{dev: dev, queue: queue, state: state}
}

// Task returns the never-ending Future that drains available events
// every poll and translates each into a state-machine call, spawned
// once onto the executor during boot.
func (d *Driver) Task(e *task.Executor) task.Future {
	return task.NewLoop(func() task.Future {
		d.drainAvailable()
		return task.YieldOnce(e)
	})
}

// drainAvailable consumes every event the device has published since
// the last poll, applies each to the shared input state, and recycles
// the descriptor back onto the avail ring so the device can refill it.
func (d *Driver) drainAvailable() {
	for {
		used, ok := d.queue.NextUsed()
		if !ok {
			return
		}
		id := uint16(used.ID)
		buf := d.queue.Buffer(id)
		if used.Len >= eventWireSize {
			d.apply(decodeEvent(buf))
		}
		// Recycle: the same descriptor goes straight back onto the avail
		// ring as a fresh device-writable buffer for the next event.
		d.queue.SetAvailable(id)
		d.dev.Kick(0)
	}
}

func (d *Driver) apply(ev wireEvent) {
	switch ev.typ {
	case evKey:
		d.state.Update(func(s *input.Snapshot) {
			s.HandleKeyEvent(int(ev.code), ev.value != 0)
		})
	case evRel:
		axis := -1
		switch ev.code {
		case relAxisX:
			axis = 0
		case relAxisY:
			axis = 1
		}
		if axis >= 0 {
			d.state.Update(func(s *input.Snapshot) {
				s.AddRelMotion(axis, ev.value)
			})
		}
	case evSyn:
		// Frame-boundary marker; internal/input's own Step (called once
		// per application frame by internal/apprt) handles transitional
		// state collapse, so there is nothing to do here.
	}
}
