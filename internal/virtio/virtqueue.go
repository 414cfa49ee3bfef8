package virtio

// Descriptor is one entry of a virtqueue's descriptor table: a
// 16-byte, device-visible wire structure (virtio-v1.0 §2.6.5). Addr is
// the guest-physical address of the backing buffer; in this kernel
// every buffer is identity-mapped so Addr doubles as the address the
// driver itself dereferences.
type Descriptor struct {
	Addr  uint64
	Len   uint32
	Flags uint16
	Next  uint16
}

// Descriptor flag bits (virtio-v1.0 §2.6.5).
const (
	DescFNext  uint16 = 1
	DescFWrite uint16 = 2
)

// UsedElem is one entry of the used ring: the descriptor chain head the
// device has finished with, and the number of bytes it wrote.
type UsedElem struct {
	ID  uint32
	Len uint32
}

// FrameSource hands a fresh identity-mapped buffer to a newly
// constructed virtqueue, one per descriptor slot. addr is the guest-physical address of buf; in tests this is
// just an incrementing counter over an ordinary Go byte slice.
type FrameSource func() (addr uint64, buf []byte)

// Virtqueue is the descriptor table plus avail/used ring pair backing
// one virtio queue. It owns no MMIO state: notifying the
// device of new avail entries, and routing IRQs, is the transport
// layer's job (device.go) so that the ring/descriptor bookkeeping here
// can be driven and checked entirely on the host.
type Virtqueue struct {
	size    uint16
	desc    []Descriptor
	buffers [][]byte

	availIdx  uint16
	availSeen uint16 // device-side: how many avail entries have been consumed
	availRing []uint16

	usedSeen uint16 // driver-owned: how many used entries we've consumed
	usedPub  uint16 // device-owned: how many used entries have been published
	usedRing []UsedElem

	// availFlags mirrors the first 16-bit word of the real avail ring
	// (virtio-v1.0 §2.6.6). Every queue this kernel sets up is drained
	// by cooperative polling (pump/drainAvailable loops), never an
	// interrupt handler, so it is initialized to AvailFNoInterrupt and
	// never cleared.
	availFlags uint16

	free []uint16 // LIFO stack of free descriptor ids
}

// AvailFNoInterrupt is VIRTQ_AVAIL_F_NO_INTERRUPT: set in the avail
// ring's flags word to ask the device not to raise a used-buffer
// interrupt for this queue.
const AvailFNoInterrupt uint16 = 1

// NewVirtqueue allocates a queue of the given size, handing out one
// buffer per descriptor slot from frames, with device→driver
// interrupts suppressed from the outset (see AvailFlags).
func NewVirtqueue(size uint16, frames FrameSource) *Virtqueue {
	q := &Virtqueue{
		size:       size,
		desc:       make([]Descriptor, size),
		buffers:    make([][]byte, size),
		availRing:  make([]uint16, size),
		usedRing:   make([]UsedElem, size),
		free:       make([]uint16, size),
		availFlags: AvailFNoInterrupt,
	}
	for i := uint16(0); i < size; i++ {
		addr, buf := frames()
		q.desc[i] = Descriptor{Addr: addr, Len: uint32(len(buf)), Flags: DescFWrite}
		q.buffers[i] = buf
		q.free[i] = i
	}
	return q
}

// Size returns the queue's descriptor table size (its Q).
func (q *Virtqueue) Size() uint16 { return q.size }

// AvailFlags returns the avail ring's flags word, for a transport layer
// that maintains a real in-memory avail ring to publish alongside idx
// and the ring entries themselves.
func (q *Virtqueue) AvailFlags() uint16 { return q.availFlags }

// Buffer returns the backing buffer for descriptor id, for the caller
// to read a device reply out of or write a request payload into.
func (q *Virtqueue) Buffer(id uint16) []byte { return q.buffers[id] }

// ChainNext reports the next descriptor in id's chain, if DescFNext is
// set. A device walking an avail entry uses this to find every
// descriptor in a multi-descriptor request.
func (q *Virtqueue) ChainNext(id uint16) (next uint16, hasNext bool) {
	d := q.desc[id]
	if d.Flags&DescFNext == 0 {
		return 0, false
	}
	return d.Next, true
}

// GetFreeDescID pops one descriptor id off the free pool. ok is false
// if the pool is exhausted.
func (q *Virtqueue) GetFreeDescID() (id uint16, ok bool) {
	n := len(q.free)
	if n == 0 {
		return 0, false
	}
	id = q.free[n-1]
	q.free = q.free[:n-1]
	return id, true
}

// GetFreeTwice pops two descriptor ids and chains the first onto the
// second (head.Next = tail, head gets DescFNext set), the shape every
// request/reply round trip needs: a driver-write descriptor followed
// by a device-write reply descriptor.
func (q *Virtqueue) GetFreeTwice() (head, tail uint16, ok bool) {
	head, ok = q.GetFreeDescID()
	if !ok {
		return 0, 0, false
	}
	tail, ok = q.GetFreeDescID()
	if !ok {
		q.SetFree(head)
		return 0, 0, false
	}
	q.desc[head].Next = tail
	q.desc[head].Flags |= DescFNext
	return head, tail, true
}

// SetFree returns descriptor id to the free pool, resetting it to the
// default single-descriptor, writable, unchained state.
func (q *Virtqueue) SetFree(id uint16) {
	q.desc[id].Flags = DescFWrite
	q.desc[id].Next = 0
	q.desc[id].Len = uint32(len(q.buffers[id]))
	q.free = append(q.free, id)
}

// SetWritable sets or clears a descriptor's device-writable flag
// (clear it for a driver→device request descriptor, set it — the
// default — for a device→driver reply descriptor).
func (q *Virtqueue) SetWritable(id uint16, writable bool) {
	if writable {
		q.desc[id].Flags |= DescFWrite
	} else {
		q.desc[id].Flags &^= DescFWrite
	}
}

// SetAvailable publishes descriptor chain head onto the avail ring and
// advances avail.idx, making it visible to the device. It does not notify the device; callers needing a doorbell
// ring should follow up with the transport's Kick.
func (q *Virtqueue) SetAvailable(head uint16) {
	q.availRing[q.availIdx%q.size] = head
	q.availIdx++
}

// AvailIdx returns the current avail.idx, the counter that wraps mod Q
// as serial requests accumulate.
func (q *Virtqueue) AvailIdx() uint16 { return q.availIdx }

// PopAvail is the device side of the avail ring: it returns the next
// published descriptor chain head the driver has not yet had consumed,
// if any. Real virtio hardware does this internally; a host-side device
// simulation (a test, or a future mock-device package) calls it
// directly to find the next request to service before replying with
// PushUsed.
func (q *Virtqueue) PopAvail() (head uint16, ok bool) {
	if q.availSeen == q.availIdx {
		return 0, false
	}
	head = q.availRing[q.availSeen%q.size]
	q.availSeen++
	return head, true
}

// AddRequest is the common request/reply pattern: grab two descriptors,
// copy payload into the head (request) descriptor's buffer marked
// driver-write, leave the tail (reply) descriptor device-writable, and
// publish the chain. It returns both ids: head to match a later used-
// ring entry against, tail so the caller can free it alongside head
// once that reply has been consumed.
func (q *Virtqueue) AddRequest(payload []byte) (head, tail uint16, ok bool) {
	head, tail, ok = q.GetFreeTwice()
	if !ok {
		return 0, 0, false
	}
	q.SetWritable(head, false)
	buf := q.buffers[head]
	n := copy(buf, payload)
	q.desc[head].Len = uint32(n)
	q.SetWritable(tail, true)
	q.SetAvailable(head)
	return head, tail, true
}

// PushUsed is the device side of a round trip: real hardware writes
// this entry itself, but a simulated device (internal/hostsim-backed
// tests, or a future mock-device package) calls it directly to produce
// a reply without real hardware behind the queue.
func (q *Virtqueue) PushUsed(id uint16, length uint32) {
	q.usedRing[q.usedPub%q.size] = UsedElem{ID: uint32(id), Len: length}
	q.usedPub++
}

// NextUsed pops the next used-ring entry the device has published, if
// any. It does not return the consumed descriptor(s) to the free pool —
// callers do that explicitly via SetFree once they've read any reply
// payload out of the buffer.
func (q *Virtqueue) NextUsed() (UsedElem, bool) {
	if q.usedSeen == q.usedPub {
		return UsedElem{}, false
	}
	e := q.usedRing[q.usedSeen%q.size]
	q.usedSeen++
	return e, true
}
