package virtio

import "fomos/internal/pci"

// Device is one enumerated, negotiated virtio-pci device: its resolved
// capability windows, common config register accessor, and the queues
// it has configured.
type Device struct {
	mmio MMIO
	pciD pci.Device

	common commonCfg
	notify capabilityWindow
	device capabilityWindow

	queues []*Virtqueue
}

// Open resolves device's capability list and returns a Device ready for
// feature negotiation. barBase resolves a BAR
// index to its mapped virtual base address.
func Open(mmio MMIO, cs pci.ConfigSpace, d pci.Device, barBase func(bar uint8) uintptr) *Device {
	windows := discoverCapabilities(cs, d, barBase)
	dev := &Device{mmio: mmio, pciD: d}
	if w, ok := windows[capCommonCfg]; ok {
		dev.common = commonCfg{mmio: mmio, base: w.base}
	}
	dev.notify = windows[capNotifyCfg]
	dev.device = windows[capDeviceCfg]
	return dev
}

// DeviceConfigBase returns the device-specific configuration window's
// base address (e.g. virtio-gpu's num_scanouts, virtio-input's devids),
// for the device-specific driver package to read directly.
func (d *Device) DeviceConfigBase() uintptr { return d.device.base }

// Negotiate runs the standard virtio device status handshake: Acknowledge, Driver, feature negotiation restricted to
// wanted, FeaturesOK, then verifies the device accepted the subset
// before raising DriverOK. It returns false (leaving StatusFailed set)
// if the device rejects the negotiated feature subset.
func (d *Device) Negotiate(wanted uint64) bool {
	d.common.setStatus(0) // reset
	d.common.addStatus(StatusAcknowledge)
	d.common.addStatus(StatusDriver)

	offered := d.common.deviceFeatures()
	negotiated := offered & wanted
	d.common.setDriverFeatures(negotiated)
	d.common.addStatus(StatusFeaturesOK)

	if d.common.status()&StatusFeaturesOK == 0 {
		d.common.addStatus(StatusFailed)
		return false
	}
	return true
}

// FinishNegotiation raises DriverOK, the final handshake step after
// every queue the driver needs has been set up.
func (d *Device) FinishNegotiation() {
	d.common.addStatus(StatusDriverOK)
}

// SetupQueue selects queue index idx, reads back the device's preferred
// queue size, builds a Virtqueue of that size backed by frames, and
// writes the queue's descriptor/avail/used table addresses back before
// enabling it. descAddr/availAddr/usedAddr are the
// guest-physical addresses of the three tables frames ultimately backs —
// in the real kernel these come from the same identity-mapped frame
// allocator as the per-descriptor buffers.
func (d *Device) SetupQueue(idx uint16, frames FrameSource, descAddr, availAddr, usedAddr uint64) *Virtqueue {
	d.common.selectQueue(idx)
	size := d.common.queueSize()
	q := NewVirtqueue(size, frames)
	d.common.setQueueAddrs(descAddr, availAddr, usedAddr)
	d.common.setQueueEnable(true)

	for len(d.queues) <= int(idx) {
		d.queues = append(d.queues, nil)
	}
	d.queues[idx] = q
	return q
}

// Queue returns the previously configured queue at idx.
func (d *Device) Queue(idx uint16) *Virtqueue { return d.queues[idx] }

// Kick rings the device's doorbell for queue idx.
// The notify capability's window is notify_off_multiplier bytes per
// queue, indexed by the queue's own queue_notify_off register (usually,
// but not necessarily, equal to idx).
func (d *Device) Kick(idx uint16) {
	d.common.selectQueue(idx)
	off := d.common.queueNotifyOff()
	addr := d.notify.base + uintptr(uint32(off)*d.notify.notifyOffMultiplier)
	d.mmio.Write16(addr, idx)
}
