package vgpu

import (
	"fomos/internal/config"
	"fomos/internal/task"
)

// applyOnce runs a request to completion and applies a side-effecting
// callback to its reply exactly once, the instant it resolves — the
// shape every bring-up step needs.
type applyOnce struct {
	inner   *requestFuture
	apply   func([]byte)
	applied bool
}

func (a *applyOnce) Poll(w *task.Waker) bool {
	if !a.inner.Poll(w) {
		return false
	}
	if !a.applied {
		a.apply(a.inner.Result())
		a.applied = true
	}
	return true
}

func (d *Driver) requestThen(payload []byte, apply func([]byte)) task.Future {
	return &applyOnce{inner: d.request(payload), apply: apply}
}

// stepGetDisplayInfo sends GET_DISPLAY_INFO and overrides whatever the
// device reports with config.OverrideDisplayWidth/Height: the override
// always wins, the reply is only consulted to confirm the device
// answered.
func (d *Driver) stepGetDisplayInfo() task.Future {
	return d.requestThen(encodeGetDisplayInfo(), func(reply []byte) {
		decodeDisplayInfoDims(reply) // device's own dims are discarded by design
		d.width = config.OverrideDisplayWidth
		d.height = config.OverrideDisplayHeight
	})
}

// stepGetCapsetInfo probes capset 0, informational only: its reply is
// not currently acted on, but sending it leaves a place for a future
// virgl capability negotiation to plug in.
func (d *Driver) stepGetCapsetInfo() task.Future {
	return d.requestThen(encodeGetCapsetInfo(0), func(reply []byte) {})
}

// stepGetEdid probes EDID for scanout 0; like capset info, this is
// bring-up housekeeping whose reply this minimal driver does not yet
// act on.
func (d *Driver) stepGetEdid() task.Future {
	return d.requestThen(encodeGetEdid(0), func(reply []byte) {})
}

// stepResourceCreate2D creates the 2D scanout resource at the
// (overridden) display dimensions.
func (d *Driver) stepResourceCreate2D() task.Future {
	return d.requestThen(encodeResourceCreate2D(d.resourceID, d.width, d.height), func(reply []byte) {})
}

// stepAttachBackingAndRetarget allocates the resource's backing pixel
// buffer, attaches it to the device, and retargets the shared
// framebuffer onto it — from this point on, application writes into
// the framebuffer are writes into memory the device itself scans out
// of.
func (d *Driver) stepAttachBackingAndRetarget() task.Future {
	addr, pixels := d.allocBacking(d.width, d.height)
	length := d.width * d.height * 4
	return d.requestThen(encodeAttachBacking(d.resourceID, 0, addr, length), func(reply []byte) {
		d.fb.Retarget(pixels, int(d.width), int(d.height))
		if d.onScanoutLive != nil {
			d.onScanoutLive()
		}
	})
}

// stepSetScanout assigns the 2D resource to scanout 0 at full size.
func (d *Driver) stepSetScanout() task.Future {
	return d.requestThen(encodeSetScanout(0, d.resourceID, d.width, d.height), func(reply []byte) {})
}

// stepInitialTransferAndFlush pushes the framebuffer's current contents
// (whatever the onScanoutLive hook drew at retarget, if one is set; the
// backing memory is not cleared here) to the host and flushes scanout 0
// once.
func (d *Driver) stepInitialTransferAndFlush() task.Future {
	return task.Sequence(
		func() task.Future {
			return d.requestThen(encodeTransferToHost2D(d.resourceID, d.width, d.height), func(reply []byte) {})
		},
		func() task.Future {
			return d.requestThen(encodeResourceFlush(d.resourceID, d.width, d.height), func(reply []byte) {})
		},
	)
}
