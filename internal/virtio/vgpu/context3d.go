package vgpu

import (
	"fomos/internal/config"
	"fomos/internal/task"
)

// stepCtxCreate creates the 3D context used by the experimental virgl
// bring-up.
func (d *Driver) stepCtxCreate() task.Future {
	return d.requestThen(encodeCtxCreate(d.ctxID, "fomos-3d"), func(reply []byte) {})
}

// stepResourceCreate3D creates the fixed-id 3D render target resource
// under the bring-up context. This is experimental bring-up, not
// carried to steady state: the resource exists only to be cleared once
// as a proof the 3D command path works end to end.
func (d *Driver) stepResourceCreate3D() task.Future {
	return d.requestThen(
		encodeResourceCreate3D(d.ctxID, config.Virgl3DResourceID, config.Virgl3DWidth, config.Virgl3DHeight),
		func(reply []byte) {},
	)
}

// stepCtxAttachResource binds the 3D resource into the bring-up
// context, required before any virgl command in that context can
// reference the resource's handle.
func (d *Driver) stepCtxAttachResource() task.Future {
	return d.requestThen(encodeCtxAttachResource(d.ctxID, config.Virgl3DResourceID), func(reply []byte) {})
}

// stepResourceAttachBacking3D gives the 3D resource guest memory to
// render into, mirroring the 2D scanout resource's attach step but
// under the bring-up context and at the fixed experimental dimensions.
func (d *Driver) stepResourceAttachBacking3D() task.Future {
	addr, _ := d.allocBacking(config.Virgl3DWidth, config.Virgl3DHeight)
	length := uint32(config.Virgl3DWidth) * uint32(config.Virgl3DHeight) * 4
	return d.requestThen(
		encodeAttachBacking(config.Virgl3DResourceID, d.ctxID, addr, length),
		func(reply []byte) {},
	)
}

// stepSubmit3DClear submits the one-shot virgl command stream that
// creates a surface over the 3D resource, binds it as the sole
// framebuffer color target, and clears it to opaque red — the
// "render something, anything" proof this experimental bring-up is
// after. The command words are padded to config.Virgl3DSubmitWords; the
// SUBMIT_3D size field tells the host only the real prefix matters.
func (d *Driver) stepSubmit3DClear() task.Future {
	cmdBuf, used := buildVirgl3DClearCommands(config.Virgl3DResourceID, config.Virgl3DSubmitWords)
	return d.requestThen(encodeSubmit3D(d.ctxID, cmdBuf, uint32(used*4)), func(reply []byte) {})
}
