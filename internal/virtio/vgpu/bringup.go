package vgpu

import "fomos/internal/task"

// bringUp runs the full 2D-then-3D bring-up sequence as a single Future,
// then falls straight into the never-ending steady-state transfer/flush
// loop as its last step. Each step is a Sequence step so
// the whole chain suspends cooperatively between requests rather than
// busy-waiting.
func (d *Driver) bringUp(e *task.Executor) task.Future {
	return task.Sequence(
		func() task.Future { return d.stepGetDisplayInfo() },
		func() task.Future { return d.stepGetCapsetInfo() },
		func() task.Future { return d.stepGetEdid() },
		func() task.Future { return d.stepResourceCreate2D() },
		func() task.Future { return d.stepAttachBackingAndRetarget() },
		func() task.Future { return d.stepSetScanout() },
		func() task.Future { return d.stepInitialTransferAndFlush() },
		func() task.Future { return d.stepCtxCreate() },
		func() task.Future { return d.stepResourceCreate3D() },
		func() task.Future { return d.stepCtxAttachResource() },
		func() task.Future { return d.stepResourceAttachBacking3D() },
		func() task.Future { return d.stepSubmit3DClear() },
		func() task.Future { return d.steadyState(e) },
	)
}
