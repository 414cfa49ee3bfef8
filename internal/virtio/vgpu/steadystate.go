package vgpu

import "fomos/internal/task"

// steadyState is the never-ending per-frame transfer/flush loop
//: once bring-up is complete, every iteration
// pushes the framebuffer's current contents to the host and flushes
// scanout 0, suspending while each request awaits its reply and
// yielding once at the end of each iteration so the application runtime loop
// (internal/apprt) and other tasks get to run between frames.
func (d *Driver) steadyState(e *task.Executor) task.Future {
	return task.NewLoop(func() task.Future {
		return task.Sequence(
			func() task.Future {
				return d.requestThen(encodeTransferToHost2D(d.resourceID, d.width, d.height), func(reply []byte) {})
			},
			func() task.Future {
				return d.requestThen(encodeResourceFlush(d.resourceID, d.width, d.height), func(reply []byte) {})
			},
			func() task.Future { return task.YieldOnce(e) },
		)
	})
}
