// Package config holds the build-time constants that size and shape the
// kernel core. There is no runtime configuration layer — this is a
// freestanding kernel, not a service with flags or environment variables.
package config

const (
	// PageSize is the architectural page size on x86-64.
	PageSize = 4096

	// HeapSize is the size in bytes of the virtual range the kernel heap
	// (internal/heap) is initialized over.
	HeapSize = 128 * 1024 * 1024

	// HeapAlignment is the minimum alignment guaranteed by heap allocations.
	HeapAlignment = 16

	// VirtqueueMaxSize bounds the queue size this kernel will negotiate
	// with a device, even if the device reports a larger one.
	VirtqueueMaxSize = 256

	// TimerVector is the interrupt vector the local-APIC timer is wired to.
	TimerVector = 48

	// TimerHz is the target local-APIC timer interrupt frequency.
	TimerHz = 1000

	// TimerDivideConf is the local-APIC timer divide configuration value
	// (divide by 1, encoded 0b1011 per the APIC architecture).
	TimerDivideConf = 0b1011

	// IOAPICVectorBase is the first vector assigned to IOAPIC redirection
	// entries; IRQ i is routed to vector IOAPICVectorBase+i.
	IOAPICVectorBase = 50

	// SleepWakerSlots bounds the number of outstanding sleep() futures the
	// timer interrupt handler will wake per tick.
	SleepWakerSlots = 128

	// TaskQueueCapacity bounds the executor's ready-queue and spawn-queue.
	TaskQueueCapacity = 100

	// YieldWakerCapacity bounds the executor's yield_once waker ring.
	YieldWakerCapacity = 100

	// GPUWaiterSlots is the size of the GPU driver's per-descriptor waiter
	// table.
	GPUWaiterSlots = 256

	// OverrideDisplayWidth/Height replace whatever GetDisplayInfo reports,
	// kept as a named build-time constant rather than a literal scattered
	// through the driver.
	OverrideDisplayWidth  = 1600
	OverrideDisplayHeight = 900

	// Virgl3DContextID and Virgl3DResourceID are the fixed ids used by the
	// experimental 3D bring-up.
	Virgl3DContextID  = 1
	Virgl3DResourceID = 2
	Virgl3DWidth      = 256
	Virgl3DHeight      = 256
	Virgl3DSubmitWords = 512

	// GPU2DResourceID is the resource id used for the 2D scanout pipeline.
	GPU2DResourceID = 1

	// MaxProcesses bounds the monotonic process-id counter only in the
	// sense that it documents the expected scale; it is not enforced.
	MaxProcesses = 64
)
