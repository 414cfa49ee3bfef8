// Package boot wires every driver into a single running kernel: it owns
// the one-time initialization sequence and the singletons every driver
// shares — a single narrated, sequential setup function run once from
// the bootstrap CPU, logging each stage as it completes, with the real
// hardware entry calling it directly rather than through Go's own func
// main().
package boot

import (
	"unsafe"

	"fomos/internal/apic"
	"fomos/internal/apprt"
	"fomos/internal/bootinfo"
	"fomos/internal/config"
	"fomos/internal/framebuffer"
	"fomos/internal/gpu"
	"fomos/internal/heap"
	"fomos/internal/input"
	"fomos/internal/klog"
	"fomos/internal/memory"
	"fomos/internal/pci"
	"fomos/internal/task"
	"fomos/internal/timer"
	"fomos/internal/virtio"
	"fomos/internal/virtio/vgpu"
	"fomos/internal/virtio/vinput"
)

// Virtio-pci vendor id and the modern (1.0) transitional device ids for
// the two devices this kernel drives.
const (
	virtioVendorID      = 0x1AF4
	virtioGPUDeviceID   = 0x1050
	virtioInputDeviceID = 0x1052

	// Feature bits hard-codes: GPU negotiates virgl (bit 0)
	// and edid (bit 1); input negotiates nothing.
	gpuWantedFeatures   = 0b11
	inputWantedFeatures = 0
)

// Kernel holds every long-lived singleton assembled during boot, for
// cmd/kernel's entry point to drive after Start returns.
type Kernel struct {
	Executor *task.Executor
	Clock    *timer.Clock
	LAPIC    *apic.LocalAPIC
	IOAPIC   *apic.IOAPIC
}

// Start runs the one-time initialization sequence and returns a Kernel
// with every driver already spawned onto its executor; the caller is
// responsible for calling Executor.Run(nil) and for wiring the
// interrupt vectors (config.TimerVector, config.IOAPICVectorBase+irq)
// to Clock.Tick/LAPIC.EOI and the virtio input/GPU polling this kernel
// otherwise never needs interrupts for.
func Start(info *bootinfo.Info, cfg pci.ConfigSpace, logSink klog.Writer) *Kernel {
	klog.Install(logSink)
	klog.Puts("fomos: boot starting")

	alloc := memory.NewAllocator(info.MemoryMap, info.PhysicalMemoryOffset)

	klog.Puts("fomos: initializing heap")
	heapPages := config.HeapSize / config.PageSize
	heapBase := alloc.ReserveContiguous(heapPages)
	heapArena := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(heapBase))), config.HeapSize)
	kheap := heap.New(heapArena)

	klog.Puts("fomos: initializing framebuffer")
	fb := framebuffer.New(info.Framebuffer.Width, info.Framebuffer.Height)

	clock := timer.NewClock()
	inputState := input.New()

	mmio := virtio.PortMMIO{}
	lapic := apic.NewLocalAPIC(mmio, info.LocalAPICAddr)
	lapic.ConfigureTimer(0) // bus frequency unknown at this boot stage; fallback applies
	ioapic := apic.NewIOAPIC(mmio, info.IOAPICAddr)

	klog.Puts("fomos: scanning PCI bus")
	devices := pci.Scan(cfg)

	executor := task.NewExecutor()

	if gpuDev, ok := findDevice(devices, virtioGPUDeviceID); ok {
		klog.Puts("fomos: bringing up virtio-gpu")
		startGPU(executor, cfg, gpuDev, alloc, fb)
	} else {
		klog.Puts("fomos: no virtio-gpu device found, scanout disabled")
	}

	if inputDev, ok := findDevice(devices, virtioInputDeviceID); ok {
		klog.Puts("fomos: bringing up virtio-input")
		startInput(executor, cfg, inputDev, alloc, inputState)
	} else {
		klog.Puts("fomos: no virtio-input device found")
	}

	rt := apprt.New(kheap, inputState, fb, clock, func(msg []byte) { klog.Put(string(msg)) })
	executor.Spawn(rt.Task(executor))

	klog.Puts("fomos: boot complete, entering scheduler")
	return &Kernel{Executor: executor, Clock: clock, LAPIC: lapic, IOAPIC: ioapic}
}

// findDevice returns the first scanned device matching the virtio vendor
// id and the given device id.
func findDevice(devices []pci.Device, deviceID uint16) (pci.Device, bool) {
	for _, d := range devices {
		if d.VendorID == virtioVendorID && d.DeviceID == deviceID {
			return d, true
		}
	}
	return pci.Device{}, false
}

// barBaseFunc resolves a PCI BAR index to its mapped virtual base
// address. Every BAR this kernel cares about is a memory BAR the
// bootloader/page mapper has already identity-mapped, so
// resolving it is just reading and masking the BAR register.
func barBaseFunc(cfg pci.ConfigSpace, d pci.Device) func(bar uint8) uintptr {
	return func(bar uint8) uintptr {
		return uintptr(pci.ReadBar(cfg, d, int(bar)).Addr)
	}
}

// startGPU negotiates the virtio-gpu device, sets up its single control
// queue, and spawns the driver's bring-up/steady-state task plus its
// used-ring pump task.
func startGPU(e *task.Executor, cfg pci.ConfigSpace, d pci.Device, alloc *memory.Allocator, fb *framebuffer.Framebuffer) {
	pci.EnableBusMaster(cfg, d)
	dev := virtio.Open(virtio.PortMMIO{}, cfg, d, barBaseFunc(cfg, d))
	if !dev.Negotiate(gpuWantedFeatures) {
		klog.Puts("fomos: virtio-gpu feature negotiation refused")
		return
	}

	frames := frameSourceFromAllocator(alloc)
	descAddr, availAddr, usedAddr := frames.threeAddrs()
	queue := dev.SetupQueue(0, frames.source, descAddr, availAddr, usedAddr)
	dev.FinishNegotiation()

	allocBacking := func(w, h uint32) (uint64, []framebuffer.RGBA) {
		n := int(w) * int(h)
		pages := (n*4 + config.PageSize - 1) / config.PageSize
		base := alloc.ReserveContiguous(pages)
		pixels := unsafe.Slice((*framebuffer.RGBA)(unsafe.Pointer(uintptr(base))), n)
		return uint64(base), pixels
	}

	d2 := vgpu.New(dev, queue, fb, allocBacking, func() {
		gpu.DrawTestPattern(fb.Share(), "fomos")
	})
	vgpu.SpawnOnto(e, d2)
}

// startInput negotiates the virtio-input device, sets up its event
// queue prepopulated with one buffer per descriptor, and spawns the
// driver's drain loop.
func startInput(e *task.Executor, cfg pci.ConfigSpace, d pci.Device, alloc *memory.Allocator, state *input.State) {
	pci.EnableBusMaster(cfg, d)
	dev := virtio.Open(virtio.PortMMIO{}, cfg, d, barBaseFunc(cfg, d))
	if !dev.Negotiate(inputWantedFeatures) {
		klog.Puts("fomos: virtio-input feature negotiation refused")
		return
	}

	frames := frameSourceFromAllocator(alloc)
	descAddr, availAddr, usedAddr := frames.threeAddrs()
	queue := dev.SetupQueue(0, frames.source, descAddr, availAddr, usedAddr)
	dev.FinishNegotiation()

	for id := uint16(0); id < queue.Size(); id++ {
		queue.SetWritable(id, true)
		queue.SetAvailable(id)
	}

	drv := vinput.New(dev, queue, state)
	e.Spawn(drv.Task(e))
}

// allocatorFrames backs a virtio.FrameSource with the physical frame
// allocator: each call hands out one fresh identity-mapped page.
type allocatorFrames struct {
	alloc *memory.Allocator
}

func frameSourceFromAllocator(alloc *memory.Allocator) allocatorFrames {
	return allocatorFrames{alloc: alloc}
}

func (f allocatorFrames) source() (uint64, []byte) {
	base := alloc0(f.alloc)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(base))), config.PageSize)
	return uint64(base), buf
}

// threeAddrs reserves the descriptor table, avail ring, and used ring as
// three separate single-page regions — ample for the small queue sizes
// this kernel negotiates.
func (f allocatorFrames) threeAddrs() (desc, avail, used uint64) {
	return uint64(alloc0(f.alloc)), uint64(alloc0(f.alloc)), uint64(alloc0(f.alloc))
}

func alloc0(alloc *memory.Allocator) memory.VirtualPage {
	return alloc.ReserveContiguous(1)
}
