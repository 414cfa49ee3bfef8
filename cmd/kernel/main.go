// Command kernel is the freestanding entry point: it exists only to give
// Go's c-archive build mode a func main() to link, and to hold
// KernelMain, the real entry a hand-written boot stub calls directly
// once the bootloader has handed off control.
package main

import (
	"fomos/internal/boot"
	"fomos/internal/bootinfo"
	"fomos/internal/klog"
	"fomos/internal/pci"
)

// KernelMain is called once, on the bootstrap CPU, by the hand-written
// boot stub after it has built info and pivoted onto the kernel's own
// stack. It never returns.
//
//go:nosplit
//go:noinline
func KernelMain(info *bootinfo.Info, logSink klog.Writer) {
	k := boot.Start(info, pci.PortIOConfigSpace{}, logSink)

	// The local-APIC timer ISR (vector config.TimerVector) and every
	// IOAPIC-routed ISR live in the hand-written interrupt stub, which
	// calls k.Clock.Tick()/k.LAPIC.EOI() directly; there is no Go-side
	// registration step because this kernel installs its IDT outside the
	// Go source tree.
	k.Executor.Run(nil)
}

// Dummy main() required by Go's c-archive build mode. The boot stub
// calls KernelMain directly; this is never reached on real hardware, but
// without it the compiler and linker have no entry point to build
// around, and KernelMain itself would be considered unreachable and
// eligible for removal.
func main() {
	KernelMain(nil, klog.Discard)
	for {
	}
}
