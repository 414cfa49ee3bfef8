// Package apic configures the local APIC timer and the I/O APIC
// redirection table. The physical addresses themselves come from ACPI
// parsing, which is out of scope beyond locating these two addresses
// — bootinfo.Info carries them in as already-resolved
// values.
package apic

import (
	"fomos/internal/config"
	"fomos/internal/virtio"
)

// Local APIC register offsets (relative to the local APIC base address),
// per the APIC architecture.
const (
	regSpuriousVector   = 0x0F0
	regLVTTimer         = 0x320
	regTimerInitialCount = 0x380
	regTimerCurrentCount = 0x390
	regTimerDivideConf   = 0x3E0
	regEOI               = 0x0B0
)

const lvtTimerPeriodic = 1 << 17

// LocalAPIC wraps the memory-mapped local APIC register block. mmio is
// internal/virtio's volatile-access interface reused here rather than
// duplicated: a "read/write registers at an address" seam is equally
// useful off the virtio transport, and reusing it lets apic_test.go
// exercise this package with the same hostsim.MMIO double virtio's tests
// already depend on.
type LocalAPIC struct {
	mmio virtio.MMIO
	base uintptr
}

// NewLocalAPIC wraps the local APIC at the given (already virtual)
// address.
func NewLocalAPIC(mmio virtio.MMIO, base uintptr) *LocalAPIC {
	return &LocalAPIC{mmio: mmio, base: base}
}

func (l *LocalAPIC) read(off uintptr) uint32     { return l.mmio.Read32(l.base + off) }
func (l *LocalAPIC) write(off uintptr, v uint32) { l.mmio.Write32(l.base+off, v) }

// ConfigureTimer programs the local-APIC timer in periodic mode, divide
// configuration 0b1011, vector config.TimerVector, targeting
// config.TimerHz firings per second. initialCount is
// computed from the caller-supplied bus frequency as busFreqHz/TimerHz;
// if that quotient is 0 (busFreqHz below TimerHz, including 0 for an
// unknown frequency) a fallback of 1e9/TimerHz is used.
func (l *LocalAPIC) ConfigureTimer(busFreqHz uint64) {
	l.write(regTimerDivideConf, config.TimerDivideConf)
	l.write(regLVTTimer, lvtTimerPeriodic|uint32(config.TimerVector))

	initialCount := busFreqHz / config.TimerHz
	if initialCount == 0 {
		initialCount = uint64(1_000_000_000 / config.TimerHz)
	}
	l.write(regTimerInitialCount, uint32(initialCount))
}

// EOI signals end-of-interrupt to the local APIC. Must be called at the
// end of every interrupt handler that runs off a local-APIC-delivered
// vector, including the timer ISR.
func (l *LocalAPIC) EOI() {
	l.write(regEOI, 0)
}

// IOAPIC wraps the memory-mapped I/O APIC register-select/window pair.
// Interrupts are routed here but, Design Note, no
// virtqueue interrupt handler consumes them: every virtqueue suppresses
// device→driver interrupts and the driver polls
// instead. The redirection table is still programmed because future
// devices may need it.
type IOAPIC struct {
	mmio virtio.MMIO
	base uintptr
}

const (
	ioRegSel = 0x00
	ioWin    = 0x10
)

// NewIOAPIC wraps the I/O APIC at the given (already virtual) address.
func NewIOAPIC(mmio virtio.MMIO, base uintptr) *IOAPIC {
	return &IOAPIC{mmio: mmio, base: base}
}

func (io *IOAPIC) writeReg(reg uint8, v uint32) {
	io.mmio.Write32(io.base+ioRegSel, uint32(reg))
	io.mmio.Write32(io.base+ioWin, v)
}

// RouteIRQ rewrites redirection table entry irq so that it raises vector
// config.IOAPICVectorBase+irq on the bootstrap CPU, unmasked, edge
// triggered, fixed delivery mode.
func (io *IOAPIC) RouteIRQ(irq uint8) {
	vector := uint32(config.IOAPICVectorBase) + uint32(irq)
	low := vector // delivery mode 0 (fixed), edge, active-high, unmasked
	high := uint32(0)
	regLow := 0x10 + irq*2
	regHigh := regLow + 1
	io.writeReg(regHigh, high)
	io.writeReg(regLow, low)
}
