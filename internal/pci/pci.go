// Package pci implements brute-force PCI bus/slot/function enumeration,
// the 0xCF8/0xCFC config-space port protocol, capability walking, and
// BAR decoding.
package pci

import "fomos/internal/asmx"

const (
	configAddressPort = 0x0CF8
	configDataPort    = 0x0CFC

	// Config space offsets.
	offVendorID    = 0x00
	offDeviceID    = 0x02
	offCommand     = 0x04
	offCapPointer  = 0x34

	vendorIDAbsent = 0xFFFF
)

// ConfigSpace is the minimal interface this package needs to read/write
// PCI configuration space. The real implementation (PortIOConfigSpace)
// drives the 0xCF8/0xCFC ports; tests substitute a fake so the
// enumeration, capability-walk, and BAR-decode logic can run on a
// development machine (see internal/hostsim).
type ConfigSpace interface {
	Read32(bus, slot, fn uint8, offset uint8) uint32
	Write32(bus, slot, fn uint8, offset uint8, value uint32)
}

// PortIOConfigSpace is the real, port-I/O-backed ConfigSpace.
type PortIOConfigSpace struct{}

func configAddress(bus, slot, fn uint8, offset uint8) uint32 {
	return 1<<31 |
		uint32(bus)<<16 |
		uint32(slot)<<11 |
		uint32(fn)<<8 |
		uint32(offset&0xFC)
}

// Read32 reads a 32-bit-aligned dword from bus/slot/fn's config space at
// offset.
func (PortIOConfigSpace) Read32(bus, slot, fn uint8, offset uint8) uint32 {
	asmx.Out32(configAddressPort, configAddress(bus, slot, fn, offset))
	return asmx.In32(configDataPort)
}

// Write32 writes a 32-bit-aligned dword to bus/slot/fn's config space at
// offset.
func (PortIOConfigSpace) Write32(bus, slot, fn uint8, offset uint8, value uint32) {
	asmx.Out32(configAddressPort, configAddress(bus, slot, fn, offset))
	asmx.Out32(configDataPort, value)
}

// Device identifies one PCI function discovered during enumeration.
type Device struct {
	Bus, Slot, Func uint8
	VendorID        uint16
	DeviceID        uint16
}

// Scan performs the brute-force bus∈[0,256) × slot∈[0,32) × func∈[0,8)
// scan specifies, filtering out absent functions
// (vendor == 0xFFFF).
func Scan(cfg ConfigSpace) []Device {
	var found []Device
	for bus := 0; bus < 256; bus++ {
		for slot := 0; slot < 32; slot++ {
			for fn := 0; fn < 8; fn++ {
				reg := cfg.Read32(uint8(bus), uint8(slot), uint8(fn), offVendorID)
				vendor := uint16(reg & 0xFFFF)
				if vendor == vendorIDAbsent {
					continue
				}
				device := uint16(reg >> 16)
				found = append(found, Device{
					Bus: uint8(bus), Slot: uint8(slot), Func: uint8(fn),
					VendorID: vendor, DeviceID: device,
				})
			}
		}
	}
	return found
}

// EnableBusMaster sets the I/O space, memory space, and bus master
// enable bits in the PCI command register, which every virtio device
// needs before it will respond to MMIO/DMA.
func EnableBusMaster(cfg ConfigSpace, d Device) {
	cmd := cfg.Read32(d.Bus, d.Slot, d.Func, offCommand)
	cmd |= 0x7
	cfg.Write32(d.Bus, d.Slot, d.Func, offCommand, cmd)
}

// Capability is one entry of the PCI capability linked list.
type Capability struct {
	ID     uint8
	Offset uint8
}

// WalkCapabilities follows the capability linked list starting at offset
// 0x34, returning every entry found.
func WalkCapabilities(cfg ConfigSpace, d Device) []Capability {
	var caps []Capability
	ptr := uint8(cfg.Read32(d.Bus, d.Slot, d.Func, offCapPointer) & 0xFF)
	seen := make(map[uint8]bool)
	for ptr != 0 && !seen[ptr] {
		seen[ptr] = true
		word := cfg.Read32(d.Bus, d.Slot, d.Func, ptr)
		id := uint8(word & 0xFF)
		next := uint8((word >> 8) & 0xFF)
		caps = append(caps, Capability{ID: id, Offset: ptr})
		ptr = next
	}
	return caps
}

// Bar is the decoded result of reading a Base Address Register. A zero
// value (Kind == BarNone) results from an unpopulated BAR, or from a
// 64-bit BAR whose combined masked value is zero.
type Bar struct {
	Kind BarKind
	Addr uint64 // memory or I/O base address, masked
	Is64 bool
}

type BarKind int

const (
	BarNone BarKind = iota
	BarIO
	BarMemory32
	BarMemory64
)

// ReadBar decodes the BAR at logical index barIndex (0-5), following the
// 64-bit combining rule: if the low BAR's type bits indicate a 64-bit
// memory BAR, the next BAR slot is read and combined.
func ReadBar(cfg ConfigSpace, d Device, barIndex int) Bar {
	offset := uint8(0x10 + barIndex*4)
	low := cfg.Read32(d.Bus, d.Slot, d.Func, offset)
	if low == 0 {
		return Bar{Kind: BarNone}
	}
	if low&0x1 == 1 {
		return Bar{Kind: BarIO, Addr: uint64(low &^ 0x3)}
	}
	memType := (low >> 1) & 0x3
	if memType == 0x2 { // 64-bit
		high := cfg.Read32(d.Bus, d.Slot, d.Func, offset+4)
		addr := (uint64(high) << 32) | uint64(low&^0xF)
		if addr == 0 {
			return Bar{Kind: BarNone}
		}
		return Bar{Kind: BarMemory64, Addr: addr, Is64: true}
	}
	return Bar{Kind: BarMemory32, Addr: uint64(low &^ 0xF)}
}
