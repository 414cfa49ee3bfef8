// Package hostsim is a host-buildable simulation of the port I/O and
// MMIO backing store the kernel core otherwise only has on real x86-64
// hardware. It exists purely so internal/pci and internal/virtio's logic
// (bus scanning, capability walking, descriptor management, avail/used
// ring protocol) can be exercised by `go test` on a development machine,
// rather than only inside QEMU or on hardware — the same motivation as
// the pack's use of raw syscall/ioctl shims for testing low-level code
// paths without the real kernel underneath.
package hostsim

import "fomos/internal/pci"

type key struct{ bus, slot, fn uint8 }

// ConfigSpace is an in-memory stand-in for pci.ConfigSpace: a sparse map
// of (bus,slot,fn) to a 256-byte config space block.
type ConfigSpace struct {
	funcs map[key]*[256]byte
}

// NewConfigSpace returns an empty simulated PCI config space.
func NewConfigSpace() *ConfigSpace {
	return &ConfigSpace{funcs: make(map[key]*[256]byte)}
}

// AddFunction installs a present PCI function at bus/slot/fn with the
// given vendor/device id, and returns the 256-byte block for the caller
// to populate further (BARs, capability list, command register).
func (c *ConfigSpace) AddFunction(bus, slot, fn uint8, vendorID, deviceID uint16) *[256]byte {
	k := key{bus, slot, fn}
	block := &[256]byte{}
	block[0], block[1] = byte(vendorID), byte(vendorID>>8)
	block[2], block[3] = byte(deviceID), byte(deviceID>>8)
	c.funcs[k] = block
	return block
}

// Read32 implements pci.ConfigSpace.
func (c *ConfigSpace) Read32(bus, slot, fn uint8, offset uint8) uint32 {
	block, ok := c.funcs[key{bus, slot, fn}]
	if !ok {
		return 0xFFFFFFFF
	}
	off := offset &^ 0x3
	return uint32(block[off]) | uint32(block[off+1])<<8 | uint32(block[off+2])<<16 | uint32(block[off+3])<<24
}

// Write32 implements pci.ConfigSpace.
func (c *ConfigSpace) Write32(bus, slot, fn uint8, offset uint8, value uint32) {
	block, ok := c.funcs[key{bus, slot, fn}]
	if !ok {
		return
	}
	off := offset &^ 0x3
	block[off] = byte(value)
	block[off+1] = byte(value >> 8)
	block[off+2] = byte(value >> 16)
	block[off+3] = byte(value >> 24)
}

var _ pci.ConfigSpace = (*ConfigSpace)(nil)

// MMIO is an in-memory stand-in for a mapped MMIO register window: a
// flat byte slice addressed relative to a configurable base, used by
// internal/virtio's tests in place of real PCI BAR-mapped memory.
type MMIO struct {
	base uintptr
	mem  []byte
}

// NewMMIO returns an MMIO window of size bytes, addressable starting at
// base.
func NewMMIO(base uintptr, size int) *MMIO {
	return &MMIO{base: base, mem: make([]byte, size)}
}

// Base returns the simulated base address, for constructing addresses to
// pass into the driver under test the same way a real BAR + offset would
// be computed.
func (m *MMIO) Base() uintptr { return m.base }

func (m *MMIO) off(addr uintptr) uintptr { return addr - m.base }

func (m *MMIO) Read8(addr uintptr) uint8   { return m.mem[m.off(addr)] }
func (m *MMIO) Read16(addr uintptr) uint16 {
	o := m.off(addr)
	return uint16(m.mem[o]) | uint16(m.mem[o+1])<<8
}
func (m *MMIO) Read32(addr uintptr) uint32 {
	o := m.off(addr)
	return uint32(m.mem[o]) | uint32(m.mem[o+1])<<8 | uint32(m.mem[o+2])<<16 | uint32(m.mem[o+3])<<24
}
func (m *MMIO) Read64(addr uintptr) uint64 {
	lo := uint64(m.Read32(addr))
	hi := uint64(m.Read32(addr + 4))
	return lo | hi<<32
}

func (m *MMIO) Write8(addr uintptr, v uint8) { m.mem[m.off(addr)] = v }
func (m *MMIO) Write16(addr uintptr, v uint16) {
	o := m.off(addr)
	m.mem[o] = byte(v)
	m.mem[o+1] = byte(v >> 8)
}
func (m *MMIO) Write32(addr uintptr, v uint32) {
	o := m.off(addr)
	m.mem[o] = byte(v)
	m.mem[o+1] = byte(v >> 8)
	m.mem[o+2] = byte(v >> 16)
	m.mem[o+3] = byte(v >> 24)
}
func (m *MMIO) Write64(addr uintptr, v uint64) {
	m.Write32(addr, uint32(v))
	m.Write32(addr+4, uint32(v>>32))
}

// Bytes exposes the backing slice, for tests that want to read a request
// or reply struct written by the driver under test directly out of
// simulated device memory.
func (m *MMIO) Bytes() []byte { return m.mem }
