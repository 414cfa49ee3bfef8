// Package virtio implements the virtio transport layer shared by every
// virtio device this kernel drives — PCI capability discovery, device
// negotiation, virtqueue setup, descriptor management, and the
// avail/used ring protocol. Device addressing is x86 BAR plus
// notify-offset-multiplier rather than a single hard-coded device.
package virtio

import "fomos/internal/asmx"

// MMIO is the volatile memory-mapped register access this package needs:
// reads/writes to virtio-pci capability windows. The real implementation
// (PortMMIO) wraps internal/asmx; internal/hostsim.MMIO is the
// test double with an identical method set, letting every driver here
// run under `go test` without real hardware.
type MMIO interface {
	Read8(addr uintptr) uint8
	Read16(addr uintptr) uint16
	Read32(addr uintptr) uint32
	Read64(addr uintptr) uint64
	Write8(addr uintptr, v uint8)
	Write16(addr uintptr, v uint16)
	Write32(addr uintptr, v uint32)
	Write64(addr uintptr, v uint64)
}

// PortMMIO is the real, asmx-backed MMIO implementation used outside
// tests.
type PortMMIO struct{}

func (PortMMIO) Read8(addr uintptr) uint8   { return asmx.MmioRead8(addr) }
func (PortMMIO) Read16(addr uintptr) uint16 { return asmx.MmioRead16(addr) }
func (PortMMIO) Read32(addr uintptr) uint32 { return asmx.MmioRead32(addr) }
func (PortMMIO) Read64(addr uintptr) uint64 { return asmx.MmioRead64(addr) }
func (PortMMIO) Write8(addr uintptr, v uint8)   { asmx.MmioWrite8(addr, v) }
func (PortMMIO) Write16(addr uintptr, v uint16) { asmx.MmioWrite16(addr, v) }
func (PortMMIO) Write32(addr uintptr, v uint32) { asmx.MmioWrite32(addr, v) }
func (PortMMIO) Write64(addr uintptr, v uint64) { asmx.MmioWrite64(addr, v) }
