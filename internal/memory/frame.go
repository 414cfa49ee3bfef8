// Package memory implements the physical frame allocator and the
// identity/high-offset virtual page mapper. Frames are 4-KiB aligned
// physical addresses; once handed out they are never freed, which
// matches a boot-time-only driver population rather than a
// general-purpose process model.
package memory

import (
	"fmt"

	"fomos/internal/bitfield"
	"fomos/internal/bootinfo"
	"fomos/internal/config"
)

// Frame is a 4-KiB-aligned physical address.
type Frame uintptr

// VirtualPage is the virtual address a Frame has been mapped to.
type VirtualPage uintptr

// frameFlags is a PageFlags-style record packed via internal/bitfield,
// tracking this allocator's bookkeeping of which frames have been
// handed out.
type frameFlags struct {
	Allocated bool   `bitfield:",1"`
	Reserved  uint32 `bitfield:",31"`
}

// Allocator hands out physical frames from a forward cursor over the
// bootloader's usable memory regions, and maps them into the kernel's
// identity and high-offset virtual windows. It is a process-wide
// singleton populated once during boot and is not safe for concurrent use from more than one task —
// the single bootstrap CPU model means this is a non-issue in practice;
// it has no lock of its own.
type Allocator struct {
	regions   []bootinfo.MemoryRegion
	regionIdx int
	cursor    uint64 // next candidate physical address within regions[regionIdx]
	physOffset uintptr

	// last records the physical address handed out by the most recent
	// AllocFrame call. ReserveContiguous checks contiguity against its
	// own first frame instead.
	last     Frame
	lastSet  bool
	allocated map[Frame]frameFlags
}

// NewAllocator builds a frame allocator over the bootloader's usable
// memory map. physOffset is the constant added to a physical address to
// obtain its kernel high-offset virtual address.
func NewAllocator(mm bootinfo.MemoryMap, physOffset uintptr) *Allocator {
	usable := mm.UsableRegions()
	a := &Allocator{
		regions:    usable,
		physOffset: physOffset,
		allocated:  make(map[Frame]frameFlags),
	}
	if len(usable) > 0 {
		a.cursor = alignUp(usable[0].Start, config.PageSize)
	}
	return a
}

func alignUp(v uint64, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// AllocFrame returns the next free physical frame. It panics if the
// memory map is exhausted — there is no recovery path for running out of
// physical memory during boot-time driver setup.
func (a *Allocator) AllocFrame() Frame {
	for a.regionIdx < len(a.regions) {
		r := a.regions[a.regionIdx]
		if a.cursor+config.PageSize <= r.End {
			f := Frame(a.cursor)
			a.cursor += config.PageSize
			a.markAllocated(f)
			a.last, a.lastSet = f, true
			return f
		}
		a.regionIdx++
		if a.regionIdx < len(a.regions) {
			a.cursor = alignUp(a.regions[a.regionIdx].Start, config.PageSize)
		}
	}
	panic("memory: frame allocator exhausted")
}

func (a *Allocator) markAllocated(f Frame) {
	packed, err := bitfield.Pack(frameFlags{Allocated: true}, &bitfield.Config{NumBits: 32})
	if err != nil {
		panic(fmt.Sprintf("memory: pack frame flags: %v", err))
	}
	var flags frameFlags
	if err := bitfield.Unpack(packed, &flags, &bitfield.Config{NumBits: 32}); err != nil {
		panic(fmt.Sprintf("memory: unpack frame flags: %v", err))
	}
	a.allocated[f] = flags
}

// IsAllocated reports whether f has been handed out by this allocator.
func (a *Allocator) IsAllocated(f Frame) bool {
	flags, ok := a.allocated[f]
	return ok && flags.Allocated
}

// MapIdentity returns the virtual page for f under the identity mapping
// (virtual address == physical address). No page-table write happens
// here; at the level this package models, identity mapping is definitional.
func (a *Allocator) MapIdentity(f Frame) VirtualPage {
	return VirtualPage(f)
}

// MapAtOffset returns the virtual page for f under the kernel's
// high-offset window (virtual address == physical address + physOffset).
func (a *Allocator) MapAtOffset(f Frame) VirtualPage {
	return VirtualPage(uintptr(f) + a.physOffset)
}

// ReserveContiguous allocates n frames and verifies they are physically
// contiguous, returning the identity-mapped virtual page of the first
// frame. Virtio requires guest-physical-contiguous DMA regions; this
// allocator's forward cursor over a bump-style memory map delivers that
// in practice, but correctness is never assumed — it is checked.
//
// On a non-contiguous run it panics with the first mismatched index, per
// : the caller cannot recover from a broken DMA region.
func (a *Allocator) ReserveContiguous(n int) VirtualPage {
	if n <= 0 {
		panic("memory: ReserveContiguous requires n > 0")
	}
	first := a.AllocFrame()
	for k := 1; k < n; k++ {
		f := a.AllocFrame()
		want := Frame(uintptr(first) + uintptr(k)*config.PageSize)
		if f != want {
			panic(fmt.Sprintf("memory: ReserveContiguous: frame %d non-contiguous: got 0x%x, want 0x%x", k, uintptr(f), uintptr(want)))
		}
	}
	return a.MapIdentity(first)
}
