// Package asmx holds the small set of operations that cannot be expressed
// in portable Go: x86 port I/O, volatile MMIO access, and the few CPU
// primitives (halt, interrupt enable/disable) the kernel core needs, kept
// in a tiny standalone package that every driver needing it imports
// directly.
//
// Every exported function here is implemented in asmx_amd64.s and marked
// //go:nosplit: these run from boot code and interrupt handlers before (or
// during) a state where the Go scheduler may not safely intervene.
package asmx

import "unsafe"

// Out8/Out16/Out32 write a byte/word/dword to the given I/O port.
//
//go:nosplit
func Out8(port uint16, value uint8)

//go:nosplit
func Out16(port uint16, value uint16)

//go:nosplit
func Out32(port uint16, value uint32)

// In8/In16/In32 read a byte/word/dword from the given I/O port.
//
//go:nosplit
func In8(port uint16) uint8

//go:nosplit
func In16(port uint16) uint16

//go:nosplit
func In32(port uint16) uint32

// MmioRead8/16/32/64 perform a single volatile load from a mapped MMIO
// address. The device may change the underlying memory at any time
//, so these must never be reordered or elided by the compiler.
//
//go:nosplit
func MmioRead8(addr uintptr) uint8

//go:nosplit
func MmioRead16(addr uintptr) uint16

//go:nosplit
func MmioRead32(addr uintptr) uint32

//go:nosplit
func MmioRead64(addr uintptr) uint64

// MmioWrite8/16/32/64 perform a single volatile store to a mapped MMIO
// address.
//
//go:nosplit
func MmioWrite8(addr uintptr, value uint8)

//go:nosplit
func MmioWrite16(addr uintptr, value uint16)

//go:nosplit
func MmioWrite32(addr uintptr, value uint32)

//go:nosplit
func MmioWrite64(addr uintptr, value uint64)

// Bzero zeroes n bytes starting at ptr. Neither the frame allocator
// (internal/memory) nor the heap (internal/heap) calls it.
//
//go:nosplit
func Bzero(ptr unsafe.Pointer, n uintptr)

// DisableInterrupts/EnableInterrupts wrap CLI/STI. The heap guards its
// state with a sync.Mutex and does not call them.
//
//go:nosplit
func DisableInterrupts()

//go:nosplit
func EnableInterrupts()

// HaltUntilInterrupt executes HLT. Interrupts must already be enabled;
// the executor (internal/task) uses this to idle the CPU when both its
// queues are empty, waking on the next interrupt.
//
//go:nosplit
func HaltUntilInterrupt()

// Pause executes PAUSE, a hint for spin-wait loops that reduces power
// draw and memory-order contention without yielding to the scheduler.
//
//go:nosplit
func Pause()

// CallEntry invokes a loaded application's entry point at the
// raw address entry, passing ctx in the System V AMD64 first integer
// argument register and returning its 32-bit result. Needed because
// loaded application code is not a Go function value — internal/loader
// hands back a buffer offset, not anything the Go runtime can call
// directly.
//
//go:nosplit
func CallEntry(entry uintptr, ctx unsafe.Pointer) int32
