// Package apprt implements the per-frame application invocation loop
// and the ABI records applications are called through: call every app,
// once, in sequence, then yield, using the same cooperative scheduling
// style as the rest of this kernel's drivers.
package apprt

import (
	"fomos/internal/framebuffer"
)

// Context is the C-layout record passed by pointer to every application
// entry point each frame. Field order follows the ABI's Context record,
// and Go aligns each field the way a C compiler would, so no explicit
// padding is added. Field sizes do not all match the C record: FB.Pixels
// is a Go slice (pointer, length, capacity) rather than a bare pointer,
// and Store points at a Go StoreSlot holding a slice.
//
// LogFn, CallocFn, and CdallocFn are modeled as Go function values rather
// than raw C function pointers: every application this kernel currently
// runs is either statically linked in-process (wrapped by NewStaticApp)
// or loaded from an ELF image and invoked through asmx.CallEntry
// (NewLoadedApp) — the one direction that genuinely crosses into foreign
// machine code. The callback direction never needs to cross that
// boundary in this repository, so boxing it as a raw function pointer
// would only add unsafe surface without a caller that needs it.
type Context struct {
	Version     uint8
	StartTimeMs uint64
	LogFn       func(msg []byte)
	PID         uint64
	FB          FB
	CallocFn    func(nmemb, size uintptr) []byte
	CdallocFn   func(ptr []byte)
	Store       *StoreSlot
	Input       *Input
}

// ContextVersion is the current Context layout version. Applications that observe a
// different version must refuse to run.
const ContextVersion uint8 = 1

// FB mirrors the ABI's FB record: a mutable, aliased view of the shared
// framebuffer.
type FB struct {
	Pixels []framebuffer.RGBA
	W, H   uintptr
}

// Input mirrors the ABI's Input record: a snapshot of mouse position, key
// states, and the lossy event history ring.
type Input struct {
	MX, MY           uintptr
	Keys             [1024]uint8
	HistoryLastIndex uintptr
	HistoryRing      [64]InputEvent
}

// InputEvent mirrors the ABI's InputEvent record.
type InputEvent struct {
	Trigger bool
	Key     uintptr
}
