package apprt

import (
	"unsafe"

	"fomos/internal/asmx"
	"fomos/internal/loader"
)

// EntryFunc is the Go-callable shape of the ABI's
// `extern "C" fn _start(ctx: ptr Context) -> i32`. Return
// value is reserved; the runtime loop ignores it.
type EntryFunc func(ctx *Context) int32

// App is one entry in the fixed, boot-time-configured application list
//: its process id, persistent store
// slot, and entry point.
type App struct {
	PID   uint64
	Store StoreSlot
	Entry EntryFunc
}

// NewStaticApp wraps a Go function as an application entry point,
// for applications compiled directly into this kernel rather than
// loaded from a separate ELF image at boot.
func NewStaticApp(pid uint64, entry EntryFunc) *App {
	return &App{PID: pid, Entry: entry}
}

// NewLoadedApp wraps an ELF image loaded by internal/loader as an
// application entry point, invoking its raw machine code through
// asmx.CallEntry at buffer_base+entry_offset.
func NewLoadedApp(img *loader.Image) *App {
	if len(img.Bytes) == 0 {
		panic("apprt: loaded image has an empty buffer")
	}
	entryAddr := uintptr(unsafe.Pointer(&img.Bytes[0])) + uintptr(img.EntryOffset)
	return &App{
		PID: img.PID,
		Entry: func(ctx *Context) int32 {
			return asmx.CallEntry(entryAddr, unsafe.Pointer(ctx))
		},
	}
}
