// Package framebuffer implements the kernel-owned display pixel buffer
// that applications render into. It may be retargeted at runtime to
// point at a host-visible GPU-backed buffer, and hands out
// bounds-checked slice views rather than raw pointers, preferring a
// safer borrow discipline over direct pointer arithmetic
// over the original's raw-pointer pattern.
package framebuffer

// RGBA is one pixel, laid out to match the ABI's RGBA record
//: four bytes, red/green/blue/alpha, no padding.
type RGBA struct {
	R, G, B, A uint8
}

// Framebuffer owns the live pixel buffer and a back buffer of the size
// passed to New; Retarget replaces only the live buffer. Only one Share view is ever outstanding at a time, by
// construction: internal/apprt calls applications serially and reborrows
// between each.
type Framebuffer struct {
	w, h   int
	pixels []RGBA
	back   []RGBA
}

// New allocates a w*h framebuffer, zero-initialized (every channel,
// alpha included, is 0).
func New(w, h int) *Framebuffer {
	return &Framebuffer{
		w:      w,
		h:      h,
		pixels: make([]RGBA, w*h),
		back:   make([]RGBA, w*h),
	}
}

// Dimensions returns the current width and height.
func (fb *Framebuffer) Dimensions() (w, h int) { return fb.w, fb.h }

// View is the shareable, bounds-checked aliased view handed to
// applications once per frame — the ABI's FB record,
// expressed as a slice rather than {ptr, w, h}.
type View struct {
	Pixels []RGBA
	W, H   int
}

// Share returns a View aliasing the live pixel buffer. Invariant
//: only one View exists at any time; applications are
// invoked serially by internal/apprt, so aliasing is sound without
// additional synchronization.
func (fb *Framebuffer) Share() View {
	return View{Pixels: fb.pixels, W: fb.w, H: fb.h}
}

// Retarget replaces the pixel buffer and dimensions with a buffer the GPU
// driver has allocated as host-shared memory. The GPU driver calls it
// once, during bring-up. There is no lock here: the executor is
// single-threaded and internal/apprt takes a fresh Share view at the
// start of every frame, so a retarget takes effect from the next frame
// on.
func (fb *Framebuffer) Retarget(pixels []RGBA, w, h int) {
	fb.pixels = pixels
	fb.w, fb.h = w, h
}

// SwapBack exchanges the live and back buffers, for drivers (or a future
// double-buffered scanout path) that want to prepare the next frame off
// to the side. Unused by the 2D scanout pipeline's current single-buffer
// design but kept because the back buffer already exists
// and a later renderer may want it.
func (fb *Framebuffer) SwapBack() {
	fb.pixels, fb.back = fb.back, fb.pixels
}
