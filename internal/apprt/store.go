package apprt

// StoreSlot is an application's persistent per-process storage: a
// stable memory location holding an opaque, app-owned allocation between
// frames. The kernel never looks inside — it just hands the app a
// pointer to its own slot every frame and leaves whatever the app last
// placed there alone. Slot contents are never freed across frames;
// applications are never unloaded, so the slot's
// allocation, if any, simply outlives the kernel.
type StoreSlot struct {
	// Data is the app-owned payload, or nil if the slot is empty
	//. The app is expected to take
	// it on entry and re-place it (possibly replaced, possibly
	// unchanged) before returning; the kernel performs no copy-back of
	// its own since Context.Store already points directly at this slot.
	Data []byte
}

// Take removes and returns the slot's current contents, leaving it
// empty — the app-side half of "take on entry" convention,
// provided here so Go-native apps (NewStaticApp) can use the same
// protocol ELF-loaded apps implement themselves against the raw pointer.
func (s *StoreSlot) Take() []byte {
	d := s.Data
	s.Data = nil
	return d
}

// Replace places d into the slot, overwriting whatever was there.
func (s *StoreSlot) Replace(d []byte) {
	s.Data = d
}
