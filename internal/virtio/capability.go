package virtio

import "fomos/internal/pci"

// Virtio PCI capability cfg_type values (virtio-v1.0 §4.1.4).
const (
	capCommonCfg = 1
	capNotifyCfg = 2
	capISRCfg    = 3
	capDeviceCfg = 4
	capPCICfg    = 5
)

const vendorCapID = 0x09

// capabilityWindow is one resolved virtio-pci capability: a cfg_type tag
// plus the address range it occupies once its BAR has been resolved to
// a base address.
type capabilityWindow struct {
	cfgType             uint8
	base                uintptr
	length              uint32
	notifyOffMultiplier uint32 // only meaningful for capNotifyCfg
}

// discoverCapabilities walks the PCI capability list, keeping only
// vendor-specific (virtio) capabilities, resolves each one's BAR to a
// base address, and returns the windows keyed by cfg_type. barBase resolves a BAR index to an already-mapped virtual
// base address — BAR→virtual-address mapping is the caller's (boot
// glue's) responsibility, not this package's.
func discoverCapabilities(cs pci.ConfigSpace, d pci.Device, barBase func(bar uint8) uintptr) map[uint8]capabilityWindow {
	windows := make(map[uint8]capabilityWindow)
	for _, c := range pci.WalkCapabilities(cs, d) {
		if c.ID != vendorCapID {
			continue
		}
		// Vendor-specific capability layout (virtio-v1.0 §4.1.4):
		//   +0 cap_vndr, +1 cap_next, +2 cap_len, +3 cfg_type,
		//   +4 bar, +8 offset, +12 length, [+16 notify_off_multiplier]
		capLen := cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+0) >> 16 & 0xFF
		cfgType := uint8(cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+0) >> 24)
		bar := uint8(cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+4) & 0xFF)
		offset := cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+8)
		length := cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+12)

		w := capabilityWindow{
			cfgType: cfgType,
			base:    barBase(bar) + uintptr(offset),
			length:  length,
		}
		if cfgType == capNotifyCfg && capLen >= 20 {
			w.notifyOffMultiplier = cs.Read32(d.Bus, d.Slot, d.Func, c.Offset+16)
		}
		windows[cfgType] = w
	}
	return windows
}
