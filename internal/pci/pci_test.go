package pci_test

import (
	"testing"

	"fomos/internal/hostsim"
	"fomos/internal/pci"
)

func TestScanFindsOnlyPresentFunctions(t *testing.T) {
	cfg := hostsim.NewConfigSpace()
	cfg.AddFunction(0, 3, 0, 0x1AF4, 0x1050) // virtio-gpu
	cfg.AddFunction(0, 4, 0, 0x1AF4, 0x1052) // virtio-input

	devices := pci.Scan(cfg)
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d: %+v", len(devices), devices)
	}
	for _, d := range devices {
		if d.VendorID != 0x1AF4 {
			t.Errorf("unexpected vendor id %#x", d.VendorID)
		}
	}
}

func TestWalkCapabilitiesFollowsLinkedList(t *testing.T) {
	cfg := hostsim.NewConfigSpace()
	block := cfg.AddFunction(0, 3, 0, 0x1AF4, 0x1050)
	block[0x34] = 0x40 // capabilities pointer

	// cap at 0x40: id=0x09 (vendor-specific), next=0x50
	block[0x40], block[0x41] = 0x09, 0x50
	// cap at 0x50: id=0x09, next=0x00 (end of list)
	block[0x50], block[0x51] = 0x09, 0x00

	d := pci.Device{Bus: 0, Slot: 3, Func: 0}
	caps := pci.WalkCapabilities(cfg, d)
	if len(caps) != 2 {
		t.Fatalf("expected 2 capabilities, got %d: %+v", len(caps), caps)
	}
	if caps[0].Offset != 0x40 || caps[1].Offset != 0x50 {
		t.Fatalf("unexpected capability offsets: %+v", caps)
	}
}

func TestWalkCapabilitiesHandlesCycle(t *testing.T) {
	cfg := hostsim.NewConfigSpace()
	block := cfg.AddFunction(0, 3, 0, 0x1AF4, 0x1050)
	block[0x34] = 0x40
	// cap at 0x40 points back to itself — must not loop forever.
	block[0x40], block[0x41] = 0x09, 0x40

	d := pci.Device{Bus: 0, Slot: 3, Func: 0}
	caps := pci.WalkCapabilities(cfg, d)
	if len(caps) != 1 {
		t.Fatalf("expected cycle to be broken after 1 entry, got %d", len(caps))
	}
}

func TestReadBarKinds(t *testing.T) {
	cfg := hostsim.NewConfigSpace()
	block := cfg.AddFunction(0, 3, 0, 0x1AF4, 0x1050)
	d := pci.Device{Bus: 0, Slot: 3, Func: 0}

	// BAR0: I/O BAR at 0xC000.
	cfg.Write32(0, 3, 0, 0x10, 0xC001)
	bar0 := pci.ReadBar(cfg, d, 0)
	if bar0.Kind != pci.BarIO || bar0.Addr != 0xC000 {
		t.Fatalf("BAR0 = %+v, want IO 0xC000", bar0)
	}

	// BAR1: 32-bit memory BAR.
	cfg.Write32(0, 3, 0, 0x14, 0xFEBF0000)
	bar1 := pci.ReadBar(cfg, d, 1)
	if bar1.Kind != pci.BarMemory32 || bar1.Addr != 0xFEBF0000 {
		t.Fatalf("BAR1 = %+v, want Memory32 0xFEBF0000", bar1)
	}

	// BAR2/3: 64-bit memory BAR combining two slots.
	cfg.Write32(0, 3, 0, 0x18, 0x00000004) // type bits: 64-bit memory
	cfg.Write32(0, 3, 0, 0x1C, 0x00000001)
	bar2 := pci.ReadBar(cfg, d, 2)
	if bar2.Kind != pci.BarMemory64 || bar2.Addr != 0x1_00000000 {
		t.Fatalf("BAR2 = %+v, want Memory64 0x100000000", bar2)
	}

	// Unpopulated BAR.
	bar4 := pci.ReadBar(cfg, d, 4)
	if bar4.Kind != pci.BarNone {
		t.Fatalf("BAR4 = %+v, want BarNone", bar4)
	}

	_ = block
}

func TestEnableBusMasterSetsBits(t *testing.T) {
	cfg := hostsim.NewConfigSpace()
	cfg.AddFunction(0, 3, 0, 0x1AF4, 0x1050)
	d := pci.Device{Bus: 0, Slot: 3, Func: 0}
	pci.EnableBusMaster(cfg, d)
	cmd := cfg.Read32(0, 3, 0, 0x04)
	if cmd&0x7 != 0x7 {
		t.Fatalf("command register = %#x, want bits 0-2 set", cmd)
	}
}
