package apic

import (
	"testing"

	"fomos/internal/config"
	"fomos/internal/hostsim"
)

const testBase = 0xFEE00000

func TestConfigureTimerProgramsDivideVectorAndInitialCount(t *testing.T) {
	mmio := hostsim.NewMMIO(testBase, 0x1000)
	l := NewLocalAPIC(mmio, testBase)

	l.ConfigureTimer(1_000_000_000) // 1 GHz bus clock

	if got := mmio.Read32(testBase + regTimerDivideConf); got != config.TimerDivideConf {
		t.Fatalf("divide conf = %#x, want %#x", got, config.TimerDivideConf)
	}
	if got := mmio.Read32(testBase + regLVTTimer); got != lvtTimerPeriodic|uint32(config.TimerVector) {
		t.Fatalf("LVT timer = %#x, want periodic|vector %#x", got, config.TimerVector)
	}
	wantCount := uint32(1_000_000_000 / config.TimerHz)
	if got := mmio.Read32(testBase + regTimerInitialCount); got != wantCount {
		t.Fatalf("initial count = %d, want %d", got, wantCount)
	}
}

func TestConfigureTimerFallsBackWhenBusFreqUnknown(t *testing.T) {
	mmio := hostsim.NewMMIO(testBase, 0x1000)
	l := NewLocalAPIC(mmio, testBase)

	l.ConfigureTimer(0)

	want := uint32(1_000_000_000 / config.TimerHz)
	if got := mmio.Read32(testBase + regTimerInitialCount); got != want {
		t.Fatalf("fallback initial count = %d, want %d", got, want)
	}
}

func TestEOIWritesZeroToEOIRegister(t *testing.T) {
	mmio := hostsim.NewMMIO(testBase, 0x1000)
	l := NewLocalAPIC(mmio, testBase)

	mmio.Write32(testBase+regEOI, 0xDEADBEEF) // prove EOI overwrites, not merely no-ops
	l.EOI()

	if got := mmio.Read32(testBase + regEOI); got != 0 {
		t.Fatalf("EOI register = %#x, want 0", got)
	}
}

func TestRouteIRQProgramsVectorAtIndexedRedirectionEntry(t *testing.T) {
	const ioBase = 0xFEC00000
	mmio := hostsim.NewMMIO(ioBase, 0x100)
	io := NewIOAPIC(mmio, ioBase)

	io.RouteIRQ(3)

	// RouteIRQ writes the high dword then the low dword through the same
	// index/window register pair; the simulated window is flat memory
	// rather than a stateful indexed register file, so the last value
	// written through it — the low dword, carrying the vector — is what
	// ends up there.
	wantVector := uint32(config.IOAPICVectorBase) + 3
	if got := mmio.Read32(ioBase + ioWin); got != wantVector {
		t.Fatalf("redirection window = %#x, want vector %#x", got, wantVector)
	}
	if got := mmio.Read32(ioBase + ioRegSel); got != uint32(0x10+3*2) {
		t.Fatalf("last selected register index = %#x, want %#x", got, 0x10+3*2)
	}
}
