package input

import "testing"

func TestTransientPressReleaseStep(t *testing.T) {
	// (press, release, step) on a key yields final state Off, and an
	// observer polling before step sees OffTransientOn.
	var snap Snapshot
	snap.HandleKeyEvent(30, true)
	if snap.Keys[30] != OnFromOff {
		t.Fatalf("after press, want OnFromOff, got %v", snap.Keys[30])
	}
	snap.HandleKeyEvent(30, false)
	if snap.Keys[30] != OffTransientOn {
		t.Fatalf("after release, want OffTransientOn, got %v", snap.Keys[30])
	}
	snap.Step()
	if snap.Keys[30] != Off {
		t.Fatalf("after step, want Off, got %v", snap.Keys[30])
	}
}

func TestStepClearsAllTransitionalStates(t *testing.T) {
	var snap Snapshot
	snap.Keys[1] = OnFromOff
	snap.Keys[2] = OffFromOn
	snap.Keys[3] = OnTransientOff
	snap.Keys[4] = OffTransientOn
	snap.Keys[5] = On
	snap.Keys[6] = Off

	snap.Step()

	want := map[int]KeyState{1: On, 2: Off, 3: On, 4: Off, 5: On, 6: Off}
	for k, w := range want {
		if snap.Keys[k] != w {
			t.Errorf("key %d = %v, want %v", k, snap.Keys[k], w)
		}
	}
}

func TestInputBurstExceedsRingSize(t *testing.T) {
	// 80 presses across distinct keys (more than ring size 64);
	// HistoryLastIndex must read 80 and the ring must hold the last 64
	// events.
	var snap Snapshot
	for i := 0; i < 80; i++ {
		snap.HandleKeyEvent(i, true)
	}
	if snap.HistoryLastIndex != 80 {
		t.Fatalf("HistoryLastIndex = %d, want 80", snap.HistoryLastIndex)
	}
	// The most recent entry should be for key 79.
	last := snap.HistoryRing[(snap.HistoryLastIndex-1)%ringSize]
	if last.Key != 79 || !last.Trigger {
		t.Fatalf("last ring entry = %+v, want key 79 press", last)
	}
	// The oldest surviving entry (index 16, since 0-15 were overwritten)
	// should be for key 16.
	oldestSurviving := snap.HistoryRing[16%ringSize]
	if oldestSurviving.Key != 80-64 {
		t.Fatalf("oldest surviving entry key = %d, want %d", oldestSurviving.Key, 80-64)
	}
}

func TestRelMotionClampsNonNegative(t *testing.T) {
	var snap Snapshot
	snap.AddRelMotion(0, -5)
	if snap.MX != 0 {
		t.Fatalf("MX = %d, want clamped to 0", snap.MX)
	}
	snap.AddRelMotion(0, 10)
	snap.AddRelMotion(0, -3)
	if snap.MX != 7 {
		t.Fatalf("MX = %d, want 7", snap.MX)
	}
}

func TestEveryTransitionWritesOneRingEntry(t *testing.T) {
	var snap Snapshot
	snap.HandleKeyEvent(5, true)
	before := snap.HistoryLastIndex
	snap.HandleKeyEvent(5, false)
	if snap.HistoryLastIndex != before+1 {
		t.Fatalf("expected exactly one ring entry per transition, index went %d -> %d", before, snap.HistoryLastIndex)
	}
}
