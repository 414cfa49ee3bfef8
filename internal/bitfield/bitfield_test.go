package bitfield

import "testing"

type frameFlags struct {
	Allocated bool   `bitfield:",1"`
	Identity  bool   `bitfield:",1"`
	Reserved  uint32 `bitfield:",30"`
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []frameFlags{
		{Allocated: true, Identity: false, Reserved: 0},
		{Allocated: false, Identity: true, Reserved: 7},
		{Allocated: true, Identity: true, Reserved: 1<<30 - 1},
	}

	for _, want := range cases {
		packed, err := Pack(want, &Config{NumBits: 32})
		if err != nil {
			t.Fatalf("Pack(%+v) error: %v", want, err)
		}
		var got frameFlags
		if err := Unpack(packed, &got, &Config{NumBits: 32}); err != nil {
			t.Fatalf("Unpack error: %v", err)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestPackOverflow(t *testing.T) {
	_, err := Pack(frameFlags{Reserved: 1 << 30}, &Config{NumBits: 32})
	if err == nil {
		t.Fatal("expected overflow error, got nil")
	}
}

func TestPackExceedsNumBits(t *testing.T) {
	type wide struct {
		A uint32 `bitfield:",20"`
		B uint32 `bitfield:",20"`
	}
	_, err := Pack(wide{A: 1, B: 1}, &Config{NumBits: 32})
	if err == nil {
		t.Fatal("expected NumBits overflow error, got nil")
	}
}
