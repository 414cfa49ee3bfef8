package framebuffer

import "testing"

func TestShareAliasesLiveBuffer(t *testing.T) {
	fb := New(4, 4)
	v := fb.Share()
	v.Pixels[0] = RGBA{R: 1, G: 2, B: 3, A: 4}
	if fb.pixels[0] != (RGBA{R: 1, G: 2, B: 3, A: 4}) {
		t.Fatal("expected Share to alias the live buffer, not copy it")
	}
}

func TestRetargetReplacesBuffer(t *testing.T) {
	fb := New(4, 4)
	hostBuf := make([]RGBA, 8*8)
	fb.Retarget(hostBuf, 8, 8)
	w, h := fb.Dimensions()
	if w != 8 || h != 8 {
		t.Fatalf("dimensions = (%d,%d), want (8,8)", w, h)
	}
	v := fb.Share()
	if len(v.Pixels) != 64 {
		t.Fatalf("expected retargeted share to expose 64 pixels, got %d", len(v.Pixels))
	}
}

func TestSwapBackExchangesBuffers(t *testing.T) {
	fb := New(2, 2)
	live := fb.pixels
	back := fb.back
	fb.SwapBack()
	if &fb.pixels[0] != &back[0] {
		t.Fatal("expected live buffer to become the old back buffer")
	}
	if &fb.back[0] != &live[0] {
		t.Fatal("expected back buffer to become the old live buffer")
	}
}
