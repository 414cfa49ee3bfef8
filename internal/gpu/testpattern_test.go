package gpu

import (
	"testing"

	"fomos/internal/framebuffer"
)

func TestDrawTestPatternFillsBackgroundAndDoesNotPanic(t *testing.T) {
	fb := framebuffer.New(64, 64)
	view := fb.Share()

	DrawTestPattern(view, "60x64")

	if got := view.Pixels[0]; got.R != 0 || got.G != 0 || got.B != 0 {
		t.Fatalf("corner pixel = %+v, want opaque black background", got)
	}

	foundNonBlack := false
	for _, px := range view.Pixels {
		if px.R != 0 || px.G != 0 || px.B != 0 {
			foundNonBlack = true
			break
		}
	}
	if !foundNonBlack {
		t.Fatal("expected the drawn circle/caption to produce at least one non-black pixel")
	}
}

func TestDrawTestPatternToleratesZeroSizedView(t *testing.T) {
	view := framebuffer.View{}
	DrawTestPattern(view, "unused") // must not panic on a degenerate view
}
