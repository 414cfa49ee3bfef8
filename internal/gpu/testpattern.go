// Package gpu holds small, self-contained rendering helpers that sit
// above internal/framebuffer but below any application — diagnostic
// output the kernel itself draws, as distinct from anything an
// application's own per-frame code produces.
//
// testpattern.go renders with github.com/fogleman/gg: a gg.Context,
// built afresh on each call, drawn into an RGBA backbuffer and then blitted into the
// real framebuffer, pixel format conversion included. The ring is
// additionally labeled with a TrueType-rendered string via
// golang.org/x/image/font + github.com/golang/freetype, since a
// boot-time diagnostic pattern benefits from a readable caption (e.g.
// "NO SIGNAL" or the negotiated resolution) in a way a circle alone does
// not.
package gpu

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"fomos/internal/framebuffer"
)

var labelFace font.Face

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		// The embedded font is a compiled-in constant; a parse failure
		// here would mean the module itself is broken, not a runtime
		// condition callers can recover from.
		panic(fmt.Sprintf("gpu: parse embedded TrueType font: %v", err))
	}
	labelFace = truetype.NewFace(f, &truetype.Options{Size: 24, DPI: 72, Hinting: font.HintingFull})
}

// DrawTestPattern renders a centered ring plus a caption sized to view's
// current dimensions, and blits the result directly into view's pixel
// buffer. Used once at GPU bring-up before any
// application has run, so a blank scanout is distinguishable from one
// that simply hasn't been driven yet.
func DrawTestPattern(view framebuffer.View, caption string) {
	w, h := view.W, view.H
	if w <= 0 || h <= 0 {
		return
	}

	ctx := gg.NewContext(w, h)
	ctx.SetRGB(0, 0, 0)
	ctx.Clear()

	ctx.SetRGB(0.85, 0.1, 0.1)
	ctx.SetLineWidth(6)
	ctx.DrawCircle(float64(w)/2, float64(h)/2, float64(h)/4)
	ctx.Stroke()

	ctx.SetFontFace(labelFace)
	ctx.SetRGB(1, 1, 1)
	ctx.DrawStringAnchored(caption, float64(w)/2, float64(h)-32, 0.5, 0.5)

	blit(ctx.Image(), view)
}

// blit copies an RGBA image produced by gg into the framebuffer's native
// pixel slice. Here the destination is already RGBA, so the per-channel
// reordering a BGRX target would need collapses to a straight copy, but
// the bounds-clamping discipline is kept.
func blit(src image.Image, view framebuffer.View) {
	im, ok := src.(*image.RGBA)
	if !ok {
		return
	}
	bounds := im.Bounds()
	width := bounds.Dx()
	if width > view.W {
		width = view.W
	}
	height := bounds.Dy()
	if height > view.H {
		height = view.H
	}

	for y := 0; y < height; y++ {
		srcOff := im.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		srcRow := im.Pix[srcOff:]
		dstRow := view.Pixels[y*view.W:]
		for x := 0; x < width; x++ {
			si := x * 4
			dstRow[x] = framebuffer.RGBA{
				R: srcRow[si+0],
				G: srcRow[si+1],
				B: srcRow[si+2],
				A: srcRow[si+3],
			}
		}
	}
}
