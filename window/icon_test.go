package window

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return img
}

func TestNormalizeIcon(t *testing.T) {
	tests := []struct {
		name        string
		src         image.Image
		transparent image.Point
		opaque      image.Point
	}{
		{"wide", solid(128, 64), image.Pt(32, 2), image.Pt(32, 32)},
		{"tall", solid(16, 64), image.Pt(2, 32), image.Pt(32, 32)},
		{"square", solid(8, 8), image.Pt(-1, -1), image.Pt(32, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeIcon(tt.src, 64)
			if b := got.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
				t.Fatalf("bounds = %v", b)
			}
			if tt.transparent.X >= 0 {
				if a := got.RGBAAt(tt.transparent.X, tt.transparent.Y).A; a != 0 {
					t.Fatalf("letterbox pixel alpha = %d", a)
				}
			}
			if a := got.RGBAAt(tt.opaque.X, tt.opaque.Y).A; a != 255 {
				t.Fatalf("icon pixel alpha = %d", a)
			}
		})
	}
}

func TestNormalizeIcon_PassThrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	if got := normalizeIcon(src, 32); got != src {
		t.Fatal("an icon already at size should not be copied")
	}
}

func TestNormalizeIcon_Empty(t *testing.T) {
	got := normalizeIcon(image.NewRGBA(image.Rectangle{}), 16)
	if got.Bounds().Dx() != 16 {
		t.Fatal("empty source should give a blank icon")
	}
}
