package window

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultIconSize is the edge length icons are normalized to.
const DefaultIconSize = 64

// normalizeIcon returns img as a size x size RGBA image, scaling if
// needed. Non-square images are scaled to fit and centred on a
// transparent square.
func normalizeIcon(img image.Image, size int) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		b := rgba.Bounds()
		if b.Dx() == size && b.Dy() == size && b.Min == (image.Point{}) {
			return rgba
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	sb := img.Bounds()
	if sb.Empty() {
		return dst
	}

	w, h := size, size
	if sb.Dx() > sb.Dy() {
		h = max(1, sb.Dy()*size/sb.Dx())
	} else if sb.Dy() > sb.Dx() {
		w = max(1, sb.Dx()*size/sb.Dy())
	}
	off := image.Pt((size-w)/2, (size-h)/2)
	dr := image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}

	draw.CatmullRom.Scale(dst, dr, img, sb, draw.Src, nil)
	return dst
}
