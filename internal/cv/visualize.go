package cv

import (
	"image"
	"image/color"
)

// GenerateDebugOverlays renders diagnostic images over a dimmed copy of the
// input: near-saturated glare regions tinted red, Sobel edges painted green.
// Each overlay is independently enableable and a render failure only omits
// that overlay, never fails the caller.
func GenerateDebugOverlays(img image.Image, includeGlare, includeEdges bool) Overlays {
	var out Overlays
	if !includeGlare && !includeEdges {
		return out
	}

	gray := ToGray(img)

	if includeGlare {
		if b64, err := EncodeJPEGBase64(renderGlare(img, gray)); err == nil {
			out.GlareOverlay = b64
		}
	}
	if includeEdges {
		if b64, err := EncodeJPEGBase64(renderEdges(img, gray)); err == nil {
			out.EdgeOverlay = b64
		}
	}
	return out
}

func dimmedCopy(img image.Image) *image.RGBA {
	src := ToRGBA(img)
	b := src.Bounds()
	out := image.NewRGBA(b)
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i] = src.Pix[i] / 2
		out.Pix[i+1] = src.Pix[i+1] / 2
		out.Pix[i+2] = src.Pix[i+2] / 2
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

func renderGlare(img image.Image, gray *image.Gray) *image.RGBA {
	out := dimmedCopy(img)
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= glareHighlightLevel {
				out.SetRGBA(x, y, color.RGBA{R: 255, G: 40, B: 40, A: 255})
			}
		}
	}
	return out
}

func renderEdges(img image.Image, gray *image.Gray) *image.RGBA {
	out := dimmedCopy(img)
	mask, _ := sobelEdges(gray)
	b := gray.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				out.SetRGBA(b.Min.X+x, b.Min.Y+y, color.RGBA{R: 40, G: 255, B: 40, A: 255})
			}
		}
	}
	return out
}
