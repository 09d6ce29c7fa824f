package cv

import (
	"fmt"
	"image"
	"math"
)

// FourPointTransform warps the quadrilateral spanned by pts onto a top-down
// rectangle sized by PerspectiveRect. Sampling is inverse-mapped bilinear.
func FourPointTransform(img image.Image, pts [4]Point) (image.Image, error) {
	rect := OrderPoints(pts)
	w, h := PerspectiveRect(rect)

	// Estimate the reverse mapping directly so each destination pixel can be
	// sampled from the source without inverting a matrix.
	inv, err := EstimateHomography(RectCorners(w, h), rect)
	if err != nil {
		return nil, err
	}

	src := ToRGBA(img)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			sx, sy := inv.Apply(float64(dx), float64(dy))
			r, g, b, a := bilinearSample(src, sx, sy)
			i := out.PixOffset(dx, dy)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = a
		}
	}
	return out, nil
}

func bilinearSample(img *image.RGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	b := img.Bounds()
	x += float64(b.Min.X)
	y += float64(b.Min.Y)

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	clampX := func(v int) int {
		if v < b.Min.X {
			return b.Min.X
		}
		if v > b.Max.X-1 {
			return b.Max.X - 1
		}
		return v
	}
	clampY := func(v int) int {
		if v < b.Min.Y {
			return b.Min.Y
		}
		if v > b.Max.Y-1 {
			return b.Max.Y - 1
		}
		return v
	}

	x0c, x1c := clampX(x0), clampX(x0+1)
	y0c, y1c := clampY(y0), clampY(y0+1)

	p00 := img.RGBAAt(x0c, y0c)
	p10 := img.RGBAAt(x1c, y0c)
	p01 := img.RGBAAt(x0c, y1c)
	p11 := img.RGBAAt(x1c, y1c)

	lerp := func(c00, c10, c01, c11 uint8) uint8 {
		top := float64(c00)*(1-fx) + float64(c10)*fx
		bot := float64(c01)*(1-fx) + float64(c11)*fx
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}
	return lerp(p00.R, p10.R, p01.R, p11.R),
		lerp(p00.G, p10.G, p01.G, p11.G),
		lerp(p00.B, p10.B, p01.B, p11.B),
		lerp(p00.A, p10.A, p01.A, p11.A)
}

// ScanDocument detects the document boundary and applies perspective
// correction. The boundary detector always runs first so its result can be
// surfaced to the caller regardless of which corners end up being used. All
// warp failures are absorbed locally: the unmodified input is returned and
// the failure is recorded in ScanMeta, never raised.
func ScanDocument(img image.Image, override []Point, debug bool) (image.Image, BoundaryResult, ScanMeta) {
	boundary := DetectDocumentCorners(img, debug)
	meta := ScanMeta{UsedAutoCorners: true}

	if override != nil {
		meta.UsedAutoCorners = false
		if len(override) != 4 {
			meta.ScanError = fmt.Sprintf("Manual corners error: expected 4 corners, got %d", len(override))
			return img, boundary, meta
		}
		quad := [4]Point{override[0], override[1], override[2], override[3]}
		warped, err := FourPointTransform(img, quad)
		if err != nil {
			meta.ScanError = "Manual corners error: " + err.Error()
			return img, boundary, meta
		}
		ordered := OrderPoints(quad)
		meta.CornersUsed = ordered[:]
		meta.ScanWarpSuccess = true
		return warped, boundary, meta
	}

	if boundary.Found && len(boundary.Corners) == 4 {
		quad := [4]Point{boundary.Corners[0], boundary.Corners[1], boundary.Corners[2], boundary.Corners[3]}
		warped, err := FourPointTransform(img, quad)
		if err != nil {
			meta.ScanError = "Auto warp error: " + err.Error()
			return img, boundary, meta
		}
		ordered := OrderPoints(quad)
		meta.CornersUsed = ordered[:]
		meta.ScanWarpSuccess = true
		return warped, boundary, meta
	}

	meta.ScanError = "No document boundary detected"
	return img, boundary, meta
}
