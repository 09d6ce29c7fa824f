package cv

import (
	"fmt"
	"image"
	"math"
)

const (
	// Longest side used for edge analysis; larger inputs are downscaled so
	// detection cost and thresholds stay stable across resolutions.
	boundaryMaxSide = 640

	// Sobel gradient magnitude above which a pixel counts as an edge.
	edgeMagnitudeThreshold = 50.0

	minEdgePixels   = 50
	minQuadAreaFrac = 0.05
	minQuadConf     = 0.30

	// Area ratio at which the area term of the confidence saturates.
	areaConfSaturation = 0.20
)

// DetectDocumentCorners proposes a best-guess document quadrilateral with a
// confidence score. It is a pure function over the pixels: identical input
// yields an identical result, and it never panics for a structurally valid
// image. On failure it returns found=false, no corners, confidence 0 and at
// least one debug note.
func DetectDocumentCorners(img image.Image, debug bool) BoundaryResult {
	res := BoundaryResult{DebugNotes: []string{}}

	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		res.DebugNotes = append(res.DebugNotes, "image too small for edge analysis")
		return res
	}

	small := img
	if b.Dx() > boundaryMaxSide || b.Dy() > boundaryMaxSide {
		if b.Dx() >= b.Dy() {
			small = ResizeToWidth(img, boundaryMaxSide)
		} else {
			w := int(float64(b.Dx()) * float64(boundaryMaxSide) / float64(b.Dy()))
			small = ResizeToWidth(img, w)
		}
	}
	gray := ToGray(small)
	sb := gray.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	sx := float64(b.Dx()) / float64(sw)
	sy := float64(b.Dy()) / float64(sh)

	mask, pts := sobelEdges(gray)
	if debug {
		res.DebugNotes = append(res.DebugNotes, fmt.Sprintf("edge pixels: %d of %d", len(pts), sw*sh))
	}
	if len(pts) < minEdgePixels {
		res.DebugNotes = append(res.DebugNotes, "no edges detected")
		return res
	}

	quad := extremeQuad(pts)
	area := quadArea(quad)
	areaRatio := area / float64(sw*sh)
	if debug {
		res.DebugNotes = append(res.DebugNotes, fmt.Sprintf("quad area ratio: %.3f", areaRatio))
	}
	if areaRatio < minQuadAreaFrac {
		res.DebugNotes = append(res.DebugNotes, fmt.Sprintf("document region too small (area ratio %.2f)", areaRatio))
		return res
	}

	support := perimeterSupport(mask, sw, sh, quad)
	conf := math.Min(areaRatio/areaConfSaturation, 1) * support
	if conf > 1 {
		conf = 1
	}
	if debug {
		res.DebugNotes = append(res.DebugNotes, fmt.Sprintf("perimeter edge support: %.3f", support))
	}
	if conf < minQuadConf {
		res.DebugNotes = append(res.DebugNotes, fmt.Sprintf("weak boundary evidence (confidence %.2f)", conf))
		return res
	}

	res.Found = true
	res.Confidence = conf
	res.Corners = make([]Point, 4)
	for i, p := range quad {
		res.Corners[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	if debug {
		res.DebugNotes = append(res.DebugNotes, "boundary accepted from gradient extremes")
	}
	return res
}

// sobelEdges returns a boolean edge mask (row-major, coordinates relative to
// the image origin) and the list of edge points.
func sobelEdges(gray *image.Gray) ([]bool, []Point) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	var pts []Point

	at := func(x, y int) int {
		return int(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Sqrt(float64(gx*gx+gy*gy)) > edgeMagnitudeThreshold {
				mask[y*w+x] = true
				pts = append(pts, Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return mask, pts
}

// extremeQuad picks the edge points at the extremes of the corner-ordering
// metric (coordinate sum and difference), which for a roughly axis-aligned
// document correspond to its four corners.
func extremeQuad(pts []Point) [4]Point {
	tl, tr, br, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if sum(p) < sum(tl) {
			tl = p
		}
		if sum(p) > sum(br) {
			br = p
		}
		if diff(p) < diff(tr) {
			tr = p
		}
		if diff(p) > diff(bl) {
			bl = p
		}
	}
	return OrderPoints([4]Point{tl, tr, br, bl})
}

// quadArea computes the shoelace area of an ordered quad.
func quadArea(q [4]Point) float64 {
	var a float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		a += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(a) / 2
}

// perimeterSupport samples points along the quad perimeter and reports the
// fraction landing within 2px of an edge pixel.
func perimeterSupport(mask []bool, w, h int, quad [4]Point) float64 {
	const samplesPerSide = 32
	hits, total := 0, 0
	for i := 0; i < 4; i++ {
		a, b := quad[i], quad[(i+1)%4]
		for s := 0; s < samplesPerSide; s++ {
			t := float64(s) / float64(samplesPerSide-1)
			x := a.X + t*(b.X-a.X)
			y := a.Y + t*(b.Y-a.Y)
			total++
			if nearEdge(mask, w, h, int(math.Round(x)), int(math.Round(y))) {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func nearEdge(mask []bool, w, h, x, y int) bool {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if mask[ny*w+nx] {
				return true
			}
		}
	}
	return false
}
