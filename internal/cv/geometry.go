package cv

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// OrderPoints canonicalizes four arbitrary corner points into
// (top-left, top-right, bottom-right, bottom-left). Top-left has the smallest
// coordinate sum, bottom-right the largest; top-right has the smallest y-x
// difference, bottom-left the largest. Ties keep the earliest original index,
// which makes the ordering deterministic and idempotent.
func OrderPoints(pts [4]Point) [4]Point {
	tl, br, tr, bl := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		if sum(pts[i]) < sum(pts[tl]) {
			tl = i
		}
		if sum(pts[i]) > sum(pts[br]) {
			br = i
		}
		if diff(pts[i]) < diff(pts[tr]) {
			tr = i
		}
		if diff(pts[i]) > diff(pts[bl]) {
			bl = i
		}
	}
	return [4]Point{pts[tl], pts[tr], pts[br], pts[bl]}
}

func sum(p Point) float64  { return p.X + p.Y }
func diff(p Point) float64 { return p.Y - p.X }

func dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PerspectiveRect computes the output size for a warp of the ordered quad:
// width is the larger of the two horizontal edge lengths, height the larger
// of the two vertical ones, both floored and clamped to a 100px minimum so a
// degenerate quad cannot produce an unusable output.
func PerspectiveRect(ordered [4]Point) (int, int) {
	tl, tr, br, bl := ordered[0], ordered[1], ordered[2], ordered[3]
	w := int(math.Max(dist(bl, br), dist(tl, tr)))
	h := int(math.Max(dist(tl, bl), dist(tr, br)))
	if w < 100 {
		w = 100
	}
	if h < 100 {
		h = 100
	}
	return w, h
}

// RectCorners returns the canonical destination corners for a w x h rectangle.
func RectCorners(w, h int) [4]Point {
	fw, fh := float64(w), float64(h)
	return [4]Point{{0, 0}, {fw - 1, 0}, {fw - 1, fh - 1}, {0, fh - 1}}
}

// Homography is a 3x3 projective transform in row-major order.
type Homography [9]float64

// Apply maps (x, y) through the transform.
func (m Homography) Apply(x, y float64) (float64, float64) {
	w := m[6]*x + m[7]*y + m[8]
	if math.Abs(w) < 1e-12 {
		w = 1e-12
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w
}

// EstimateHomography solves the 8-unknown projective mapping that takes each
// src corner onto the matching dst corner. Collinear corners make the system
// singular and yield an error.
func EstimateHomography(src, dst [4]Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("degenerate corner geometry: %w", err)
	}
	return Homography{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}, nil
}

// ComputePerspectiveTransform returns the destination size and the forward
// transform mapping the ordered source quad onto that rectangle.
func ComputePerspectiveTransform(ordered [4]Point) (int, int, Homography, error) {
	w, h := PerspectiveRect(ordered)
	m, err := EstimateHomography(ordered, RectCorners(w, h))
	return w, h, m, err
}
