package sprite

import (
	"image"
	"math"
)

// BlitRotated draws this surface into dst rotated by angle degrees
// (positive is clockwise on screen) with this surface's pivot placed on
// dst's pivot.
//
// Every destination pixel in the rotated bounding box is mapped back into
// the source and sampled nearest-neighbour, so the result has no holes.
// Samples that fall outside the source, or that equal mask, leave dst
// untouched.
func (s *Surface) BlitRotated(dst *Surface, angle float64, mask Key) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) || s.width == 0 || s.height == 0 {
		return
	}
	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	// Keep exact axes for the common quarter turns so a 0° draw matches a
	// plain blit bit for bit.
	sin, cos = snap(sin), snap(cos)

	sp, dp := s.pivot, dst.pivot
	r := rotatedBounds(s.width, s.height, sp, dp, sin, cos).Intersect(dst.Bounds())

	for y := r.Min.Y; y < r.Max.Y; y++ {
		dy := float64(y - dp.Y)
		for x := r.Min.X; x < r.Max.X; x++ {
			dx := float64(x - dp.X)
			// inverse rotation: R(-θ)
			sx := int(math.Round(cos*dx+sin*dy)) + sp.X
			sy := int(math.Round(-sin*dx+cos*dy)) + sp.Y
			if !s.in(sx, sy) {
				continue
			}
			p := s.unsafePixel(sx, sy)
			if mask.Masks(p) {
				continue
			}
			dst.unsafeSet(x, y, p)
		}
	}
}

// rotatedBounds is the destination rectangle covering the four source
// corners after forward rotation, padded by a pixel for rounding.
func rotatedBounds(w, h int, sp, dp image.Point, sin, cos float64) image.Rectangle {
	corners := [4][2]float64{
		{float64(-sp.X), float64(-sp.Y)},
		{float64(w - 1 - sp.X), float64(-sp.Y)},
		{float64(-sp.X), float64(h - 1 - sp.Y)},
		{float64(w - 1 - sp.X), float64(h - 1 - sp.Y)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x := cos*c[0] - sin*c[1]
		y := sin*c[0] + cos*c[1]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(
		int(math.Floor(minX))+dp.X-1,
		int(math.Floor(minY))+dp.Y-1,
		int(math.Ceil(maxX))+dp.X+2,
		int(math.Ceil(maxY))+dp.Y+2,
	)
}

func snap(v float64) float64 {
	const eps = 1e-12
	switch {
	case math.Abs(v) < eps:
		return 0
	case math.Abs(v-1) < eps:
		return 1
	case math.Abs(v+1) < eps:
		return -1
	}
	return v
}
