// Package synth draws stand-in gauge artwork procedurally so the compositor
// can run on a bench without the panel's compiled-in image tables.
package synth

import (
	"math"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Default artwork sizes, matching the 320x300 instrument face.
const (
	DialWidth, DialHeight   = 320, 300
	BallSize                = 20
	PlaneWidth, PlaneHeight = 166, 44
	DotSize                 = 16
	FlagWidth, FlagHeight   = 48, 16
)

var (
	Amber    = sprite.RGB(255, 176, 0)
	LampLit  = sprite.RGB(40, 220, 60)
	TickGrey = sprite.RGB(200, 200, 200)
)

// build renders fn over a w×h grid into a bitmap.
func build(w, h int, key sprite.Key, fn func(x, y int) sprite.Pixel) (*sprite.Bitmap, error) {
	pix := make([]sprite.Pixel, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = fn(x, y)
		}
	}
	return sprite.NewBitmap(w, h, pix, key)
}

// Solid fills the whole bitmap with one colour.
func Solid(w, h int, p sprite.Pixel, key sprite.Key) (*sprite.Bitmap, error) {
	return build(w, h, key, func(int, int) sprite.Pixel { return p })
}

// Dial draws a dark vertical gradient face with the standard-rate marks at
// ±30° about (w/2, h/2), the wings-level marks, and the inclinometer tube.
// It never uses White so it can sit under white-keyed sprites.
func Dial(w, h int) (*sprite.Bitmap, error) {
	cx, cy := float64(w)/2, float64(h)/2
	outer := math.Min(cx, cy) - 4
	inner := outer - 18
	return build(w, h, sprite.NoKey, func(x, y int) sprite.Pixel {
		dx, dy := float64(x)-cx, float64(y)-cy
		r := math.Hypot(dx, dy)
		if r <= outer && r >= inner {
			deg := math.Atan2(dy, dx) * 180 / math.Pi
			for _, mark := range []float64{0, 30, 180, 150} {
				if math.Abs(deg-mark) < 1.5 || math.Abs(deg+mark) < 1.5 {
					return TickGrey
				}
			}
		}
		if y > h-50 && y < h-20 && math.Abs(dx) < 70 {
			return sprite.RGB(60, 50, 30)
		}
		v := float64(y) / float64(h)
		phase := v * math.Pi
		return sprite.RGB(
			uint8(20+20*math.Sin(phase)),
			uint8(24+24*math.Sin(phase)),
			uint8(40+40*math.Sin(phase)),
		)
	})
}

// Ball is a black disc on a white key.
func Ball(d int) (*sprite.Bitmap, error) {
	return disc(d, sprite.Black, sprite.White)
}

// Plane draws the miniature aircraft: wings, fuselage and fin in orange on a
// white key. Its rotation pivot is the bitmap centre.
func Plane(w, h int) (*sprite.Bitmap, error) {
	cx, cy := w/2, h/2
	return build(w, h, sprite.KeyOf(sprite.White), func(x, y int) sprite.Pixel {
		dx, dy := x-cx, y-cy
		switch {
		case abs(dy) <= 2:
			return sprite.Orange
		case dx*dx+dy*dy <= 100:
			return sprite.Orange
		case dy < 0 && abs(dx) <= 2:
			return sprite.Orange
		}
		return sprite.White
	})
}

// Dot is a round lamp face of colour p keyed on black.
func Dot(d int, p sprite.Pixel) (*sprite.Bitmap, error) {
	return disc(d, p, sprite.Black)
}

func disc(d int, p, bg sprite.Pixel) (*sprite.Bitmap, error) {
	r := float64(d) / 2
	return build(d, d, sprite.KeyOf(bg), func(x, y int) sprite.Pixel {
		if math.Hypot(float64(x)+0.5-r, float64(y)+0.5-r) <= r {
			return p
		}
		return bg
	})
}

// Install registers the full default artwork set.
func Install(reg *asset.Registry) error {
	type entry struct {
		name string
		make func() (*sprite.Bitmap, error)
	}
	entries := []entry{
		{asset.Dial, func() (*sprite.Bitmap, error) { return Dial(DialWidth, DialHeight) }},
		{asset.Ball, func() (*sprite.Bitmap, error) { return Ball(BallSize) }},
		{asset.Needle, func() (*sprite.Bitmap, error) { return Plane(PlaneWidth, PlaneHeight) }},
		{asset.APDot, func() (*sprite.Bitmap, error) { return Dot(DotSize, LampLit) }},
		{asset.AltDot, func() (*sprite.Bitmap, error) { return Dot(DotSize, LampLit) }},
		{asset.UpDot, func() (*sprite.Bitmap, error) { return Dot(DotSize, Amber) }},
		{asset.DownDot, func() (*sprite.Bitmap, error) { return Dot(DotSize, Amber) }},
		{asset.ReadyDot, func() (*sprite.Bitmap, error) { return Dot(DotSize, LampLit) }},
		{asset.LowVoltFlag, func() (*sprite.Bitmap, error) {
			return Solid(FlagWidth, FlagHeight, sprite.Red, sprite.NoKey)
		}},
	}
	for _, e := range entries {
		b, err := e.make()
		if err != nil {
			return err
		}
		if err := reg.Register(e.name, b); err != nil {
			return err
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
