package sprite

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
)

var ErrAllocation = errors.New("sprite: allocation failed")

// Sink accepts a composed pixel region. pix holds w*h pixels in row order
// and is only valid for the duration of the call.
type Sink interface {
	Present(x, y, w, h int, pix []Pixel) error
}

// Allocator hands out surface memory from a fixed budget, the way the
// panel's sprite RAM is carved up once at startup.
type Allocator struct {
	// Budget is the total number of pixels available. Zero means unlimited.
	Budget int

	mu   sync.Mutex
	used int
}

func NewAllocator(budget int) *Allocator { return &Allocator{Budget: budget} }

var unlimited = &Allocator{}

// NewSurface allocates a zeroed surface from the default, unlimited allocator.
func NewSurface(width, height int) (*Surface, error) {
	return unlimited.NewSurface(width, height)
}

func (a *Allocator) NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 || width > MaxDim || height > MaxDim {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrAllocation, width, height)
	}
	n := width * height
	a.mu.Lock()
	if a.Budget > 0 && a.used+n > a.Budget {
		free := a.Budget - a.used
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %dx%d needs %d pixels, %d free", ErrAllocation, width, height, n, free)
	}
	a.used += n
	a.mu.Unlock()

	return &Surface{
		width:  width,
		height: height,
		pix:    make([]Pixel, n),
		owner:  a,
	}, nil
}

// Release returns the surface's pixels to the budget. The surface must not
// be used afterwards.
func (a *Allocator) Release(s *Surface) {
	if s == nil || s.owner != a || s.pix == nil {
		return
	}
	a.mu.Lock()
	a.used -= len(s.pix)
	a.mu.Unlock()
	s.pix = nil
	s.width, s.height = 0, 0
}

// Used reports the number of pixels currently allocated.
func (a *Allocator) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Surface is an owned, mutable pixel buffer with a pivot and a colour key.
type Surface struct {
	width, height int
	pix           []Pixel
	pivot         image.Point
	key           Key
	owner         *Allocator
}

// NewSurfaceFrom allocates a surface the size of b and loads it. Pixels that
// match b's key keep the key colour so the surface can be masked later.
func (a *Allocator) NewSurfaceFrom(b *Bitmap) (*Surface, error) {
	s, err := a.NewSurface(b.Width(), b.Height())
	if err != nil {
		return nil, err
	}
	if k := b.Key(); k.Valid {
		s.Fill(k.Pixel)
		s.SetTransparentColor(k.Pixel)
	}
	s.Blit(b, 0, 0)
	return s, nil
}

func (s *Surface) Width() int         { return s.width }
func (s *Surface) Height() int        { return s.height }
func (s *Surface) Pivot() image.Point { return s.pivot }
func (s *Surface) Key() Key           { return s.key }

func (s *Surface) SetPivot(x, y int)           { s.pivot = image.Pt(x, y) }
func (s *Surface) SetTransparentColor(p Pixel) { s.key = KeyOf(p) }
func (s *Surface) ClearTransparentColor()      { s.key = NoKey }
func (s *Surface) Pix() []Pixel                { return s.pix }
func (s *Surface) Bounds() image.Rectangle     { return image.Rect(0, 0, s.width, s.height) }
func (s *Surface) ColorModel() color.Model     { return RGB565Model }
func (s *Surface) At(x, y int) color.Color     { return s.Pixel(x, y) }
func (s *Surface) in(x, y int) bool            { return x >= 0 && y >= 0 && x < s.width && y < s.height }
func (s *Surface) offset(x, y int) int         { return y*s.width + x }
func (s *Surface) unsafeSet(x, y int, p Pixel) { s.pix[s.offset(x, y)] = p }
func (s *Surface) unsafePixel(x, y int) Pixel  { return s.pix[s.offset(x, y)] }

// Pixel returns the pixel at x,y, or Black outside the surface.
func (s *Surface) Pixel(x, y int) Pixel {
	if !s.in(x, y) {
		return Black
	}
	return s.unsafePixel(x, y)
}

// Set writes one pixel; writes outside the surface are dropped.
func (s *Surface) Set(x, y int, p Pixel) {
	if s.in(x, y) {
		s.unsafeSet(x, y, p)
	}
}

func (s *Surface) Fill(p Pixel) {
	for i := range s.pix {
		s.pix[i] = p
	}
}

// clip returns the destination rectangle of a w×h source placed at x,y,
// intersected with the surface.
func (s *Surface) clip(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h).Intersect(s.Bounds())
}

// Blit copies b into the surface at x,y. Pixels matching b's key are skipped.
func (s *Surface) Blit(b *Bitmap, x, y int) {
	r := s.clip(x, y, b.Width(), b.Height())
	key := b.Key()
	for dy := r.Min.Y; dy < r.Max.Y; dy++ {
		row := (dy - y) * b.Width()
		for dx := r.Min.X; dx < r.Max.X; dx++ {
			p := b.pix[row+dx-x]
			if key.Masks(p) {
				continue
			}
			s.unsafeSet(dx, dy, p)
		}
	}
}

// BlitTo copies this surface into dst at x,y, skipping pixels equal to mask.
func (s *Surface) BlitTo(dst *Surface, x, y int, mask Key) {
	r := dst.clip(x, y, s.width, s.height)
	for dy := r.Min.Y; dy < r.Max.Y; dy++ {
		for dx := r.Min.X; dx < r.Max.X; dx++ {
			p := s.unsafePixel(dx-x, dy-y)
			if mask.Masks(p) {
				continue
			}
			dst.unsafeSet(dx, dy, p)
		}
	}
}

// Present hands the whole buffer to sink at device offset x,y.
func (s *Surface) Present(sink Sink, x, y int) error {
	return sink.Present(x, y, s.width, s.height, s.pix)
}

// Frame returns an image view of the surface placed at x,y.
func (s *Surface) Frame(x, y int) Frame {
	return Frame{Rect: image.Rect(x, y, x+s.width, y+s.height), Pix: s.pix}
}

// Frame is a read-only image view over a presented pixel region.
type Frame struct {
	Rect image.Rectangle
	Pix  []Pixel
}

func (f Frame) Bounds() image.Rectangle { return f.Rect }
func (f Frame) ColorModel() color.Model { return RGB565Model }

func (f Frame) At(x, y int) color.Color { return f.PixelAt(x, y) }

// PixelAt is At without the color.Color boxing. Points outside are Black.
func (f Frame) PixelAt(x, y int) Pixel {
	if !image.Pt(x, y).In(f.Rect) {
		return Black
	}
	return f.Pix[(y-f.Rect.Min.Y)*f.Rect.Dx()+(x-f.Rect.Min.X)]
}
