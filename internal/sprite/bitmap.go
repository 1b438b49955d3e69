package sprite

import (
	"errors"
	"fmt"
	"image"
)

// MaxDim is the largest width or height the panel addressing can express.
const MaxDim = 0xFFFF

var ErrBitmapSize = errors.New("sprite: bitmap size mismatch")

// Bitmap is an immutable pixel buffer supplied by the application at startup.
type Bitmap struct {
	width, height int
	pix           []Pixel
	key           Key
}

// NewBitmap copies pix, which must hold exactly width*height pixels in row order.
func NewBitmap(width, height int, pix []Pixel, key Key) (*Bitmap, error) {
	if width < 0 || height < 0 || width > MaxDim || height > MaxDim {
		return nil, fmt.Errorf("%w: %dx%d", ErrBitmapSize, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %dx%d needs %d pixels, got %d", ErrBitmapSize, width, height, width*height, len(pix))
	}
	b := &Bitmap{
		width:  width,
		height: height,
		pix:    make([]Pixel, len(pix)),
		key:    key,
	}
	copy(b.pix, pix)
	return b, nil
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }
func (b *Bitmap) Key() Key    { return b.key }

func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// At returns the pixel at x,y, or Black outside the bitmap.
func (b *Bitmap) At(x, y int) Pixel {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return Black
	}
	return b.pix[y*b.width+x]
}
