package sink

import (
	"fmt"
	"image"
	"sync"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Canvas keeps an RGBA copy of everything presented to it, for consumers
// that redraw on their own schedule, such as a desktop window.
type Canvas struct {
	mu  sync.Mutex
	img *image.RGBA
	gen uint64
}

func NewCanvas(w, h int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (c *Canvas) Present(x, y, w, h int, pix []sprite.Pixel) error {
	if len(pix) != w*h {
		return fmt.Errorf("canvas: %d pixels for a %dx%d block", len(pix), w, h)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := image.Rect(x, y, x+w, y+h).Intersect(c.img.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			nc := pix[(py-y)*w+(px-x)].ToNRGBA()
			i := c.img.PixOffset(px, py)
			c.img.Pix[i], c.img.Pix[i+1], c.img.Pix[i+2], c.img.Pix[i+3] = nc.R, nc.G, nc.B, 0xff
		}
	}
	c.gen++
	return nil
}

// Generation counts presents; it changes whenever the content may have.
func (c *Canvas) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// View calls fn with the raw RGBA bytes under the canvas lock.
func (c *Canvas) View(fn func(pix []byte, gen uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.img.Pix, c.gen)
}
