// Package sink adapts the compositor's frame output to the places a frame
// can go: periph display drivers, other sinks, or nowhere if nothing changed.
package sink

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Drawer presents frames through any periph display.Drawer.
type Drawer struct {
	D display.Drawer
}

func NewDrawer(d display.Drawer) *Drawer { return &Drawer{D: d} }

func (d *Drawer) Present(x, y, w, h int, pix []sprite.Pixel) error {
	if len(pix) != w*h {
		return fmt.Errorf("%s: %d pixels for a %dx%d block", d.D, len(pix), w, h)
	}
	f := sprite.Frame{Rect: image.Rect(x, y, x+w, y+h), Pix: pix}
	return d.D.Draw(f.Rect, f, f.Rect.Min)
}

func (d *Drawer) String() string { return d.D.String() }

// Halt turns the underlying device off.
func (d *Drawer) Halt() error { return d.D.Halt() }
