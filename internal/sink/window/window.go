// Package window shows the gauge in a desktop window for bench work.
package window

import (
	"errors"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/coreman2200/turn-coordinator/internal/sink"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

var ErrClosed = errors.New("window closed")

// Window is an ebiten game whose screen mirrors the frames presented to it.
// Present may be called from any goroutine; Run must own the main one.
type Window struct {
	title         string
	width, height int
	scale         int

	canvas *sink.Canvas
	img    *ebiten.Image
	shown  uint64
	buf    []byte

	closing atomic.Bool
	closed  atomic.Bool
}

func New(title string, w, h, scale int) *Window {
	if scale < 1 {
		scale = 1
	}
	return &Window{
		title:  title,
		width:  w,
		height: h,
		scale:  scale,
		canvas: sink.NewCanvas(w, h),
		buf:    make([]byte, w*h*4),
	}
}

func (win *Window) Present(x, y, w, h int, pix []sprite.Pixel) error {
	if win.closed.Load() {
		return ErrClosed
	}
	return win.canvas.Present(x, y, w, h, pix)
}

// Run opens the window and blocks until it is closed by the user or Close.
func (win *Window) Run() error {
	ebiten.SetWindowSize(win.width*win.scale, win.height*win.scale)
	ebiten.SetWindowTitle(win.title)
	ebiten.SetRunnableOnUnfocused(true)
	defer win.closed.Store(true)
	err := ebiten.RunGame(win)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Close asks Run to return after the current tick.
func (win *Window) Close() { win.closing.Store(true) }

func (win *Window) Update() error {
	if win.closing.Load() {
		return ebiten.Termination
	}
	return nil
}

func (win *Window) Draw(screen *ebiten.Image) {
	if win.img == nil {
		win.img = ebiten.NewImage(win.width, win.height)
	}
	dirty := false
	win.canvas.View(func(pix []byte, gen uint64) {
		if gen == win.shown {
			return
		}
		copy(win.buf, pix)
		win.shown, dirty = gen, true
	})
	if dirty {
		win.img.WritePixels(win.buf)
	}
	screen.DrawImage(win.img, nil)
}

func (win *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return win.width, win.height
}
