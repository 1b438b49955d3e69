package fake

import (
	"fmt"
	"image"
	"sync"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Sink captures the last frame presented, useful for headless tests.
type Sink struct {
	mu    sync.Mutex
	Count int
	// Err, when set, is returned from Present and no frame is captured.
	Err error
	// Verbose prints a one-line summary of every frame.
	Verbose bool

	rect image.Rectangle
	last []sprite.Pixel
}

func (s *Sink) Present(x, y, w, h int, pix []sprite.Pixel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if len(pix) != w*h {
		return fmt.Errorf("fake sink: %dx%d frame with %d pixels", w, h, len(pix))
	}
	s.Count++
	s.rect = image.Rect(x, y, x+w, y+h)
	s.last = append(s.last[:0], pix...)
	if s.Verbose && len(pix) > 0 {
		fmt.Printf("[frame %04d] %v first=%#04x\n", s.Count, s.rect, uint16(pix[0]))
	}
	return nil
}

// Last returns a copy of the most recent frame and where it was placed.
func (s *Sink) Last() (image.Rectangle, []sprite.Pixel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sprite.Pixel, len(s.last))
	copy(out, s.last)
	return s.rect, out
}

// Frame returns the most recent frame as an image.
func (s *Sink) Frame() sprite.Frame {
	r, pix := s.Last()
	return sprite.Frame{Rect: r, Pix: pix}
}
