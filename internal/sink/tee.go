package sink

import (
	"go.uber.org/multierr"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Multi fans a frame out to several sinks. Every sink sees every frame even
// when an earlier one fails; the failures come back combined.
type Multi []sprite.Sink

// Tee joins sinks, dropping nils.
func Tee(sinks ...sprite.Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t Multi) Present(x, y, w, h int, pix []sprite.Pixel) error {
	var err error
	for _, s := range t {
		err = multierr.Append(err, s.Present(x, y, w, h, pix))
	}
	return err
}
