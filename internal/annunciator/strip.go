// Package annunciator mirrors the gauge's lamps onto a strip of addressable
// LEDs, one pixel per lamp in Lamp order.
package annunciator

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

// RefreshRate is the NRZ bit rate of WS2812 style LEDs in kHz.
const RefreshRate = 800

var (
	green = color.NRGBA{R: 0, G: 200, B: 40, A: 255}
	amber = color.NRGBA{R: 255, G: 150, B: 0, A: 255}
	red   = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	off   = color.NRGBA{A: 255}
)

// Colors is the lit colour of each lamp.
var Colors = [instrument.LampCount]color.NRGBA{
	instrument.AltitudeHold:     green,
	instrument.Ready:            green,
	instrument.LowVoltage:       red,
	instrument.TrimUp:           amber,
	instrument.TrimDown:         amber,
	instrument.SelectedTrack:    green,
	instrument.Heading:          green,
	instrument.TrackCaptureLow:  green,
	instrument.TrackCaptureHigh: green,
}

// Strip drives the LEDs through any display.Drawer.
type Strip struct {
	d    display.Drawer
	img  *image.NRGBA
	last [instrument.LampCount]bool
	have bool

	Writes int
}

func New(d display.Drawer) *Strip {
	return &Strip{d: d, img: image.NewNRGBA(image.Rect(0, 0, instrument.LampCount, 1))}
}

// NewSPI opens a WS2812 strip on p.
func NewSPI(p spi.Port) (*Strip, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: instrument.LampCount,
		Channels:  3,
		Freq:      ((RefreshRate * 3) + 100) * physic.KiloHertz,
	})
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// NewConsole prints the strip to the terminal instead.
func NewConsole() *Strip { return New(screen.New(instrument.LampCount)) }

// Update redraws the strip if any lamp changed since the last call.
func (s *Strip) Update(snap instrument.Snapshot) (bool, error) {
	if s.have && snap.Lamps == s.last {
		return false, nil
	}
	for _, l := range instrument.Lamps() {
		c := off
		if snap.Lit(l) {
			c = Colors[l]
		}
		s.img.SetNRGBA(int(l), 0, c)
	}
	if err := s.d.Draw(s.d.Bounds(), s.img, image.Point{}); err != nil {
		return false, err
	}
	s.last, s.have = snap.Lamps, true
	s.Writes++
	log.Debug().Str("strip", s.d.String()).Int("writes", s.Writes).Msg("annunciator updated")
	return true, nil
}

// Image is the strip's current colours.
func (s *Strip) Image() image.Image {
	out := image.NewNRGBA(s.img.Bounds())
	draw.Draw(out, out.Bounds(), s.img, image.Point{}, draw.Src)
	return out
}

// Close switches every LED off.
func (s *Strip) Close() error { return s.d.Halt() }
