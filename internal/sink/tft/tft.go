// Package tft drives MIPI DCS style SPI panel controllers (ILI9341, ST7789,
// ST7796 and friends) in 16 bit RGB565 mode.
package tft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

const (
	cmdSWRESET = 0x01
	cmdSLPIN   = 0x10
	cmdSLPOUT  = 0x11
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdPASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A

	colmod16bpp = 0x55
)

// Opts configures the panel. Zero Width, Height, Freq and MaxTxSize take the
// defaults; the delays are used as given.
type Opts struct {
	Width, Height int
	Freq          physic.Frequency
	// MaxTxSize caps one SPI transfer of pixel data, in bytes.
	MaxTxSize int
	// MADCTL selects scan direction and RGB/BGR order.
	MADCTL byte
	// ResetDelay follows a hardware or software reset; WakeDelay follows
	// sleep-out.
	ResetDelay time.Duration
	WakeDelay  time.Duration
}

// DefaultOpts is a 320x480 portrait panel at 40 MHz.
var DefaultOpts = Opts{
	Width:      320,
	Height:     480,
	Freq:       40 * physic.MegaHertz,
	MaxTxSize:  4096,
	MADCTL:     0x48,
	ResetDelay: 150 * time.Millisecond,
	WakeDelay:  120 * time.Millisecond,
}

var errHalted = errors.New("tft: display halted")

// Dev is an open panel. Frames reach it as a periph display.Drawer.
type Dev struct {
	c      spi.Conn
	dc     gpio.PinOut
	rst    gpio.PinOut
	opts   Opts
	buf    []byte
	halted bool
}

var _ display.Drawer = (*Dev)(nil)

// New connects to the panel on p, mode 0 at 8 bits. dc selects command (low)
// or data (high); rst may be nil when the reset line is tied high.
func New(p spi.Port, dc, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("tft: a DC pin is required")
	}
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.Width == 0 {
			o.Width = DefaultOpts.Width
		}
		if o.Height == 0 {
			o.Height = DefaultOpts.Height
		}
		if o.Freq == 0 {
			o.Freq = DefaultOpts.Freq
		}
		if o.MaxTxSize <= 0 {
			o.MaxTxSize = DefaultOpts.MaxTxSize
		}
	}
	// Pixels go out two bytes at a time and never straddle a transfer.
	if o.MaxTxSize%2 != 0 {
		o.MaxTxSize--
	}
	if o.MaxTxSize < 2 {
		o.MaxTxSize = DefaultOpts.MaxTxSize
	}
	c, err := p.Connect(o.Freq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("tft: %w", err)
	}
	return &Dev{c: c, dc: dc, rst: rst, opts: o, buf: make([]byte, o.MaxTxSize)}, nil
}

// Init resets the controller and switches it on in RGB565 mode.
func (d *Dev) Init() error {
	if d.rst != nil {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := d.rst.Out(l); err != nil {
				return fmt.Errorf("tft: reset: %w", err)
			}
			time.Sleep(d.opts.ResetDelay / 10)
		}
	}
	steps := []struct {
		cmd   byte
		data  []byte
		pause time.Duration
	}{
		{cmdSWRESET, nil, d.opts.ResetDelay},
		{cmdSLPOUT, nil, d.opts.WakeDelay},
		{cmdCOLMOD, []byte{colmod16bpp}, 0},
		{cmdMADCTL, []byte{d.opts.MADCTL}, 0},
		{cmdDISPON, nil, 0},
	}
	for _, s := range steps {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
		time.Sleep(s.pause)
	}
	d.halted = false
	log.Debug().Str("sink", d.String()).Int("w", d.opts.Width).Int("h", d.opts.Height).Msg("panel ready")
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("tft{%s, %dx%d}", d.c, d.opts.Width, d.opts.Height)
}

func (d *Dev) ColorModel() color.Model { return sprite.RGB565Model }

func (d *Dev) Bounds() image.Rectangle { return image.Rect(0, 0, d.opts.Width, d.opts.Height) }

// Halt blanks the panel and puts it to sleep. Init wakes it again.
func (d *Dev) Halt() error {
	if err := d.command(cmdDISPOFF); err != nil {
		return err
	}
	if err := d.command(cmdSLPIN); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// Draw implements display.Drawer. dstRect is clipped to the panel and the
// clipped block is streamed as big-endian RGB565. sprite.Frame sources are
// read directly; anything else goes through RGB565Model.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}
	r := dstRect.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	sp = sp.Add(r.Min.Sub(dstRect.Min))
	at := pixelSource(src)
	if err := d.window(r); err != nil {
		return err
	}
	n := 0
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			p := at(sp.X+x, sp.Y+y)
			d.buf[n], d.buf[n+1] = byte(p>>8), byte(p)
			n += 2
			if n == len(d.buf) {
				if err := d.c.Tx(d.buf, nil); err != nil {
					return fmt.Errorf("tft: pixel data: %w", err)
				}
				n = 0
			}
		}
	}
	if n > 0 {
		if err := d.c.Tx(d.buf[:n], nil); err != nil {
			return fmt.Errorf("tft: pixel data: %w", err)
		}
	}
	return nil
}

func pixelSource(src image.Image) func(x, y int) sprite.Pixel {
	if f, ok := src.(sprite.Frame); ok {
		return f.PixelAt
	}
	return func(x, y int) sprite.Pixel {
		return sprite.RGB565Model.Convert(src.At(x, y)).(sprite.Pixel)
	}
}

func (d *Dev) window(r image.Rectangle) error {
	x0, x1 := r.Min.X, r.Max.X-1
	y0, y1 := r.Min.Y, r.Max.Y-1
	if err := d.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdPASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	if err := d.command(cmdRAMWR); err != nil {
		return err
	}
	return d.dc.Out(gpio.High)
}

func (d *Dev) command(c byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("tft: dc: %w", err)
	}
	if err := d.c.Tx([]byte{c}, nil); err != nil {
		return fmt.Errorf("tft: command %#02x: %w", c, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("tft: dc: %w", err)
	}
	if err := d.c.Tx(data, nil); err != nil {
		return fmt.Errorf("tft: command %#02x data: %w", c, err)
	}
	return nil
}
