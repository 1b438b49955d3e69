package sprite

import "image/color"

// Channel layout of a packed RGB565 pixel.
const (
	RED_OFFSET   uint8 = 11
	GREEN_OFFSET uint8 = 5
	BLUE_OFFSET  uint8 = 0

	RED_MASK   uint16 = 0x1F
	GREEN_MASK uint16 = 0x3F
	BLUE_MASK  uint16 = 0x1F
)

// Pixel is a packed RGB565 value, the native format of the TFT panel.
type Pixel uint16

const (
	Black  Pixel = 0x0000
	White  Pixel = 0xFFFF
	Red    Pixel = 0xF800
	Green  Pixel = 0x07E0
	Blue   Pixel = 0x001F
	Yellow Pixel = 0xFFE0
	Orange Pixel = 0xFC00
	Grey   Pixel = 0x8410
)

// RGB packs 8-bit channels into a Pixel, dropping the low bits.
func RGB(r, g, b uint8) Pixel {
	return Pixel(uint16(r>>3)<<RED_OFFSET | uint16(g>>2)<<GREEN_OFFSET | uint16(b>>3)<<BLUE_OFFSET)
}

func (p Pixel) R() uint8 { return expand5(uint16(p) >> RED_OFFSET & RED_MASK) }
func (p Pixel) G() uint8 { return expand6(uint16(p) >> GREEN_OFFSET & GREEN_MASK) }
func (p Pixel) B() uint8 { return expand5(uint16(p) >> BLUE_OFFSET & BLUE_MASK) }

// RGBA implements color.Color. Pixels are always opaque.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	r = uint32(p.R())
	r |= r << 8
	g = uint32(p.G())
	g |= g << 8
	b = uint32(p.B())
	b |= b << 8
	return r, g, b, 0xFFFF
}

// ToNRGBA is used by drawers that want 8-bit channels.
func (p Pixel) ToNRGBA() color.NRGBA {
	return color.NRGBA{R: p.R(), G: p.G(), B: p.B(), A: 255}
}

// RGB565Model converts any colour to a Pixel.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if p, ok := c.(Pixel); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
})

func expand5(v uint16) uint8 { return uint8(v<<3 | v>>2) }
func expand6(v uint16) uint8 { return uint8(v<<2 | v>>4) }

// Key is a transparent colour key, or none.
type Key struct {
	Pixel Pixel
	Valid bool
}

// NoKey disables transparency: every pixel is painted.
var NoKey = Key{}

func KeyOf(p Pixel) Key { return Key{Pixel: p, Valid: true} }

// Masks reports whether p should be skipped under this key.
func (k Key) Masks(p Pixel) bool { return k.Valid && k.Pixel == p }
