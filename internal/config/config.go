package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// The ball fields are pointers so that an explicit 0 survives Merge. Zero is
// a real setting for all three: ball_arc 0 keeps the ball on a straight line.
type Geometry struct {
	Pivot        Point    `yaml:"pivot"`
	NeedlePivot  Point    `yaml:"needle_pivot"`
	BallScale    *float64 `yaml:"ball_scale,omitempty"`    // px per inclinometer unit
	BallBaseline *int     `yaml:"ball_baseline,omitempty"` // px above the bottom edge
	BallArc      *float64 `yaml:"ball_arc,omitempty"`
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }

type TFT struct {
	SPI       string `yaml:"spi"` // e.g. /dev/spidev0.0, "" for the first port
	DC        string `yaml:"dc"`  // GPIO name, e.g. GPIO25
	RST       string `yaml:"rst,omitempty"`
	SpeedHz   int64  `yaml:"speed_hz"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MADCTL    int    `yaml:"madctl"`
	MaxTxSize int    `yaml:"max_tx_size"`
}

type Annunciator struct {
	Enabled bool   `yaml:"enabled"`
	SPI     string `yaml:"spi,omitempty"`
}

type Config struct {
	Sink         string `yaml:"sink"` // "tft" | "window" | "console" | "none"
	FPS          int    `yaml:"fps"`
	Clamp        bool   `yaml:"clamp"`
	Addr         string `yaml:"addr"` // preview server, "" disables it
	PreviewScale int    `yaml:"preview_scale"`
	PixelBudget  int    `yaml:"pixel_budget"` // 0 means unlimited
	Program      string `yaml:"program"`      // "sweep", a YAML path, or ""

	Geometry    Geometry    `yaml:"geometry"`
	TFT         TFT         `yaml:"tft,omitempty"`
	Annunciator Annunciator `yaml:"annunciator,omitempty"`
}

// Default is the bench setup: the 320x300 face in a desktop window.
func Default() Config {
	return Config{
		Sink:         "window",
		FPS:          30,
		Addr:         ":8080",
		PreviewScale: 2,
		Geometry: Geometry{
			Pivot:        Point{160, 150},
			NeedlePivot:  Point{83, 22},
			BallScale:    Float(50),
			BallBaseline: Int(24),
			BallArc:      Float(5),
		},
		TFT: TFT{
			DC:        "GPIO25",
			RST:       "GPIO24",
			SpeedHz:   40_000_000,
			Width:     320,
			Height:    480,
			MADCTL:    0x48,
			MaxTxSize: 4096,
		},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Merge returns c with every field that o sets replacing c's.
func (c Config) Merge(o Config) Config {
	c.Sink = firstString(o.Sink, c.Sink)
	c.Addr = firstString(o.Addr, c.Addr)
	c.Program = firstString(o.Program, c.Program)
	c.FPS = firstInt(o.FPS, c.FPS)
	c.PreviewScale = firstInt(o.PreviewScale, c.PreviewScale)
	c.PixelBudget = firstInt(o.PixelBudget, c.PixelBudget)
	c.Clamp = c.Clamp || o.Clamp

	if o.Geometry.Pivot != (Point{}) {
		c.Geometry.Pivot = o.Geometry.Pivot
	}
	if o.Geometry.NeedlePivot != (Point{}) {
		c.Geometry.NeedlePivot = o.Geometry.NeedlePivot
	}
	if o.Geometry.BallScale != nil {
		c.Geometry.BallScale = o.Geometry.BallScale
	}
	if o.Geometry.BallBaseline != nil {
		c.Geometry.BallBaseline = o.Geometry.BallBaseline
	}
	if o.Geometry.BallArc != nil {
		c.Geometry.BallArc = o.Geometry.BallArc
	}

	c.TFT.SPI = firstString(o.TFT.SPI, c.TFT.SPI)
	c.TFT.DC = firstString(o.TFT.DC, c.TFT.DC)
	c.TFT.RST = firstString(o.TFT.RST, c.TFT.RST)
	if o.TFT.SpeedHz != 0 {
		c.TFT.SpeedHz = o.TFT.SpeedHz
	}
	c.TFT.Width = firstInt(o.TFT.Width, c.TFT.Width)
	c.TFT.Height = firstInt(o.TFT.Height, c.TFT.Height)
	c.TFT.MADCTL = firstInt(o.TFT.MADCTL, c.TFT.MADCTL)
	c.TFT.MaxTxSize = firstInt(o.TFT.MaxTxSize, c.TFT.MaxTxSize)

	c.Annunciator.Enabled = c.Annunciator.Enabled || o.Annunciator.Enabled
	c.Annunciator.SPI = firstString(o.Annunciator.SPI, c.Annunciator.SPI)
	return c
}

func (c Config) Validate() error {
	var errs []error
	switch c.Sink {
	case "tft", "window", "console", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown sink %q", c.Sink))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps %d out of range 1..240", c.FPS))
	}
	if c.PreviewScale < 1 {
		errs = append(errs, errors.New("preview_scale must be at least 1"))
	}
	if c.PixelBudget < 0 {
		errs = append(errs, errors.New("pixel_budget must not be negative"))
	}
	if c.Geometry.BallArc != nil && *c.Geometry.BallArc < 0 {
		errs = append(errs, errors.New("geometry.ball_arc must not be negative"))
	}
	if c.Sink == "tft" {
		if c.TFT.DC == "" {
			errs = append(errs, errors.New("tft.dc is required"))
		}
		if c.TFT.MaxTxSize < 0 || c.TFT.MaxTxSize == 1 {
			errs = append(errs, fmt.Errorf("tft.max_tx_size %d must be 0 (default) or at least 2", c.TFT.MaxTxSize))
		}
		if c.TFT.MADCTL < 0 || c.TFT.MADCTL > 0xFF {
			errs = append(errs, fmt.Errorf("tft.madctl %#x is not a byte", c.TFT.MADCTL))
		}
	}
	return errors.Join(errs...)
}

func firstString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
