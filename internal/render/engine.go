package render

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

var ErrPresent = errors.New("present failed")

// Phase is where the pipeline is in its frame cycle.
type Phase uint8

const (
	Idle Phase = iota
	Compositing
)

func (p Phase) String() string {
	if p == Compositing {
		return "compositing"
	}
	return "idle"
}

type layer struct {
	name    string
	visible func(instrument.Snapshot) bool
	draw    func(instrument.Snapshot)

	// set for lamp layers
	lamp  bool
	which instrument.Lamp
	rect  image.Rectangle
}

func always(instrument.Snapshot) bool { return true }

// Pipeline composites the gauge from scratch every frame onto an off-screen
// working surface, then presents it to the sink. Nothing but the instrument
// snapshot carries over between frames, so no overlay pixels can linger.
type Pipeline struct {
	Geo  Geometry
	Sink sprite.Sink

	work   *sprite.Surface
	needle *sprite.Surface
	ball   *sprite.Surface
	dial   *sprite.Bitmap

	layers []layer
	phase  Phase

	frames  uint64
	dropped uint64

	// metrics (last durations in ms)
	Last struct {
		ComposeMS float64
		PresentMS float64
		TotalMS   float64
	}
}

// NewPipeline resolves assets and allocates the surfaces. Any failure here is
// a setup failure and the pipeline must not be used.
func NewPipeline(geo Geometry, reg *asset.Registry, sink sprite.Sink, alloc *sprite.Allocator) (*Pipeline, error) {
	if err := geo.Validate(); err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	if alloc == nil {
		alloc = sprite.NewAllocator(0)
	}
	p := &Pipeline{Geo: geo, Sink: sink}

	var err error
	if p.dial, err = reg.Lookup(geo.Dial); err != nil {
		return nil, err
	}
	needleArt, err := reg.Lookup(geo.Needle)
	if err != nil {
		return nil, err
	}
	ballArt, err := reg.Lookup(geo.Ball)
	if err != nil {
		return nil, err
	}

	if p.work, err = alloc.NewSurface(geo.Width, geo.Height); err != nil {
		return nil, fmt.Errorf("working surface: %w", err)
	}
	p.work.SetPivot(geo.Pivot.X, geo.Pivot.Y)

	if p.needle, err = alloc.NewSurfaceFrom(needleArt); err != nil {
		return nil, fmt.Errorf("needle surface: %w", err)
	}
	p.needle.SetPivot(geo.NeedlePivot.X, geo.NeedlePivot.Y)

	// The ball does not pivot, only moves.
	if p.ball, err = alloc.NewSurfaceFrom(ballArt); err != nil {
		return nil, fmt.Errorf("ball surface: %w", err)
	}

	p.layers = append(p.layers,
		layer{name: "background", visible: always, draw: p.drawBackground},
		layer{name: "ball", visible: always, draw: p.drawBall},
	)

	lamps := append([]LampPlacement(nil), geo.Lamps...)
	sort.SliceStable(lamps, func(i, j int) bool { return lamps[i].Lamp < lamps[j].Lamp })
	for _, lp := range lamps {
		art, err := reg.Lookup(lp.Asset)
		if err != nil {
			return nil, fmt.Errorf("lamp %v: %w", lp.Lamp, err)
		}
		rect := image.Rect(lp.X, lp.Y, lp.X+art.Width(), lp.Y+art.Height())
		if !rect.In(p.work.Bounds()) {
			return nil, fmt.Errorf("lamp %v at %v lies outside the %dx%d surface", lp.Lamp, rect, geo.Width, geo.Height)
		}
		lamp, x, y := lp.Lamp, lp.X, lp.Y
		p.layers = append(p.layers, layer{
			name:    "lamp." + lamp.String(),
			visible: func(s instrument.Snapshot) bool { return s.Lit(lamp) },
			draw:    func(instrument.Snapshot) { p.work.Blit(art, x, y) },
			lamp:    true,
			which:   lamp,
			rect:    rect,
		})
	}

	// Do the plane last. It's on top of all the others.
	p.layers = append(p.layers, layer{name: "needle", visible: always, draw: p.drawNeedle})
	return p, nil
}

// Layers lists layer names in draw order.
func (p *Pipeline) Layers() []string {
	out := make([]string, len(p.layers))
	for i, l := range p.layers {
		out[i] = l.name
	}
	return out
}

// LampRect is the declared rectangle of the first placement of l.
func (p *Pipeline) LampRect(l instrument.Lamp) (image.Rectangle, bool) {
	for _, ly := range p.layers {
		if ly.lamp && ly.which == l {
			return ly.rect, true
		}
	}
	return image.Rectangle{}, false
}

// SetSink swaps the output. Call it between frames only.
func (p *Pipeline) SetSink(s sprite.Sink) { p.Sink = s }

func (p *Pipeline) Phase() Phase    { return p.phase }
func (p *Pipeline) Frames() uint64  { return p.frames }
func (p *Pipeline) Dropped() uint64 { return p.dropped }

// NeedleAngle is the rotation the needle gets for s.
func (p *Pipeline) NeedleAngle(s instrument.Snapshot) float64 {
	return instrument.NeedleAngle(s.Turn)
}

// BallOrigin is the top-left corner of the ball sprite for s.
func (p *Pipeline) BallOrigin(s instrument.Snapshot) image.Point {
	off := instrument.BallOffset(s.Inclinometer, p.Geo.BallScale)
	if math.IsNaN(off) || math.IsInf(off, 0) {
		off = 0
	}
	dx := int(math.Round(off))
	lift := 0
	if p.Geo.BallArc > 0 {
		lift = int(math.Floor(math.Abs(float64(dx)) / p.Geo.BallArc))
	}
	return image.Pt(
		p.Geo.Width/2-p.ball.Width()/2+dx,
		p.Geo.Height-p.ball.Height()-p.Geo.BallBaseline-lift,
	)
}

// Compose draws every visible layer, in order, onto the working surface.
func (p *Pipeline) Compose(s instrument.Snapshot) {
	p.phase = Compositing
	defer func() { p.phase = Idle }()
	p.compose(s)
}

func (p *Pipeline) compose(s instrument.Snapshot) {
	for _, l := range p.layers {
		if l.visible(s) {
			l.draw(s)
		}
	}
}

// RenderFrame composes s and presents the result. A present failure drops
// this frame only; the caller carries on with the next one.
func (p *Pipeline) RenderFrame(s instrument.Snapshot) error {
	start := time.Now()
	p.phase = Compositing
	defer func() { p.phase = Idle }()

	p.compose(s)
	p.Last.ComposeMS = float64(time.Since(start).Microseconds()) / 1000.0

	presentStart := time.Now()
	if p.Sink != nil {
		if err := p.work.Present(p.Sink, 0, 0); err != nil {
			p.dropped++
			log.Warn().Err(err).Uint64("frame", p.frames+p.dropped).Msg("present failed; frame dropped")
			return fmt.Errorf("%w: %w", ErrPresent, err)
		}
	}
	p.frames++
	p.Last.PresentMS = float64(time.Since(presentStart).Microseconds()) / 1000.0
	p.Last.TotalMS = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

func (p *Pipeline) drawBackground(instrument.Snapshot) {
	// Put a fresh background everywhere to overwrite the old plane and ball.
	if p.dial.Key().Valid || !p.work.Bounds().In(p.dial.Bounds()) {
		p.work.Fill(sprite.Black)
	}
	p.work.Blit(p.dial, 0, 0)
}

func (p *Pipeline) drawBall(s instrument.Snapshot) {
	o := p.BallOrigin(s)
	p.ball.BlitTo(p.work, o.X, o.Y, p.ball.Key())
}

func (p *Pipeline) drawNeedle(s instrument.Snapshot) {
	p.needle.BlitRotated(p.work, p.NeedleAngle(s), p.needle.Key())
}
