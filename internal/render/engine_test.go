package render

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/asset/synth"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/sink/fake"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

func newRegistry(t *testing.T) *asset.Registry {
	t.Helper()
	reg := asset.NewRegistry()
	require.NoError(t, synth.Install(reg))
	return reg
}

func newPipeline(t *testing.T, geo Geometry) (*Pipeline, *fake.Sink, *asset.Registry) {
	t.Helper()
	reg := newRegistry(t)
	drv := &fake.Sink{}
	p, err := NewPipeline(geo, reg, drv, nil)
	require.NoError(t, err)
	return p, drv, reg
}

func render(t *testing.T, p *Pipeline, drv *fake.Sink, st *instrument.State) []sprite.Pixel {
	t.Helper()
	require.NoError(t, p.RenderFrame(st.Snapshot()))
	r, pix := drv.Last()
	require.Equal(t, image.Rect(0, 0, p.Geo.Width, p.Geo.Height), r)
	return pix
}

func surfaceFrom(t *testing.T, reg *asset.Registry, name string) *sprite.Surface {
	t.Helper()
	b, ok := reg.Get(name)
	require.True(t, ok, name)
	s, err := sprite.NewAllocator(0).NewSurfaceFrom(b)
	require.NoError(t, err)
	return s
}

// expectedFrame builds the reference composition by hand: dial, ball, then
// the needle rotated about the surface pivot.
func expectedFrame(t *testing.T, reg *asset.Registry, geo Geometry, ballAt image.Point, angle float64) *sprite.Surface {
	t.Helper()
	exp, err := sprite.NewSurface(geo.Width, geo.Height)
	require.NoError(t, err)
	exp.SetPivot(geo.Pivot.X, geo.Pivot.Y)
	dial, _ := reg.Get(geo.Dial)
	exp.Blit(dial, 0, 0)

	ball := surfaceFrom(t, reg, geo.Ball)
	ball.BlitTo(exp, ballAt.X, ballAt.Y, ball.Key())

	needle := surfaceFrom(t, reg, geo.Needle)
	needle.SetPivot(geo.NeedlePivot.X, geo.NeedlePivot.Y)
	if angle == 0 {
		needle.BlitTo(exp, geo.Pivot.X-geo.NeedlePivot.X, geo.Pivot.Y-geo.NeedlePivot.Y, needle.Key())
	} else {
		needle.BlitRotated(exp, angle, needle.Key())
	}
	return exp
}

func TestLayerOrder(t *testing.T) {
	p, _, _ := newPipeline(t, DefaultGeometry())
	want := []string{"background", "ball"}
	for _, l := range instrument.Lamps() {
		want = append(want, "lamp."+l.String())
	}
	want = append(want, "needle")
	assert.Equal(t, want, p.Layers())
}

func TestNeutralFrame(t *testing.T) {
	geo := DefaultGeometry()
	p, drv, reg := newPipeline(t, geo)
	st := instrument.NewState(instrument.Policy{})
	st.SetTurnCoordinate(50)
	st.SetInclinometer(0)

	got := render(t, p, drv, st)

	assert.Equal(t, 0.0, p.NeedleAngle(st.Snapshot()))
	ballAt := p.BallOrigin(st.Snapshot())
	assert.Equal(t, image.Pt(160-synth.BallSize/2, 300-synth.BallSize-24), ballAt)

	exp := expectedFrame(t, reg, geo, ballAt, 0)
	assert.Equal(t, exp.Pix(), got)
	assert.Equal(t, uint64(1), p.Frames())
	assert.Equal(t, Idle, p.Phase())
}

func TestNeedleFullDeflection(t *testing.T) {
	geo := DefaultGeometry()
	p, drv, reg := newPipeline(t, geo)
	st := instrument.NewState(instrument.Policy{})
	wing := func(pix []sprite.Pixel, x, y int) sprite.Pixel { return pix[y*geo.Width+x] }

	st.SetTurnCoordinate(100)
	right := render(t, p, drv, st)
	assert.InDelta(t, 30.0, p.NeedleAngle(st.Snapshot()), 1e-9)
	exp := expectedFrame(t, reg, geo, p.BallOrigin(st.Snapshot()), 30)
	assert.Equal(t, exp.Pix(), right)
	// right wing tip dips below the pivot
	assert.Equal(t, sprite.Orange, wing(right, 231, 191))
	assert.NotEqual(t, sprite.Orange, wing(right, 231, 109))

	st.SetTurnCoordinate(0)
	left := render(t, p, drv, st)
	assert.InDelta(t, -30.0, p.NeedleAngle(st.Snapshot()), 1e-9)
	exp = expectedFrame(t, reg, geo, p.BallOrigin(st.Snapshot()), -30)
	assert.Equal(t, exp.Pix(), left)
	assert.Equal(t, sprite.Orange, wing(left, 231, 109))
	assert.NotEqual(t, sprite.Orange, wing(left, 231, 191))
}

func TestReadyLampOnlyTouchesItsRectangle(t *testing.T) {
	p, drv, _ := newPipeline(t, DefaultGeometry())
	st := instrument.NewState(instrument.Policy{})
	bare := render(t, p, drv, st)

	st.SetLamp(instrument.Ready, true)
	lit := render(t, p, drv, st)

	rect, ok := p.LampRect(instrument.Ready)
	require.True(t, ok)
	diffs := 0
	for i := range bare {
		if bare[i] == lit[i] {
			continue
		}
		diffs++
		pt := image.Pt(i%p.Geo.Width, i/p.Geo.Width)
		assert.True(t, pt.In(rect), "pixel %v changed outside %v", pt, rect)
	}
	assert.Greater(t, diffs, 0)
}

func TestLampClearedBeforeFrameIsNotDrawn(t *testing.T) {
	p, drv, _ := newPipeline(t, DefaultGeometry())
	st := instrument.NewState(instrument.Policy{})
	bare := render(t, p, drv, st)

	st.SetLamp(instrument.LowVoltage, true)
	st.SetLamp(instrument.LowVoltage, false)
	assert.Equal(t, bare, render(t, p, drv, st))
}

func TestNoResidueBetweenFrames(t *testing.T) {
	p, drv, _ := newPipeline(t, DefaultGeometry())
	st := instrument.NewState(instrument.Policy{})
	bare := render(t, p, drv, st)

	st.SetTurnCoordinate(100)
	st.SetInclinometer(1)
	for _, l := range instrument.Lamps() {
		st.SetLamp(l, true)
	}
	busy := render(t, p, drv, st)
	assert.NotEqual(t, bare, busy)

	st.Reset()
	assert.Equal(t, bare, render(t, p, drv, st))
}

func TestNeedleDrawnOverLamp(t *testing.T) {
	geo := DefaultGeometry()
	for i := range geo.Lamps {
		if geo.Lamps[i].Lamp == instrument.Ready {
			geo.Lamps[i].X, geo.Lamps[i].Y = geo.Pivot.X-8, geo.Pivot.Y-8
		}
	}
	p, drv, reg := newPipeline(t, geo)
	st := instrument.NewState(instrument.Policy{})
	st.SetLamp(instrument.Ready, true)
	st.SetTurnCoordinate(100)
	got := render(t, p, drv, st)

	ref, err := sprite.NewSurface(geo.Width, geo.Height)
	require.NoError(t, err)
	ref.Fill(sprite.White)
	ref.SetPivot(geo.Pivot.X, geo.Pivot.Y)
	needle := surfaceFrom(t, reg, geo.Needle)
	needle.SetPivot(geo.NeedlePivot.X, geo.NeedlePivot.Y)
	needle.BlitRotated(ref, 30, needle.Key())

	rect, ok := p.LampRect(instrument.Ready)
	require.True(t, ok)
	overlap := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			want := ref.Pixel(x, y)
			if want == sprite.White {
				continue
			}
			overlap++
			assert.Equal(t, want, got[y*geo.Width+x], "pixel %d,%d", x, y)
		}
	}
	assert.Greater(t, overlap, 0)
}

func TestBallTravel(t *testing.T) {
	p, _, _ := newPipeline(t, DefaultGeometry())
	st := instrument.NewState(instrument.Policy{})
	centre := p.BallOrigin(st.Snapshot())

	st.SetInclinometer(0.5)
	o := p.BallOrigin(st.Snapshot())
	assert.Equal(t, centre.X+25, o.X)
	assert.Equal(t, centre.Y-5, o.Y)

	st.SetInclinometer(-1)
	o = p.BallOrigin(st.Snapshot())
	assert.Equal(t, centre.X-50, o.X)
	assert.Equal(t, centre.Y-10, o.Y)

	// the lift only steps once a full BallArc of travel is covered
	st.SetInclinometer(0.08)
	o = p.BallOrigin(st.Snapshot())
	assert.Equal(t, centre.X+4, o.X)
	assert.Equal(t, centre.Y, o.Y)

	st.SetInclinometer(-0.18)
	o = p.BallOrigin(st.Snapshot())
	assert.Equal(t, centre.X-9, o.X)
	assert.Equal(t, centre.Y-1, o.Y)
}

func TestStraightTubeWithoutArc(t *testing.T) {
	geo := DefaultGeometry()
	geo.BallArc = 0
	p, _, _ := newPipeline(t, geo)
	st := instrument.NewState(instrument.Policy{})
	centre := p.BallOrigin(st.Snapshot())
	st.SetInclinometer(1)
	o := p.BallOrigin(st.Snapshot())
	assert.Equal(t, centre.X+50, o.X)
	assert.Equal(t, centre.Y, o.Y)
}

type phaseSink struct {
	p    *Pipeline
	seen []Phase
}

func (s *phaseSink) Present(x, y, w, h int, pix []sprite.Pixel) error {
	s.seen = append(s.seen, s.p.Phase())
	return nil
}

func TestPhaseDuringFrame(t *testing.T) {
	p, _, _ := newPipeline(t, DefaultGeometry())
	ps := &phaseSink{p: p}
	p.SetSink(ps)
	require.NoError(t, p.RenderFrame(instrument.NewState(instrument.Policy{}).Snapshot()))
	assert.Equal(t, []Phase{Compositing}, ps.seen)
	assert.Equal(t, Idle, p.Phase())
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "compositing", Compositing.String())
}

func TestPresentFailureDropsOnlyThatFrame(t *testing.T) {
	p, drv, _ := newPipeline(t, DefaultGeometry())
	st := instrument.NewState(instrument.Policy{})
	st.SetTurnCoordinate(80)
	before := st.Snapshot()

	boom := errors.New("spi bus busy")
	drv.Err = boom
	err := p.RenderFrame(st.Snapshot())
	assert.ErrorIs(t, err, ErrPresent)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), p.Dropped())
	assert.Equal(t, uint64(0), p.Frames())
	assert.Equal(t, Idle, p.Phase())
	assert.Equal(t, before, st.Snapshot())

	drv.Err = nil
	assert.NoError(t, p.RenderFrame(st.Snapshot()))
	assert.Equal(t, uint64(1), p.Frames())
	assert.Equal(t, 1, drv.Count)
}

func TestSetupFailures(t *testing.T) {
	reg := newRegistry(t)

	_, err := NewPipeline(DefaultGeometry(), reg, &fake.Sink{}, sprite.NewAllocator(1000))
	assert.ErrorIs(t, err, sprite.ErrAllocation)

	_, err = NewPipeline(DefaultGeometry(), asset.NewRegistry(), &fake.Sink{}, nil)
	assert.ErrorIs(t, err, asset.ErrMissing)

	geo := DefaultGeometry()
	geo.Lamps = append(geo.Lamps, LampPlacement{Lamp: instrument.Heading, Asset: asset.APDot, X: 310, Y: 0})
	_, err = NewPipeline(geo, reg, &fake.Sink{}, nil)
	assert.ErrorContains(t, err, "outside")

	geo = DefaultGeometry()
	geo.Width = 0
	_, err = NewPipeline(geo, reg, &fake.Sink{}, nil)
	assert.Error(t, err)
}

func TestComposeWithoutSink(t *testing.T) {
	reg := newRegistry(t)
	p, err := NewPipeline(DefaultGeometry(), reg, nil, nil)
	require.NoError(t, err)
	p.Compose(instrument.NewState(instrument.Policy{}).Snapshot())
	assert.NoError(t, p.RenderFrame(instrument.NewState(instrument.Policy{}).Snapshot()))
	assert.Equal(t, Idle, p.Phase())
}
