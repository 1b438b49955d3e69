package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

// LampPlacement puts a lamp face on the dial. The lamp's declared rectangle
// is (X, Y) sized to its asset; several lamps may share one asset.
type LampPlacement struct {
	Lamp  instrument.Lamp
	Asset string
	X, Y  int
}

// Geometry fixes where everything sits on the working surface.
type Geometry struct {
	Width, Height int
	// Pivot is the point on the working surface the needle turns about.
	Pivot image.Point

	Dial        string
	Needle      string
	NeedlePivot image.Point

	Ball string
	// BallScale is pixels of travel per unit of inclinometer reading.
	BallScale float64
	// BallBaseline is the gap between the ball's lowest position and the
	// bottom edge.
	BallBaseline int
	// BallArc lifts the ball by floor(|offset|/BallArc) pixels as it moves
	// out along the curved tube. Zero keeps the ball on a straight line.
	BallArc float64

	Lamps []LampPlacement
}

// DefaultGeometry is the 320x300 turn coordinator face.
func DefaultGeometry() Geometry {
	return Geometry{
		Width:        320,
		Height:       300,
		Pivot:        image.Pt(160, 150),
		Dial:         asset.Dial,
		Needle:       asset.Needle,
		NeedlePivot:  image.Pt(83, 22),
		Ball:         asset.Ball,
		BallScale:    50,
		BallBaseline: 24,
		BallArc:      5,
		Lamps: []LampPlacement{
			{Lamp: instrument.AltitudeHold, Asset: asset.AltDot, X: 20, Y: 20},
			{Lamp: instrument.Ready, Asset: asset.ReadyDot, X: 284, Y: 20},
			{Lamp: instrument.LowVoltage, Asset: asset.LowVoltFlag, X: 136, Y: 60},
			{Lamp: instrument.TrimUp, Asset: asset.UpDot, X: 20, Y: 120},
			{Lamp: instrument.TrimDown, Asset: asset.DownDot, X: 20, Y: 164},
			{Lamp: instrument.SelectedTrack, Asset: asset.APDot, X: 284, Y: 100},
			{Lamp: instrument.Heading, Asset: asset.APDot, X: 284, Y: 130},
			{Lamp: instrument.TrackCaptureLow, Asset: asset.APDot, X: 284, Y: 160},
			{Lamp: instrument.TrackCaptureHigh, Asset: asset.APDot, X: 284, Y: 190},
		},
	}
}

func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", g.Width, g.Height)
	}
	if g.Dial == "" || g.Needle == "" || g.Ball == "" {
		return errors.New("dial, needle and ball assets must be named")
	}
	if math.IsNaN(g.BallScale) || math.IsInf(g.BallScale, 0) {
		return errors.New("ball scale must be finite")
	}
	if g.BallArc < 0 || math.IsNaN(g.BallArc) {
		return errors.New("ball arc must not be negative")
	}
	for _, lp := range g.Lamps {
		if !lp.Lamp.Valid() {
			return fmt.Errorf("invalid lamp %v", lp.Lamp)
		}
		if lp.Asset == "" {
			return fmt.Errorf("lamp %v has no asset", lp.Lamp)
		}
	}
	return nil
}
