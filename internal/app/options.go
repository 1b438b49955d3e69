package app

import (
	"image"

	"github.com/coreman2200/turn-coordinator/internal/config"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/render"
	"github.com/coreman2200/turn-coordinator/internal/sequence"
)

// OptionsFrom maps the effective configuration onto core options. Sinks and
// reporters are left for the caller to attach.
func OptionsFrom(c config.Config) Options {
	geo := render.DefaultGeometry()
	g := c.Geometry
	if g.Pivot != (config.Point{}) {
		geo.Pivot = image.Pt(g.Pivot.X, g.Pivot.Y)
	}
	if g.NeedlePivot != (config.Point{}) {
		geo.NeedlePivot = image.Pt(g.NeedlePivot.X, g.NeedlePivot.Y)
	}
	if g.BallScale != nil {
		geo.BallScale = *g.BallScale
	}
	if g.BallBaseline != nil {
		geo.BallBaseline = *g.BallBaseline
	}
	if g.BallArc != nil {
		geo.BallArc = *g.BallArc
	}
	return Options{
		Geometry:    geo,
		Policy:      instrument.Policy{Clamp: c.Clamp},
		FPS:         c.FPS,
		PixelBudget: c.PixelBudget,
		SinkName:    c.Sink,
	}
}

// ProgramFrom resolves the configured program: "sweep" is the built-in demo,
// anything else a YAML file. ok is false when no program is configured.
func ProgramFrom(name string) (prog sequence.Program, ok bool, err error) {
	switch name {
	case "":
		return sequence.Program{}, false, nil
	case "sweep":
		return sequence.Sweep(), true, nil
	}
	prog, err = sequence.LoadProgram(name)
	return prog, err == nil, err
}
