package sequence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

const Version = "seq.v1"

// ParseProgram decodes a YAML program.
func ParseProgram(b []byte) (Program, error) {
	var prog Program
	if err := yaml.Unmarshal(b, &prog); err != nil {
		return Program{}, err
	}
	if prog.Version != "" && prog.Version != Version {
		return Program{}, fmt.Errorf("unsupported program version %q", prog.Version)
	}
	if len(prog.Clips) == 0 {
		return Program{}, fmt.Errorf("program has no clips")
	}
	return prog, nil
}

// LoadProgram reads a YAML program from path.
func LoadProgram(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	prog, err := ParseProgram(b)
	if err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// StateHooks drives st directly.
func StateHooks(st *instrument.State) Hooks {
	return Hooks{
		SetParam: func(name string, v float64) {
			switch name {
			case ParamTurn:
				st.SetTurnCoordinate(v)
			case ParamBall:
				st.SetInclinometer(v)
			}
		},
		SetLamp: st.SetLamp,
	}
}

// Sweep timing.
const (
	SweepDegPerS = 30.0
	SweepHoldS   = 2.0
	// sweepLampAngle is the needle angle below which the demo lights every lamp.
	sweepLampAngle = 10.0
	// sweepBallScale turns a needle angle into an inclinometer reading that
	// moves the ball one pixel per degree at the default 50 px scale.
	sweepBallScale = 50.0
)

// Sweep is the bench demo: the needle swings from +30° to -30° and back with
// the ball following it, holding wings level for two seconds on the way
// through. Every lamp is lit while the needle is below +10°.
func Sweep() Program {
	leg := 30 / SweepDegPerS
	seg := func(name string, from, to float64) Clip {
		c := Clip{
			Name:      name,
			DurationS: leg,
			Params: map[string]Envelope{
				ParamTurn: {Keys: []Keyframe{{T: 0, V: turnFor(from)}, {T: leg, V: turnFor(to)}}},
				ParamBall: {Keys: []Keyframe{{T: 0, V: from / sweepBallScale}, {T: leg, V: to / sweepBallScale}}},
			},
		}
		c.Lamps = map[string]Envelope{AllLamps: lampsBetween(from, to, leg)}
		return c
	}
	hold := Clip{
		Name:      "hold",
		DurationS: SweepHoldS,
		Params: map[string]Envelope{
			ParamTurn: {Keys: []Keyframe{{V: instrument.DefaultTurn}}},
			ParamBall: {Keys: []Keyframe{{V: 0}}},
		},
		Lamps: map[string]Envelope{AllLamps: {Keys: []Keyframe{{V: 1}}}},
	}
	return Program{
		Version: Version,
		Loop:    true,
		Clips: []Clip{
			seg("right-to-level", 30, 0),
			hold,
			seg("level-to-left", 0, -30),
			seg("left-to-level", -30, 0),
			hold,
			seg("level-to-right", 0, 30),
		},
	}
}

func turnFor(angle float64) float64 {
	return instrument.DefaultTurn + angle/instrument.NeedleDegreesPerPercent
}

// lampsBetween switches the lamps where a linear sweep from..to over d
// seconds crosses sweepLampAngle.
func lampsBetween(from, to, d float64) Envelope {
	on := func(a float64) float64 {
		if a < sweepLampAngle {
			return 1
		}
		return 0
	}
	if (from < sweepLampAngle) == (to < sweepLampAngle) {
		return Envelope{Keys: []Keyframe{{V: on(from)}}}
	}
	cross := d * (sweepLampAngle - from) / (to - from)
	return Envelope{Keys: []Keyframe{
		{T: 0, V: on(from), Ease: "step"},
		{T: cross, V: on(to)},
	}}
}
