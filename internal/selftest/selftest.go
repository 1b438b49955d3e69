// Package selftest drives the instrument through fixed patterns so every
// lamp, the full needle travel and the full ball travel can be checked by eye.
package selftest

import (
	"fmt"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

type Kind string

const (
	None        Kind = ""
	LampWalk    Kind = "lamp_walk"
	NeedleSweep Kind = "needle_sweep"
	BallSweep   Kind = "ball_sweep"
)

// Kinds lists the runnable tests.
func Kinds() []Kind { return []Kind{LampWalk, NeedleSweep, BallSweep} }

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown self test %q", s)
}

// sweepStages is the number of positions in a needle or ball sweep,
// ends included.
const sweepStages = 21

type Plan struct {
	Kind Kind
	// Hold is how many frames each stage is shown for. Zero means one.
	Hold int
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.Hold < 1 {
		plan.Hold = 1
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step poses st for the next frame; returns false when complete, leaving st
// at its defaults.
func (r *Runner) Step(st *instrument.State) bool {
	st.Reset()
	stage := r.step / r.plan.Hold

	switch r.plan.Kind {
	case LampWalk:
		if stage >= instrument.LampCount {
			return false
		}
		st.SetLamp(instrument.Lamp(stage), true)
	case NeedleSweep:
		if stage >= sweepStages {
			return false
		}
		span := instrument.TurnMax - instrument.TurnMin
		st.SetTurnCoordinate(instrument.TurnMin + span*float64(stage)/(sweepStages-1))
	case BallSweep:
		if stage >= sweepStages {
			return false
		}
		span := instrument.InclinometerMax - instrument.InclinometerMin
		st.SetInclinometer(instrument.InclinometerMin + span*float64(stage)/(sweepStages-1))
	default:
		return false
	}
	r.step++
	return true
}
