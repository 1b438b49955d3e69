package instrument

import "math"

const (
	DefaultTurn         = 50.0
	DefaultInclinometer = 0.0

	TurnMin, TurnMax                 = 0.0, 100.0
	InclinometerMin, InclinometerMax = -1.0, 1.0

	// degrees of needle travel per percent either side of centre
	NeedleDegreesPerPercent = 0.6
)

// Policy controls how setters treat out-of-range readings.
type Policy struct {
	// Clamp limits the turn reading to [0,100] and the inclinometer to
	// [-1,1]. When false, readings are stored as given and simply project
	// to out-of-range angles and offsets.
	Clamp bool
}

// State is the authoritative model of the gauge readings. It has a single
// owner; callers on other goroutines must serialise through that owner.
type State struct {
	turn    float64
	incline float64
	lamps   [LampCount]bool
	policy  Policy
}

func NewState(p Policy) *State {
	s := &State{policy: p}
	s.Reset()
	return s
}

// Reset restores the power-on readings: needle centred, ball centred, lamps off.
func (s *State) Reset() {
	s.turn = DefaultTurn
	s.incline = DefaultInclinometer
	s.lamps = [LampCount]bool{}
}

func (s *State) Policy() Policy { return s.policy }

// SetTurnCoordinate stores the needle position in percent, 50 being wings level.
// Non-finite values are ignored.
func (s *State) SetTurnCoordinate(pct float64) {
	if !finite(pct) {
		return
	}
	if s.policy.Clamp {
		pct = clamp(pct, TurnMin, TurnMax)
	}
	s.turn = pct
}

func (s *State) TurnCoordinate() float64 { return s.turn }

// SetInclinometer stores the ball position, -1 full left to 1 full right.
// Non-finite values are ignored.
func (s *State) SetInclinometer(pct float64) {
	if !finite(pct) {
		return
	}
	if s.policy.Clamp {
		pct = clamp(pct, InclinometerMin, InclinometerMax)
	}
	s.incline = pct
}

func (s *State) Inclinometer() float64 { return s.incline }

func (s *State) SetLamp(l Lamp, on bool) {
	if !l.Valid() {
		return
	}
	s.lamps[l] = on
}

func (s *State) Lamp(l Lamp) bool {
	if !l.Valid() {
		return false
	}
	return s.lamps[l]
}

// Snapshot is a copy of the readings taken once per frame.
type Snapshot struct {
	Turn         float64
	Inclinometer float64
	Lamps        [LampCount]bool
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{Turn: s.turn, Inclinometer: s.incline, Lamps: s.lamps}
}

func (s Snapshot) Lit(l Lamp) bool { return l.Valid() && s.Lamps[l] }

// NeedleAngle maps a turn reading to degrees: 0 → -30, 50 → 0, 100 → +30.
func NeedleAngle(pct float64) float64 {
	return (pct - DefaultTurn) * NeedleDegreesPerPercent
}

// BallOffset maps an inclinometer reading to a horizontal pixel offset.
func BallOffset(pct, scale float64) float64 {
	return pct * scale
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
