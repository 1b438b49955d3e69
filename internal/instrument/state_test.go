package instrument

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := NewState(Policy{})
	assert.Equal(t, 50.0, s.TurnCoordinate())
	assert.Equal(t, 0.0, s.Inclinometer())
	for _, l := range Lamps() {
		assert.False(t, s.Lamp(l), l.String())
	}
}

func TestNeedleAngle(t *testing.T) {
	assert.Equal(t, 0.0, NeedleAngle(50))
	assert.InDelta(t, -30.0, NeedleAngle(0), 1e-9)
	assert.InDelta(t, 30.0, NeedleAngle(100), 1e-9)
	for pct := 0.0; pct <= 100; pct += 2.5 {
		assert.InDelta(t, (pct-50)*0.6, NeedleAngle(pct), 1e-9)
	}
}

func TestBallOffset(t *testing.T) {
	assert.Equal(t, 0.0, BallOffset(0, 50))
	assert.Equal(t, -50.0, BallOffset(-1, 50))
	assert.Equal(t, 25.0, BallOffset(0.5, 50))
}

func TestSettersStoreLastValue(t *testing.T) {
	s := NewState(Policy{})
	s.SetTurnCoordinate(75)
	s.SetTurnCoordinate(20)
	s.SetInclinometer(0.3)
	assert.Equal(t, 20.0, s.TurnCoordinate())
	assert.Equal(t, 0.3, s.Inclinometer())

	s.SetLamp(Ready, true)
	s.SetLamp(Ready, false)
	s.SetLamp(Heading, true)
	snap := s.Snapshot()
	assert.False(t, snap.Lit(Ready))
	assert.True(t, snap.Lit(Heading))
}

func TestPassthroughPolicyKeepsOutOfRange(t *testing.T) {
	s := NewState(Policy{})
	s.SetTurnCoordinate(150)
	s.SetInclinometer(-3)
	assert.Equal(t, 150.0, s.TurnCoordinate())
	assert.Equal(t, -3.0, s.Inclinometer())
	assert.InDelta(t, 60.0, NeedleAngle(s.TurnCoordinate()), 1e-9)
}

func TestClampPolicy(t *testing.T) {
	s := NewState(Policy{Clamp: true})
	s.SetTurnCoordinate(150)
	s.SetInclinometer(-3)
	assert.Equal(t, 100.0, s.TurnCoordinate())
	assert.Equal(t, -1.0, s.Inclinometer())

	s.SetTurnCoordinate(-10)
	s.SetInclinometer(2)
	assert.Equal(t, 0.0, s.TurnCoordinate())
	assert.Equal(t, 1.0, s.Inclinometer())
}

func TestNonFiniteIgnored(t *testing.T) {
	for _, p := range []Policy{{}, {Clamp: true}} {
		s := NewState(p)
		s.SetTurnCoordinate(70)
		s.SetInclinometer(0.2)
		s.SetTurnCoordinate(math.NaN())
		s.SetInclinometer(math.Inf(-1))
		assert.Equal(t, 70.0, s.TurnCoordinate())
		assert.Equal(t, 0.2, s.Inclinometer())
	}
}

func TestInvalidLampIgnored(t *testing.T) {
	s := NewState(Policy{})
	assert.NotPanics(t, func() { s.SetLamp(Lamp(42), true) })
	assert.False(t, s.Lamp(Lamp(42)))
	assert.False(t, s.Snapshot().Lit(Lamp(42)))
}

func TestResetRestoresDefaults(t *testing.T) {
	s := NewState(Policy{})
	s.SetTurnCoordinate(10)
	s.SetInclinometer(1)
	s.SetLamp(LowVoltage, true)
	s.Reset()
	assert.Equal(t, NewState(Policy{}).Snapshot(), s.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewState(Policy{})
	snap := s.Snapshot()
	s.SetLamp(TrimUp, true)
	s.SetTurnCoordinate(0)
	assert.False(t, snap.Lit(TrimUp))
	assert.Equal(t, 50.0, snap.Turn)
}

func TestLampNames(t *testing.T) {
	assert.Len(t, Lamps(), 9)
	for _, l := range Lamps() {
		got, err := ParseLamp(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	l, err := ParseLamp("Track-Capture-High")
	require.NoError(t, err)
	assert.Equal(t, TrackCaptureHigh, l)

	_, err = ParseLamp("gear")
	assert.Error(t, err)

	var u Lamp
	require.NoError(t, u.UnmarshalText([]byte("low-voltage")))
	assert.Equal(t, LowVoltage, u)
	assert.Equal(t, "lamp(42)", Lamp(42).String())
}
