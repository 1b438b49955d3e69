package selftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

func TestLampWalkLightsOneAtATime(t *testing.T) {
	st := instrument.NewState(instrument.Policy{})
	r := NewRunner(Plan{Kind: LampWalk, Hold: 2})
	var seen []instrument.Lamp
	for r.Step(st) {
		lit := 0
		for _, l := range instrument.Lamps() {
			if st.Lamp(l) {
				lit++
				if len(seen) == 0 || seen[len(seen)-1] != l {
					seen = append(seen, l)
				}
			}
		}
		require.Equal(t, 1, lit)
	}
	assert.Equal(t, instrument.Lamps(), seen)
	assert.Equal(t, instrument.NewState(instrument.Policy{}).Snapshot(), st.Snapshot())
}

func TestNeedleSweepCoversFullTravel(t *testing.T) {
	st := instrument.NewState(instrument.Policy{})
	r := NewRunner(Plan{Kind: NeedleSweep})
	var turns []float64
	for r.Step(st) {
		turns = append(turns, st.TurnCoordinate())
	}
	require.Len(t, turns, sweepStages)
	assert.Equal(t, 0.0, turns[0])
	assert.Equal(t, 50.0, turns[10])
	assert.Equal(t, 100.0, turns[20])
}

func TestBallSweepCoversFullTravel(t *testing.T) {
	st := instrument.NewState(instrument.Policy{})
	r := NewRunner(Plan{Kind: BallSweep})
	var incl []float64
	for r.Step(st) {
		incl = append(incl, st.Inclinometer())
	}
	require.Len(t, incl, sweepStages)
	assert.Equal(t, -1.0, incl[0])
	assert.InDelta(t, 0.0, incl[10], 1e-12)
	assert.Equal(t, 1.0, incl[20])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("ball_sweep")
	require.NoError(t, err)
	assert.Equal(t, BallSweep, k)
	_, err = ParseKind("rgb_channels")
	assert.Error(t, err)
	assert.False(t, NewRunner(Plan{}).Step(instrument.NewState(instrument.Policy{})))
}
