package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/asset/synth"
	"github.com/coreman2200/turn-coordinator/internal/config"
	"github.com/coreman2200/turn-coordinator/internal/console"
	diag "github.com/coreman2200/turn-coordinator/internal/diagnostics"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/render"
	"github.com/coreman2200/turn-coordinator/internal/sink/fake"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

type diagLog struct {
	mu  sync.Mutex
	all []diag.Diagnostic
}

func (l *diagLog) Report(d diag.Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, d)
}

func (l *diagLog) codes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, d := range l.all {
		out = append(out, d.Code)
	}
	return out
}

type lampCounter struct{ updates int }

func (a *lampCounter) Update(instrument.Snapshot) (bool, error) { a.updates++; return true, nil }

func newCore(t *testing.T, drv *fake.Sink, dl *diagLog) *Core {
	t.Helper()
	reg := asset.NewRegistry()
	require.NoError(t, synth.Install(reg))
	c, err := InitCore(Options{
		Geometry:  render.DefaultGeometry(),
		FPS:       200,
		Sink:      drv,
		SinkName:  "fake",
		Reporters: []diag.Reporter{dl},
	}, reg)
	require.NoError(t, err)
	return c
}

func TestStepPresentsFrame(t *testing.T) {
	drv := &fake.Sink{}
	ann := &lampCounter{}
	c := newCore(t, drv, &diagLog{})
	c.opts.Annunciator = ann

	require.NoError(t, c.Submit(func(st *instrument.State) { st.SetTurnCoordinate(100) }))
	require.NoError(t, c.Step(0.01))
	assert.Equal(t, 100.0, c.State.TurnCoordinate())
	assert.Equal(t, 1, drv.Count)
	assert.Equal(t, 1, ann.updates)
}

func TestPresentFailureIsReported(t *testing.T) {
	drv := &fake.Sink{Err: errors.New("bus fault")}
	dl := &diagLog{}
	c := newCore(t, drv, dl)

	err := c.Step(0.01)
	assert.ErrorIs(t, err, render.ErrPresent)
	assert.Equal(t, []string{diag.CodePresent}, dl.codes())

	drv.Err = nil
	assert.NoError(t, c.Step(0.01))
}

func TestSelfTestRunsToCompletion(t *testing.T) {
	drv := &fake.Sink{}
	dl := &diagLog{}
	c := newCore(t, drv, dl)

	require.NoError(t, c.exec(console.Command{Name: "selftest", Args: []string{"lamp_walk"}}))
	require.NoError(t, c.Step(0.01))
	lit := c.State.Snapshot()
	assert.True(t, lit.Lit(instrument.AltitudeHold))

	for i := 0; i < 1000 && c.test != nil; i++ {
		require.NoError(t, c.Step(0.01))
	}
	assert.Nil(t, c.test)
	assert.Equal(t, []string{diag.CodeSelfTestStart, diag.CodeSelfTestDone}, dl.codes())

	assert.Error(t, c.exec(console.Command{Name: "selftest", Args: []string{"rgb"}}))
}

func TestExecAgainstRunningCore(t *testing.T) {
	drv := &fake.Sink{}
	dl := &diagLog{}
	c := newCore(t, drv, dl)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, c.Exec("lamp ready on"))
	require.NoError(t, c.Exec("ball 0.5"))
	assert.ErrorIs(t, c.Exec("flaps 10"), console.ErrUnknownCommand)
	assert.ErrorIs(t, c.Exec("program rewind"), console.ErrUsage)
	assert.Equal(t, []string{diag.CodeCommand, diag.CodeCommand}, dl.codes())
	dl.mu.Lock()
	assert.Equal(t, "flaps 10", dl.all[0].Evidence["line"])
	dl.mu.Unlock()

	var snap instrument.Snapshot
	require.NoError(t, c.Submit(func(st *instrument.State) { snap = st.Snapshot() }))
	require.NoError(t, c.Exec("")) // barrier: earlier submissions have run
	assert.True(t, snap.Lit(instrument.Ready))
	assert.Equal(t, 0.5, snap.Inclinometer)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop")
	}
	assert.ErrorIs(t, c.Exec("reset"), ErrStopped)
	assert.ErrorIs(t, c.Submit(func(*instrument.State) {}), ErrStopped)
	assert.Len(t, dl.codes(), 2)
}

func TestSweepProgramMovesNeedle(t *testing.T) {
	drv := &fake.Sink{}
	c := newCore(t, drv, &diagLog{})
	prog, ok, err := ProgramFrom("sweep")
	require.NoError(t, err)
	require.True(t, ok)

	res := make(chan error, 1)
	go func() { res <- c.LoadProgram(prog) }()
	require.Eventually(t, func() bool {
		_ = c.Step(0.01)
		select {
		case err := <-res:
			require.NoError(t, err)
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	assert.Greater(t, c.State.TurnCoordinate(), 95.0)
	require.NoError(t, c.exec(console.Command{Name: "program", Args: []string{"stop"}}))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Clamp = true
	cfg.Geometry.BallScale = config.Float(40)
	o := OptionsFrom(cfg)
	assert.True(t, o.Policy.Clamp)
	assert.Equal(t, 40.0, o.Geometry.BallScale)
	assert.Equal(t, 5.0, o.Geometry.BallArc)

	cfg.Geometry.BallArc = config.Float(0)
	assert.Equal(t, 0.0, OptionsFrom(cfg).Geometry.BallArc)

	cfg.Geometry = config.Geometry{}
	assert.Equal(t, render.DefaultGeometry().BallArc, OptionsFrom(cfg).Geometry.BallArc)
	assert.Equal(t, render.DefaultGeometry().Lamps, o.Geometry.Lamps)

	_, ok, err := ProgramFrom("")
	assert.NoError(t, err)
	assert.False(t, ok)
	_, _, err = ProgramFrom("/nonexistent/program.yaml")
	assert.Error(t, err)
}

func TestInitCoreFailsOnBudget(t *testing.T) {
	reg := asset.NewRegistry()
	require.NoError(t, synth.Install(reg))
	_, err := InitCore(Options{Geometry: render.DefaultGeometry(), PixelBudget: 100}, reg)
	assert.ErrorIs(t, err, sprite.ErrAllocation)
}
