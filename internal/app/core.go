package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/console"
	diag "github.com/coreman2200/turn-coordinator/internal/diagnostics"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/render"
	"github.com/coreman2200/turn-coordinator/internal/selftest"
	"github.com/coreman2200/turn-coordinator/internal/sequence"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

var ErrStopped = errors.New("core stopped")

// Annunciator mirrors lamp state somewhere outside the gauge face.
type Annunciator interface {
	Update(instrument.Snapshot) (bool, error)
}

type Options struct {
	Geometry    render.Geometry
	Policy      instrument.Policy
	FPS         int
	PixelBudget int

	Sink     sprite.Sink
	SinkName string

	Annunciator Annunciator
	Reporters   []diag.Reporter
}

// Core owns the instrument state and the pipeline. Everything that touches
// either runs on the goroutine inside Run; other goroutines go through
// Submit or Exec.
type Core struct {
	State  *instrument.State
	Pipe   *render.Pipeline
	Seq    *sequence.Player
	Assets *asset.Registry

	opts  Options
	test  *selftest.Runner
	queue chan func()
	done  chan struct{}
}

func InitCore(opts Options, reg *asset.Registry) (*Core, error) {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.SinkName == "" {
		opts.SinkName = "sink"
	}
	pipe, err := render.NewPipeline(opts.Geometry, reg, opts.Sink, sprite.NewAllocator(opts.PixelBudget))
	if err != nil {
		return nil, err
	}
	st := instrument.NewState(opts.Policy)
	c := &Core{
		State:  st,
		Pipe:   pipe,
		Assets: reg,
		opts:   opts,
		queue:  make(chan func(), 64),
		done:   make(chan struct{}),
	}
	hooks := sequence.StateHooks(st)
	hooks.ClipStarted = func(name string) { log.Debug().Str("clip", name).Msg("sequence clip") }
	hooks.Done = func() {
		c.report(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeSequenceDone, Summary: "Program finished"})
	}
	c.Seq = sequence.NewPlayer(hooks)
	return c, nil
}

// Submit queues f to run against the state between frames.
func (c *Core) Submit(f func(*instrument.State)) error {
	return c.do(func() { f(c.State) })
}

func (c *Core) do(f func()) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case <-c.done:
		return ErrStopped
	case c.queue <- f:
		return nil
	}
}

// Exec runs one console line on the core goroutine and waits for it.
// Besides the state commands it understands
//
//	program start|stop|pause|resume
//	selftest <lamp_walk|needle_sweep|ball_sweep|stop>
//
// Rejected commands are reported as CONSOLE.COMMAND diagnostics.
func (c *Core) Exec(line string) error {
	err := c.run(line)
	if err != nil && !errors.Is(err, ErrStopped) {
		c.report(diag.CommandFailed(line, err))
	}
	return err
}

func (c *Core) run(line string) error {
	cmd, err := console.Parse(line)
	if err != nil {
		return err
	}
	res := make(chan error, 1)
	if err := c.do(func() { res <- c.exec(cmd) }); err != nil {
		return err
	}
	return c.wait(res)
}

func (c *Core) wait(res chan error) error {
	select {
	case err := <-res:
		return err
	case <-c.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrStopped
		}
	}
}

func (c *Core) exec(cmd console.Command) error {
	switch cmd.Name {
	case "program":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("%w: program start|stop|pause|resume", console.ErrUsage)
		}
		switch cmd.Args[0] {
		case "start":
			c.Seq.Start()
		case "stop":
			c.Seq.Stop()
		case "pause":
			c.Seq.Pause()
		case "resume":
			c.Seq.Resume()
		default:
			return fmt.Errorf("%w: program start|stop|pause|resume", console.ErrUsage)
		}
		return nil
	case "selftest":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("%w: selftest <kind|stop>", console.ErrUsage)
		}
		if cmd.Args[0] == "stop" {
			c.test = nil
			c.State.Reset()
			return nil
		}
		return c.startSelfTest(cmd.Args[0])
	}
	return cmd.Apply(c.State)
}

func (c *Core) startSelfTest(name string) error {
	k, err := selftest.ParseKind(name)
	if err != nil {
		c.report(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.CodeSelfTestStart, Summary: "Unknown test name",
			Evidence: map[string]any{"name": name},
		})
		return err
	}
	c.Seq.Stop()
	c.test = selftest.NewRunner(selftest.Plan{Kind: k, Hold: max(1, c.opts.FPS/4)})
	c.report(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeSelfTestStart, Summary: "Running test", Detail: name})
	return nil
}

// LoadProgram hands prog to the sequencer and starts it.
func (c *Core) LoadProgram(prog sequence.Program) error {
	res := make(chan error, 1)
	if err := c.do(func() {
		err := c.Seq.Load(prog)
		if err == nil {
			c.Seq.Start()
		}
		res <- err
	}); err != nil {
		return err
	}
	return c.wait(res)
}

// Step runs one frame: queued work, sequencer or self test, then composite
// and present. A present failure is reported and returned; the next Step
// carries on.
func (c *Core) Step(dt float64) error {
	c.drain()
	if c.test != nil {
		if !c.test.Step(c.State) {
			c.report(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeSelfTestDone, Summary: "Test complete", Detail: string(c.test.Kind())})
			c.test = nil
		}
	} else {
		c.Seq.Tick(dt)
	}

	snap := c.State.Snapshot()
	if c.opts.Annunciator != nil {
		if _, err := c.opts.Annunciator.Update(snap); err != nil {
			log.Warn().Err(err).Msg("annunciator update failed")
		}
	}
	if err := c.Pipe.RenderFrame(snap); err != nil {
		c.report(diag.PresentFailed(c.Pipe.Frames()+c.Pipe.Dropped(), c.opts.SinkName, err))
		return err
	}
	return nil
}

func (c *Core) drain() {
	for {
		select {
		case f := <-c.queue:
			f()
		default:
			return
		}
	}
}

// Run drives Step at the configured frame rate until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	defer close(c.done)
	dt := time.Second / time.Duration(c.opts.FPS)
	tick := time.NewTicker(dt)
	defer tick.Stop()
	log.Info().Int("fps", c.opts.FPS).Str("sink", c.opts.SinkName).Strs("layers", c.Pipe.Layers()).Msg("compositor running")
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", c.Pipe.Frames()).Uint64("dropped", c.Pipe.Dropped()).Msg("compositor stopped")
			return nil
		case <-tick.C:
			_ = c.Step(dt.Seconds())
		}
	}
}

func (c *Core) report(d diag.Diagnostic) {
	for _, r := range c.opts.Reporters {
		r.Report(d)
	}
}
