// Command seqsim plays a sequence program against the instrument without a
// display, printing what the gauge would show, and can save the last frame.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/turn-coordinator/internal/app"
	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/asset/synth"
	"github.com/coreman2200/turn-coordinator/internal/instrument"
	"github.com/coreman2200/turn-coordinator/internal/render"
	"github.com/coreman2200/turn-coordinator/internal/sequence"
	"github.com/coreman2200/turn-coordinator/internal/sink/fake"
)

func main() {
	var (
		programPath string
		fps         int
		seconds     float64
		pngPath     string
	)
	flag.StringVar(&programPath, "program", "sweep", "sweep, or path to a seq.v1 YAML program")
	flag.IntVar(&fps, "fps", 30, "simulation frames per second")
	flag.Float64Var(&seconds, "seconds", 10, "stop after this much program time")
	flag.StringVar(&pngPath, "png", "", "write the last frame to this PNG file")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	prog, ok, err := app.ProgramFrom(programPath)
	if err != nil || !ok {
		log.Fatal().Err(err).Str("program", programPath).Msg("no program")
	}

	reg := asset.NewRegistry()
	if err := synth.Install(reg); err != nil {
		log.Fatal().Err(err).Msg("assets")
	}
	drv := &fake.Sink{}
	pipe, err := render.NewPipeline(render.DefaultGeometry(), reg, drv, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline")
	}

	st := instrument.NewState(instrument.Policy{})
	hooks := sequence.StateHooks(st)
	t := 0.0
	hooks.ClipStarted = func(name string) { fmt.Printf("[%7.3fs] clip %s\n", t, name) }
	player := sequence.NewPlayer(hooks)
	if err := player.Load(prog); err != nil {
		log.Fatal().Err(err).Msg("load")
	}
	player.Start()

	dt := 1.0 / float64(max(1, fps))
	prev := st.Snapshot()
	for ; t < seconds && player.State != sequence.Idle; t += dt {
		player.Tick(dt)
		snap := st.Snapshot()
		if err := pipe.RenderFrame(snap); err != nil {
			log.Error().Err(err).Msg("frame")
		}
		if snap.Lamps != prev.Lamps {
			fmt.Printf("[%7.3fs] lamps %s\n", t, litNames(snap))
		}
		prev = snap
	}
	fmt.Printf("Done at t=%.3f: needle %+.1f°, ball %+.1f px, %d frames, compose %.2f ms\n",
		t, pipe.NeedleAngle(prev), instrument.BallOffset(prev.Inclinometer, pipe.Geo.BallScale),
		pipe.Frames(), pipe.Last.ComposeMS)

	if pngPath != "" {
		f, err := os.Create(pngPath)
		if err != nil {
			log.Fatal().Err(err).Msg("png")
		}
		defer f.Close()
		if err := png.Encode(f, drv.Frame()); err != nil {
			log.Fatal().Err(err).Msg("png")
		}
	}
}

func litNames(s instrument.Snapshot) []string {
	var out []string
	for _, l := range instrument.Lamps() {
		if s.Lit(l) {
			out = append(out, l.String())
		}
	}
	return out
}
