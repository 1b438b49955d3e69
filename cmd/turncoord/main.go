package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/turn-coordinator/internal/annunciator"
	"github.com/coreman2200/turn-coordinator/internal/app"
	"github.com/coreman2200/turn-coordinator/internal/asset"
	"github.com/coreman2200/turn-coordinator/internal/asset/synth"
	"github.com/coreman2200/turn-coordinator/internal/config"
	"github.com/coreman2200/turn-coordinator/internal/console"
	diag "github.com/coreman2200/turn-coordinator/internal/diagnostics"
	"github.com/coreman2200/turn-coordinator/internal/sink"
	"github.com/coreman2200/turn-coordinator/internal/sink/fake"
	"github.com/coreman2200/turn-coordinator/internal/sink/tft"
	"github.com/coreman2200/turn-coordinator/internal/sink/window"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
	"github.com/coreman2200/turn-coordinator/internal/ws"
)

func main() {
	// ---- Flags (remain usable; config.yaml can override most) ----
	def := config.Default()
	var (
		sinkName   = flag.String("sink", def.Sink, "display: tft | window | console | none")
		fps        = flag.Int("fps", def.FPS, "target frames per second")
		clamp      = flag.Bool("clamp", false, "clamp readings to their nominal ranges")
		addr       = flag.String("addr", def.Addr, "preview HTTP listen address (empty disables)")
		scale      = flag.Int("scale", def.PreviewScale, "window and preview magnification")
		program    = flag.String("program", "", "sequence to play: sweep or a YAML file")
		lamps      = flag.Bool("annunciator", false, "mirror lamps onto a WS2812 strip")
		spiPort    = flag.String("spi", "", "SPI port for the panel (empty picks the first)")
		dcPin      = flag.String("dc", def.TFT.DC, "panel data/command GPIO")
		rstPin     = flag.String("rst", def.TFT.RST, "panel reset GPIO (empty if tied high)")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		noStdin    = flag.Bool("no-stdin", false, "do not read commands from stdin")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Effective config: flags, then config.yaml where it sets a value ----
	eff := def
	eff.Sink, eff.FPS, eff.Clamp, eff.Addr = *sinkName, *fps, *clamp, *addr
	eff.PreviewScale, eff.Program = *scale, *program
	eff.Annunciator.Enabled = *lamps
	eff.TFT.SPI, eff.TFT.DC, eff.TFT.RST = *spiPort, *dcPin, *rstPin
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		eff = eff.Merge(*c)
	}
	if err := eff.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if eff.Sink == "tft" || eff.Annunciator.Enabled {
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("periph host init failed")
		}
	}

	reg := asset.NewRegistry()
	if err := synth.Install(reg); err != nil {
		log.Fatal().Err(err).Msg("asset setup failed")
	}

	opts := app.OptionsFrom(eff)
	geo := opts.Geometry

	// ---- Sink selection: tft falls back to none when the panel can't be opened ----
	var (
		display sprite.Sink
		win     *window.Window
		closers []func() error
	)
	switch eff.Sink {
	case "tft":
		d, closeFn, err := openPanel(eff.TFT)
		if err != nil {
			log.Warn().Err(err).Str("spi", eff.TFT.SPI).Str("dc", eff.TFT.DC).Msg("panel init failed; running headless")
			eff.Sink = "none"
			display = &fake.Sink{}
			break
		}
		display = sink.Dedup(sink.NewDrawer(d))
		closers = append(closers, closeFn)
	case "window":
		win = window.New("Turn Coordinator", geo.Width, geo.Height, eff.PreviewScale)
		display = win
	case "console":
		display = &fake.Sink{Verbose: true}
	default:
		display = &fake.Sink{}
	}

	var hub *ws.Hub
	if eff.Addr != "" {
		hub = ws.NewHub(eff.PreviewScale)
		opts.Reporters = append(opts.Reporters, hub)
	}
	opts.Reporters = append(opts.Reporters, diag.ReporterFunc(func(d diag.Diagnostic) {
		log.Debug().Str("code", d.Code).Str("severity", string(d.Severity)).Msg(d.Summary)
	}))
	if hub != nil {
		opts.Sink = sink.Tee(display, hub)
	} else {
		opts.Sink = display
	}
	opts.SinkName = eff.Sink

	if eff.Annunciator.Enabled {
		strip := openStrip(eff.Annunciator.SPI)
		opts.Annunciator = strip
		closers = append(closers, strip.Close)
	}

	core, err := app.InitCore(opts, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("compositor setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- HTTP preview ----
	var srv *http.Server
	if hub != nil {
		mux := http.NewServeMux()
		hub.Routes(mux)
		srv = &http.Server{
			Addr:         eff.Addr,
			Handler:      withCORS(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", eff.Addr).Str("sink", eff.Sink).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("preview server stopped")
			}
		}()
	}

	// ---- Compositor, program and console ----
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = core.Run(ctx)
	}()

	if prog, ok, err := app.ProgramFrom(eff.Program); err != nil {
		log.Error().Err(err).Str("program", eff.Program).Msg("program load failed")
	} else if ok {
		go func() {
			if err := core.LoadProgram(prog); err != nil {
				log.Error().Err(err).Msg("program rejected")
			}
		}()
	}
	if !*noStdin {
		go readCommands(core)
	}

	// The window needs the main goroutine; otherwise wait for a signal.
	if win != nil {
		go func() {
			<-ctx.Done()
			win.Close()
		}()
		if err := win.Run(); err != nil {
			log.Error().Err(err).Msg("window failed")
		}
		stop()
	} else {
		<-ctx.Done()
	}
	log.Info().Msg("shutting down")
	<-done

	if srv != nil {
		hub.Close()
		_ = srv.Close()
	}
	for _, c := range closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

func openPanel(c config.TFT) (*tft.Dev, func() error, error) {
	port, err := spireg.Open(c.SPI)
	if err != nil {
		return nil, nil, err
	}
	dc := gpioreg.ByName(c.DC)
	if dc == nil {
		port.Close()
		return nil, nil, fmt.Errorf("no GPIO named %q", c.DC)
	}
	var rst gpio.PinOut
	if c.RST != "" {
		if p := gpioreg.ByName(c.RST); p != nil {
			rst = p
		}
	}
	d, err := tft.New(port, dc, rst, &tft.Opts{
		Width:      c.Width,
		Height:     c.Height,
		Freq:       physic.Frequency(c.SpeedHz) * physic.Hertz,
		MaxTxSize:  c.MaxTxSize,
		MADCTL:     byte(c.MADCTL),
		ResetDelay: tft.DefaultOpts.ResetDelay,
		WakeDelay:  tft.DefaultOpts.WakeDelay,
	})
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	if err := d.Init(); err != nil {
		port.Close()
		return nil, nil, err
	}
	return d, func() error {
		err := d.Halt()
		if cerr := port.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

func openStrip(name string) *annunciator.Strip {
	port, err := spireg.Open(name)
	if err != nil {
		fmt.Printf("Failed to find a SPI port, printing lamps at the console:\n")
		return annunciator.NewConsole()
	}
	s, err := annunciator.NewSPI(port)
	if err != nil {
		log.Warn().Err(err).Msg("LED strip init failed; printing lamps at the console")
		port.Close()
		return annunciator.NewConsole()
	}
	return s
}

func readCommands(core *app.Core) {
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "help" || line == "?" {
			fmt.Println(console.Usage())
			continue
		}
		if err := core.Exec(line); err != nil {
			if errors.Is(err, app.ErrStopped) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
