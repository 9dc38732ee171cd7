package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/beatkeeper/audio"
	"github.com/lixenwraith/beatkeeper/config"
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/journal"
	"github.com/lixenwraith/beatkeeper/logging"
	"github.com/lixenwraith/beatkeeper/render"
	"github.com/lixenwraith/beatkeeper/status"
)

const (
	defaultLogFile = "logs/beatkeeper.log"
	bpmStep        = 5.0
)

type runOptions struct {
	silent        bool
	metricsListen string
	journalPath   string
}

// tempoSource is a clock source the operator can retune and stop
type tempoSource interface {
	engine.AudioClockSource
	SetBPM(bpm float64)
	SetPlaying(playing bool)
}

var (
	_ tempoSource = (*audio.Metronome)(nil)
	_ tempoSource = (*engine.ScriptedSource)(nil)
)

// activeScreen is finalized by crash handlers so the shell is usable afterwards
var activeScreen atomic.Pointer[tcell.Screen]

func restoreTerminal() {
	if s := activeScreen.Swap(nil); s != nil {
		(*s).Fini()
	}
}

func newRunCommand(g *globalOptions) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Interactive terminal sandbox driven by the metronome track",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd.Context(), g, ro)
		},
	}

	cmd.Flags().BoolVar(&ro.silent, "silent", false, "no audio device, playback time follows the wall clock")
	cmd.Flags().StringVar(&ro.metricsListen, "metrics", "", "serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().StringVar(&ro.journalPath, "journal", "", "record events to this SQLite file (overrides config)")
	return cmd
}

func runSandbox(ctx context.Context, g *globalOptions, ro *runOptions) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if ro.metricsListen != "" {
		cfg.Metrics.Listen = ro.metricsListen
	}
	if ro.journalPath != "" {
		cfg.Journal.Path = ro.journalPath
	}
	// The terminal belongs to tcell
	switch cfg.Log.Output {
	case "", "stderr", "stdout":
		cfg.Log.Output = defaultLogFile
	}

	log, closer, err := g.logger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	source, stopAudio := openSource(cfg, ro.silent, logging.Component(log, "audio"))
	defer stopAudio()

	bus := event.NewBus(event.WithLogger(logging.Component(log, "bus")))
	pc := engine.NewPausableClock(engine.NewMonotonicTimeProvider())

	board := status.NewBoard()
	var metrics *status.Metrics
	if cfg.Metrics.Listen != "" {
		if metrics, err = status.NewMetrics(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		stopMetrics := serveMetrics(cfg.Metrics.Listen, metrics, logging.Component(log, "metrics"))
		defer stopMetrics()
	}
	collector := status.NewCollector(board, metrics)

	clock := engine.NewBeatClock(bus, source, pc, cfg.Clock.Settings(),
		engine.WithClockLogger(logging.Component(log, "clock")),
		engine.WithObserver(collector),
	)

	sb, err := newSandbox(cfg.Sandbox, bus, pc, clock.CurrentBPM, collector, logging.Component(log, "world"))
	if err != nil {
		return err
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, cfg.Journal.Path, "run",
			journal.WithBatchSize(cfg.Journal.BatchSize),
			journal.WithFlushInterval(cfg.Journal.FlushInterval),
			journal.WithLogger(logging.Component(log, "journal")),
		)
		if err != nil {
			return err
		}
		defer j.Close()
		bus.Subscribe(j)
		j.Start()
		log.Info().Str("path", cfg.Journal.Path).Str("session", j.Session().String()).Msg("journal recording")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	activeScreen.Store(&screen)
	defer restoreTerminal()

	core.SetCrashHandler(func(r any) {
		restoreTerminal()
		fmt.Fprintf(os.Stderr, "\r\n\x1b[31mBEATKEEPER CRASHED: %v\x1b[0m\r\n", r)
		fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
		os.Exit(1)
	})
	defer core.SetCrashHandler(nil)

	view := render.NewView(screen, sb.arena)
	scripted, _ := source.(*engine.ScriptedSource)
	var lastFrame time.Time

	sched := engine.NewClockScheduler(clock, bus, pc,
		engine.WithSchedulerLogger(logging.Component(log, "scheduler")),
		engine.WithFrameFunc(func(now time.Time) {
			// Silent mode: playback follows scene time, one frame behind the clock
			if scripted != nil {
				if !lastFrame.IsZero() {
					scripted.Advance(now.Sub(lastFrame).Seconds())
				}
				lastFrame = now
			}
			sb.world.Update(now)
			collector.SetBPM(clock.CurrentBPM())
			view.Draw(sb.world, board.Snapshot(), sb.field.glyphs())
		}),
	)

	if g.configPath != "" {
		err := config.Watch(ctx, g.configPath, config.DefaultDebounce, logging.Component(log, "config"), func(c config.Config) {
			sched.RequestSettings(c.Clock.Settings())
			source.SetBPM(c.Clock.BPM)
		})
		if err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		}
	}

	sched.Start()
	defer sched.Stop()

	core.Go(func() {
		<-ctx.Done()
		screen.PostEvent(tcell.NewEventInterrupt(nil))
	})

	log.Info().Float64("bpm", cfg.Clock.BPM).Bool("silent", scripted != nil).Msg("sandbox started")
	inputLoop(screen, sched, source)
	log.Info().Int("knockouts", sb.field.knockouts()).Int64("frames", sched.FrameCount()).Msg("sandbox stopped")
	return nil
}

// openSource prefers the metronome on the speaker and falls back to a silent scripted track
func openSource(cfg config.Config, silent bool, log zerolog.Logger) (tempoSource, func()) {
	fallback := func() (tempoSource, func()) {
		s := engine.NewScriptedSource(cfg.Clock.BPM)
		s.SetTrack(cfg.Audio.Length.Seconds(), cfg.Audio.Loop)
		return s, func() {}
	}
	if silent || !cfg.Audio.Enabled {
		return fallback()
	}

	m := audio.NewMetronome(audio.MetronomeConfig{
		SampleRate: cfg.Audio.SampleRate,
		BPM:        cfg.Clock.BPM,
		Length:     cfg.Audio.Length,
		Loop:       cfg.Audio.Loop,
		Volume:     cfg.Audio.Volume,
	})
	out := audio.NewOutput(m.SampleRate())
	if err := out.Start(); err != nil {
		log.Warn().Err(err).Msg("audio unavailable, running silent")
		return fallback()
	}
	out.Add(m, 1)
	m.SetPlaying(true)
	return m, out.Close
}

func serveMetrics(addr string, m *status.Metrics, log zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	core.Go(func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics endpoint failed")
		}
	})
	log.Info().Str("addr", addr).Msg("metrics endpoint listening")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// inputLoop maps keys to scheduler controls until quit or interrupt
func inputLoop(screen tcell.Screen, sched *engine.ClockScheduler, source tempoSource) {
	paused := false
	playing := true

	for {
		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return

		case *tcell.EventResize:
			screen.Sync()

		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				return
			}
			if ev.Key() != tcell.KeyRune {
				continue
			}

			switch ev.Rune() {
			case 'q':
				return
			case 'r':
				sched.RequestReset()
			case '0':
				sched.RequestBeatIndex(0)
			case 'l':
				sched.RequestLoopNotice()
			case 'p':
				paused = !paused
				if paused {
					sched.RequestPause()
					source.SetPlaying(false)
				} else {
					sched.RequestResume()
					source.SetPlaying(playing)
				}
			case ' ':
				playing = !playing
				source.SetPlaying(playing && !paused)
			case '+', '=':
				source.SetBPM(source.CurrentBPM() + bpmStep)
			case '-':
				source.SetBPM(source.CurrentBPM() - bpmStep)
			}
		}
	}
}
