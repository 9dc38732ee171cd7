package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/journal"
	"github.com/lixenwraith/beatkeeper/logging"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/status"
)

type simulateOptions struct {
	bpm      float64
	duration time.Duration
	fps      int
	loop     time.Duration
	stalls   []string
	seeks    []string
	tempos   []string
	sandbox  bool
	journal  string
	format   string
	quiet    bool
}

type stepKind uint8

const (
	stepStall stepKind = iota
	stepUnstall
	stepSeek
	stepTempo
)

// scriptStep is one source perturbation applied once scene time reaches at
type scriptStep struct {
	at    time.Duration
	kind  stepKind
	value float64
}

func newSimulateCommand(g *globalOptions) *cobra.Command {
	so := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the beat clock headless against a scripted track and print the event trace",
		Example: `  beatkeeper simulate --duration 10s --stall 3s:400ms
  beatkeeper simulate --loop 8s --duration 20s --format json
  beatkeeper simulate --seek 4s:1s --tempo 6s:90 --sandbox`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, g, so)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&so.bpm, "bpm", 0, "track tempo (config clock bpm when 0)")
	f.DurationVar(&so.duration, "duration", 10*time.Second, "simulated scene time")
	f.IntVar(&so.fps, "fps", parameter.DefaultFrameRate, "frames per simulated second")
	f.DurationVar(&so.loop, "loop", 0, "loop the track at this length, 0 plays unbounded")
	f.StringArrayVar(&so.stalls, "stall", nil, "freeze playback, at:for (e.g. 3s:400ms)")
	f.StringArrayVar(&so.seeks, "seek", nil, "jump playback, at:to (e.g. 4s:1s)")
	f.StringArrayVar(&so.tempos, "tempo", nil, "change track tempo, at:bpm (e.g. 6s:90)")
	f.BoolVar(&so.sandbox, "sandbox", false, "spawn the configured sandbox actors")
	f.StringVar(&so.journal, "journal", "", "record events to this SQLite file")
	f.StringVar(&so.format, "format", "text", "trace format: text or json")
	f.BoolVar(&so.quiet, "quiet", false, "print the summary only")
	return cmd
}

func runSimulation(cmd *cobra.Command, g *globalOptions, so *simulateOptions) error {
	if so.format != "text" && so.format != "json" {
		return fmt.Errorf("unknown format %q", so.format)
	}
	if so.fps < 1 {
		return fmt.Errorf("fps must be positive")
	}
	if so.duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	script, err := parseScript(so.stalls, so.seeks, so.tempos)
	if err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	if so.bpm > 0 {
		cfg.Clock.BPM = so.bpm
	}
	// Simulations are instantaneous, output latency does not apply
	cfg.Clock.LatencyOffset = 0

	log, closer, err := g.logger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	source := engine.NewScriptedSource(cfg.Clock.BPM)
	source.SetTrack(so.loop.Seconds(), so.loop > 0)

	mock := engine.NewMockTimeProvider(time.Unix(0, 0))
	pc := engine.NewPausableClock(mock)
	bus := event.NewBus(event.WithLogger(logging.Component(log, "bus")))

	board := status.NewBoard()
	collector := status.NewCollector(board, nil)
	clock := engine.NewBeatClock(bus, source, pc, cfg.Clock.Settings(),
		engine.WithClockLogger(logging.Component(log, "clock")),
		engine.WithObserver(collector),
	)

	var sb *sandbox
	if so.sandbox {
		if sb, err = newSandbox(cfg.Sandbox, bus, pc, clock.CurrentBPM, collector, logging.Component(log, "world")); err != nil {
			return err
		}
	}

	if so.journal != "" {
		j, err := journal.Open(cmd.Context(), so.journal, "simulate",
			journal.WithBatchSize(cfg.Journal.BatchSize),
			journal.WithLogger(logging.Component(log, "journal")),
		)
		if err != nil {
			return err
		}
		defer j.Close()
		bus.Subscribe(j)
	}

	out := cmd.OutOrStdout()
	tr := newTracer(out, so.format)
	if !so.quiet {
		bus.Subscribe(tr)
	}

	sched := engine.NewClockScheduler(clock, bus, pc,
		engine.WithSchedulerLogger(logging.Component(log, "scheduler")),
		engine.WithFrameFunc(func(now time.Time) {
			if sb != nil {
				sb.world.Update(now)
			}
			collector.SetBPM(clock.CurrentBPM())
		}),
	)

	dt := time.Second / time.Duration(so.fps)
	frames := int(so.duration / dt)
	next := 0
	for i := 1; i <= frames; i++ {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		elapsed := time.Duration(i) * dt
		mock.Advance(dt)
		source.Advance(dt.Seconds())
		for ; next < len(script) && script[next].at <= elapsed; next++ {
			script[next].apply(source)
		}
		sched.RunFrame()
	}

	knockouts := 0
	if sb != nil {
		knockouts = sb.field.knockouts()
	}
	tr.summary(board.Snapshot(), sched.FrameCount(), knockouts)
	return nil
}

func (s scriptStep) apply(src *engine.ScriptedSource) {
	switch s.kind {
	case stepStall:
		src.Stall(true)
	case stepUnstall:
		src.Stall(false)
	case stepSeek:
		src.Seek(s.value)
	case stepTempo:
		src.SetBPM(s.value)
	}
}

// parseScript turns the flag values into steps ordered by time, flag order breaks ties
func parseScript(stalls, seeks, tempos []string) ([]scriptStep, error) {
	var steps []scriptStep

	for _, s := range stalls {
		at, v, err := splitStep("stall", s)
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("stall %q: bad length", s)
		}
		steps = append(steps,
			scriptStep{at: at, kind: stepStall},
			scriptStep{at: at + d, kind: stepUnstall},
		)
	}
	for _, s := range seeks {
		at, v, err := splitStep("seek", s)
		if err != nil {
			return nil, err
		}
		to, err := time.ParseDuration(v)
		if err != nil || to < 0 {
			return nil, fmt.Errorf("seek %q: bad target", s)
		}
		steps = append(steps, scriptStep{at: at, kind: stepSeek, value: to.Seconds()})
	}
	for _, s := range tempos {
		at, v, err := splitStep("tempo", s)
		if err != nil {
			return nil, err
		}
		bpm, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("tempo %q: bad bpm", s)
		}
		steps = append(steps, scriptStep{at: at, kind: stepTempo, value: bpm})
	}

	slices.SortStableFunc(steps, func(a, b scriptStep) int {
		return cmp.Compare(a.at, b.at)
	})
	return steps, nil
}

func splitStep(name, s string) (time.Duration, string, error) {
	atStr, v, ok := strings.Cut(s, ":")
	if !ok {
		return 0, "", fmt.Errorf("%s %q: want at:value", name, s)
	}
	at, err := time.ParseDuration(atStr)
	if err != nil || at < 0 {
		return 0, "", fmt.Errorf("%s %q: bad time", name, s)
	}
	return at, v, nil
}

// tracer prints bus events as key=value lines or as JSON objects
type tracer struct {
	out  io.Writer
	json bool
	log  zerolog.Logger
}

func newTracer(out io.Writer, format string) *tracer {
	return &tracer{
		out:  out,
		json: format == "json",
		log:  zerolog.New(out),
	}
}

func (t *tracer) EventTypes() []event.EventType {
	return event.AllTypes()
}

func (t *tracer) HandleEvent(ev event.Event) {
	switch p := ev.Payload.(type) {
	case *event.BeatPayload:
		if t.json {
			t.log.Log().Str("event", "beat").Int64("frame", ev.Frame).
				Int("beat", p.Index).Bool("valid", p.Valid).Float64("t", p.Time).Send()
			return
		}
		fmt.Fprintf(t.out, "frame=%d beat=%d valid=%t t=%.3f\n", ev.Frame, p.Index, p.Valid, p.Time)

	case *event.PreTriggerPayload:
		if t.json {
			t.log.Log().Str("event", "pretrigger").Int64("frame", ev.Frame).
				Int("action", p.ActionBeat).Int("every_n", p.EveryN).Int("offset", p.Offset).
				Float64("lead", p.BeatsBeforeAction).Send()
			return
		}
		fmt.Fprintf(t.out, "frame=%d pretrigger action=%d every_n=%d offset=%d lead=%.2f\n",
			ev.Frame, p.ActionBeat, p.EveryN, p.Offset, p.BeatsBeforeAction)

	case *event.TimingResetPayload:
		if t.json {
			t.log.Log().Str("event", "reset").Int64("frame", ev.Frame).
				Str("reason", p.Reason.String()).Int("next", p.NextIndex).Bool("destroy", p.DestroyTimedActors).Send()
			return
		}
		fmt.Fprintf(t.out, "frame=%d reset reason=%s next=%d destroy=%t\n",
			ev.Frame, p.Reason, p.NextIndex, p.DestroyTimedActors)
	}
}

func (t *tracer) summary(s status.Snapshot, frames int64, knockouts int) {
	if t.json {
		e := t.log.Log().Str("event", "summary").Int64("frames", frames).
			Int("beat", s.Beat).Bool("valid", s.TimingValid).Int64("resets", s.Resets).
			Str("last_reset", s.LastReset).Int("knockouts", knockouts)
		a := zerolog.Dict()
		for _, c := range s.Anomalies {
			a.Int64(c.Key, c.Value)
		}
		k := zerolog.Dict()
		for _, c := range s.Actors {
			k.Int64(c.Key, c.Value)
		}
		e.Dict("anomalies", a).Dict("actors", k).Send()
		return
	}

	fmt.Fprintf(t.out, "frames=%d beat=%d valid=%t resets=%d", frames, s.Beat, s.TimingValid, s.Resets)
	if s.LastReset != "" {
		fmt.Fprintf(t.out, " last_reset=%s", s.LastReset)
	}
	fmt.Fprintln(t.out)
	for _, c := range s.Anomalies {
		fmt.Fprintf(t.out, "anomaly %s=%d\n", c.Key, c.Value)
	}
	for _, c := range s.Actors {
		fmt.Fprintf(t.out, "actors %s=%d\n", c.Key, c.Value)
	}
	if knockouts > 0 {
		fmt.Fprintf(t.out, "knockouts=%d\n", knockouts)
	}
}
