// Package config loads and validates the YAML configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/logging"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Config is the root document
type Config struct {
	Clock   ClockConfig    `yaml:"clock"`
	Audio   AudioConfig    `yaml:"audio"`
	Log     logging.Config `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Journal JournalConfig  `yaml:"journal"`
	Sandbox SandboxConfig  `yaml:"sandbox"`
}

// ScheduleConfig is an everyN/offset pair
type ScheduleConfig struct {
	EveryN int `yaml:"every_n" validate:"gte=1"`
	Offset int `yaml:"offset"`
}

// Spec converts to the schedule type
func (s ScheduleConfig) Spec() schedule.Spec {
	return schedule.NewSpec(s.EveryN, s.Offset)
}

type PreTriggerConfig struct {
	ScheduleConfig `yaml:",inline"`
	BeatsBefore    float64 `yaml:"beats_before" validate:"gte=0,lte=64"`
}

type ClockConfig struct {
	BPM                       float64            `yaml:"bpm" validate:"gte=30,lte=300"`
	StepsPerInterval          int                `yaml:"steps_per_interval" validate:"gte=1,lte=16"`
	TolerancePercent          float64            `yaml:"tolerance_percent" validate:"gt=0,lte=100"`
	LoopThreshold             time.Duration      `yaml:"loop_threshold" validate:"gt=0"`
	ResetThreshold            int                `yaml:"reset_threshold" validate:"gte=1"`
	LoopGraceWindow           time.Duration      `yaml:"loop_grace_window" validate:"gte=0"`
	LatencyOffset             time.Duration      `yaml:"latency_offset"`
	DestroyTimedActorsOnReset bool               `yaml:"destroy_timed_actors_on_reset"`
	PreTriggers               []PreTriggerConfig `yaml:"pretriggers" validate:"dive"`
}

// Settings converts to the clock's settings
func (c ClockConfig) Settings() engine.ClockSettings {
	s := engine.ClockSettings{
		BPM:                       c.BPM,
		StepsPerInterval:          c.StepsPerInterval,
		TolerancePercent:          c.TolerancePercent,
		LoopThreshold:             c.LoopThreshold,
		ResetThreshold:            c.ResetThreshold,
		LoopGraceWindow:           c.LoopGraceWindow,
		LatencyOffset:             c.LatencyOffset,
		DestroyTimedActorsOnReset: c.DestroyTimedActorsOnReset,
	}
	for _, p := range c.PreTriggers {
		s.PreTriggers = append(s.PreTriggers, engine.PreTriggerSpec{
			Schedule:          p.Spec(),
			BeatsBeforeAction: p.BeatsBefore,
		})
	}
	return s
}

type AudioConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SampleRate int           `yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	Volume     float64       `yaml:"volume" validate:"gte=0,lte=1"`
	Loop       bool          `yaml:"loop"`
	Length     time.Duration `yaml:"length" validate:"gte=0"`
}

type MetricsConfig struct {
	// Listen is the /metrics address, empty disables the endpoint
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type JournalConfig struct {
	// Path of the SQLite file, empty disables the journal
	Path          string        `yaml:"path"`
	BatchSize     int           `yaml:"batch_size" validate:"gte=0"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gte=0"`
}

// Cell is an [x, y] grid coordinate
type Cell [2]int

// Vec2 returns the cell origin in world units
func (c Cell) Vec2() core.Vec2 {
	return core.Vec2{X: float64(c[0]), Y: float64(c[1])}
}

type EnemyConfig struct {
	At             Cell        `yaml:"at"`
	Path           string      `yaml:"path" validate:"required"`
	Mode           motion.Mode `yaml:"mode"`
	ScheduleConfig `yaml:",inline"`
}

type ProjectileConfig struct {
	ScheduleConfig `yaml:",inline"`
	Lifetime       int `yaml:"lifetime" validate:"gte=1"`
	Damage         int `yaml:"damage" validate:"gte=0"`
}

type TurretConfig struct {
	At             Cell             `yaml:"at"`
	Facing         core.Direction   `yaml:"facing" validate:"gt=0"`
	Projectile     ProjectileConfig `yaml:"projectile"`
	ScheduleConfig `yaml:",inline"`
}

type TrapConfig struct {
	At             Cell `yaml:"at"`
	ScheduleConfig `yaml:",inline"`
}

// DummyConfig is a static damage target
type DummyConfig struct {
	At Cell `yaml:"at"`
	HP int  `yaml:"hp" validate:"gte=1"`
}

// SandboxConfig lays out the demo arena for the run and simulate commands
type SandboxConfig struct {
	Width   int            `yaml:"width" validate:"gte=8,lte=512"`
	Height  int            `yaml:"height" validate:"gte=4,lte=512"`
	Enemies []EnemyConfig  `yaml:"enemies" validate:"dive"`
	Turrets []TurretConfig `yaml:"turrets" validate:"dive"`
	Traps   []TrapConfig   `yaml:"traps" validate:"dive"`
	Dummies []DummyConfig  `yaml:"dummies" validate:"dive"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Clock: ClockConfig{
			BPM:              parameter.DefaultBPM,
			StepsPerInterval: parameter.DefaultStepsPerInterval,
			TolerancePercent: parameter.DefaultTolerancePercent,
			LoopThreshold:    parameter.DefaultLoopThreshold,
			ResetThreshold:   parameter.DefaultResetThreshold,
			LoopGraceWindow:  parameter.DefaultLoopGraceWindow,
			LatencyOffset:    parameter.AudioBufferDuration,
			PreTriggers: []PreTriggerConfig{
				{ScheduleConfig: ScheduleConfig{EveryN: 4}, BeatsBefore: 1},
			},
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: parameter.AudioSampleRate,
			Volume:     parameter.ClickVolume,
			Loop:       true,
			Length:     parameter.DefaultLoopLength,
		},
		Log: logging.Config{Level: "info", Format: "console", Output: "logs/beatkeeper.log"},
		Journal: JournalConfig{
			FlushInterval: time.Second,
		},
		Sandbox: SandboxConfig{
			Width:  40,
			Height: 16,
			Enemies: []EnemyConfig{
				{At: Cell{4, 4}, Path: "right*6,down*3", Mode: motion.ModePingPong, ScheduleConfig: ScheduleConfig{EveryN: 1}},
				{At: Cell{30, 12}, Path: "up*2,left*4,down*2,right*4", Mode: motion.ModeLoop, ScheduleConfig: ScheduleConfig{EveryN: 2, Offset: 1}},
			},
			Turrets: []TurretConfig{
				{
					At:             Cell{2, 8},
					Facing:         core.DirRight,
					ScheduleConfig: ScheduleConfig{EveryN: 4},
					Projectile: ProjectileConfig{
						ScheduleConfig: ScheduleConfig{EveryN: 1},
						Lifetime:       parameter.DefaultProjectileLifetime,
						Damage:         parameter.DefaultProjectileDamage,
					},
				},
			},
			Traps: []TrapConfig{
				{At: Cell{10, 8}, ScheduleConfig: ScheduleConfig{EveryN: 4, Offset: 2}},
			},
			Dummies: []DummyConfig{
				{At: Cell{7, 4}, HP: 10},
				{At: Cell{10, 8}, HP: 20},
				{At: Cell{24, 8}, HP: 20},
			},
		},
	}
}

// Load reads and validates the file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and enemy paths
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	for i, e := range c.Sandbox.Enemies {
		path, err := motion.ParsePath(e.Path)
		if err != nil {
			return fmt.Errorf("%w: sandbox.enemies[%d].path: %v", ErrInvalid, i, err)
		}
		if !path.Movable() {
			return fmt.Errorf("%w: sandbox.enemies[%d].path has no steps", ErrInvalid, i)
		}
	}
	return nil
}
