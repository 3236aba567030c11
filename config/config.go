package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"go-stepseq/clock"
	"go-stepseq/pattern"
	"go-stepseq/sequencer"
	"go-stepseq/xorshift"
)

// EngineConfig sets up the sequencer engine
type EngineConfig struct {
	Variant     string  `json:"variant"` // "stepseq" or "advseq"
	SampleRate  int     `json:"sampleRate"`
	Tempo       float64 `json:"tempo"`
	RateDivider int     `json:"rateDivider"` // 0..4: 1/16 .. 1/1
	Seed        uint32  `json:"seed"`
	Depth       float64 `json:"depth"`
	Smooth      float64 `json:"smooth"`
	Glide       bool    `json:"glide,omitempty"`
}

// ClockConfig selects where step boundaries come from
type ClockConfig struct {
	Source        string `json:"source"` // "internal" or "midi"
	PortName      string `json:"portName,omitempty"`
	PulsesPerStep int    `json:"pulsesPerStep"`
}

// OutputConfig defines the MIDI trigger output
type OutputConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  int    `json:"channel"` // 1-16
	RootNote int    `json:"rootNote"`
	FilterCC int    `json:"filterCC"`
	Velocity int    `json:"velocity"`
}

// ControlConfig maps incoming CCs to parameter ids
type ControlConfig struct {
	PortName string      `json:"portName,omitempty"`
	Channel  int         `json:"channel"` // 0 = any
	CCMap    map[int]int `json:"ccMap,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // GPL file, empty for the built-in palette
}

// Config is the main configuration structure
type Config struct {
	Engine  EngineConfig  `json:"engine"`
	Clock   ClockConfig   `json:"clock"`
	Output  OutputConfig  `json:"output"`
	Control ControlConfig `json:"control"`
	UI      UIConfig      `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Variant:    "stepseq",
			SampleRate: 48000,
			Tempo:      120,
			Seed:       xorshift.DefaultSeed,
			Depth:      1,
			Smooth:     0.25,
		},
		Clock: ClockConfig{
			Source:        "internal",
			PulsesPerStep: clock.DefaultPulsesPerStep,
		},
		Output: OutputConfig{
			Channel:  1,
			RootNote: 60,
			FilterCC: 74,
			Velocity: 100,
		},
		Control: ControlConfig{
			// knobs 1-10 on CC 20-29 drive parameters 0-9
			CCMap: map[int]int{20: 0, 21: 1, 22: 2, 23: 3, 24: 4, 25: 5, 26: 6, 27: 7, 28: 8, 29: 9},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("no home directory"))
	}
	return filepath.Join(home, ".config", "go-stepseq"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file. A missing file yields the defaults; fields
// absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fault.Wrap(err, fmsg.With("read config"))
	}

	// a ccMap in the file replaces the default map instead of merging
	cfg.Control.CCMap = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("parse config", fmt.Sprintf("%s is not valid JSON", path)),
			ftag.With(ftag.InvalidArgument))
	}
	if cfg.Control.CCMap == nil {
		cfg.Control.CCMap = DefaultConfig().Control.CCMap
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.With("write config"))
	}
	return nil
}

// Validate clamps numeric fields into range. Unknown enum names are the only
// error.
func (c *Config) Validate() error {
	if _, err := pattern.ParseVariant(c.Engine.Variant); err != nil {
		return fault.Wrap(err,
			fmsg.WithDesc("bad engine.variant", "engine.variant must be \"stepseq\" or \"advseq\""),
			ftag.With(ftag.InvalidArgument))
	}
	if _, ok := clock.ParseMode(c.Clock.Source); !ok {
		return fault.New("bad clock.source",
			fmsg.WithDesc("bad clock.source", fmt.Sprintf("clock.source %q must be \"internal\" or \"midi\"", c.Clock.Source)),
			ftag.With(ftag.InvalidArgument))
	}

	e := &c.Engine
	if e.SampleRate <= 0 {
		e.SampleRate = 48000
	}
	e.Tempo = clock.ClampTempo(e.Tempo)
	e.RateDivider = clampInt(e.RateDivider, 0, len(clock.Dividers)-1)
	e.Depth = clampFloat(e.Depth, 0, 1)
	e.Smooth = clampFloat(e.Smooth, 0, 1)
	if e.Seed == 0 {
		e.Seed = xorshift.DefaultSeed
	}

	if c.Clock.PulsesPerStep < 1 {
		c.Clock.PulsesPerStep = clock.DefaultPulsesPerStep
	}

	o := &c.Output
	o.Channel = clampInt(o.Channel, 1, 16)
	o.RootNote = clampInt(o.RootNote, 0, 127)
	o.FilterCC = clampInt(o.FilterCC, 0, 127)
	if o.Velocity <= 0 {
		o.Velocity = 100
	}
	o.Velocity = clampInt(o.Velocity, 1, 127)

	c.Control.Channel = clampInt(c.Control.Channel, 0, 16)
	return nil
}

// Variant returns the parsed engine variant.
func (c *Config) Variant() pattern.Variant {
	v, _ := pattern.ParseVariant(c.Engine.Variant)
	return v
}

// ClockMode returns the parsed clock source.
func (c *Config) ClockMode() clock.Mode {
	m, _ := clock.ParseMode(c.Clock.Source)
	return m
}

// EngineOptions converts the engine and clock sections for sequencer.NewEngine.
func (c *Config) EngineOptions() sequencer.Options {
	e := c.Engine
	return sequencer.Options{
		SampleRate:    e.SampleRate,
		Tempo:         e.Tempo,
		RateDivider:   e.RateDivider,
		Seed:          e.Seed,
		Depth:         e.Depth,
		Smooth:        e.Smooth,
		Glide:         e.Glide,
		ClockMode:     c.ClockMode(),
		PulsesPerStep: c.Clock.PulsesPerStep,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
