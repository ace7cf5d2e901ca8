package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// EngineConfig holds the looper core settings.
type EngineConfig struct {
	BPM             float64 `json:"bpm,omitempty"`
	BeatsPerBar     int     `json:"beatsPerBar,omitempty"`
	MinBPM          float64 `json:"minBpm,omitempty"`
	MaxLoops        int     `json:"maxLoops,omitempty"`
	LookbackBars    int     `json:"lookbackBars,omitempty"`
	MaxLookbackBars int     `json:"maxLookbackBars,omitempty"`
	Quantize        int     `json:"quantize"` // 0 free, 1 beat, 2 bar
	CrossfadeMs     float64 `json:"crossfadeMs,omitempty"`
	LiveThreshold   float32 `json:"liveThreshold"`
	LiveWindowMs    int     `json:"liveWindowMs,omitempty"`
	InputChannels   int     `json:"inputChannels,omitempty"`
}

// ClickConfig stores metronome preferences.
type ClickConfig struct {
	Enabled bool    `json:"enabled"`
	Volume  float32 `json:"volume,omitempty"`
}

// MidiConfig defines the MIDI clock output.
type MidiConfig struct {
	OutputPort  string `json:"outputPort,omitempty"`
	AutoConnect bool   `json:"autoConnect"`
	SyncEnabled bool   `json:"syncEnabled"`
}

// OscConfig defines the OSC control server.
type OscConfig struct {
	Port    int  `json:"port,omitempty"`
	Enabled bool `json:"enabled"`
}

// AudioConfig stores audio device preferences.
type AudioConfig struct {
	ExtraLatencyMs  float64 `json:"extraLatencyMs,omitempty"`
	InputMonitoring bool    `json:"inputMonitoring"`
}

// TuiConfig stores terminal UI preferences.
type TuiConfig struct {
	RefreshMs int    `json:"refreshMs,omitempty"`
	Palette   string `json:"palette,omitempty"` // path to a GIMP .gpl file
}

// Config is the main configuration structure.
type Config struct {
	Engine EngineConfig `json:"engine,omitempty"`
	Click  ClickConfig  `json:"click,omitempty"`
	Midi   MidiConfig   `json:"midi,omitempty"`
	Osc    OscConfig    `json:"osc,omitempty"`
	Audio  AudioConfig  `json:"audio,omitempty"`
	Tui    TuiConfig    `json:"tui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BPM:             120,
			BeatsPerBar:     4,
			MinBPM:          60,
			MaxLoops:        8,
			LookbackBars:    1,
			MaxLookbackBars: 8,
			Quantize:        2,
			CrossfadeMs:     5,
			LiveThreshold:   0.01,
			LiveWindowMs:    500,
			InputChannels:   2,
		},
		Click: ClickConfig{
			Enabled: true,
			Volume:  0.5,
		},
		Midi: MidiConfig{
			AutoConnect: true,
		},
		Osc: OscConfig{
			Port:    9000,
			Enabled: true,
		},
		Tui: TuiConfig{
			RefreshMs: 33,
		},
	}
}

// Validate clamps out-of-range values back to usable ones so a
// hand-edited file can never put the engine in a bad state.
func (c *Config) Validate() {
	d := DefaultConfig()

	if c.Engine.BPM < 1 || c.Engine.BPM > 999 {
		c.Engine.BPM = d.Engine.BPM
	}
	if c.Engine.BeatsPerBar < 1 || c.Engine.BeatsPerBar > 16 {
		c.Engine.BeatsPerBar = d.Engine.BeatsPerBar
	}
	if c.Engine.MinBPM < 1 || c.Engine.MinBPM > 999 {
		c.Engine.MinBPM = d.Engine.MinBPM
	}
	if c.Engine.MaxLoops < 1 || c.Engine.MaxLoops > 64 {
		c.Engine.MaxLoops = d.Engine.MaxLoops
	}
	if c.Engine.MaxLookbackBars < 1 || c.Engine.MaxLookbackBars > 64 {
		c.Engine.MaxLookbackBars = d.Engine.MaxLookbackBars
	}
	if c.Engine.LookbackBars < 1 || c.Engine.LookbackBars > c.Engine.MaxLookbackBars {
		c.Engine.LookbackBars = d.Engine.LookbackBars
	}
	if c.Engine.LiveWindowMs < 1 || c.Engine.LiveWindowMs > 10000 {
		c.Engine.LiveWindowMs = d.Engine.LiveWindowMs
	}
	if c.Engine.Quantize < 0 || c.Engine.Quantize > 2 {
		c.Engine.Quantize = d.Engine.Quantize
	}
	if c.Engine.CrossfadeMs < 0 || c.Engine.CrossfadeMs > 100 {
		c.Engine.CrossfadeMs = d.Engine.CrossfadeMs
	}
	if c.Engine.LiveThreshold < 0 || c.Engine.LiveThreshold > 1 {
		c.Engine.LiveThreshold = d.Engine.LiveThreshold
	}
	if c.Engine.InputChannels < 1 || c.Engine.InputChannels > 64 {
		c.Engine.InputChannels = d.Engine.InputChannels
	}
	if c.Click.Volume < 0 || c.Click.Volume > 1 {
		c.Click.Volume = d.Click.Volume
	}
	if c.Osc.Port < 1 || c.Osc.Port > 65535 {
		c.Osc.Port = d.Osc.Port
	}
	if c.Audio.ExtraLatencyMs < 0 || c.Audio.ExtraLatencyMs > 500 {
		c.Audio.ExtraLatencyMs = 0
	}
	if c.Tui.RefreshMs < 10 || c.Tui.RefreshMs > 1000 {
		c.Tui.RefreshMs = d.Tui.RefreshMs
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "retrospect"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Validate()

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	return c.saveTo(path)
}

func (c *Config) saveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
