package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hue-beat/state"
)

// AudioConfig selects the microphone and analysis settings
type AudioConfig struct {
	Device        string  `json:"device,omitempty"` // substring of the capture device name
	SampleRate    int     `json:"sampleRate,omitempty"`
	FFTSize       int     `json:"fftSize,omitempty"`
	EnergyFloor   float64 `json:"energyFloor,omitempty"`
	Click         bool    `json:"click,omitempty"` // audible click on each onset
	ListenOnStart bool    `json:"listenOnStart,omitempty"`
}

// MIDIConfig controls controller discovery
type MIDIConfig struct {
	Enabled     bool   `json:"enabled"`
	Mirror      bool   `json:"mirror"`                // paint the animation on a Launchpad
	Keyboards   bool   `json:"keyboards"`             // plain inputs become tap sources
	InputFilter string `json:"inputFilter,omitempty"` // only inputs whose name contains this
	FollowClock bool   `json:"followClock"`           // take tempo from incoming MIDI clock
}

// DisplayConfig controls rendering
type DisplayConfig struct {
	FPS    int  `json:"fps,omitempty"`
	Window bool `json:"window,omitempty"`
	Width  int  `json:"width,omitempty"`
	Height int  `json:"height,omitempty"`
}

// UIConfig stores the parameters from the last session
type UIConfig struct {
	LastTempo      int     `json:"lastTempo,omitempty"`
	LastMultiplier float64 `json:"lastMultiplier,omitempty"`
	LastMode       string  `json:"lastMode,omitempty"`
	LastHueStep    float64 `json:"lastHueStep,omitempty"`
	Hidden         bool    `json:"hidden,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio   AudioConfig   `json:"audio"`
	MIDI    MIDIConfig    `json:"midi"`
	Display DisplayConfig `json:"display"`
	UI      UIConfig      `json:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:  48000,
			FFTSize:     1024,
			EnergyFloor: 0.15,
		},
		MIDI: MIDIConfig{
			Enabled:     true,
			Mirror:      true,
			Keyboards:   true,
			FollowClock: true,
		},
		Display: DisplayConfig{
			FPS:    60,
			Width:  640,
			Height: 480,
		},
		UI: UIConfig{
			LastTempo:      state.DefaultTempo,
			LastMultiplier: 1,
			LastMode:       state.ModeFlow.String(),
			LastHueStep:    state.GoldenAngle,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hue-beat"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// InitialParams turns the saved UI section into store parameters.
// Invalid saved values fall back to the defaults.
func (c *Config) InitialParams() state.Params {
	p := state.DefaultParams()
	if c.UI.LastTempo > 0 && c.UI.LastTempo <= state.MaxTempo {
		p.Tempo = c.UI.LastTempo
	}
	if m := state.Multiplier(c.UI.LastMultiplier); m.Valid() {
		p.Multiplier = m
	}
	if mode, err := state.ParseMode(c.UI.LastMode); err == nil {
		p.Mode = mode
	}
	if c.UI.LastHueStep != 0 && state.ValidHueStep(c.UI.LastHueStep) {
		p.HueStep = c.UI.LastHueStep
	}
	return p
}

// Remember stores the current parameters for the next session
func (c *Config) Remember(p state.Params) {
	tempo := p.Tempo
	if tempo < 1 {
		tempo = state.DefaultTempo
	}
	c.UI.LastTempo = tempo
	c.UI.LastMultiplier = float64(p.Multiplier)
	c.UI.LastMode = p.Mode.String()
	c.UI.LastHueStep = p.HueStep
}
