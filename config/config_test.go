package config

import (
	"os"
	"path/filepath"
	"testing"

	"hue-beat/state"
)

func TestLoadFromMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.FFTSize != 1024 || !cfg.MIDI.Enabled || cfg.Display.FPS != 60 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Audio.Device = "USB"
	cfg.MIDI.Mirror = false
	cfg.Remember(state.Params{Tempo: 98, Multiplier: 2, Mode: state.ModeStrobe, HueStep: 45})

	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Audio.Device != "USB" || got.MIDI.Mirror {
		t.Errorf("loaded %+v", got)
	}

	p := got.InitialParams()
	want := state.Params{Tempo: 98, Multiplier: 2, Mode: state.ModeStrobe, HueStep: 45, Playing: true}
	if p != want {
		t.Errorf("InitialParams = %+v, want %+v", p, want)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"audio":{"device":"mic"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Device != "mic" || cfg.Audio.SampleRate != 48000 || !cfg.MIDI.FollowClock {
		t.Errorf("partial load = %+v", cfg)
	}
}

func TestLoadFromRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestInitialParamsIgnoresInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI = UIConfig{LastTempo: 5000, LastMultiplier: 3, LastMode: "disco", LastHueStep: 500}
	if p := cfg.InitialParams(); p != state.DefaultParams() {
		t.Errorf("InitialParams = %+v", p)
	}

	cfg.Remember(state.Params{Tempo: 0, Multiplier: 1, Mode: state.ModeFlow, HueStep: state.RandomHueStep})
	if cfg.UI.LastTempo != state.DefaultTempo {
		t.Errorf("remembered tempo %d", cfg.UI.LastTempo)
	}
	if p := cfg.InitialParams(); p.HueStep != state.RandomHueStep {
		t.Errorf("random hue step not restored: %v", p.HueStep)
	}
}
