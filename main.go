package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"hue-beat/animation"
	"hue-beat/audio"
	"hue-beat/beat"
	"hue-beat/clock"
	"hue-beat/config"
	"hue-beat/controls"
	"hue-beat/debug"
	"hue-beat/display"
	"hue-beat/midi"
	"hue-beat/state"
	"hue-beat/tap"
	"hue-beat/theme"
	"hue-beat/tui"
)

func main() {
	configPath := flag.String("config", "", "Config file (default ~/.config/hue-beat/config.json)")
	debugLog := flag.Bool("debug", false, "Write a debug log to ~/.config/hue-beat/debug.log")
	window := flag.Bool("window", false, "Show the color in a window instead of the terminal")
	fps := flag.Int("fps", 0, "Frame rate (overrides config)")
	device := flag.String("device", "", "Capture device name substring (overrides config)")
	listen := flag.Bool("listen", false, "Start listening to the microphone")
	noMIDI := flag.Bool("no-midi", false, "Disable MIDI controllers")
	palettePath := flag.String("palette", "", "GIMP palette for the panel (default: built-in plasma)")
	flag.Parse()

	if *debugLog {
		if err := debug.Enable(""); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *fps > 0 {
		cfg.Display.FPS = *fps
	}
	if *device != "" {
		cfg.Audio.Device = *device
	}
	if *window {
		cfg.Display.Window = true
	}
	if *listen {
		cfg.Audio.ListenOnStart = true
	}
	if *noMIDI {
		cfg.MIDI.Enabled = false
	}

	if !cfg.Display.Window && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "hue-beat needs a terminal; use -window for a window display")
		os.Exit(1)
	}

	th := theme.Default()
	if *palettePath != "" {
		palette, err := theme.LoadGPL(*palettePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		th = theme.New(palette)
	}

	clk := clock.System{}
	store := state.NewStore(cfg.InitialParams())
	loop := animation.NewLoop(clk, animation.NewAnimator(store, nil), cfg.Display.FPS)
	tapper := tap.NewEstimator(clk, store)

	opts := beat.Options{
		FFTSize:     cfg.Audio.FFTSize,
		EnergyFloor: cfg.Audio.EnergyFloor,
		FPS:         cfg.Display.FPS,
	}
	if cfg.Audio.Click {
		click, err := audio.NewClick(cfg.Audio.SampleRate)
		if err != nil {
			debug.Log("main", "click disabled: %v", err)
		} else {
			defer click.Close()
			opts.OnOnset = click.Trigger
		}
	}
	est := beat.NewEstimator(audio.NewCapture(cfg.Audio.Device, cfg.Audio.SampleRate), store, clk, opts)

	dispatcher := &controls.Dispatcher{Store: store, Tapper: tapper, Listener: est}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.Enabled {
		var follower *midi.ClockFollower
		if cfg.MIDI.FollowClock {
			follower = midi.NewClockFollower(store, clk)
		}
		deviceMgr = midi.NewDeviceManager(clk, midi.ManagerOptions{
			InputFilter: cfg.MIDI.InputFilter,
			Keyboards:   cfg.MIDI.Keyboards,
			Follower:    follower,
		})
		go deviceMgr.Run(ctx)

		if cfg.MIDI.Mirror {
			mirror := midi.NewLEDMirror(clk, func() midi.LEDFrame {
				p := store.Params()
				return midi.LEDFrame{
					Color:     loop.Snapshot().RGB(),
					Flash:     est.Flash(),
					Mode:      p.Mode,
					Playing:   p.Playing,
					Listening: est.Listening(),
				}
			}, deviceMgr.GetLaunchpad)
			go mirror.Run(ctx)
		}
	}

	var listenErr error
	if cfg.Audio.ListenOnStart {
		listenErr = est.SetListening(true)
	}

	if cfg.Display.Window {
		err = runWindow(cfg, loop, dispatcher, est, deviceMgr, listenErr)
	} else {
		err = runTUI(cfg, store, loop, dispatcher, est, deviceMgr, th, listenErr)
	}

	cancel()
	est.Stop()

	cfg.Remember(store.Params())
	if saveErr := saveConfig(cfg, *configPath); saveErr != nil {
		debug.Log("main", "save config: %v", saveErr)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func saveConfig(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveTo(path)
}

func runTUI(cfg *config.Config, store *state.Store, loop *animation.Loop, d *controls.Dispatcher,
	est *beat.Estimator, deviceMgr *midi.DeviceManager, th *theme.Theme, listenErr error) error {
	updates, unwatch := tui.Watch(store)
	defer unwatch()

	m := tui.NewModel(store, loop, d, th, cfg.Display.FPS, updates).
		WithListener(est).
		WithDevices(deviceMgr).
		WithError(listenErr).
		Hidden(cfg.UI.Hidden)

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(tui.Model); ok {
		cfg.UI.Hidden = fm.IsHidden()
	}
	return err
}

func runWindow(cfg *config.Config, loop *animation.Loop, d *controls.Dispatcher,
	est *beat.Estimator, deviceMgr *midi.DeviceManager, listenErr error) error {
	if listenErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", listenErr)
	}
	if deviceMgr != nil {
		go func() {
			for ev := range deviceMgr.Events() {
				if ev.Type == midi.DeviceConnected {
					go d.Serve(ev.Controller, func(err error) {
						debug.Log("main", "controller: %v", err)
					})
				}
			}
		}()
	}
	w := display.NewWindow(loop, d, est.Flash, cfg.Display.Width, cfg.Display.Height)
	return w.Run()
}
