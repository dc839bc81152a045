// Command beattest exercises the beat estimator and the MIDI side
// without the full UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"hue-beat/animation"
	"hue-beat/audio"
	"hue-beat/beat"
	"hue-beat/clock"
	"hue-beat/midi"
	"hue-beat/state"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "analyze":
		err = analyze(args)
	case "synth":
		err = synth(args)
	case "devices":
		err = listDevices()
	case "ports":
		listPorts()
	case "listen":
		err = listen(args)
	case "leds":
		err = leds(args)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Beat Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  analyze FILE  - Detect onsets and tempo in a WAV file")
	fmt.Println("  synth         - Write a metronome WAV")
	fmt.Println("  devices       - List audio capture devices")
	fmt.Println("  ports         - List MIDI ports")
	fmt.Println("  listen        - Print live tempo estimates from the microphone")
	fmt.Println("  leds          - Run the animation on a connected Launchpad")
}

func analyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	rate := fs.Int("rate", 0, "Resample to this rate before analysis (0 keeps the file rate)")
	fftSize := fs.Int("fft", beat.DefaultFFTSize, "FFT size")
	floor := fs.Float64("floor", beat.DefaultEnergyFloor, "Onset energy floor (0-1)")
	verbose := fs.Bool("v", false, "Print every onset")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("analyze needs one WAV file")
	}
	path := fs.Arg(0)

	samples, sampleRate, err := audio.ReadWAV(path, *rate)
	if err != nil {
		return err
	}
	res, err := beat.Analyze(samples, sampleRate, beat.AnalyzeOptions{FFTSize: *fftSize, EnergyFloor: *floor})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	fmt.Printf("%s: %.2fs at %d Hz, %d frames, peak energy %.2f\n",
		path, float64(len(samples))/float64(sampleRate), sampleRate, res.Frames, res.Peak)
	fmt.Printf("onsets: %d\n", len(res.Onsets))
	if *verbose {
		for _, at := range res.Onsets {
			fmt.Printf("  %8.3fs\n", at.Seconds())
		}
	}
	if res.HasTempo {
		fmt.Printf("tempo: %d BPM\n", res.Tempo)
	} else {
		fmt.Println("tempo: not enough onsets")
	}
	return nil
}

func synth(args []string) error {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	bpm := fs.Int("bpm", 120, "Metronome tempo")
	seconds := fs.Float64("duration", 8, "Length in seconds")
	rate := fs.Int("rate", audio.DefaultSampleRate, "Sample rate in Hz")
	output := fs.String("output", "metronome.wav", "Output WAV file path")
	fs.Parse(args)

	samples := audio.Metronome(*bpm, *seconds, *rate)
	if samples == nil {
		return fmt.Errorf("invalid metronome settings")
	}
	if err := audio.WriteWAV(*output, samples, *rate); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d BPM, %.1fs)\n", *output, *bpm, *seconds)
	return nil
}

func listDevices() error {
	names, err := audio.Devices()
	if err != nil {
		return err
	}
	fmt.Println("=== Capture Devices ===")
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
	return nil
}

func listPorts() {
	ins, outs := midi.PortNames()
	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p)
	}
}

// printSink accepts every tempo and prints it
type printSink struct{}

func (printSink) ProposeTempo(bpm int) bool {
	fmt.Printf("\ntempo %d BPM\n", bpm)
	return true
}

func listen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	device := fs.String("device", "", "Capture device name substring")
	seconds := fs.Float64("duration", 30, "Seconds to listen")
	floor := fs.Float64("floor", beat.DefaultEnergyFloor, "Onset energy floor (0-1)")
	fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
	defer cancelTimeout()

	src := audio.NewCapture(*device, audio.DefaultSampleRate)
	est := beat.NewEstimator(src, printSink{}, clock.System{}, beat.Options{
		EnergyFloor: *floor,
		OnOnset:     func() { fmt.Print("*") },
	})
	if err := est.Start(ctx); err != nil {
		return err
	}
	defer est.Stop()

	fmt.Printf("Listening for %.0fs (ctrl+c to stop)...\n", *seconds)
	<-ctx.Done()
	fmt.Println()
	return nil
}

func leds(args []string) error {
	fs := flag.NewFlagSet("leds", flag.ExitOnError)
	bpm := fs.Int("bpm", 120, "Animation tempo")
	mode := fs.String("mode", "FLOW", "FLOW, STEP or STROBE")
	seconds := fs.Float64("duration", 10, "Seconds to run")
	fs.Parse(args)

	m, err := state.ParseMode(*mode)
	if err != nil {
		return err
	}
	params := state.DefaultParams()
	params.Tempo = *bpm
	params.Mode = m
	store := state.NewStore(params)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(*seconds*float64(time.Second)))
	defer cancelTimeout()

	clk := clock.System{}
	loop := animation.NewLoop(clk, animation.NewAnimator(store, nil), 0)
	dm := midi.NewDeviceManager(clk, midi.ManagerOptions{})
	mirror := midi.NewLEDMirror(clk, func() midi.LEDFrame {
		p := store.Params()
		return midi.LEDFrame{Color: loop.Snapshot().RGB(), Mode: p.Mode, Playing: p.Playing}
	}, dm.GetLaunchpad)

	go loop.Run(ctx)
	go dm.Run(ctx)
	go func() {
		for ev := range dm.Events() {
			if ev.Type == midi.DeviceConnected {
				fmt.Printf("connected: %s (%s)\n", ev.ID, ev.Controller.Type())
			} else {
				fmt.Printf("disconnected: %s\n", ev.ID)
			}
		}
	}()

	fmt.Printf("Painting %s at %d BPM for %.0fs...\n", m, *bpm, *seconds)
	mirror.Run(ctx)
	return nil
}
