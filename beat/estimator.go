package beat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"hue-beat/clock"
	"hue-beat/debug"
)

// ErrMicrophone is returned when the audio input cannot be acquired
var ErrMicrophone = errors.New("microphone unavailable")

// FlashDuration is how long the beat indicator stays lit after an onset
const FlashDuration = 100 * time.Millisecond

// Source is an audio input. Open starts delivering mono samples to
// onSamples until the returned Closer is closed.
type Source interface {
	Open(onSamples func([]float32)) (io.Closer, error)
	SampleRate() int
}

// TempoSink receives tempo candidates
type TempoSink interface {
	ProposeTempo(bpm int) bool
}

// Options tune an Estimator. Zero values pick the defaults.
type Options struct {
	FFTSize     int
	EnergyFloor float64
	FPS         int
	OnOnset     func() // called outside the lock on every onset
}

// Estimator listens to a Source and proposes tempos inferred from the
// spacing of low-frequency onsets.
type Estimator struct {
	src   Source
	sink  TempoSink
	clock clock.Clock
	opts  Options

	mu        sync.Mutex
	listening bool
	meter     *EnergyMeter
	detector  *Detector
	stream    io.Closer
	cancel    context.CancelFunc
	done      chan struct{}

	energy float64
	tempo  int

	flash      bool
	flashGen   uint64
	flashTimer clock.Timer
}

// NewEstimator creates an idle estimator
func NewEstimator(src Source, sink TempoSink, c clock.Clock, opts Options) *Estimator {
	if opts.FFTSize <= 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if opts.FPS <= 0 {
		opts.FPS = clock.FrameRate
	}
	return &Estimator{
		src:      src,
		sink:     sink,
		clock:    c,
		opts:     opts,
		detector: NewDetector(opts.EnergyFloor),
	}
}

// Start acquires the source and begins polling. On failure the estimator
// stays idle and the error wraps ErrMicrophone.
func (e *Estimator) Start(ctx context.Context) error {
	if e.Listening() {
		return nil
	}

	// Opening a device can block, so the lock is not held across it
	meter, err := NewEnergyMeter(e.src.SampleRate(), e.opts.FFTSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMicrophone, err)
	}
	stream, err := e.src.Open(meter.Write)
	if err != nil {
		debug.Log("beat", "open source failed: %v", err)
		return fmt.Errorf("%w: %w", ErrMicrophone, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listening {
		// lost a race with another Start
		if err := stream.Close(); err != nil {
			debug.Log("beat", "close duplicate stream: %v", err)
		}
		return nil
	}

	e.meter = meter
	e.stream = stream
	e.detector.Reset()
	e.energy = 0
	e.listening = true

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	ticker := e.clock.NewTicker(clock.FrameInterval(e.opts.FPS))
	go e.run(ctx, ticker, done)

	debug.Log("beat", "listening (rate=%d fft=%d)", e.src.SampleRate(), e.opts.FFTSize)
	return nil
}

// Stop releases the source and clears all detection state. It returns
// after the poll goroutine has exited.
func (e *Estimator) Stop() {
	e.mu.Lock()
	if !e.listening {
		e.mu.Unlock()
		return
	}
	e.listening = false
	cancel, done, stream := e.cancel, e.done, e.stream
	e.cancel, e.done, e.stream = nil, nil, nil

	e.clearFlashLocked()
	e.detector.Reset()
	e.energy = 0
	e.meter = nil
	e.mu.Unlock()

	cancel()
	<-done

	if stream != nil {
		if err := stream.Close(); err != nil {
			debug.Log("beat", "close source: %v", err)
		}
	}
	debug.Log("beat", "stopped listening")
}

// SetListening starts or stops the estimator
func (e *Estimator) SetListening(on bool) error {
	if on {
		return e.Start(context.Background())
	}
	e.Stop()
	return nil
}

// Toggle flips the listening state
func (e *Estimator) Toggle() error {
	return e.SetListening(!e.Listening())
}

func (e *Estimator) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listening
}

// Flash reports whether an onset happened within the last FlashDuration
func (e *Estimator) Flash() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flash
}

// Energy returns the most recent normalized energy reading
func (e *Estimator) Energy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy
}

// Tempo returns the last estimate the sink accepted, or 0
func (e *Estimator) Tempo() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tempo
}

func (e *Estimator) run(ctx context.Context, ticker clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			e.poll(now)
		}
	}
}

// poll runs one detection frame at now
func (e *Estimator) poll(now time.Time) {
	e.mu.Lock()
	if !e.listening || e.meter == nil {
		e.mu.Unlock()
		return
	}
	energy := e.meter.Energy()
	e.energy = energy
	res := e.detector.Process(now, energy)
	if res.Onset {
		e.startFlashLocked()
	}
	e.mu.Unlock()

	debug.LogEvery(e.opts.FPS*5, "beat", "energy=%.3f", energy)

	if !res.Onset {
		return
	}
	if e.opts.OnOnset != nil {
		e.opts.OnOnset()
	}
	if !res.HasTempo {
		return
	}

	accepted := e.sink.ProposeTempo(res.Tempo)
	debug.Log("beat", "candidate %d BPM accepted=%v", res.Tempo, accepted)
	if accepted {
		e.mu.Lock()
		e.tempo = res.Tempo
		e.mu.Unlock()
	}
}

func (e *Estimator) startFlashLocked() {
	if e.flashTimer != nil {
		e.flashTimer.Stop()
	}
	e.flash = true
	e.flashGen++
	gen := e.flashGen
	e.flashTimer = e.clock.AfterFunc(FlashDuration, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.flashGen == gen {
			e.flash = false
			e.flashTimer = nil
		}
	})
}

func (e *Estimator) clearFlashLocked() {
	if e.flashTimer != nil {
		e.flashTimer.Stop()
		e.flashTimer = nil
	}
	e.flashGen++
	e.flash = false
}
