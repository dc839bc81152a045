// Package tap turns manual taps into a tempo.
package tap

import (
	"math"
	"sync"
	"time"

	"hue-beat/clock"
	"hue-beat/debug"
)

// Window is how far back taps are remembered
const Window = 2000 * time.Millisecond

// Tempo band for tap results
const (
	MinTempo = 30
	MaxTempo = 300
)

// TempoSink receives tap tempos
type TempoSink interface {
	ProposeTempo(bpm int) bool
}

// Estimator averages recent tap intervals. It is always ready and safe
// for concurrent use.
type Estimator struct {
	clock clock.Clock
	sink  TempoSink

	mu   sync.Mutex
	taps []time.Time
}

func NewEstimator(c clock.Clock, sink TempoSink) *Estimator {
	return &Estimator{clock: c, sink: sink}
}

// Tap records a tap at the current time
func (e *Estimator) Tap() (bpm int, ok bool) {
	return e.TapAt(e.clock.Now())
}

// TapAt records a tap at t and returns the resulting tempo when one was
// computed and accepted.
func (e *Estimator) TapAt(t time.Time) (bpm int, ok bool) {
	e.mu.Lock()
	e.taps = append(e.taps, t)

	keep := e.taps[:0]
	for _, prev := range e.taps {
		if t.Sub(prev) < Window {
			keep = append(keep, prev)
		}
	}
	e.taps = keep

	if len(e.taps) < 2 {
		e.mu.Unlock()
		return 0, false
	}

	var total time.Duration
	for i := 1; i < len(e.taps); i++ {
		total += e.taps[i].Sub(e.taps[i-1])
	}
	meanMs := float64(total) / float64(time.Millisecond) / float64(len(e.taps)-1)
	e.mu.Unlock()

	if meanMs <= 0 {
		return 0, false
	}
	bpm = int(math.Round(60000 / meanMs))
	if bpm <= MinTempo || bpm >= MaxTempo {
		debug.Log("tap", "ignored %d BPM", bpm)
		return bpm, false
	}
	if e.sink != nil && !e.sink.ProposeTempo(bpm) {
		return bpm, false
	}
	debug.Log("tap", "tempo %d BPM from %d taps", bpm, len(keep))
	return bpm, true
}

// Count returns the number of taps inside the window
func (e *Estimator) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.taps)
}

// Reset forgets all taps
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.taps = e.taps[:0]
}
