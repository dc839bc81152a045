package midi

import (
	"math"
	"sync"
	"time"

	"hue-beat/clock"
	"hue-beat/debug"
)

// MIDI realtime status bytes
const (
	StatusClock    byte = 0xF8
	StatusStart    byte = 0xFA
	StatusContinue byte = 0xFB
	StatusStop     byte = 0xFC
)

// PPQN is the number of timing clock pulses per quarter note
const PPQN = 24

// clockTimeout is the longest pulse gap still treated as a running clock
const clockTimeout = 500 * time.Millisecond

// TempoTarget is what a ClockFollower drives
type TempoTarget interface {
	Tempo() int
	SetTempo(bpm int)
	SetPlaying(on bool)
}

// ClockFollower turns an incoming MIDI timing clock into tempo and
// transport changes.
type ClockFollower struct {
	target TempoTarget
	clock  clock.Clock

	mu    sync.Mutex
	ticks []time.Time // newest last, at most PPQN+1
	bpm   int
}

func NewClockFollower(target TempoTarget, c clock.Clock) *ClockFollower {
	return &ClockFollower{
		target: target,
		clock:  c,
		ticks:  make([]time.Time, 0, PPQN+1),
	}
}

// Message handles one realtime status byte received now
func (f *ClockFollower) Message(status byte) {
	f.MessageAt(status, f.clock.Now())
}

// MessageAt handles one realtime status byte received at t
func (f *ClockFollower) MessageAt(status byte, t time.Time) {
	switch status {
	case StatusClock:
		if bpm, ok := f.pulse(t); ok && bpm != f.target.Tempo() {
			debug.Log("midiclock", "tempo %d BPM", bpm)
			f.target.SetTempo(bpm)
		}
	case StatusStart:
		f.reset()
		f.target.SetPlaying(true)
	case StatusContinue:
		f.target.SetPlaying(true)
	case StatusStop:
		f.reset()
		f.target.SetPlaying(false)
	}
}

// BPM returns the last tempo measured from the clock, or 0
func (f *ClockFollower) BPM() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bpm
}

func (f *ClockFollower) pulse(t time.Time) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.ticks); n > 0 && t.Sub(f.ticks[n-1]) > clockTimeout {
		f.ticks = f.ticks[:0]
	}
	if len(f.ticks) == PPQN+1 {
		copy(f.ticks, f.ticks[1:])
		f.ticks = f.ticks[:PPQN]
	}
	f.ticks = append(f.ticks, t)
	if len(f.ticks) < PPQN+1 {
		return 0, false
	}

	quarter := f.ticks[PPQN].Sub(f.ticks[0])
	if quarter <= 0 {
		return 0, false
	}
	bpm := int(math.Round(time.Minute.Seconds() / quarter.Seconds()))
	if bpm < 1 || bpm > 999 {
		return 0, false
	}
	f.bpm = bpm
	return bpm, true
}

func (f *ClockFollower) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = f.ticks[:0]
}
