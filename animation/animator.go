// Package animation turns tempo parameters into a per-frame hue and
// lightness.
package animation

import (
	"math"
	"math/rand"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"hue-beat/state"
)

// Lightness levels
const (
	LightnessOn  = 50.0
	LightnessOff = 0.0
)

// Snapshot is one published frame. It is always passed by value.
type Snapshot struct {
	Hue       float64   // [0,360)
	Lightness float64   // 0 or 50
	Steps     uint64    // discrete hue steps taken so far
	At        time.Time // frame timestamp
}

// Color is the full-saturation HSL color for the frame
func (s Snapshot) Color() colorful.Color {
	return colorful.Hsl(s.Hue, 1, s.Lightness/100).Clamped()
}

// RGB returns the frame color as 8-bit channels
func (s Snapshot) RGB() [3]uint8 {
	r, g, b := s.Color().RGB255()
	return [3]uint8{r, g, b}
}

// Hex returns the frame color as #rrggbb
func (s Snapshot) Hex() string {
	return s.Color().Hex()
}

// ParamSource is read once per tick
type ParamSource interface {
	Params() state.Params
}

// Animator is the color state machine. It is not safe for concurrent use;
// Loop owns it.
type Animator struct {
	params ParamSource
	rng    *rand.Rand

	hue         float64
	lightness   float64
	accumulator float64 // ms since the last interval boundary
	steps       uint64

	last   time.Time
	primed bool

	seen     state.Params
	seenOnce bool
}

// NewAnimator creates an animator at hue 0, lightness 50. rng supplies
// random hue steps; nil seeds one from the wall clock.
func NewAnimator(params ParamSource, rng *rand.Rand) *Animator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Animator{
		params:    params,
		rng:       rng,
		lightness: LightnessOn,
	}
}

// Snapshot returns the current state without advancing it
func (a *Animator) Snapshot() Snapshot {
	return Snapshot{
		Hue:       a.hue,
		Lightness: a.lightness,
		Steps:     a.steps,
		At:        a.last,
	}
}

// Accumulator returns the ms elapsed since the last interval boundary
func (a *Animator) Accumulator() float64 {
	return a.accumulator
}

// Tick advances the state to now. The first call only records the time.
func (a *Animator) Tick(now time.Time) Snapshot {
	p := a.params.Params()
	a.resetOnChange(p)

	if !a.primed {
		a.primed = true
		a.last = now
		return a.Snapshot()
	}

	deltaMs := float64(now.Sub(a.last)) / float64(time.Millisecond)
	a.last = now
	if deltaMs < 0 {
		deltaMs = 0
	}

	if !p.Playing || p.Tempo <= 0 {
		return a.Snapshot()
	}

	beatMs := 60000 / float64(p.Tempo)
	mult := float64(p.Multiplier)
	intervalMs := beatMs / mult
	if intervalMs <= 0 || math.IsInf(intervalMs, 0) || math.IsNaN(intervalMs) {
		return a.Snapshot()
	}

	switch p.Mode {
	case state.ModeFlow:
		degreesPerMs := (360 / (4 * beatMs)) * mult
		a.hue = wrapHue(a.hue + deltaMs*degreesPerMs)
		a.lightness = LightnessOn

	case state.ModeStep:
		a.accumulator += deltaMs
		a.catchUp(intervalMs, p.HueStep)
		a.lightness = LightnessOn

	case state.ModeStrobe:
		a.accumulator += deltaMs
		a.catchUp(intervalMs, p.HueStep)
		phase := math.Mod(a.accumulator, intervalMs)
		if phase < intervalMs/2 {
			a.lightness = LightnessOn
		} else {
			a.lightness = LightnessOff
		}
	}

	return a.Snapshot()
}

// catchUp takes one hue step per whole interval in the accumulator,
// subtracting rather than zeroing so the phase is kept.
func (a *Animator) catchUp(intervalMs, hueStep float64) {
	for a.accumulator >= intervalMs {
		a.hue = wrapHue(a.hue + a.stepSize(hueStep))
		a.accumulator -= intervalMs
		a.steps++
	}
}

func (a *Animator) stepSize(hueStep float64) float64 {
	if hueStep == state.RandomHueStep {
		return a.rng.Float64() * 360
	}
	return hueStep
}

// resetOnChange zeroes the accumulator when anything that defines the
// interval grid changes. Play/pause is not part of the grid.
func (a *Animator) resetOnChange(p state.Params) {
	if a.seenOnce &&
		(p.Tempo != a.seen.Tempo ||
			p.Multiplier != a.seen.Multiplier ||
			p.Mode != a.seen.Mode ||
			p.HueStep != a.seen.HueStep) {
		a.accumulator = 0
	}
	a.seen = p
	a.seenOnce = true
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}
