package state

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"hue-beat/debug"
)

var (
	ErrInvalidMultiplier = errors.New("invalid multiplier")
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidHueStep    = errors.New("invalid hue step")
)

// Store holds the shared parameters. Every field is its own atomic value,
// so writers on different goroutines never block each other and readers
// always see a whole value (last write wins).
type Store struct {
	tempo      atomic.Int32
	multiplier atomic.Uint64 // float64 bits
	mode       atomic.Int32
	hueStep    atomic.Uint64 // float64 bits
	playing    atomic.Bool

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// NewStore creates a store initialized with p. Invalid fields fall back
// to DefaultParams.
func NewStore(p Params) *Store {
	d := DefaultParams()
	if p.Tempo < 0 || p.Tempo > MaxTempo {
		p.Tempo = d.Tempo
	}
	if !p.Multiplier.Valid() {
		p.Multiplier = d.Multiplier
	}
	if !p.Mode.Valid() {
		p.Mode = d.Mode
	}
	if !ValidHueStep(p.HueStep) {
		p.HueStep = d.HueStep
	}

	s := &Store{subs: make(map[int]func(Change))}
	s.tempo.Store(int32(p.Tempo))
	s.multiplier.Store(math.Float64bits(float64(p.Multiplier)))
	s.mode.Store(int32(p.Mode))
	s.hueStep.Store(math.Float64bits(p.HueStep))
	s.playing.Store(p.Playing)
	return s
}

// Params returns a snapshot of every field. Fields are read one at a time,
// so a concurrent write may land between two reads.
func (s *Store) Params() Params {
	return Params{
		Tempo:      s.Tempo(),
		Multiplier: s.Multiplier(),
		Mode:       s.Mode(),
		HueStep:    s.HueStep(),
		Playing:    s.Playing(),
	}
}

// Subscribe registers fn for every accepted change. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(f Field) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	if len(fns) == 0 {
		return
	}
	c := Change{Field: f, Params: s.Params()}
	for _, fn := range fns {
		fn(c)
	}
}

// Tempo

func (s *Store) Tempo() int {
	return int(s.tempo.Load())
}

// SetTempo stores bpm clamped to [0, MaxTempo]. Negative input is taken
// as its magnitude. Zero is allowed and freezes the animation.
func (s *Store) SetTempo(bpm int) {
	if bpm < 0 {
		bpm = -bpm
	}
	if bpm > MaxTempo {
		bpm = MaxTempo
	}
	s.storeTempo(bpm)
}

// CommitTempo finishes a manual edit: a tempo below 1 becomes DefaultTempo
func (s *Store) CommitTempo() {
	if s.Tempo() < 1 {
		s.storeTempo(DefaultTempo)
	}
}

// ProposeTempo is the estimator entry point. Values outside
// (MinProposedTempo, MaxProposedTempo) are rejected, never clamped.
func (s *Store) ProposeTempo(bpm int) bool {
	if bpm <= MinProposedTempo || bpm >= MaxProposedTempo {
		debug.Log("tempo", "rejected proposal %d", bpm)
		return false
	}
	s.storeTempo(bpm)
	return true
}

// NudgeTempo adds delta, keeping the result in [1, MaxTempo]
func (s *Store) NudgeTempo(delta int) {
	s.updateTempo(func(bpm int) int {
		return clampInt(bpm+delta, 1, MaxTempo)
	})
}

// HalveTempo halves the tempo, never going below 1
func (s *Store) HalveTempo() {
	s.updateTempo(func(bpm int) int {
		return max(1, bpm/2)
	})
}

// DoubleTempo doubles the tempo, never going above MaxTempo
func (s *Store) DoubleTempo() {
	s.updateTempo(func(bpm int) int {
		return min(MaxTempo, bpm*2)
	})
}

func (s *Store) storeTempo(bpm int) {
	if old := s.tempo.Swap(int32(bpm)); int(old) != bpm {
		s.notify(FieldTempo)
	}
}

func (s *Store) updateTempo(fn func(int) int) {
	for {
		old := s.tempo.Load()
		next := int32(fn(int(old)))
		if s.tempo.CompareAndSwap(old, next) {
			if old != next {
				s.notify(FieldTempo)
			}
			return
		}
	}
}

// Multiplier

func (s *Store) Multiplier() Multiplier {
	return Multiplier(math.Float64frombits(s.multiplier.Load()))
}

func (s *Store) SetMultiplier(m Multiplier) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %g", ErrInvalidMultiplier, float64(m))
	}
	bits := math.Float64bits(float64(m))
	if s.multiplier.Swap(bits) != bits {
		s.notify(FieldMultiplier)
	}
	return nil
}

// CycleMultiplier moves dir positions through Multipliers, wrapping
func (s *Store) CycleMultiplier(dir int) {
	cur := s.Multiplier()
	idx := 0
	for i, m := range Multipliers {
		if m == cur {
			idx = i
		}
	}
	n := len(Multipliers)
	s.SetMultiplier(Multipliers[((idx+dir)%n+n)%n])
}

// Mode

func (s *Store) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *Store) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int32(m))
	}
	if Mode(s.mode.Swap(int32(m))) != m {
		s.notify(FieldMode)
	}
	return nil
}

// CycleMode advances FLOW → STEP → STROBE → FLOW
func (s *Store) CycleMode() {
	s.SetMode((s.Mode() + 1) % Mode(len(Modes)))
}

// Hue step

func (s *Store) HueStep() float64 {
	return math.Float64frombits(s.hueStep.Load())
}

func (s *Store) SetHueStep(step float64) error {
	if !ValidHueStep(step) {
		return fmt.Errorf("%w: %g", ErrInvalidHueStep, step)
	}
	bits := math.Float64bits(step)
	if s.hueStep.Swap(bits) != bits {
		s.notify(FieldHueStep)
	}
	return nil
}

// CycleHueStep advances to the next preset. A custom step jumps to the
// first preset.
func (s *Store) CycleHueStep() {
	cur := s.HueStep()
	next := HueStepPresets[0]
	for i, p := range HueStepPresets {
		if p == cur {
			next = HueStepPresets[(i+1)%len(HueStepPresets)]
			break
		}
	}
	s.SetHueStep(next)
}

// Playing

func (s *Store) Playing() bool {
	return s.playing.Load()
}

func (s *Store) SetPlaying(on bool) {
	if s.playing.Swap(on) != on {
		s.notify(FieldPlaying)
	}
}

func (s *Store) TogglePlaying() {
	for {
		old := s.playing.Load()
		if s.playing.CompareAndSwap(old, !old) {
			s.notify(FieldPlaying)
			return
		}
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
