// Package beat estimates tempo from the low-frequency energy of an audio
// stream.
package beat

import (
	"math"
	"sort"
	"time"
)

// Detection constants
const (
	EnergyHistorySize = 40
	BeatHistorySize   = 8
	MinBeatsForTempo  = 4

	OnsetRatio         = 1.3
	DefaultEnergyFloor = 0.15

	Refractory = 250 * time.Millisecond
	MaxBeatGap = 1500 * time.Millisecond
)

// Result is the outcome of one detector frame
type Result struct {
	Onset    bool
	Tempo    int
	HasTempo bool
}

// Detector finds onsets in a stream of normalized energy readings and
// turns the gaps between them into a tempo estimate.
type Detector struct {
	floor float64

	energies []float64 // FIFO, oldest first
	beats    []float64 // BPM per inter-onset gap

	lastOnset time.Time
	hasOnset  bool
}

// NewDetector creates a detector; floor <= 0 uses DefaultEnergyFloor
func NewDetector(floor float64) *Detector {
	if floor <= 0 {
		floor = DefaultEnergyFloor
	}
	return &Detector{
		floor:    floor,
		energies: make([]float64, 0, EnergyHistorySize),
		beats:    make([]float64, 0, BeatHistorySize),
	}
}

// Process feeds one energy reading taken at t
func (d *Detector) Process(t time.Time, energy float64) Result {
	var res Result

	if len(d.energies) > 0 {
		avg := mean(d.energies)
		if energy > avg*OnsetRatio && energy > d.floor &&
			(!d.hasOnset || t.Sub(d.lastOnset) > Refractory) {
			res.Onset = true
		}
	}

	d.energies = pushCapped(d.energies, energy, EnergyHistorySize)

	if !res.Onset {
		return res
	}

	if d.hasOnset {
		gap := t.Sub(d.lastOnset)
		if gap < MaxBeatGap {
			d.beats = pushCapped(d.beats, 60/gap.Seconds(), BeatHistorySize)
		}
	}
	d.lastOnset = t
	d.hasOnset = true

	if len(d.beats) >= MinBeatsForTempo {
		res.Tempo = int(math.Round(median(d.beats)))
		res.HasTempo = true
	}
	return res
}

// Beats returns a copy of the per-gap BPM history
func (d *Detector) Beats() []float64 {
	return append([]float64(nil), d.beats...)
}

// Reset forgets every onset and energy reading
func (d *Detector) Reset() {
	d.energies = d.energies[:0]
	d.beats = d.beats[:0]
	d.lastOnset = time.Time{}
	d.hasOnset = false
}

func pushCapped(s []float64, v float64, limit int) []float64 {
	if len(s) == limit {
		copy(s, s[1:])
		s = s[:limit-1]
	}
	return append(s, v)
}

func mean(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

func median(s []float64) float64 {
	sorted := append([]float64(nil), s...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
