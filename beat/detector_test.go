package beat

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

// pulses feeds 10ms frames with a spike every periodMs, starting at
// firstMs, and returns every result with a tempo.
func pulses(d *Detector, frames, firstMs, periodMs int) (onsets int, last Result) {
	for i := 0; i < frames; i++ {
		tms := i * 10
		energy := 0.05
		if tms >= firstMs && (tms-firstMs)%periodMs == 0 {
			energy = 0.8
		}
		res := d.Process(ms(tms), energy)
		if res.Onset {
			onsets++
		}
		if res.HasTempo {
			last = res
		}
	}
	return onsets, last
}

func TestDetectorConvergesOnSteadyPulse(t *testing.T) {
	tests := []struct {
		name     string
		periodMs int
		want     int
	}{
		{"120bpm", 500, 120},
		{"100bpm", 600, 100},
		{"150bpm", 400, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(0)
			onsets, last := pulses(d, 400, 100, tt.periodMs)
			if onsets < MinBeatsForTempo+1 {
				t.Fatalf("only %d onsets", onsets)
			}
			if !last.HasTempo || last.Tempo != tt.want {
				t.Errorf("tempo = %+v, want %d", last, tt.want)
			}
		})
	}
}

func TestDetectorNeedsFourGaps(t *testing.T) {
	d := NewDetector(0)
	// onsets at 100, 600, 1100, 1600: three gaps
	_, last := pulses(d, 170, 100, 500)
	if last.HasTempo {
		t.Errorf("tempo reported with %d gaps", len(d.Beats()))
	}
	if len(d.Beats()) != 3 {
		t.Errorf("beats = %v, want 3 entries", d.Beats())
	}
}

func TestDetectorFirstReadingNeverOnset(t *testing.T) {
	d := NewDetector(0)
	if res := d.Process(ms(0), 1); res.Onset {
		t.Error("onset with empty history")
	}
}

func TestDetectorRefractory(t *testing.T) {
	d := NewDetector(0)
	d.Process(ms(0), 0)
	if !d.Process(ms(10), 0.9).Onset {
		t.Fatal("expected first onset")
	}
	// Quiet frames to pull the average down, then a spike 200ms later.
	for i := 2; i < 20; i++ {
		d.Process(ms(i*10), 0)
	}
	if d.Process(ms(210), 0.9).Onset {
		t.Error("onset inside refractory window")
	}
	if d.Process(ms(260), 0.9).Onset {
		t.Error("onset at exactly the refractory boundary")
	}
	for i := 27; i < 40; i++ {
		d.Process(ms(i*10), 0)
	}
	if !d.Process(ms(400), 0.9).Onset {
		t.Error("no onset after refractory window")
	}
}

func TestDetectorFloorAndRatio(t *testing.T) {
	d := NewDetector(0)
	for i := 0; i < 10; i++ {
		d.Process(ms(i*10), 0.01)
	}
	if d.Process(ms(100), 0.14).Onset {
		t.Error("onset below the energy floor")
	}

	d = NewDetector(0)
	for i := 0; i < 10; i++ {
		d.Process(ms(i*10), 0.5)
	}
	if d.Process(ms(100), 0.6).Onset {
		t.Error("onset below 1.3x local average")
	}
	if !d.Process(ms(110), 0.7).Onset {
		t.Error("no onset above 1.3x local average")
	}
}

func TestDetectorIgnoresLongGaps(t *testing.T) {
	d := NewDetector(0)
	// 2s spacing: every gap exceeds MaxBeatGap
	pulses(d, 1000, 100, 2000)
	if n := len(d.Beats()); n != 0 {
		t.Errorf("beats = %v, want none", d.Beats())
	}
}

func TestDetectorHistoryCaps(t *testing.T) {
	d := NewDetector(0)
	pulses(d, 1000, 100, 500)
	if len(d.Beats()) != BeatHistorySize {
		t.Errorf("beat history len = %d", len(d.Beats()))
	}
	if len(d.energies) != EnergyHistorySize {
		t.Errorf("energy history len = %d", len(d.energies))
	}

	d.Reset()
	if len(d.Beats()) != 0 || len(d.energies) != 0 || d.hasOnset {
		t.Error("Reset left state behind")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{120, 118, 240, 121}, 120.5},
		{[]float64{7}, 7},
	}
	for _, tt := range tests {
		if got := median(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
