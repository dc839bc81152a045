package beat

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

func sine(n, rate int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestEnergyMeterSilenceIsZero(t *testing.T) {
	m, err := NewEnergyMeter(48000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Size() != DefaultFFTSize {
		t.Errorf("size = %d", m.Size())
	}
	m.Write(make([]float32, 4096))
	if e := m.Energy(); e != 0 {
		t.Errorf("silence energy = %v", e)
	}
}

func TestEnergyMeterFavoursLowBand(t *testing.T) {
	low, _ := NewEnergyMeter(48000, 0)
	low.Write(sine(4096, 48000, 60, 0.9))
	lowE := low.Energy()

	high, _ := NewEnergyMeter(48000, 0)
	high.Write(sine(4096, 48000, 5000, 0.9))
	highE := high.Energy()

	if lowE < 0.4 || lowE > 1 {
		t.Errorf("60Hz energy = %v, want a strong reading", lowE)
	}
	if highE > 0.2 {
		t.Errorf("5kHz energy = %v, want near zero", highE)
	}

	low.Reset()
	if e := low.Energy(); e != 0 {
		t.Errorf("energy after reset = %v", e)
	}
}

func TestEnergyMeterFilterResponse(t *testing.T) {
	tests := []struct {
		freq     float64
		min, max float64
	}{
		{30, 0.95, 1.1},
		{LowpassCutoff, 0.65, 0.76},
		{2000, 0, 0.02},
	}
	for _, tt := range tests {
		m, err := NewEnergyMeter(48000, 0)
		if err != nil {
			t.Fatal(err)
		}
		// steady-state peak over the last 100ms of a 1s tone
		var peak float64
		for i, s := range sine(48000, 48000, tt.freq, 1) {
			y := m.filter.ProcessSample(float64(s))
			if i >= 43200 {
				peak = math.Max(peak, math.Abs(y))
			}
		}
		if peak < tt.min || peak > tt.max {
			t.Errorf("gain at %vHz = %.3f, want [%v, %v]", tt.freq, peak, tt.min, tt.max)
		}
	}
}

func TestEnergyMeterWindowAndReset(t *testing.T) {
	m, _ := NewEnergyMeter(48000, 256)
	want := window.Generate(window.TypeHann, 256)
	for i := range want {
		if m.window[i] != want[i] {
			t.Fatalf("window[%d] = %v, want %v", i, m.window[i], want[i])
		}
	}
	if m.window[0] != 0 || m.window[255] != 0 {
		t.Errorf("window edges = %v, %v", m.window[0], m.window[255])
	}

	m.Write(sine(4096, 48000, 60, 0.9))
	if m.filter.State() == [2]float64{} {
		t.Fatal("filter idle after a loud tone")
	}
	m.Reset()
	if m.filter.State() != [2]float64{} {
		t.Errorf("filter state after reset = %v", m.filter.State())
	}
	m.Write(make([]float32, 256))
	if e := m.Energy(); e != 0 {
		t.Errorf("silence after reset = %v", e)
	}
}

func TestNewEnergyMeterRejectsBadInput(t *testing.T) {
	if _, err := NewEnergyMeter(0, 1024); err == nil {
		t.Error("accepted zero sample rate")
	}
	if _, err := NewEnergyMeter(48000, 8); err == nil {
		t.Error("accepted tiny fft")
	}
}

func TestNormalizeMagnitude(t *testing.T) {
	tests := []struct {
		mag, want float64
	}{
		{0, 0},
		{1e-6, 0},
		{math.Pow(10, -65.0/20), 0.5},
		{1e-1, 1},
	}
	for _, tt := range tests {
		if got := normalizeMagnitude(tt.mag); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeMagnitude(%g) = %v, want %v", tt.mag, got, tt.want)
		}
	}
}

func TestAnalyzeFindsTempo(t *testing.T) {
	const rate = 48000
	samples := make([]float64, 4*rate)
	// 800-sample bursts every half second from 0.25s
	for start := rate / 4; start+800 <= len(samples); start += rate / 2 {
		for i, s := range sine(800, rate, 60, 0.9) {
			samples[start+i] = float64(s)
		}
	}

	got, err := Analyze(samples, rate, AnalyzeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Onsets) < 5 {
		t.Fatalf("onsets = %v", got.Onsets)
	}
	if !got.HasTempo || got.Tempo != 120 {
		t.Errorf("tempo = %d (has=%v), want 120", got.Tempo, got.HasTempo)
	}
	if got.Frames != 4*60 {
		t.Errorf("frames = %d", got.Frames)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	got, err := Analyze(make([]float64, 48000), 48000, AnalyzeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Onsets) != 0 || got.HasTempo || got.Peak != 0 {
		t.Errorf("silence analysis = %+v", got)
	}
}
