package beat

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// Analysis defaults
const (
	DefaultFFTSize = 1024
	LowpassCutoff  = 150.0
	LowpassQ       = 0.707
	EnergyBins     = 8

	minDecibels = -100.0
	maxDecibels = -30.0
)

// EnergyMeter keeps the newest window of low-passed samples and reports
// its normalized low-band energy. Write and Energy may be called from
// different goroutines.
type EnergyMeter struct {
	mu     sync.Mutex
	filter *biquad.Section
	ring   []float64
	pos    int

	// analysis scratch, only touched under mu
	window  []float64
	buf     []float64
	spec    []complex128
	forward func(dst []complex128, src []float64)
}

// NewEnergyMeter creates a meter for audio at sampleRate with an FFT of
// size samples (DefaultFFTSize when <= 0).
func NewEnergyMeter(sampleRate, size int) (*EnergyMeter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if size <= 0 {
		size = DefaultFFTSize
	}
	if size < 2*EnergyBins {
		return nil, fmt.Errorf("fft size %d too small", size)
	}

	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	return &EnergyMeter{
		filter: biquad.NewSection(design.Lowpass(LowpassCutoff, LowpassQ, float64(sampleRate))),
		ring:   make([]float64, size),
		window: window.Generate(window.TypeHann, size),
		buf:    make([]float64, size),
		spec:   make([]complex128, size/2+1),
		forward: func(dst []complex128, src []float64) {
			plan.Forward(dst, src)
		},
	}, nil
}

// Size returns the analysis window length in samples
func (m *EnergyMeter) Size() int {
	return len(m.ring)
}

// Write appends captured samples
func (m *EnergyMeter) Write(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		m.push(float64(s))
	}
}

// WriteSamples appends decoded samples
func (m *EnergyMeter) WriteSamples(samples []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		m.push(s)
	}
}

func (m *EnergyMeter) push(s float64) {
	m.ring[m.pos] = dspcore.FlushDenormals(m.filter.ProcessSample(s))
	m.pos++
	if m.pos == len(m.ring) {
		m.pos = 0
	}
}

// Energy returns the mean normalized magnitude of the lowest bins of the
// newest window, in [0,1].
func (m *EnergyMeter) Energy() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.ring)
	for i := 0; i < n; i++ {
		m.buf[i] = m.ring[(m.pos+i)%n] * m.window[i]
	}
	m.forward(m.spec, m.buf)

	var sum float64
	for k := 0; k < EnergyBins; k++ {
		sum += normalizeMagnitude(cmplx.Abs(m.spec[k]) / float64(n))
	}
	return sum / EnergyBins
}

// Reset clears the window and filter state
func (m *EnergyMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.ring {
		m.ring[i] = 0
	}
	m.pos = 0
	m.filter.Reset()
}

// normalizeMagnitude maps a linear magnitude onto [0,1] over the
// [minDecibels, maxDecibels] range.
func normalizeMagnitude(mag float64) float64 {
	if mag <= 0 || math.IsNaN(mag) {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := (db - minDecibels) / (maxDecibels - minDecibels)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
