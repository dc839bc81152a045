package beat

import (
	"fmt"
	"time"
)

// Analysis is the result of running the detector over a recording
type Analysis struct {
	Onsets   []time.Duration // offsets from the start of the recording
	Tempo    int
	HasTempo bool
	Frames   int
	Peak     float64 // highest energy reading
}

// AnalyzeOptions tune Analyze. Zero values pick the live defaults.
type AnalyzeOptions struct {
	FFTSize     int
	EnergyFloor float64
	FPS         int
}

// Analyze runs the live pipeline over decoded mono samples, taking one
// reading per frame as if polled at FPS.
func Analyze(samples []float64, sampleRate int, opts AnalyzeOptions) (Analysis, error) {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	meter, err := NewEnergyMeter(sampleRate, opts.FFTSize)
	if err != nil {
		return Analysis{}, err
	}
	hop := sampleRate / opts.FPS
	if hop < 1 {
		return Analysis{}, fmt.Errorf("sample rate %d too low for %d fps", sampleRate, opts.FPS)
	}

	det := NewDetector(opts.EnergyFloor)
	var (
		out   Analysis
		start time.Time
	)
	for pos := 0; pos+hop <= len(samples); pos += hop {
		meter.WriteSamples(samples[pos : pos+hop])
		offset := time.Duration(float64(pos+hop) / float64(sampleRate) * float64(time.Second))

		energy := meter.Energy()
		if energy > out.Peak {
			out.Peak = energy
		}
		res := det.Process(start.Add(offset), energy)
		out.Frames++
		if res.Onset {
			out.Onsets = append(out.Onsets, offset)
		}
		if res.HasTempo {
			out.Tempo = res.Tempo
			out.HasTempo = true
		}
	}
	return out, nil
}
