package audio

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// ReadWAV decodes a WAV file to mono samples in [-1,1]. When targetRate
// is positive the result is resampled to it.
func ReadWAV(path string, targetRate int) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	mono, err := mixdown(buf.Data, buf.Format.NumChannels, buf.SourceBitDepth)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	rate := buf.Format.SampleRate
	if targetRate > 0 && targetRate != rate {
		mono, err = resample(mono, rate, targetRate)
		if err != nil {
			return nil, 0, fmt.Errorf("resample %d -> %d: %w", rate, targetRate, err)
		}
		rate = targetRate
	}
	return mono, rate, nil
}

// WriteWAV writes mono samples as 16-bit PCM
func WriteWAV(path string, samples []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.Float32Buffer{
		Format: &goaudio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return enc.Close()
}

// mixdown averages interleaved channels into [-1,1]. Integer PCM is
// scaled by its source bit depth.
func mixdown(data any, channels, bitDepth int) ([]float64, error) {
	switch d := data.(type) {
	case []int:
		if bitDepth <= 0 {
			bitDepth = 16
		}
		scale := float64(int64(1) << (bitDepth - 1))
		return mix(d, channels, scale), nil
	case []float32:
		return mix(d, channels, 1), nil
	case []float64:
		return mix(d, channels, 1), nil
	default:
		return nil, fmt.Errorf("unsupported pcm buffer %T", data)
	}
}

func mix[T int | float32 | float64](data []T, channels int, scale float64) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

func resample(in []float64, fromRate, toRate int) ([]float64, error) {
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}
