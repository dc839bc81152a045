package audio

import "math"

// Metronome renders a click track of low sine bursts at bpm, starting a
// quarter second in. Used to exercise the detector without a microphone.
func Metronome(bpm int, seconds float64, sampleRate int) []float32 {
	if bpm <= 0 || seconds <= 0 || sampleRate <= 0 {
		return nil
	}
	out := make([]float32, int(seconds*float64(sampleRate)))
	period := int(60 / float64(bpm) * float64(sampleRate))
	burst := sampleRate / 60

	for start := sampleRate / 4; start < len(out); start += period {
		for i := 0; i < burst && start+i < len(out); i++ {
			t := float64(i) / float64(sampleRate)
			out[start+i] = float32(0.9 * math.Sin(2*math.Pi*60*t))
		}
	}
	return out
}
