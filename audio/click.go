package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Click sound shape
const (
	clickFreq  = 1000.0
	clickDecay = 0.008 // seconds
	clickLen   = 40 * time.Millisecond
	clickGain  = 0.5
)

// Click plays a short blip on each Trigger, used to audition detected
// onsets.
type Click struct {
	ctx    *oto.Context
	player *oto.Player
	stream *clickStream
}

// NewClick opens the default output device
func NewClick(sampleRate int) (*Click, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	stream := newClickStream(sampleRate)
	player := ctx.NewPlayer(stream)
	player.Play()
	return &Click{ctx: ctx, player: player, stream: stream}, nil
}

// Trigger queues one click
func (c *Click) Trigger() {
	c.stream.trigger()
}

func (c *Click) Close() error {
	return c.player.Close()
}

// clickStream is an endless mono float32 reader: silence, with a decaying
// sine burst after each trigger.
type clickStream struct {
	rate    float64
	length  int
	pending atomic.Bool
	pos     int // -1 when idle; only touched by the reader
}

func newClickStream(rate int) *clickStream {
	return &clickStream{
		rate:   float64(rate),
		length: int(clickLen.Seconds() * float64(rate)),
		pos:    -1,
	}
}

func (s *clickStream) trigger() {
	s.pending.Store(true)
}

func (s *clickStream) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s.next()))
	}
	return n * 4, nil
}

func (s *clickStream) next() float32 {
	if s.pending.Swap(false) {
		s.pos = 0
	}
	if s.pos < 0 {
		return 0
	}
	t := float64(s.pos) / s.rate
	v := clickGain * math.Sin(2*math.Pi*clickFreq*t) * math.Exp(-t/clickDecay)
	s.pos++
	if s.pos >= s.length {
		s.pos = -1
	}
	return float32(v)
}
