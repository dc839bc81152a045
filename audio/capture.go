// Package audio connects the beat estimator to real devices and files.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"hue-beat/debug"
)

// DefaultSampleRate is requested from capture devices when none is configured
const DefaultSampleRate = 48000

// Capture opens a microphone through miniaudio
type Capture struct {
	device     string // substring of the device name; empty picks the default
	sampleRate int
}

// NewCapture creates a capture source. Nothing is opened until Open.
func NewCapture(device string, sampleRate int) *Capture {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Capture{device: device, sampleRate: sampleRate}
}

func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// Open starts a mono float32 capture stream. Everything created is torn
// down again if a later step fails.
func (c *Capture) Open(onSamples func([]float32)) (io.Closer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		debug.Log("audio", "%s", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	freeCtx := func() {
		_ = ctx.Uninit()
		ctx.Free()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(c.sampleRate)
	cfg.Alsa.NoMMap = 1

	if c.device != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			freeCtx()
			return nil, fmt.Errorf("list capture devices: %w", err)
		}
		found := false
		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(c.device)) {
				cfg.Capture.DeviceID = info.ID.Pointer()
				found = true
				debug.Log("audio", "using capture device %q", info.Name())
				break
			}
		}
		if !found {
			freeCtx()
			return nil, fmt.Errorf("no capture device matching %q", c.device)
		}
	}

	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frames uint32) {
			scratch = decodeF32(input, scratch)
			onSamples(scratch)
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		freeCtx()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeCtx()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	debug.Log("audio", "capture started at %d Hz", c.sampleRate)
	return &captureStream{dev: dev, free: freeCtx}, nil
}

// Devices lists capture device names
func Devices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

type captureStream struct {
	once sync.Once
	dev  *malgo.Device
	free func()
}

func (s *captureStream) Close() error {
	s.once.Do(func() {
		_ = s.dev.Stop()
		s.dev.Uninit()
		s.free()
		debug.Log("audio", "capture closed")
	})
	return nil
}

// decodeF32 converts little-endian float32 bytes, reusing dst
func decodeF32(in []byte, dst []float32) []float32 {
	n := len(in) / 4
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	return dst
}
