package midi

import (
	"context"

	"hue-beat/clock"
	"hue-beat/debug"
	"hue-beat/state"
)

// MirrorFPS is the Launchpad refresh rate; the USB link can't keep up
// with a full 81-pad repaint at display rate.
const MirrorFPS = 30

// LEDFrame is everything the Launchpad shows
type LEDFrame struct {
	Color     [3]uint8 // current animation color
	Flash     bool     // beat estimator onset
	Mode      state.Mode
	Playing   bool
	Listening bool
}

// Top row layout
const (
	padModeFlow   = 0
	padModeStep   = 1
	padModeStrobe = 2
	padPlay       = 5
	padTap        = 6
	padListen     = 7
)

var (
	colorOff    = [3]uint8{0, 0, 0}
	colorWhite  = [3]uint8{255, 255, 255}
	colorDim    = [3]uint8{40, 40, 40}
	colorGreen  = [3]uint8{0, 255, 0}
	colorRed    = [3]uint8{255, 0, 0}
	colorAmber  = [3]uint8{255, 140, 0}
	colorListen = [3]uint8{0, 120, 255}
)

type ledKey struct{ row, col int }

// LEDMirror paints the animation onto a Launchpad, sending only the pads
// that changed since the last frame.
type LEDMirror struct {
	clock  clock.Clock
	source func() LEDFrame
	target func() Controller

	current Controller
	last    map[ledKey][3]uint8
}

// NewLEDMirror creates a mirror that reads frames from source and paints
// whatever controller target returns (nil when none is connected).
func NewLEDMirror(c clock.Clock, source func() LEDFrame, target func() Controller) *LEDMirror {
	return &LEDMirror{
		clock:  c,
		source: source,
		target: target,
		last:   make(map[ledKey][3]uint8),
	}
}

// Run repaints at MirrorFPS until ctx is done
func (m *LEDMirror) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(clock.FrameInterval(MirrorFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.Sync()
		}
	}
}

// Sync paints one frame and returns the number of pads sent
func (m *LEDMirror) Sync() int {
	c := m.target()
	if c == nil {
		m.current = nil
		return 0
	}
	if c != m.current {
		// New or reconnected device: repaint everything
		m.current = c
		clear(m.last)
	}

	want := render(m.source())
	var updates []LEDUpdate
	for key, color := range want {
		if prev, ok := m.last[key]; ok && prev == color {
			continue
		}
		updates = append(updates, LEDUpdate{Row: key.row, Col: key.col, Color: color})
	}
	if len(updates) == 0 {
		return 0
	}

	if err := c.SetLEDBatch(updates); err != nil {
		debug.Log("mirror", "send failed: %v", err)
		clear(m.last)
		return 0
	}
	for _, u := range updates {
		m.last[ledKey{u.Row, u.Col}] = u.Color
	}
	debug.LogEvery(100, "mirror", "sent %d pads", len(updates))
	return len(updates)
}

// render computes the full pad layout for a frame. The side column lights
// on onsets and the top row is a status strip.
func render(f LEDFrame) map[ledKey][3]uint8 {
	out := make(map[ledKey][3]uint8, 9*9-1)
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			out[ledKey{row, col}] = f.Color
		}
		side := colorOff
		if f.Flash {
			side = colorWhite
		}
		out[ledKey{row, SideCol}] = side
	}

	for col := 0; col < GridSize; col++ {
		out[ledKey{TopRow, col}] = colorOff
	}
	modes := map[state.Mode]int{
		state.ModeFlow:   padModeFlow,
		state.ModeStep:   padModeStep,
		state.ModeStrobe: padModeStrobe,
	}
	for mode, col := range modes {
		if mode == f.Mode {
			out[ledKey{TopRow, col}] = colorAmber
		} else {
			out[ledKey{TopRow, col}] = colorDim
		}
	}
	if f.Playing {
		out[ledKey{TopRow, padPlay}] = colorGreen
	} else {
		out[ledKey{TopRow, padPlay}] = colorRed
	}
	out[ledKey{TopRow, padTap}] = colorDim
	if f.Listening {
		out[ledKey{TopRow, padListen}] = colorListen
	} else {
		out[ledKey{TopRow, padListen}] = colorDim
	}
	return out
}

// TopRowLabels names the status strip pads, left to right
var TopRowLabels = [GridSize]string{
	padModeFlow:   "FLOW",
	padModeStep:   "STEP",
	padModeStrobe: "STROBE",
	padPlay:       "PLAY",
	padTap:        "TAP",
	padListen:     "LISTEN",
}

// TopRowColors returns the status strip a frame paints
func TopRowColors(f LEDFrame) [][3]uint8 {
	leds := render(f)
	out := make([][3]uint8, GridSize)
	for col := range out {
		out[col] = leds[ledKey{TopRow, col}]
	}
	return out
}

// PadMode returns the mode selected by a top-row pad
func PadMode(ev PadEvent) (state.Mode, bool) {
	if ev.Row != TopRow {
		return 0, false
	}
	switch ev.Col {
	case padModeFlow:
		return state.ModeFlow, true
	case padModeStep:
		return state.ModeStep, true
	case padModeStrobe:
		return state.ModeStrobe, true
	}
	return 0, false
}

func IsPlayPad(ev PadEvent) bool   { return ev.Row == TopRow && ev.Col == padPlay }
func IsListenPad(ev PadEvent) bool { return ev.Row == TopRow && ev.Col == padListen }

// IsTapPad is true for the tap button and for any grid or side pad
func IsTapPad(ev PadEvent) bool {
	return ev.Row != TopRow || ev.Col == padTap
}
