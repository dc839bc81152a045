// Package display shows the animation color in a window. It shares the
// key map with the terminal panel.
package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"hue-beat/animation"
	"hue-beat/controls"
	"hue-beat/debug"
	"hue-beat/state"
)

const flashSize = 24

var keyNames = map[ebiten.Key]string{
	ebiten.KeySpace:        " ",
	ebiten.KeyArrowUp:      "up",
	ebiten.KeyArrowDown:    "down",
	ebiten.KeyBracketLeft:  "[",
	ebiten.KeyBracketRight: "]",
	ebiten.KeyT:            "t",
	ebiten.KeyL:            "l",
	ebiten.KeyM:            "m",
	ebiten.KeyF:            "f",
	ebiten.KeyS:            "s",
	ebiten.KeyX:            "x",
	ebiten.KeyDigit1:       "1",
	ebiten.KeyDigit2:       "2",
	ebiten.KeyDigit3:       "3",
	ebiten.KeyDigit4:       "4",
	ebiten.KeyDigit5:       "5",
	ebiten.KeyC:            "c",
	ebiten.KeyH:            "h",
	ebiten.KeyEnter:        "enter",
	ebiten.KeyQ:            "q",
	ebiten.KeyEscape:       "esc",
}

// keyName maps an ebiten key to the terminal key name controls expects
func keyName(k ebiten.Key) string {
	return keyNames[k]
}

// Window is an ebiten game that fills the screen with the current color
type Window struct {
	frames     *animation.Loop
	dispatcher *controls.Dispatcher
	flash      func() bool

	width, height int
	hud           bool
	err           error
	keys          []ebiten.Key
}

// NewWindow creates a window of the given size. flash may be nil.
func NewWindow(frames *animation.Loop, d *controls.Dispatcher, flash func() bool, width, height int) *Window {
	if flash == nil {
		flash = func() bool { return false }
	}
	return &Window{
		frames:     frames,
		dispatcher: d,
		flash:      flash,
		width:      width,
		height:     height,
		hud:        true,
	}
}

// Run blocks until the window is closed or a quit key is pressed
func (w *Window) Run() error {
	ebiten.SetWindowSize(w.width, w.height)
	ebiten.SetWindowTitle("hue-beat")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	debug.Log("display", "window %dx%d", w.width, w.height)
	return ebiten.RunGame(w)
}

func (w *Window) Update() error {
	w.keys = inpututil.AppendJustPressedKeys(w.keys[:0])
	for _, k := range w.keys {
		if err := w.handle(keyName(k)); err != nil {
			return err
		}
	}
	return nil
}

// handle applies one key; ebiten.Termination ends the game loop
func (w *Window) handle(name string) error {
	if name == "" {
		return nil
	}
	out, err := w.dispatcher.HandleKey(name)
	switch out {
	case controls.Quit:
		return ebiten.Termination
	case controls.ToggleHidden:
		w.hud = !w.hud
	case controls.Handled:
		w.err = err
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	snap := w.frames.Snapshot()
	screen.Fill(snap.Color())

	bounds := screen.Bounds()
	if w.flash() {
		r := image.Rect(bounds.Max.X-flashSize-8, 8, bounds.Max.X-8, 8+flashSize)
		screen.SubImage(r).(*ebiten.Image).Fill(color.White)
	}

	if w.hud {
		ebitenutil.DebugPrintAt(screen, w.status(snap), 8, 8)
	}
}

func (w *Window) status(snap animation.Snapshot) string {
	p := w.dispatcher.Store.Params()
	line := fmt.Sprintf("%d bpm  %s %s %s  hue %3.0f",
		p.Tempo, p.Mode, p.Multiplier.Label(), state.HueStepLabel(p.HueStep), snap.Hue)
	if !p.Playing {
		line += "  paused"
	}
	if w.err != nil {
		line += "\n" + w.err.Error()
	}
	return line
}

func (w *Window) Layout(outsideW, outsideH int) (int, int) {
	return outsideW, outsideH
}
