package display

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"hue-beat/animation"
	"hue-beat/clock"
	"hue-beat/controls"
	"hue-beat/state"
)

type failingListener struct{}

func (failingListener) Toggle() error { return errors.New("no input device") }

func newWindow() (*Window, *state.Store) {
	store := state.NewStore(state.DefaultParams())
	loop := animation.NewLoop(clock.NewManual(time.Unix(0, 0)), animation.NewAnimator(store, nil), 60)
	d := &controls.Dispatcher{Store: store, Listener: failingListener{}}
	return NewWindow(loop, d, nil, 320, 240), store
}

func TestKeyNamesMatchControls(t *testing.T) {
	for k, name := range keyNames {
		if controls.KeyCommand(name).Action == controls.ActionNone {
			t.Errorf("key %v maps to %q which controls ignores", k, name)
		}
	}
	if keyName(ebiten.KeyZ) != "" {
		t.Error("unmapped key has a name")
	}
}

func TestHandle(t *testing.T) {
	w, store := newWindow()

	for _, name := range []string{" ", "up", "s", "4"} {
		if err := w.handle(name); err != nil {
			t.Fatalf("handle(%q) = %v", name, err)
		}
	}
	p := store.Params()
	if p.Playing || p.Tempo != 121 || p.Mode != state.ModeStep || p.Multiplier != 2 {
		t.Errorf("params = %+v", p)
	}

	w.handle("h")
	if w.hud {
		t.Error("h did not hide the HUD")
	}

	w.handle("l")
	if !strings.Contains(w.status(w.frames.Snapshot()), "no input device") {
		t.Error("listen failure not in status")
	}
	if !strings.Contains(w.status(w.frames.Snapshot()), "paused") {
		t.Error("paused state not in status")
	}

	if err := w.handle("q"); !errors.Is(err, ebiten.Termination) {
		t.Errorf("q -> %v", err)
	}
	if err := w.handle(""); err != nil {
		t.Errorf("empty key -> %v", err)
	}
}
