package controls

import (
	"errors"
	"testing"

	"hue-beat/midi"
	"hue-beat/state"
)

type countingTapper struct{ n int }

func (c *countingTapper) Tap() (int, bool) {
	c.n++
	return 0, false
}

type fakeListener struct {
	on  bool
	err error
}

func (f *fakeListener) Toggle() error {
	if f.err != nil {
		return f.err
	}
	f.on = !f.on
	return nil
}

func newDispatcher() (*Dispatcher, *countingTapper, *fakeListener) {
	tp := &countingTapper{}
	ls := &fakeListener{}
	return &Dispatcher{Store: state.NewStore(state.DefaultParams()), Tapper: tp, Listener: ls}, tp, ls
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		key   string
		check func(state.Params) bool
	}{
		{" ", func(p state.Params) bool { return !p.Playing }},
		{"space", func(p state.Params) bool { return !p.Playing }},
		{"up", func(p state.Params) bool { return p.Tempo == 121 }},
		{"down", func(p state.Params) bool { return p.Tempo == 119 }},
		{"[", func(p state.Params) bool { return p.Tempo == 60 }},
		{"]", func(p state.Params) bool { return p.Tempo == 240 }},
		{"m", func(p state.Params) bool { return p.Mode == state.ModeStep }},
		{"x", func(p state.Params) bool { return p.Mode == state.ModeStrobe }},
		{"1", func(p state.Params) bool { return p.Multiplier == 0.25 }},
		{"5", func(p state.Params) bool { return p.Multiplier == 4 }},
		{"c", func(p state.Params) bool { return p.HueStep == 180 }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			d, _, _ := newDispatcher()
			out, err := d.HandleKey(tt.key)
			if err != nil || out != Handled {
				t.Fatalf("HandleKey(%q) = %v, %v", tt.key, out, err)
			}
			if p := d.Store.Params(); !tt.check(p) {
				t.Errorf("params after %q: %+v", tt.key, p)
			}
		})
	}
}

func TestHandleKeyOutcomes(t *testing.T) {
	d, tp, ls := newDispatcher()

	if out, _ := d.HandleKey("q"); out != Quit {
		t.Errorf("q -> %v", out)
	}
	if out, _ := d.HandleKey("ctrl+c"); out != Quit {
		t.Errorf("ctrl+c -> %v", out)
	}
	if out, _ := d.HandleKey("h"); out != ToggleHidden {
		t.Errorf("h -> %v", out)
	}
	if out, _ := d.HandleKey("z"); out != Ignored {
		t.Errorf("z -> %v", out)
	}

	d.HandleKey("t")
	d.HandleKey("t")
	if tp.n != 2 {
		t.Errorf("taps = %d", tp.n)
	}

	d.HandleKey("l")
	if !ls.on {
		t.Error("l did not toggle listening")
	}

	d.Store.SetTempo(0)
	d.HandleKey("enter")
	if d.Store.Tempo() != state.DefaultTempo {
		t.Errorf("enter committed %d", d.Store.Tempo())
	}
}

func TestListenFailureSurfaces(t *testing.T) {
	d, _, ls := newDispatcher()
	ls.err = errors.New("no mic")
	out, err := d.HandleKey("l")
	if out != Handled || !errors.Is(err, ls.err) {
		t.Errorf("HandleKey(l) = %v, %v", out, err)
	}

	d.Listener = nil
	if out, err := d.HandleKey("l"); out != Handled || err != nil {
		t.Errorf("no listener: %v, %v", out, err)
	}
}

func TestHandlePad(t *testing.T) {
	d, tp, ls := newDispatcher()

	d.HandlePad(midi.PadEvent{Row: 2, Col: 5})
	d.HandlePad(midi.PadEvent{Row: 0, Col: midi.SideCol})
	if tp.n != 2 {
		t.Errorf("grid presses tapped %d times", tp.n)
	}

	d.HandlePad(midi.PadEvent{Row: midi.TopRow, Col: 1})
	if d.Store.Mode() != state.ModeStep {
		t.Errorf("mode pad -> %v", d.Store.Mode())
	}
	d.HandlePad(midi.PadEvent{Row: midi.TopRow, Col: 5})
	if d.Store.Playing() {
		t.Error("play pad did not pause")
	}
	d.HandlePad(midi.PadEvent{Row: midi.TopRow, Col: 7})
	if !ls.on {
		t.Error("listen pad did not toggle")
	}
	if out, _ := d.HandlePad(midi.PadEvent{Row: midi.TopRow, Col: 3}); out != Ignored {
		t.Errorf("unused pad -> %v", out)
	}
}

type chanController struct {
	pads  chan midi.PadEvent
	notes chan midi.NoteEvent
}

func (c *chanController) ID() string                                { return "test" }
func (c *chanController) Type() midi.ControllerType                 { return midi.ControllerLaunchpad }
func (c *chanController) PadEvents() <-chan midi.PadEvent           { return c.pads }
func (c *chanController) NoteEvents() <-chan midi.NoteEvent         { return c.notes }
func (c *chanController) SetLEDRGB(int, int, [3]uint8, uint8) error { return nil }
func (c *chanController) SetLEDBatch([]midi.LEDUpdate) error        { return nil }
func (c *chanController) Close() error                              { return nil }

func TestServeRoutesUntilClosed(t *testing.T) {
	d, tp, ls := newDispatcher()
	ls.err = errors.New("busy")
	c := &chanController{pads: make(chan midi.PadEvent), notes: make(chan midi.NoteEvent)}

	var errs []error
	done := make(chan struct{})
	go func() {
		d.Serve(c, func(err error) { errs = append(errs, err) })
		close(done)
	}()

	c.pads <- midi.PadEvent{Row: 3, Col: 3}
	c.notes <- midi.NoteEvent{Note: 60, Velocity: 100}
	c.pads <- midi.PadEvent{Row: midi.TopRow, Col: 2}
	c.pads <- midi.PadEvent{Row: midi.TopRow, Col: 7}
	close(c.pads)
	c.notes <- midi.NoteEvent{Note: 62, Velocity: 90}
	close(c.notes)
	<-done

	if tp.n != 3 {
		t.Errorf("taps = %d, want 3", tp.n)
	}
	if d.Store.Mode() != state.ModeStrobe {
		t.Errorf("mode = %v", d.Store.Mode())
	}
	if len(errs) != 1 || !errors.Is(errs[0], ls.err) {
		t.Errorf("errors = %v", errs)
	}
}
