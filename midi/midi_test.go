package midi

import (
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"hue-beat/clock"
	"hue-beat/state"
)

func TestNoteMappingRoundTrip(t *testing.T) {
	for row := 0; row < GridSize; row++ {
		for col := 0; col <= SideCol; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Errorf("(%d,%d) -> note %d -> (%d,%d)", row, col, rowColToNote(row, col), r, c)
			}
		}
	}
	for col := 0; col < GridSize; col++ {
		if r, c := ccToRowCol(uint8(91 + col)); r != TopRow || c != col {
			t.Errorf("cc %d -> (%d,%d)", 91+col, r, c)
		}
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Error("note 5 mapped onto the grid")
	}
}

func TestRGBSysEx(t *testing.T) {
	msgs := rgbSysEx([]LEDUpdate{{Row: 0, Col: 0, Color: [3]uint8{255, 128, 2}}})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages", len(msgs))
	}
	want := []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x03, 0x03, 11, 127, 64, 1}
	if string(msgs[0]) != string(want) {
		t.Errorf("sysex = % x, want % x", msgs[0], want)
	}

	many := make([]LEDUpdate, 100)
	if got := len(rgbSysEx(many)); got != 2 {
		t.Errorf("100 updates split into %d messages, want 2", got)
	}
}

func TestMapRGBToLaunchpad(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{250, 5, 5}, 5},
		{[3]uint8{255, 255, 250}, 119},
		{[3]uint8{0, 240, 10}, 21},
	}
	for _, tt := range tests {
		if got := mapRGBToLaunchpad(tt.rgb); got != tt.want {
			t.Errorf("mapRGBToLaunchpad(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sendClock(f *ClockFollower, pulses int, bpm float64, start time.Time) time.Time {
	interval := time.Duration(float64(time.Minute) / bpm / PPQN)
	at := start
	for i := 0; i < pulses; i++ {
		f.MessageAt(StatusClock, at)
		at = at.Add(interval)
	}
	return at
}

func TestClockFollowerTempo(t *testing.T) {
	store := state.NewStore(state.DefaultParams())
	f := NewClockFollower(store, clock.NewManual(t0))

	sendClock(f, PPQN, 128, t0)
	if store.Tempo() != state.DefaultTempo || f.BPM() != 0 {
		t.Fatalf("tempo set before a full quarter note: %d", store.Tempo())
	}

	sendClock(f, PPQN*2, 128, t0.Add(time.Duration(PPQN)*time.Minute/128/PPQN))
	if store.Tempo() != 128 || f.BPM() != 128 {
		t.Errorf("tempo = %d bpm = %d, want 128", store.Tempo(), f.BPM())
	}
}

func TestClockFollowerResetsOnGap(t *testing.T) {
	store := state.NewStore(state.DefaultParams())
	f := NewClockFollower(store, clock.NewManual(t0))

	end := sendClock(f, PPQN, 90, t0)
	// one second of silence, then a fresh clock
	sendClock(f, PPQN, 90, end.Add(time.Second))
	if store.Tempo() != state.DefaultTempo {
		t.Errorf("tempo measured across a gap: %d", store.Tempo())
	}
}

func TestClockFollowerTransport(t *testing.T) {
	store := state.NewStore(state.DefaultParams())
	f := NewClockFollower(store, clock.NewManual(t0))

	f.Message(StatusStop)
	if store.Playing() {
		t.Error("still playing after stop")
	}
	f.Message(StatusContinue)
	if !store.Playing() {
		t.Error("not playing after continue")
	}
	f.Message(StatusStop)
	f.Message(StatusStart)
	if !store.Playing() {
		t.Error("not playing after start")
	}
}

func TestKeyboardRoutesNotesAndClock(t *testing.T) {
	store := state.NewStore(state.DefaultParams())
	store.SetPlaying(true)
	follower := NewClockFollower(store, clock.NewManual(t0))
	kb, err := NewKeyboardController("test", nil, follower)
	if err != nil {
		t.Fatal(err)
	}
	defer kb.Close()

	kb.handle(gomidi.NoteOn(0, 60, 100), 0)
	kb.handle(gomidi.NoteOn(0, 61, 0), 0) // note-off by velocity
	kb.handle(gomidi.Message{StatusStop}, 0)

	select {
	case ev := <-kb.NoteEvents():
		if ev.Note != 60 || ev.Velocity != 100 {
			t.Errorf("note event = %+v", ev)
		}
	default:
		t.Fatal("no note event")
	}
	select {
	case ev := <-kb.NoteEvents():
		t.Errorf("unexpected event %+v", ev)
	default:
	}
	if store.Playing() {
		t.Error("stop byte not forwarded to follower")
	}
}

type fakeController struct {
	batches [][]LEDUpdate
	fail    error
}

func (f *fakeController) ID() string                    { return "fake" }
func (f *fakeController) Type() ControllerType          { return ControllerLaunchpad }
func (f *fakeController) PadEvents() <-chan PadEvent    { return nil }
func (f *fakeController) NoteEvents() <-chan NoteEvent  { return nil }
func (f *fakeController) Close() error                  { return nil }
func (f *fakeController) SetLEDRGB(int, int, [3]uint8, uint8) error { return nil }
func (f *fakeController) SetLEDBatch(u []LEDUpdate) error {
	if f.fail != nil {
		return f.fail
	}
	f.batches = append(f.batches, append([]LEDUpdate(nil), u...))
	return nil
}

func TestLEDMirrorSendsOnlyChanges(t *testing.T) {
	frame := LEDFrame{Color: [3]uint8{255, 0, 0}, Mode: state.ModeFlow, Playing: true}
	lp := &fakeController{}
	var target Controller = lp
	m := NewLEDMirror(clock.NewManual(t0), func() LEDFrame { return frame }, func() Controller { return target })

	if n := m.Sync(); n != 80 {
		t.Errorf("first sync sent %d pads, want 80", n)
	}
	if n := m.Sync(); n != 0 {
		t.Errorf("unchanged frame sent %d pads", n)
	}

	frame.Flash = true
	if n := m.Sync(); n != GridSize {
		t.Errorf("flash sent %d pads, want %d side pads", n, GridSize)
	}
	for _, u := range lp.batches[len(lp.batches)-1] {
		if u.Col != SideCol || u.Color != colorWhite {
			t.Errorf("flash update %+v", u)
		}
	}

	frame.Mode = state.ModeStrobe
	if n := m.Sync(); n != 2 {
		t.Errorf("mode change sent %d pads, want 2", n)
	}

	// reconnect repaints everything
	target = &fakeController{}
	if n := m.Sync(); n != 80 {
		t.Errorf("new device got %d pads", n)
	}

	target = nil
	if n := m.Sync(); n != 0 {
		t.Errorf("no device but sent %d", n)
	}
}

func TestLEDMirrorRetriesAfterFailure(t *testing.T) {
	lp := &fakeController{fail: errors.New("unplugged")}
	m := NewLEDMirror(clock.NewManual(t0), func() LEDFrame { return LEDFrame{} }, func() Controller { return lp })

	if n := m.Sync(); n != 0 {
		t.Errorf("failed send reported %d", n)
	}
	lp.fail = nil
	if n := m.Sync(); n != 80 {
		t.Errorf("retry sent %d pads, want 80", n)
	}
}

func TestPadHelpers(t *testing.T) {
	if m, ok := PadMode(PadEvent{Row: TopRow, Col: 2}); !ok || m != state.ModeStrobe {
		t.Errorf("PadMode top/2 = %v %v", m, ok)
	}
	if _, ok := PadMode(PadEvent{Row: 3, Col: 2}); ok {
		t.Error("grid pad selected a mode")
	}
	if !IsTapPad(PadEvent{Row: 4, Col: 4}) || !IsTapPad(PadEvent{Row: TopRow, Col: padTap}) {
		t.Error("tap pads not recognised")
	}
	if IsTapPad(PadEvent{Row: TopRow, Col: padListen}) || !IsListenPad(PadEvent{Row: TopRow, Col: padListen}) {
		t.Error("listen pad misclassified")
	}
	if !IsPlayPad(PadEvent{Row: TopRow, Col: padPlay}) {
		t.Error("play pad not recognised")
	}
}

func TestTopRowColors(t *testing.T) {
	row := TopRowColors(LEDFrame{Mode: state.ModeStep, Playing: false, Listening: true})
	if len(row) != GridSize {
		t.Fatalf("got %d pads", len(row))
	}
	if row[padModeStep] != colorAmber || row[padModeFlow] != colorDim {
		t.Errorf("mode pads = %v %v", row[padModeFlow], row[padModeStep])
	}
	if row[padPlay] != colorRed || row[padListen] != colorListen || row[3] != colorOff {
		t.Errorf("status pads = %v", row)
	}
	if TopRowLabels[padTap] != "TAP" || TopRowLabels[3] != "" {
		t.Errorf("labels = %q", TopRowLabels)
	}
}

func TestClassify(t *testing.T) {
	dm := NewDeviceManager(clock.NewManual(t0), ManagerOptions{Keyboards: true, InputFilter: "keystep"})
	tests := []struct {
		name string
		want ControllerType
	}{
		{"Launchpad X LPX MIDI", ControllerLaunchpad},
		{"Launchpad X LPX DAW", ControllerUnknown},
		{"Arturia KeyStep 32", ControllerKeyboard},
		{"Midi Through Port-0", ControllerUnknown},
		{"Some Synth", ControllerUnknown},
	}
	for _, tt := range tests {
		if got := dm.classify(tt.name); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	off := NewDeviceManager(clock.NewManual(t0), ManagerOptions{})
	if got := off.classify("Arturia KeyStep 32"); got != ControllerUnknown {
		t.Errorf("keyboards disabled but classified as %v", got)
	}
}
