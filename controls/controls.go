// Package controls maps keys and pads onto parameter changes. The
// terminal UI and the window share it so both respond identically.
package controls

import (
	"hue-beat/debug"
	"hue-beat/midi"
	"hue-beat/state"
)

// Action is one user intent
type Action int

const (
	ActionNone Action = iota
	ActionTogglePlay
	ActionTempoUp
	ActionTempoDown
	ActionHalve
	ActionDouble
	ActionTap
	ActionToggleListen
	ActionCycleMode
	ActionSetMode
	ActionSetMultiplier
	ActionCycleHueStep
	ActionToggleHidden
	ActionCommitTempo
	ActionQuit
)

// Command is an Action with its argument
type Command struct {
	Action     Action
	Mode       state.Mode
	Multiplier state.Multiplier
}

var keyCommands = map[string]Command{
	" ":      {Action: ActionTogglePlay},
	"space":  {Action: ActionTogglePlay},
	"up":     {Action: ActionTempoUp},
	"down":   {Action: ActionTempoDown},
	"[":      {Action: ActionHalve},
	"]":      {Action: ActionDouble},
	"t":      {Action: ActionTap},
	"l":      {Action: ActionToggleListen},
	"m":      {Action: ActionCycleMode},
	"f":      {Action: ActionSetMode, Mode: state.ModeFlow},
	"s":      {Action: ActionSetMode, Mode: state.ModeStep},
	"x":      {Action: ActionSetMode, Mode: state.ModeStrobe},
	"1":      {Action: ActionSetMultiplier, Multiplier: 0.25},
	"2":      {Action: ActionSetMultiplier, Multiplier: 0.5},
	"3":      {Action: ActionSetMultiplier, Multiplier: 1},
	"4":      {Action: ActionSetMultiplier, Multiplier: 2},
	"5":      {Action: ActionSetMultiplier, Multiplier: 4},
	"c":      {Action: ActionCycleHueStep},
	"h":      {Action: ActionToggleHidden},
	"enter":  {Action: ActionCommitTempo},
	"q":      {Action: ActionQuit},
	"ctrl+c": {Action: ActionQuit},
	"esc":    {Action: ActionQuit},
}

// KeyCommand looks up a key by its bubbletea name
func KeyCommand(key string) Command {
	return keyCommands[key]
}

// PadCommand maps a Launchpad press
func PadCommand(ev midi.PadEvent) Command {
	if m, ok := midi.PadMode(ev); ok {
		return Command{Action: ActionSetMode, Mode: m}
	}
	switch {
	case midi.IsPlayPad(ev):
		return Command{Action: ActionTogglePlay}
	case midi.IsListenPad(ev):
		return Command{Action: ActionToggleListen}
	case midi.IsTapPad(ev):
		return Command{Action: ActionTap}
	}
	return Command{}
}

// Tapper records a manual tap
type Tapper interface {
	Tap() (bpm int, ok bool)
}

// Listener is the microphone estimator's toggle
type Listener interface {
	Toggle() error
}

// Outcome tells the caller what else to do after Apply
type Outcome int

const (
	Ignored Outcome = iota
	Handled
	Quit
	ToggleHidden
)

// Dispatcher applies commands to the store and estimators
type Dispatcher struct {
	Store    *state.Store
	Tapper   Tapper
	Listener Listener // may be nil when no microphone is configured
}

// Apply performs cmd. err is non-nil only when toggling the microphone
// failed; the outcome is still Handled.
func (d *Dispatcher) Apply(cmd Command) (Outcome, error) {
	s := d.Store
	switch cmd.Action {
	case ActionTogglePlay:
		s.TogglePlaying()
	case ActionTempoUp:
		s.NudgeTempo(1)
	case ActionTempoDown:
		s.NudgeTempo(-1)
	case ActionHalve:
		s.HalveTempo()
	case ActionDouble:
		s.DoubleTempo()
	case ActionTap:
		if d.Tapper != nil {
			d.Tapper.Tap()
		}
	case ActionToggleListen:
		if d.Listener == nil {
			return Handled, nil
		}
		if err := d.Listener.Toggle(); err != nil {
			debug.Log("controls", "listen toggle: %v", err)
			return Handled, err
		}
	case ActionCycleMode:
		s.CycleMode()
	case ActionSetMode:
		s.SetMode(cmd.Mode)
	case ActionSetMultiplier:
		s.SetMultiplier(cmd.Multiplier)
	case ActionCycleHueStep:
		s.CycleHueStep()
	case ActionCommitTempo:
		s.CommitTempo()
	case ActionToggleHidden:
		return ToggleHidden, nil
	case ActionQuit:
		return Quit, nil
	default:
		return Ignored, nil
	}
	return Handled, nil
}

// HandleKey is KeyCommand followed by Apply
func (d *Dispatcher) HandleKey(key string) (Outcome, error) {
	return d.Apply(KeyCommand(key))
}

// HandlePad is PadCommand followed by Apply
func (d *Dispatcher) HandlePad(ev midi.PadEvent) (Outcome, error) {
	return d.Apply(PadCommand(ev))
}

// Help lists the key bindings in display order
var Help = [][2]string{
	{"space", "play/pause"},
	{"↑/↓", "tempo ±1"},
	{"[ ]", "half/double"},
	{"t", "tap"},
	{"l", "listen"},
	{"m f s x", "mode"},
	{"1-5", "speed"},
	{"c", "hue step"},
	{"h", "hide"},
	{"q", "quit"},
}

// Serve routes a controller's presses until both of its event channels
// close. Pads go through HandlePad and every note-on taps. onErr, when
// set, receives listen toggle failures.
func (d *Dispatcher) Serve(c midi.Controller, onErr func(error)) {
	pads, notes := c.PadEvents(), c.NoteEvents()
	for pads != nil || notes != nil {
		var err error
		select {
		case ev, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			_, err = d.HandlePad(ev)
		case _, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			_, err = d.Apply(Command{Action: ActionTap})
		}
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
	debug.Log("controls", "controller %s done", c.ID())
}
