package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"hue-beat/animation"
	"hue-beat/clock"
	"hue-beat/controls"
	"hue-beat/debug"
	"hue-beat/midi"
	"hue-beat/state"
	"hue-beat/theme"
	"hue-beat/widgets"
)

// Listener is what the panel shows of the microphone estimator
type Listener interface {
	Listening() bool
	Flash() bool
	Energy() float64
}

const (
	meterWidth   = 20
	minSwatchW   = 8
	minSwatchH   = 3
	panelLines   = 7 // everything drawn around the swatch
	pulseDivisor = 4 // header dot is lit for the first quarter of a beat
)

type Model struct {
	Store      *state.Store
	Frames     *animation.Loop
	Listener   Listener // nil without a microphone
	Dispatcher *controls.Dispatcher
	DeviceMgr  *midi.DeviceManager // nil when MIDI is off
	Theme      *theme.Theme

	fps     int
	updates <-chan struct{}
	errs    chan error

	tempo     textinput.Model
	editing   bool
	prevTempo int
	hidden    bool
	fullHelp  bool

	spring   harmonica.Spring
	meter    float64
	meterVel float64

	now        time.Time
	err        error
	controller midi.Controller
	width      int
	height     int
	quitting   bool
}

type FrameMsg time.Time

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type ErrorMsg struct{ Err error }

// NewModel builds the panel. updates comes from Watch and wakes the
// view when a parameter changes outside the panel.
func NewModel(store *state.Store, frames *animation.Loop, d *controls.Dispatcher, th *theme.Theme, fps int, updates <-chan struct{}) Model {
	if fps <= 0 {
		fps = clock.FrameRate
	}
	ti := textinput.New()
	ti.Prompt = "bpm "
	ti.Placeholder = strconv.Itoa(state.DefaultTempo)
	ti.CharLimit = 3
	ti.Width = 4

	return Model{
		Store:      store,
		Frames:     frames,
		Dispatcher: d,
		Theme:      th,
		fps:        fps,
		updates:    updates,
		errs:       make(chan error, 4),
		tempo:      ti,
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 8.0, 0.6),
		width:      40,
		height:     16,
	}
}

// WithListener attaches the microphone status
func (m Model) WithListener(l Listener) Model {
	m.Listener = l
	return m
}

// WithDevices attaches the MIDI device manager
func (m Model) WithDevices(dm *midi.DeviceManager) Model {
	m.DeviceMgr = dm
	return m
}

// WithError shows err until the next successful listen toggle
func (m Model) WithError(err error) Model {
	m.err = err
	return m
}

// Hidden starts the panel collapsed to the color and a small HUD
func (m Model) Hidden(on bool) Model {
	m.hidden = on
	return m
}

// IsHidden reports whether the controls are collapsed
func (m Model) IsHidden() bool {
	return m.hidden
}

func frameTick(fps int) tea.Cmd {
	return tea.Tick(clock.FrameInterval(fps), func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

func ListenForUpdates(updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		<-updates
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

// ListenForErrors surfaces failures raised on controller goroutines
func ListenForErrors(errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: <-errs}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		frameTick(m.fps),
		ListenForUpdates(m.updates),
		ListenForDevices(m.DeviceMgr),
		ListenForErrors(m.errs),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateTempoField(msg)
		}
		return m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case FrameMsg:
		m.now = time.Time(msg)
		target := 0.0
		if m.Listener != nil {
			target = m.Listener.Energy()
		}
		m.meter, m.meterVel = m.spring.Update(m.meter, m.meterVel, target)
		return m, frameTick(m.fps)

	case UpdateMsg:
		if !m.editing {
			m.tempo.SetValue(strconv.Itoa(m.Store.Tempo()))
		}
		return m, ListenForUpdates(m.updates)

	case ErrorMsg:
		m.err = msg.Err
		return m, ListenForErrors(m.errs)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			if event.Controller.Type() == midi.ControllerLaunchpad {
				m.controller = event.Controller
			}
			go m.Dispatcher.Serve(event.Controller, m.reportError)
		case midi.DeviceDisconnected:
			if m.controller != nil && m.controller.ID() == event.ID {
				m.controller = nil
			}
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) reportError(err error) {
	select {
	case m.errs <- err:
	default:
		debug.Log("tui", "dropped error: %v", err)
	}
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "?" {
		m.fullHelp = !m.fullHelp
		return m, nil
	}
	if key == "tab" {
		m.editing = true
		m.prevTempo = m.Store.Tempo()
		m.tempo.SetValue("")
		cmd := m.tempo.Focus()
		return m, cmd
	}

	out, err := m.Dispatcher.HandleKey(key)
	switch out {
	case controls.Quit:
		m.quitting = true
		return m, tea.Quit
	case controls.ToggleHidden:
		m.hidden = !m.hidden
	case controls.Handled:
		if err != nil {
			m.err = err
		} else if m.Listener != nil && m.Listener.Listening() {
			m.err = nil
		}
	}
	return m, nil
}

// updateTempoField edits the typed tempo. Every keystroke writes through
// so the animation follows while typing; enter commits, esc abandons.
func (m Model) updateTempoField(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "tab":
		m.Dispatcher.Apply(controls.Command{Action: controls.ActionCommitTempo})
		return m.stopEditing(), nil
	case "esc":
		m.Store.SetTempo(m.prevTempo)
		return m.stopEditing(), nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	switch msg.Type {
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return m, nil
			}
		}
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight:
	default:
		return m, nil
	}

	var cmd tea.Cmd
	m.tempo, cmd = m.tempo.Update(msg)
	bpm, err := strconv.Atoi(m.tempo.Value())
	if err != nil {
		bpm = 0
	}
	m.Store.SetTempo(bpm)
	return m, cmd
}

func (m Model) stopEditing() Model {
	m.editing = false
	m.tempo.Blur()
	m.tempo.SetValue(strconv.Itoa(m.Store.Tempo()))
	return m
}

// pulse reports whether the header dot is lit at t
func pulse(t time.Time, tempo int, playing bool) bool {
	if !playing || tempo <= 0 {
		return false
	}
	beat := time.Minute / time.Duration(tempo)
	phase := time.Duration(t.UnixNano()) % beat
	return phase < beat/pulseDivisor
}

func (m Model) swatchSize() (int, int) {
	if m.hidden {
		return max(minSwatchW, m.width), max(minSwatchH, m.height-1)
	}
	return max(minSwatchW, m.width-2), max(minSwatchH, m.height-panelLines)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	p := m.Store.Params()
	snap := m.Frames.Snapshot()
	sym := m.Theme.Symbols

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	w, h := m.swatchSize()
	swatch := widgets.RenderSwatch(snap.RGB(), w, h)

	if m.hidden {
		hudStyle := lipgloss.NewStyle().Foreground(m.Theme.FG()).Background(m.Theme.BG())
		hud := hudStyle.Render(fmt.Sprintf("%d bpm  %3.0f°", p.Tempo, snap.Hue))
		return swatch + "\n" + hud
	}

	// Header
	dot := sym.NoBeat
	if pulse(m.now, p.Tempo, p.Playing) {
		dot = sym.Beat
	}
	play := sym.Paused
	if p.Playing {
		play = sym.Playing
	}
	header := headerStyle.Render(fmt.Sprintf("hue-beat %c %3d bpm  %c %s %s %s",
		dot, p.Tempo, play, p.Mode, p.Multiplier.Label(), state.HueStepLabel(p.HueStep)))
	if m.controller != nil {
		header += lipgloss.NewStyle().Foreground(m.Theme.Success()).Render("  LP")
	}

	info := lipgloss.NewStyle().Foreground(m.Theme.FG()).Render(fmt.Sprintf("hue %3.0f°  light %2.0f%%  %s", snap.Hue, snap.Lightness, snap.Hex()))

	// Microphone
	listen, flash := sym.NoListen, sym.NoBeat
	if m.Listener != nil {
		if m.Listener.Listening() {
			listen = sym.Listen
		}
		if m.Listener.Flash() {
			flash = sym.Beat
		}
	}
	meter := widgets.RenderMeter(m.meter, meterWidth, sym.MeterOn, sym.MeterOff, m.Theme.Color(m.meter), m.Theme.Muted())
	mic := fmt.Sprintf("%c %s %s", listen, meter, headerStyle.Render(string(flash)))

	help := m.helpView(p)

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(swatch)
	out.WriteString("\n")
	out.WriteString(info)
	out.WriteString("\n")
	out.WriteString(mic)
	out.WriteString("\n")
	if m.editing {
		out.WriteString(m.tempo.View())
	} else {
		out.WriteString(dimStyle.Render("tab to type a tempo"))
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Width(max(minSwatchW, m.width)).Render(help))
	if m.err != nil {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.err.Error()))
	}
	return out.String()
}

var panelKeys = [][2]string{
	{"tab", "type bpm"},
	{"?", "more help"},
}

var padHelp = map[string]string{
	"FLOW":   "smooth rotation",
	"STEP":   "hue jump per interval",
	"STROBE": "flash per interval",
	"PLAY":   "play/pause",
	"TAP":    "tap tempo (so does any grid pad)",
	"LISTEN": "microphone on/off",
}

func (m Model) helpView(p state.Params) string {
	keys := widgets.Section("", controls.Help)
	extra := widgets.Section("", panelKeys)
	if !m.fullHelp {
		return widgets.RenderKeyLine(append(keys.Keys, extra.Keys...))
	}

	keys.Title = "Keys"
	keys.Keys = append(keys.Keys, extra.Keys...)
	help := widgets.RenderKeyHelp([]widgets.KeySection{keys})
	if m.controller == nil {
		return help
	}

	frame := midi.LEDFrame{Mode: p.Mode, Playing: p.Playing}
	if m.Listener != nil {
		frame.Listening = m.Listener.Listening()
	}
	colors := midi.TopRowColors(frame)
	lines := []string{help, "Launchpad", "  " + widgets.RenderPadRow(colors)}
	for col, label := range midi.TopRowLabels {
		if label != "" {
			lines = append(lines, widgets.RenderLegendItem(colors[col], label, padHelp[label]))
		}
	}
	return strings.Join(lines, "\n")
}
