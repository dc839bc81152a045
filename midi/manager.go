package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"hue-beat/clock"
	"hue-beat/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// ManagerOptions select which ports become controllers
type ManagerOptions struct {
	// InputFilter is a case-insensitive substring; plain inputs whose
	// name contains it become keyboards. Empty accepts every input.
	InputFilter string
	// Keyboards enables plain (non-Launchpad) inputs
	Keyboards bool
	// Follower, when set, receives timing clock from every keyboard
	Follower *ClockFollower
	PollRate time.Duration
}

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	clock       clock.Clock
	opts        ManagerOptions
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(c clock.Clock, opts ManagerOptions) *DeviceManager {
	if opts.PollRate <= 0 {
		opts.PollRate = time.Second
	}
	return &DeviceManager{
		clock:       c,
		opts:        opts,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// GetLaunchpad returns the first connected Launchpad (or nil)
func (dm *DeviceManager) GetLaunchpad() Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		if c.Type() == ControllerLaunchpad {
			return c
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := dm.clock.NewTicker(dm.opts.PollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C():
			dm.scan()
		}
	}
}

// PortNames lists the current input and output port names
func PortNames() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

func (dm *DeviceManager) scan() {
	// Port listing can hang on some hosts; give up on this scan if so
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	var inPorts []drivers.In
	var outPorts []drivers.Out
	select {
	case result := <-ch:
		inPorts = result.inPorts
		outPorts = result.outPorts
	case <-time.After(3 * time.Second):
		debug.Log("midi", "port scan timed out")
		return
	}

	seenIDs := make(map[string]bool)
	for _, inPort := range inPorts {
		id := inPort.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		c, err := dm.open(kind, id, inPort, outPorts)
		if err != nil {
			debug.Log("midi", "open %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()
		debug.Log("midi", "connected %s (%s)", id, kind)
		dm.emit(DeviceEvent{Type: DeviceConnected, Controller: c, ID: id})
	}

	dm.mu.Lock()
	var gone []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		debug.Log("midi", "disconnected %s", id)
	}
	dm.mu.Unlock()

	for _, id := range gone {
		dm.emit(DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) open(kind ControllerType, id string, in drivers.In, outs []drivers.Out) (Controller, error) {
	if kind == ControllerLaunchpad {
		var out drivers.Out
		for _, op := range outs {
			if strings.EqualFold(op.String(), id) {
				out = op
				break
			}
		}
		return NewLaunchpadController(id, in, out)
	}
	return NewKeyboardController(id, in, dm.opts.Follower)
}

// classify decides what a port with this name should become
func (dm *DeviceManager) classify(name string) ControllerType {
	if isLaunchpad(name) {
		return ControllerLaunchpad
	}
	if !dm.opts.Keyboards {
		return ControllerUnknown
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "through") || strings.Contains(lower, "launchpad") {
		return ControllerUnknown
	}
	if dm.opts.InputFilter != "" && !strings.Contains(lower, strings.ToLower(dm.opts.InputFilter)) {
		return ControllerUnknown
	}
	return ControllerKeyboard
}

func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
		debug.Log("midi", "device event dropped for %s", ev.ID)
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
