package state

import (
	"fmt"
	"strings"
)

// Tempo bounds
const (
	DefaultTempo = 120
	MaxTempo     = 999

	// Estimator-proposed tempos must fall strictly inside this band
	MinProposedTempo = 30
	MaxProposedTempo = 300
)

// Mode selects how hue and lightness follow the tempo
type Mode int32

const (
	ModeFlow   Mode = iota // smooth rotation, one revolution per 4 beats
	ModeStep               // abrupt hue jump on each interval
	ModeStrobe             // 50% duty flash, hue jump per cycle
)

var modeNames = [...]string{"FLOW", "STEP", "STROBE"}

// Modes lists every mode in panel order
var Modes = []Mode{ModeFlow, ModeStep, ModeStrobe}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
	return modeNames[m]
}

func (m Mode) Valid() bool {
	return m >= ModeFlow && m <= ModeStrobe
}

// ParseMode accepts a mode name in any case
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return ModeFlow, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Multiplier scales the interval between discrete triggers
type Multiplier float64

// Multipliers is the closed set of speed multipliers
var Multipliers = []Multiplier{0.25, 0.5, 1, 2, 4}

func (m Multiplier) Valid() bool {
	for _, v := range Multipliers {
		if m == v {
			return true
		}
	}
	return false
}

// Label is the panel text for a multiplier
func (m Multiplier) Label() string {
	switch m {
	case 0.25:
		return "1/4x"
	case 0.5:
		return "1/2x"
	default:
		return fmt.Sprintf("%gx", float64(m))
	}
}

// Hue steps
const (
	RandomHueStep = -1.0  // draw a fresh uniform step each trigger
	GoldenAngle   = 137.5 // default
)

// HueStepPresets are the steps offered by the panel
var HueStepPresets = []float64{30, 45, 90, GoldenAngle, 180, RandomHueStep}

// ValidHueStep reports whether step is in [0,360] or the random sentinel
func ValidHueStep(step float64) bool {
	return step == RandomHueStep || (step >= 0 && step <= 360)
}

// HueStepLabel is the panel text for a hue step
func HueStepLabel(step float64) string {
	switch step {
	case RandomHueStep:
		return "RND"
	case GoldenAngle:
		return "GOLD"
	case 180:
		return "OPP"
	default:
		return fmt.Sprintf("%g°", step)
	}
}

// Params is a value snapshot of every parameter
type Params struct {
	Tempo      int
	Multiplier Multiplier
	Mode       Mode
	HueStep    float64
	Playing    bool
}

// DefaultParams returns the startup parameters
func DefaultParams() Params {
	return Params{
		Tempo:      DefaultTempo,
		Multiplier: 1,
		Mode:       ModeFlow,
		HueStep:    GoldenAngle,
		Playing:    true,
	}
}

// Field identifies one parameter
type Field int

const (
	FieldTempo Field = iota
	FieldMultiplier
	FieldMode
	FieldHueStep
	FieldPlaying
)

func (f Field) String() string {
	switch f {
	case FieldTempo:
		return "tempo"
	case FieldMultiplier:
		return "multiplier"
	case FieldMode:
		return "mode"
	case FieldHueStep:
		return "hueStep"
	case FieldPlaying:
		return "playing"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Change is delivered to subscribers after an accepted write
type Change struct {
	Field  Field
	Params Params
}
