package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Beat     rune // ● onset flash
	NoBeat   rune // ○
	Playing  rune // ▶
	Paused   rune // ‖
	Listen   rune // ◉ microphone on
	NoListen rune // ◌
	Swatch   rune // █ color block
	MeterOn  rune // ▮
	MeterOff rune // ▯
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Beat:     '●',
			NoBeat:   '○',
			Playing:  '▶',
			Paused:   '‖',
			Listen:   '◉',
			NoListen: '◌',
			Swatch:   '█',
			MeterOn:  '▮',
			MeterOff: '▯',
		},
	}
}

// Default is the theme built on the embedded default palette
func Default() *Theme {
	return New(MustBuiltin(DefaultPalette))
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep indigo
	RoleMuted   = 0.2 // purple
	RoleFG      = 0.5 // rose
	RoleAccent  = 0.7 // orange
	RoleWarning = 0.8 // amber
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
