package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderMeter draws value (0-1) as a bar of width cells. Lit cells use
// on in color, the rest off in dim.
func RenderMeter(value float64, width int, on, off rune, color, dim lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	lit := int(value*float64(width) + 0.5)
	lit = max(0, min(width, lit))

	litStyle := lipgloss.NewStyle().Foreground(color)
	dimStyle := lipgloss.NewStyle().Foreground(dim)
	return litStyle.Render(strings.Repeat(string(on), lit)) +
		dimStyle.Render(strings.Repeat(string(off), width-lit))
}
