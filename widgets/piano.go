package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PianoKey is the render state of one on-screen key
type PianoKey struct {
	Symbol  rune
	Note    string
	Lit     bool // pulsing after a press
	Focused bool // keyboard focus for Enter/Space activation
}

// PianoColors are the colors used to draw keys
type PianoColors struct {
	Idle, Lit, Focus, Border, Text lipgloss.Color
}

// Piano renders a row of keys and remembers their width for hit testing
type Piano struct {
	Colors   PianoColors
	keyWidth int
	count    int
}

func NewPiano(colors PianoColors) *Piano {
	return &Piano{Colors: colors}
}

func (p *Piano) keyStyle(k PianoKey) lipgloss.Style {
	border := p.Colors.Border
	bg := p.Colors.Idle
	if k.Focused {
		border = p.Colors.Focus
	}
	if k.Lit {
		bg = p.Colors.Lit
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Background(bg).
		Foreground(p.Colors.Text).
		Width(3).
		Align(lipgloss.Center)
}

// Render draws the keys side by side: the input symbol over the note name.
func (p *Piano) Render(keys []PianoKey) string {
	cells := make([]string, len(keys))
	for i, k := range keys {
		cells[i] = p.keyStyle(k).Render(fmt.Sprintf("%c\n%s", k.Symbol, k.Note))
	}
	if len(cells) > 0 {
		p.keyWidth = lipgloss.Width(cells[0])
	}
	p.count = len(cells)
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// HitTest maps an x offset within the rendered piano to a key index, or -1.
// It is only meaningful after Render.
func (p *Piano) HitTest(x int) int {
	if p.keyWidth <= 0 || x < 0 {
		return -1
	}
	i := x / p.keyWidth
	if i >= p.count {
		return -1
	}
	return i
}

// RenderSlots draws the melody progress, e.g. "● ● · ·"
func RenderSlots(played, required int, filled, empty rune) string {
	var out strings.Builder
	for i := 0; i < required; i++ {
		if i > 0 {
			out.WriteString(" ")
		}
		if i < played {
			out.WriteRune(filled)
		} else {
			out.WriteRune(empty)
		}
	}
	return out.String()
}

// RenderButton draws a bracketed control, dimmed when disabled
func RenderButton(label string, enabled bool, on, off lipgloss.Color) string {
	color := off
	if enabled {
		color = on
	}
	return lipgloss.NewStyle().Foreground(color).Render("[ " + label + " ]")
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyHelpLine formats key bindings on a single line
func RenderKeyHelpLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
