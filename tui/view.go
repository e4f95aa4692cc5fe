package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"melody-gate/gate"
	"melody-gate/melody"
	"melody-gate/widgets"
)

type span struct{ from, to int }

func (s span) contains(v int) bool { return v >= s.from && v < s.to }

// layoutBounds holds cached layout info from the last View for hit testing
type layoutBounds struct {
	pianoRows  span
	melodyRow  int
	buttonsRow int
	buttons    map[focus]span
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.Session.View() == gate.ViewGenerate {
		return m.generateView()
	}
	return m.authView()
}

// page accumulates lines and records where each block lands
type page struct {
	lines []string
}

func (p *page) add(block string) span {
	top := len(p.lines)
	p.lines = append(p.lines, strings.Split(block, "\n")...)
	return span{top, len(p.lines)}
}

func (p *page) String() string { return strings.Join(p.lines, "\n") }

func (m Model) header() string {
	th := m.Theme
	state := m.Session.State()
	sym := th.Symbols.Locked
	if state == gate.Unlocked {
		sym = th.Symbols.Unlocked
	}
	midiStatus := ""
	if n := len(m.midiInputs); n > 0 {
		midiStatus = fmt.Sprintf("  midi:%d", n)
	}
	h := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true).Render("melody-gate")
	rest := lipgloss.NewStyle().Foreground(th.FGDim()).Render(fmt.Sprintf("  %c %s  %s%s", sym, state, m.apiLabel, midiStatus))
	return h + rest
}

func (m Model) statusStyle(status string) lipgloss.Style {
	th := m.Theme
	style := lipgloss.NewStyle().Foreground(th.FG())
	switch {
	case status == gate.StatusUnlocked || status == gate.StatusDone:
		style = style.Foreground(th.Success())
	case status == gate.StatusIncorrect || status == gate.StatusNoServer || strings.HasPrefix(status, "Error"):
		style = style.Foreground(th.Error())
	case status == gate.StatusChecking || status == gate.StatusGenerating:
		style = style.Foreground(th.Warning())
	}
	return style
}

type button struct {
	f       focus
	label   string
	enabled bool
}

// buttonRow renders buttons left to right and records their column spans.
func (m Model) buttonRow(items []button) string {
	th := m.Theme
	m.bounds.buttons = make(map[focus]span)
	var out strings.Builder
	x := 0
	for i, it := range items {
		if i > 0 {
			out.WriteString("  ")
			x += 2
		}
		label := it.label
		if m.focus == it.f {
			label = "▸" + label
		}
		b := widgets.RenderButton(label, it.enabled, th.Accent(), th.Muted())
		w := lipgloss.Width(b)
		m.bounds.buttons[it.f] = span{x, x + w}
		x += w
		out.WriteString(b)
	}
	return out.String()
}

func (m Model) authView() string {
	th := m.Theme
	s := m.Session
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	var p page

	p.add("")
	p.add(m.header())
	p.add("")
	p.add(lipgloss.NewStyle().Foreground(th.FG()).Render("Play the melody to unlock"))
	slots := widgets.RenderSlots(s.Played(), s.Required(), th.Symbols.NoteFilled, th.Symbols.NoteEmpty)
	p.add(lipgloss.NewStyle().Foreground(th.Accent()).Render(slots) + dim.Render(fmt.Sprintf("  %d/%d", s.Played(), s.Required())))
	p.add("")

	keys := make([]widgets.PianoKey, len(melody.Notes))
	for i, n := range melody.Notes {
		keys[i] = widgets.PianoKey{
			Symbol:  melody.Keys[i],
			Note:    string(n),
			Lit:     s.Pulsing(n),
			Focused: m.focus == focusPiano && m.keyFocus == i,
		}
	}
	m.bounds.pianoRows = p.add(m.piano.Render(keys))

	played := s.Melody()
	if played == "" {
		played = dim.Render("(no notes yet)")
	}
	m.bounds.melodyRow = p.add(played).from
	p.add("")

	m.bounds.buttonsRow = p.add(m.buttonRow([]button{
		{focusSubmit, "Submit", s.CanSubmit()},
		{focusClear, "Clear", s.State() == gate.Locked},
	})).from

	p.add("")
	p.add(m.statusStyle(s.AuthStatus()).Render(s.AuthStatus()))
	p.add("")
	p.add(dim.Render(widgets.RenderKeyHelpLine([]widgets.KeyBinding{
		{Key: "q…'", Desc: "play"},
		{Key: "←/→ enter", Desc: "focused key"},
		{Key: "bksp", Desc: "undo"},
		{Key: "ctrl+r", Desc: "clear"},
		{Key: "ctrl+s", Desc: "submit"},
		{Key: "tab", Desc: "focus"},
		{Key: "esc", Desc: "quit"},
	})))
	return p.String()
}

func (m Model) generateView() string {
	th := m.Theme
	s := m.Session
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	label := lipgloss.NewStyle().Foreground(th.FGDim()).Width(10)
	var p page

	p.add("")
	p.add(m.header())
	p.add("")

	cat := fmt.Sprintf("‹ %s ›", s.Category().Name)
	if m.focus == focusCategory {
		cat = lipgloss.NewStyle().Foreground(th.Cursor()).Render(cat)
	}
	p.add(label.Render("Type") + cat)
	p.add(label.Render("Prompt") + m.prompt.View())
	p.add("")
	for i, sugg := range s.Suggestions() {
		p.add(dim.Render(fmt.Sprintf("  %d. %s", i+1, sugg)))
	}
	p.add("")

	m.bounds.buttonsRow = p.add(m.buttonRow([]button{
		{focusGenerate, "Generate", s.CanGenerate()},
		{focusRevise, "Revise", !s.Generating()},
		{focusDownload, "Download", s.Result() != nil},
	})).from

	p.add("")
	p.add(m.statusStyle(s.GenerateStatus()).Render(s.GenerateStatus()))
	if r := s.Result(); r != nil {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(th.Success()).
			Padding(0, 1).
			Render(fmt.Sprintf("%s\n%s", r.Ref, r.Summary()))
		p.add(box)
	}
	if m.notice != "" {
		p.add(lipgloss.NewStyle().Foreground(th.FGDim()).Render(m.notice))
	}
	p.add("")
	p.add(dim.Render(widgets.RenderKeyHelpLine([]widgets.KeyBinding{
		{Key: "tab", Desc: "focus"},
		{Key: "←/→", Desc: "type"},
		{Key: "1-3", Desc: "suggestion"},
		{Key: "g/enter", Desc: "generate"},
		{Key: "r", Desc: "revise"},
		{Key: "d", Desc: "download"},
		{Key: "esc", Desc: "quit"},
	})))
	return p.String()
}

func (m Model) handleClick(x, y int) (tea.Model, tea.Cmd) {
	b := m.bounds

	if y == b.buttonsRow {
		for f, sp := range b.buttons {
			if sp.contains(x) {
				return m.activate(f)
			}
		}
		return m, nil
	}

	if m.Session.View() != gate.ViewAuth {
		return m, nil
	}

	if b.pianoRows.contains(y) {
		if i := m.piano.HitTest(x); i >= 0 {
			m.focus = focusPiano
			m.keyFocus = i
			return m, m.press(melody.Notes[i])
		}
		return m, nil
	}

	// clicking the played notes starts over
	if y == b.melodyRow {
		m.Session.Reset()
	}
	return m, nil
}

func (m Model) activate(f focus) (tea.Model, tea.Cmd) {
	cmd := m.setFocus(f)
	switch f {
	case focusSubmit:
		return m, m.submit()
	case focusClear:
		m.Session.Reset()
	case focusGenerate:
		return m, m.generate()
	case focusRevise:
		return m, m.revise()
	case focusDownload:
		m.download()
	}
	return m, cmd
}
