package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"melody-gate/api"
	"melody-gate/debug"
	"melody-gate/download"
	"melody-gate/gate"
	"melody-gate/melody"
	"melody-gate/midi"
	"melody-gate/theme"
	"melody-gate/widgets"
)

// focus targets, in tab order per view
type focus int

const (
	focusPiano focus = iota
	focusSubmit
	focusClear

	focusPrompt
	focusCategory
	focusGenerate
	focusRevise
	focusDownload
)

var (
	authFocusRing = []focus{focusPiano, focusSubmit, focusClear}
	genFocusRing  = []focus{focusPrompt, focusCategory, focusGenerate, focusRevise, focusDownload}
)

// Options wires the model to its collaborators
type Options struct {
	Service   api.Service
	DeviceMgr *midi.DeviceManager // nil disables MIDI input
	Theme     *theme.Theme
	Saver     gate.Saver
	Timeout   time.Duration
	EchoMIDI  bool   // sound notes arriving from a MIDI keyboard
	APILabel  string // shown in the header
}

type Model struct {
	Session   *gate.Session
	Service   api.Service
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme

	saver    gate.Saver
	timeout  time.Duration
	echoMIDI bool
	apiLabel string

	piano    *widgets.Piano
	prompt   textinput.Model
	focus    focus
	keyFocus int // on-screen key with keyboard focus

	midiInputs map[string]bool
	notice     string // download outcome line
	quitting   bool
	bounds     *layoutBounds
}

func NewModel(session *gate.Session, opts Options) Model {
	th := opts.Theme
	if th == nil {
		th = theme.Default()
	}
	saver := opts.Saver
	if saver == nil {
		saver = download.FileSaver{Dir: "."}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	ti := textinput.New()
	ti.Placeholder = "Describe the image..."
	ti.CharLimit = 500
	ti.Width = 60

	return Model{
		Session:   session,
		Service:   opts.Service,
		DeviceMgr: opts.DeviceMgr,
		Theme:     th,
		saver:     saver,
		timeout:   timeout,
		echoMIDI:  opts.EchoMIDI,
		apiLabel:  opts.APILabel,
		piano: widgets.NewPiano(widgets.PianoColors{
			Idle:   th.Surface(),
			Lit:    th.Active(),
			Focus:  th.Cursor(),
			Border: th.Muted(),
			Text:   th.FG(),
		}),
		prompt:     ti,
		focus:      focusPiano,
		midiInputs: make(map[string]bool),
		bounds:     &layoutBounds{},
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchChallenge(m.Service, m.timeout)}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m.handleClick(msg.X, msg.Y)
		}

	case challengeMsg:
		m.Session.ApplyChallenge(api.ChallengeResult(msg))

	case verifyMsg:
		if d := m.Session.ApplyVerify(api.VerifyResult(msg)); d > 0 {
			return m, unlockAfter(d)
		}

	case unlockMsg:
		m.Session.ShowGenerator()
		return m, m.setFocus(focusPrompt)

	case generateMsg:
		m.Session.ApplyGenerate(api.GenerateResult(msg))

	case pulseEndMsg:
		m.Session.EndPulse(msg.note, msg.id)

	case midiNoteMsg:
		cmd := m.pressMIDI(msg.event)
		return m, tea.Batch(cmd, listenForNotes(msg.from))

	case midiClosedMsg:
		delete(m.midiInputs, msg.id)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		var cmd tea.Cmd
		if event.Type == midi.DeviceConnected {
			m.midiInputs[event.ID] = true
			cmd = listenForNotes(event.Controller)
		} else if event.Type == midi.DeviceDisconnected {
			delete(m.midiInputs, event.ID)
		}
		return m, tea.Batch(cmd, ListenForDevices(m.DeviceMgr))
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		return m, m.cycleFocus(1)
	case "shift+tab":
		return m, m.cycleFocus(-1)
	}

	if m.Session.View() == gate.ViewGenerate {
		return m.handleGenerateKey(msg)
	}
	return m.handleAuthKey(msg)
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "backspace":
		m.Session.Backspace()
		return m, nil
	case "ctrl+s":
		return m, m.submit()
	case "ctrl+r":
		m.Session.Reset()
		return m, nil
	case "enter", " ":
		switch m.focus {
		case focusPiano:
			return m, m.press(melody.Notes[m.keyFocus])
		case focusSubmit:
			return m, m.submit()
		case focusClear:
			m.Session.Reset()
		}
		return m, nil
	case "left":
		if m.keyFocus > 0 {
			m.keyFocus--
		}
		return m, nil
	case "right":
		if m.keyFocus < len(melody.Notes)-1 {
			m.keyFocus++
		}
		return m, nil
	}

	if n, ok := melody.NoteForKey(key); ok {
		return m, m.press(n)
	}
	return m, nil
}

func (m Model) handleGenerateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// typing goes to the prompt field untouched
	if m.textFocused() {
		if key == "enter" {
			return m, m.generate()
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		m.Session.SetPrompt(m.prompt.Value())
		return m, cmd
	}

	switch key {
	case "enter", " ":
		switch m.focus {
		case focusCategory:
			m.Session.CycleCategory(1)
		case focusGenerate:
			return m, m.generate()
		case focusRevise:
			return m, m.revise()
		case focusDownload:
			m.download()
		}
	case "left":
		m.Session.CycleCategory(-1)
	case "right":
		m.Session.CycleCategory(1)
	case "1", "2", "3":
		if m.Session.UseSuggestion(int(key[0] - '1')) {
			m.prompt.SetValue(m.Session.Prompt())
		}
	case "g":
		return m, m.generate()
	case "r":
		return m, m.revise()
	case "d":
		m.download()
	}
	return m, nil
}

func (m Model) textFocused() bool {
	return m.focus == focusPrompt && m.prompt.Focused()
}

// press is the terminal-keyboard and on-screen adapter: the tone has not
// been sounded yet, so the session plays it.
func (m *Model) press(n melody.Note) tea.Cmd {
	if !m.Session.HandleNotePress(n, gate.PressOptions{Sound: true}) {
		return nil
	}
	m.keyFocus = melody.Index(n)
	return endPulse(n, m.Session.Pulse(n))
}

// pressMIDI is the hardware keyboard adapter. The instrument usually makes its
// own sound, so the tone is only played when echo is enabled.
func (m *Model) pressMIDI(ev midi.NoteEvent) tea.Cmd {
	n, ok := melody.NoteForMIDI(ev.Note)
	if !ok {
		debug.Log("midi", "ignoring note %d", ev.Note)
		return nil
	}
	if !m.Session.HandleNotePress(n, gate.PressOptions{Sound: m.echoMIDI}) {
		return nil
	}
	return endPulse(n, m.Session.Pulse(n))
}

func (m *Model) submit() tea.Cmd {
	attempt, ok := m.Session.BeginVerify()
	if !ok {
		return nil
	}
	return verify(m.Service, attempt, m.timeout)
}

func (m *Model) generate() tea.Cmd {
	req, ok := m.Session.BeginGenerate()
	if !ok {
		return nil
	}
	m.notice = ""
	return generate(m.Service, req, m.timeout)
}

func (m *Model) revise() tea.Cmd {
	m.Session.Revise()
	m.prompt.SetValue("")
	m.notice = ""
	return m.setFocus(focusPrompt)
}

func (m *Model) download() {
	path, err := m.Session.Download(m.saver)
	switch {
	case errors.Is(err, gate.ErrNoResult), errors.Is(err, download.ErrCancelled):
		// nothing to report
	case err != nil:
		m.notice = "Download failed: " + err.Error()
	default:
		m.notice = "Saved to " + path
	}
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	if f == focusPrompt {
		return m.prompt.Focus()
	}
	m.prompt.Blur()
	return nil
}

func (m *Model) cycleFocus(delta int) tea.Cmd {
	ring := authFocusRing
	if m.Session.View() == gate.ViewGenerate {
		ring = genFocusRing
	}
	idx := 0
	for i, f := range ring {
		if f == m.focus {
			idx = i
		}
	}
	idx = ((idx+delta)%len(ring) + len(ring)) % len(ring)
	return m.setFocus(ring[idx])
}
