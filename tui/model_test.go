package tui

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melody-gate/api"
	"melody-gate/gate"
	"melody-gate/melody"
	"melody-gate/midi"
)

type fakeService struct {
	length   int
	success  bool
	attempts [][]melody.Note
	requests []api.GenerateRequest
	image    []byte
}

func (f *fakeService) FetchChallenge(context.Context) api.ChallengeResult {
	return api.ChallengeResult{Length: f.length}
}

func (f *fakeService) Verify(_ context.Context, attempt []melody.Note) api.VerifyResult {
	f.attempts = append(f.attempts, attempt)
	return api.VerifyResult{Success: f.success}
}

func (f *fakeService) Generate(_ context.Context, req api.GenerateRequest) api.GenerateResult {
	f.requests = append(f.requests, req)
	return api.GenerateResult{Image: f.image, ContentType: "image/png"}
}

type recordingPlayer struct{ played []melody.Note }

func (p *recordingPlayer) Play(n melody.Note) { p.played = append(p.played, n) }

type fakeController struct{ notes chan midi.NoteEvent }

func (c *fakeController) ID() string                        { return "fake" }
func (c *fakeController) Type() midi.ControllerType         { return midi.ControllerKeyboard }
func (c *fakeController) NoteEvents() <-chan midi.NoteEvent { return c.notes }
func (c *fakeController) Close() error                      { return nil }

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestModel(svc *fakeService, echo bool) (Model, *recordingPlayer) {
	player := &recordingPlayer{}
	m := NewModel(gate.New(4, player), Options{Service: svc, EchoMIDI: echo, APILabel: "test"})
	return m, player
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestChallengeSetsLength(t *testing.T) {
	svc := &fakeService{length: 6}
	m, _ := newTestModel(svc, false)

	m, _ = send(t, m, fetchChallenge(svc, m.timeout)())
	assert.Equal(t, 6, m.Session.Required())
}

func TestTypingPlaysNotes(t *testing.T) {
	m, player := newTestModel(&fakeService{}, false)

	for _, k := range []string{"q", "w", "e", "r", "t"} {
		m, _ = send(t, m, runes(k))
	}
	assert.Equal(t, "C4 - D4 - E4 - F4", m.Session.Melody())
	assert.Equal(t, []melody.Note{melody.C4, melody.D4, melody.E4, melody.F4}, player.played)
	assert.True(t, m.Session.Pulsing(melody.F4))

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "C4 - D4 - E4", m.Session.Melody())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, 0, m.Session.Played())
}

func TestPulseEnds(t *testing.T) {
	m, _ := newTestModel(&fakeService{}, false)

	m, cmd := send(t, m, runes("q"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, pulseEndMsg{note: melody.C4, id: m.Session.Pulse(melody.C4)})
	assert.False(t, m.Session.Pulsing(melody.C4))
}

func TestFocusedKeyActivation(t *testing.T) {
	m, player := newTestModel(&fakeService{}, false)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []melody.Note{melody.E4}, player.played)
}

func TestSubmitUnlocksAndShowsGenerator(t *testing.T) {
	svc := &fakeService{success: true}
	m, _ := newTestModel(svc, false)

	for _, k := range []string{"q", "w", "e", "r"} {
		m, _ = send(t, m, runes(k))
	}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.Equal(t, gate.Verifying, m.Session.State())

	// notes are ignored while the verdict is pending
	m, _ = send(t, m, runes("q"))
	assert.Equal(t, 4, m.Session.Played())

	m, cmd = send(t, m, cmd())
	require.NotNil(t, cmd)
	require.Len(t, svc.attempts, 1)
	assert.Equal(t, gate.Unlocked, m.Session.State())
	assert.Equal(t, gate.StatusUnlocked, m.Session.AuthStatus())
	assert.Equal(t, gate.ViewAuth, m.Session.View())

	m, _ = send(t, m, unlockMsg{})
	assert.Equal(t, gate.ViewGenerate, m.Session.View())
	assert.True(t, m.textFocused())
}

func TestIncorrectMelodyRetries(t *testing.T) {
	svc := &fakeService{success: false}
	m, _ := newTestModel(svc, false)

	for _, k := range []string{"q", "q", "q", "q"} {
		m, _ = send(t, m, runes(k))
	}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, cmd = send(t, m, cmd())
	assert.Nil(t, cmd)
	assert.Equal(t, gate.Locked, m.Session.State())
	assert.Equal(t, gate.StatusIncorrect, m.Session.AuthStatus())
	assert.Equal(t, 0, m.Session.Played())
}

func unlocked(t *testing.T, svc *fakeService) Model {
	t.Helper()
	svc.success = true
	m, _ := newTestModel(svc, false)
	for _, k := range []string{"q", "w", "e", "r"} {
		m, _ = send(t, m, runes(k))
	}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = send(t, m, cmd())
	m, _ = send(t, m, unlockMsg{})
	return m
}

func TestPromptSwallowsShortcuts(t *testing.T) {
	svc := &fakeService{image: tinyPNG(t)}
	m := unlocked(t, svc)

	// "g" is the generate shortcut, but the prompt has focus
	m, _ = send(t, m, runes("g"))
	assert.Equal(t, "g", m.Session.Prompt())
	assert.False(t, m.Session.Generating())
	assert.Empty(t, svc.requests)
}

func TestGenerateFromPrompt(t *testing.T) {
	svc := &fakeService{image: tinyPNG(t)}
	m := unlocked(t, svc)

	for _, r := range "a fox" {
		m, _ = send(t, m, runes(string(r)))
	}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Session.Generating())
	assert.Equal(t, gate.StatusGenerating, m.Session.GenerateStatus())

	m, _ = send(t, m, cmd())
	require.Len(t, svc.requests, 1)
	assert.Equal(t, api.GenerateRequest{Type: "blueprint", Prompt: "a fox"}, svc.requests[0])
	assert.Equal(t, gate.StatusDone, m.Session.GenerateStatus())
	require.NotNil(t, m.Session.Result())
	assert.Equal(t, 2, m.Session.Result().Width)
}

func TestSuggestionAndRevise(t *testing.T) {
	m := unlocked(t, &fakeService{})

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusCategory, m.focus)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "artwork", m.Session.Category().Name)

	m, _ = send(t, m, runes("1"))
	assert.Equal(t, m.Session.Suggestions()[0], m.Session.Prompt())
	assert.Equal(t, m.Session.Prompt(), m.prompt.Value())

	m, _ = send(t, m, runes("r"))
	assert.Equal(t, "blueprint", m.Session.Category().Name)
	assert.Empty(t, m.Session.Prompt())
	assert.Empty(t, m.prompt.Value())
	assert.True(t, m.textFocused())
}

func TestMIDIPressIsSilentWithoutEcho(t *testing.T) {
	ctrl := &fakeController{notes: make(chan midi.NoteEvent, 1)}

	m, player := newTestModel(&fakeService{}, false)
	m, cmd := send(t, m, midiNoteMsg{event: midi.NoteEvent{Note: 60, Velocity: 100}, from: ctrl})
	assert.NotNil(t, cmd)
	assert.Equal(t, "C4", m.Session.Melody())
	assert.Empty(t, player.played)

	m, player = newTestModel(&fakeService{}, true)
	m, _ = send(t, m, midiNoteMsg{event: midi.NoteEvent{Note: 62, Velocity: 100}, from: ctrl})
	assert.Equal(t, "D4", m.Session.Melody())
	assert.Equal(t, []melody.Note{melody.D4}, player.played)
}

func TestMIDIUnmappedNoteIgnored(t *testing.T) {
	ctrl := &fakeController{notes: make(chan midi.NoteEvent, 1)}
	m, _ := newTestModel(&fakeService{}, true)

	m, _ = send(t, m, midiNoteMsg{event: midi.NoteEvent{Note: 61}, from: ctrl})
	assert.Equal(t, 0, m.Session.Played())
}

func TestDeviceEventsTrackInputs(t *testing.T) {
	ctrl := &fakeController{notes: make(chan midi.NoteEvent)}
	m, _ := newTestModel(&fakeService{}, false)
	m.DeviceMgr = midi.NewDeviceManager("")

	m, _ = send(t, m, DeviceEventMsg{Type: midi.DeviceConnected, Controller: ctrl, ID: "fake"})
	assert.True(t, m.midiInputs["fake"])

	m, _ = send(t, m, midiClosedMsg{id: "fake"})
	assert.Empty(t, m.midiInputs)
}

func TestClickPianoAndMelody(t *testing.T) {
	m, player := newTestModel(&fakeService{}, false)
	view := m.View()
	assert.Contains(t, view, "Play the melody to unlock")

	y := m.bounds.pianoRows.from + 1
	m, _ = send(t, m, tea.MouseMsg{X: 0, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, []melody.Note{melody.C4}, player.played)
	assert.Equal(t, 0, m.keyFocus)

	m.View()
	m, _ = send(t, m, tea.MouseMsg{X: 0, Y: m.bounds.melodyRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, 0, m.Session.Played())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(&fakeService{}, false)
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}
