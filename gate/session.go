package gate

import (
	"time"

	"melody-gate/api"
	"melody-gate/debug"
	"melody-gate/melody"
	"melody-gate/tone"
)

// State of the melody gate
type State int

const (
	Locked State = iota
	Verifying
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Verifying:
		return "verifying"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// View is the screen currently shown to the user
type View int

const (
	ViewAuth View = iota
	ViewGenerate
)

// Cosmetic delays
const (
	PulseDuration = 120 * time.Millisecond
	UnlockDelay   = 600 * time.Millisecond
)

// Status lines shown under the piano
const (
	StatusChecking  = "Checking..."
	StatusUnlocked  = "✔️ Melody correct! Unlocked."
	StatusIncorrect = "❌ Incorrect melody. Try again."
	StatusNoServer  = "Error contacting server."
)

// PressOptions tells HandleNotePress how the press arrived.
type PressOptions struct {
	// Sound plays the tone. Input that has already produced a sound (a
	// hardware instrument) leaves it off.
	Sound bool
}

// Session owns everything that lives for one run of the gate: the melody
// buffer, the challenge length, the gate state and the generation form.
// It is not safe for concurrent use; the TUI drives it from its update loop.
type Session struct {
	capture *melody.Capture
	player  tone.Player

	state      State
	view       View
	authStatus string

	pulseSeq int
	pulses   map[melody.Note]int

	gen generation
}

// New creates a locked session expecting required notes.
func New(required int, player tone.Player) *Session {
	if player == nil {
		player = tone.Silent{}
	}
	s := &Session{
		capture: melody.NewCapture(required),
		player:  player,
	}
	s.Restart()
	return s
}

// Restart returns the session to a freshly loaded state. The challenge length
// is kept.
func (s *Session) Restart() {
	s.capture.Reset()
	s.state = Locked
	s.view = ViewAuth
	s.authStatus = ""
	s.pulses = make(map[melody.Note]int)
	s.gen = generation{}
}

// ApplyChallenge sets the required length from a challenge fetch. A failed
// fetch keeps the length the client fell back to.
func (s *Session) ApplyChallenge(res api.ChallengeResult) {
	if res.Err != nil {
		debug.Error("gate", res.Err, "challenge unavailable, using %d notes", res.Length)
	}
	s.capture.SetRequired(res.Length)
	debug.Log("gate", "challenge length %d", s.capture.Required())
}

// HandleNotePress is the single entry point for note input. It appends n,
// starts its key pulse and sounds it when asked. It reports false when the
// press was ignored (buffer full, gate not locked, unknown note).
func (s *Session) HandleNotePress(n melody.Note, opts PressOptions) bool {
	if s.state != Locked || !s.capture.Press(n) {
		return false
	}
	s.pulseSeq++
	s.pulses[n] = s.pulseSeq
	if opts.Sound {
		s.player.Play(n)
	}
	s.authStatus = ""
	return true
}

// Backspace drops the last note.
func (s *Session) Backspace() bool {
	if s.state != Locked || !s.capture.Backspace() {
		return false
	}
	s.authStatus = ""
	return true
}

// Reset clears the buffer and the status line.
func (s *Session) Reset() {
	if s.state != Locked {
		return
	}
	s.capture.Reset()
	s.authStatus = ""
}

// Pulse returns the pulse id for n's most recent press, to be passed back to
// EndPulse after PulseDuration.
func (s *Session) Pulse(n melody.Note) int {
	return s.pulses[n]
}

// EndPulse clears n's pulse unless a newer press restarted it.
func (s *Session) EndPulse(n melody.Note, id int) {
	if s.pulses[n] == id {
		delete(s.pulses, n)
	}
}

// Pulsing reports whether n's key is lit.
func (s *Session) Pulsing(n melody.Note) bool {
	_, ok := s.pulses[n]
	return ok
}

// CanSubmit reports whether the submit control is enabled.
func (s *Session) CanSubmit() bool {
	return s.state == Locked && s.capture.Complete()
}

// BeginVerify moves to Verifying and returns the attempt to send.
func (s *Session) BeginVerify() ([]melody.Note, bool) {
	if !s.CanSubmit() {
		return nil, false
	}
	s.state = Verifying
	s.authStatus = StatusChecking
	debug.Breadcrumb("gate", "verifying %d notes", s.capture.Len())
	return s.capture.Notes(), true
}

// ApplyVerify applies the server verdict. On success it returns the delay
// after which ShowGenerator should be called; otherwise the buffer is cleared
// for another try and the delay is zero.
func (s *Session) ApplyVerify(res api.VerifyResult) time.Duration {
	if s.state != Verifying {
		return 0
	}

	switch {
	case res.Err != nil:
		debug.Error("gate", res.Err, "verify request failed")
		s.authStatus = StatusNoServer
	case res.Success:
		s.state = Unlocked
		s.authStatus = StatusUnlocked
		debug.Breadcrumb("gate", "unlocked")
		return UnlockDelay
	default:
		debug.Log("gate", "incorrect melody")
		s.authStatus = StatusIncorrect
	}

	s.state = Locked
	s.capture.Reset()
	return 0
}

// ShowGenerator swaps the auth view for the generation form once unlocked.
func (s *Session) ShowGenerator() {
	if s.state == Unlocked {
		s.view = ViewGenerate
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) View() View { return s.view }

func (s *Session) AuthStatus() string { return s.authStatus }

// Melody is the rendered buffer, e.g. "C4 - D4".
func (s *Session) Melody() string { return s.capture.String() }

func (s *Session) Notes() []melody.Note { return s.capture.Notes() }

func (s *Session) Required() int { return s.capture.Required() }

func (s *Session) Played() int { return s.capture.Len() }
