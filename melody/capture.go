package melody

import "strings"

// DefaultLength is used until the server supplies a challenge length.
const DefaultLength = 4

// Capture is the bounded buffer of notes played in the current attempt.
type Capture struct {
	notes    []Note
	required int
}

// NewCapture creates an empty buffer that accepts up to required notes.
func NewCapture(required int) *Capture {
	c := &Capture{}
	c.SetRequired(required)
	return c
}

// Press appends n unless the buffer is already full or n is not a gate note.
func (c *Capture) Press(n Note) bool {
	if len(c.notes) >= c.required || !n.Valid() {
		return false
	}
	c.notes = append(c.notes, n)
	return true
}

// Backspace removes the most recent note. It reports false on an empty buffer.
func (c *Capture) Backspace() bool {
	if len(c.notes) == 0 {
		return false
	}
	c.notes = c.notes[:len(c.notes)-1]
	return true
}

// Reset clears the buffer.
func (c *Capture) Reset() {
	c.notes = c.notes[:0]
}

// Complete reports whether enough notes have been played to submit.
func (c *Capture) Complete() bool {
	return len(c.notes) >= c.required
}

// SetRequired changes the challenge length. Non-positive values fall back to
// DefaultLength, and notes beyond the new length are dropped.
func (c *Capture) SetRequired(n int) {
	if n <= 0 {
		n = DefaultLength
	}
	c.required = n
	if len(c.notes) > n {
		c.notes = c.notes[:n]
	}
}

func (c *Capture) Required() int { return c.required }

func (c *Capture) Len() int { return len(c.notes) }

// Notes returns a copy of the captured notes.
func (c *Capture) Notes() []Note {
	out := make([]Note, len(c.notes))
	copy(out, c.notes)
	return out
}

// String renders the buffer the way it is shown to the player: "C4 - D4 - E4".
func (c *Capture) String() string {
	parts := make([]string, len(c.notes))
	for i, n := range c.notes {
		parts[i] = string(n)
	}
	return strings.Join(parts, " - ")
}
