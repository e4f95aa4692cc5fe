package melody

import (
	"math"
	"unicode"
)

// Note identifies one of the fourteen white-key pitches on the gate piano.
type Note string

const (
	C4 Note = "C4"
	D4 Note = "D4"
	E4 Note = "E4"
	F4 Note = "F4"
	G4 Note = "G4"
	A4 Note = "A4"
	B4 Note = "B4"
	C5 Note = "C5"
	D5 Note = "D5"
	E5 Note = "E5"
	F5 Note = "F5"
	G5 Note = "G5"
	A5 Note = "A5"
	B5 Note = "B5"
)

// Notes is the fixed, ordered note set (two ascending diatonic octaves).
var Notes = [14]Note{C4, D4, E4, F4, G4, A4, B4, C5, D5, E5, F5, G5, A5, B5}

// Keys holds the input symbol for each entry of Notes, in the same order.
// The top letter row covers the first thirteen notes; ' reaches B5.
var Keys = [14]rune{'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '[', ']', '\\', '\''}

// Reference pitch for equal-tempered tuning
const (
	baseMIDI = 60 // C4
	refMIDI  = 69 // A4
	refFreq  = 440.0
)

var (
	keyToNote = make(map[rune]Note, len(Keys))
	noteIndex = make(map[Note]int, len(Notes))
	noteFreq  = make(map[Note]float64, len(Notes))
	midiNote  = make(map[uint8]Note, len(Notes))
)

func init() {
	for i, n := range Notes {
		keyToNote[Keys[i]] = n
		noteIndex[n] = i
		// one semitone per position, as the gate piano has always been tuned
		noteFreq[n] = refFreq * math.Pow(2, float64(baseMIDI+i-refMIDI)/12)
		midiNote[naturalMIDI(i)] = n
	}
}

// naturalMIDI is the concert MIDI number of the white key at position i.
func naturalMIDI(i int) uint8 {
	steps := [7]uint8{0, 2, 4, 5, 7, 9, 11}
	return uint8(baseMIDI + 12*(i/7) + int(steps[i%7]))
}

// NoteForKey maps a single typed character to its note. Lookup is case-insensitive
// and anything longer than one character never matches.
func NoteForKey(key string) (Note, bool) {
	r := []rune(key)
	if len(r) != 1 {
		return "", false
	}
	n, ok := keyToNote[unicode.ToUpper(r[0])]
	return n, ok
}

// NoteForMIDI maps a MIDI note number from a hardware keyboard to a gate note.
// Black keys and notes outside C4..B5 do not map.
func NoteForMIDI(num uint8) (Note, bool) {
	n, ok := midiNote[num]
	return n, ok
}

// Frequency returns the tone frequency in Hz, or false for an unknown note.
func Frequency(n Note) (float64, bool) {
	f, ok := noteFreq[n]
	return f, ok
}

// Index returns the position of n in Notes, or -1.
func Index(n Note) int {
	if i, ok := noteIndex[n]; ok {
		return i
	}
	return -1
}

// Key returns the input symbol bound to n.
func Key(n Note) (rune, bool) {
	i := Index(n)
	if i < 0 {
		return 0, false
	}
	return Keys[i], true
}

// Valid reports whether n is one of the fourteen gate notes.
func (n Note) Valid() bool {
	return Index(n) >= 0
}
