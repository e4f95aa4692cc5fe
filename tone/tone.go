package tone

import (
	"encoding/binary"
	"math"
	"time"

	"melody-gate/melody"
)

const (
	SampleRate = 44100
	Duration   = 220 * time.Millisecond

	velocity = 0.7
	gain     = 1.4 // velocity is boosted so the piano cuts through
)

// Player sounds a note. Unknown notes are ignored.
type Player interface {
	Play(n melody.Note)
}

// Silent is a Player that does nothing.
type Silent struct{}

func (Silent) Play(melody.Note) {}

// triangle returns a triangle wave in [-1, 1] for a phase in [0, 1).
func triangle(phase float64) float64 {
	return 4*math.Abs(phase-math.Floor(phase+0.75)+0.25) - 1
}

// Render synthesises the tone for n as mono signed 16-bit little-endian PCM:
// a triangle wave at full loudness from the first sample, released linearly to
// silence over Duration. It returns nil for unknown notes.
func Render(n melody.Note, volume float64) []byte {
	freq, ok := melody.Frequency(n)
	if !ok {
		return nil
	}

	amp := math.Min(velocity*gain*volume, 1)
	samples := int(float64(SampleRate) * Duration.Seconds())
	buf := make([]byte, samples*2)

	var phase float64
	for i := 0; i < samples; i++ {
		env := 1 - float64(i)/float64(samples)
		v := triangle(phase) * amp * env
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
		_, phase = math.Modf(phase + freq/SampleRate)
	}
	return buf
}
