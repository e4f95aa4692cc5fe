package tone

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"melody-gate/debug"
	"melody-gate/melody"
)

const maxVoices = 16

// OtoPlayer plays tones through the system audio device. The device is opened
// lazily on first use; if that fails the player stays silent.
type OtoPlayer struct {
	volume float64

	once sync.Once
	ctx  *oto.Context

	mu     sync.Mutex
	cache  map[melody.Note][]byte
	voices map[*oto.Player]struct{}
}

func NewOtoPlayer(volume float64) *OtoPlayer {
	if volume <= 0 || volume > 1 {
		volume = 1
	}
	return &OtoPlayer{
		volume: volume,
		cache:  make(map[melody.Note][]byte),
		voices: make(map[*oto.Player]struct{}),
	}
}

func (p *OtoPlayer) init() {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   30 * time.Millisecond,
	})
	if err != nil {
		debug.Error("tone", fmt.Errorf("open audio device: %w", err), "sound disabled")
		return
	}
	<-ready
	p.ctx = ctx
	debug.Log("tone", "audio ready at %dHz", SampleRate)
}

// Play starts the tone for n and returns immediately.
func (p *OtoPlayer) Play(n melody.Note) {
	p.once.Do(p.init)
	if p.ctx == nil {
		return
	}

	pcm := p.pcm(n)
	if pcm == nil {
		return
	}

	p.mu.Lock()
	for v := range p.voices {
		if !v.IsPlaying() {
			v.Close()
			delete(p.voices, v)
		}
	}
	if len(p.voices) >= maxVoices {
		p.mu.Unlock()
		debug.LogEvery(10, "tone", "voice limit reached")
		return
	}
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.voices[player] = struct{}{}
	p.mu.Unlock()

	player.Play()
}

func (p *OtoPlayer) pcm(n melody.Note) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pcm, ok := p.cache[n]; ok {
		return pcm
	}
	pcm := Render(n, p.volume)
	if pcm != nil {
		p.cache[n] = pcm
	}
	return pcm
}
