package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melody-gate/api"
	"melody-gate/melody"
	"melody-gate/mockserver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPlayer struct {
	played []melody.Note
}

func (p *recordingPlayer) Play(n melody.Note) {
	p.played = append(p.played, n)
}

func pressAll(s *Session, notes ...melody.Note) {
	for _, n := range notes {
		s.HandleNotePress(n, PressOptions{Sound: true})
	}
}

func TestPressScenario(t *testing.T) {
	p := &recordingPlayer{}
	s := New(4, p)

	pressAll(s, melody.C4, melody.D4, melody.E4, melody.F4)

	assert.True(t, s.CanSubmit())
	assert.Equal(t, []melody.Note{melody.C4, melody.D4, melody.E4, melody.F4}, s.Notes())
	assert.Equal(t, "C4 - D4 - E4 - F4", s.Melody())
	assert.Equal(t, s.Notes(), p.played)
}

func TestPressBeyondRequiredIsNoop(t *testing.T) {
	p := &recordingPlayer{}
	s := New(4, p)

	for i, n := range melody.Notes {
		accepted := s.HandleNotePress(n, PressOptions{Sound: true})
		assert.Equal(t, i < 4, accepted)
		assert.LessOrEqual(t, s.Played(), s.Required())
	}
	// every accepted press sounds exactly once, rejected ones stay silent
	assert.Len(t, p.played, 4)
}

func TestPressWithoutSound(t *testing.T) {
	p := &recordingPlayer{}
	s := New(4, p)

	assert.True(t, s.HandleNotePress(melody.G4, PressOptions{}))
	assert.Empty(t, p.played)
	assert.Equal(t, 1, s.Played())
}

func TestSubmitEnabledOnlyWhenComplete(t *testing.T) {
	s := New(6, nil)
	for i := 0; i <= 6; i++ {
		assert.Equal(t, i == 6, s.CanSubmit(), "after %d notes", i)
		s.HandleNotePress(melody.Notes[i], PressOptions{})
	}
}

func TestBackspace(t *testing.T) {
	s := New(4, nil)
	assert.False(t, s.Backspace())
	assert.Equal(t, 0, s.Played())

	pressAll(s, melody.C4, melody.A5)
	assert.True(t, s.Backspace())
	assert.Equal(t, []melody.Note{melody.C4}, s.Notes())
}

func TestResetClearsBufferAndStatus(t *testing.T) {
	s := New(2, nil)
	pressAll(s, melody.C4, melody.D4)
	_, ok := s.BeginVerify()
	require.True(t, ok)
	s.ApplyVerify(api.VerifyResult{Success: false})
	require.Equal(t, StatusIncorrect, s.AuthStatus())

	pressAll(s, melody.E4)
	s.Reset()
	assert.Equal(t, 0, s.Played())
	assert.False(t, s.CanSubmit())
	assert.Empty(t, s.AuthStatus())
}

func TestPressClearsStatus(t *testing.T) {
	s := New(1, nil)
	pressAll(s, melody.C4)
	s.BeginVerify()
	s.ApplyVerify(api.VerifyResult{})
	require.NotEmpty(t, s.AuthStatus())

	pressAll(s, melody.C4)
	assert.Empty(t, s.AuthStatus())
}

func TestVerifyIncorrect(t *testing.T) {
	s := New(4, nil)
	pressAll(s, melody.C4, melody.D4, melody.E4, melody.G4)

	attempt, ok := s.BeginVerify()
	require.True(t, ok)
	assert.Len(t, attempt, 4)
	assert.Equal(t, Verifying, s.State())
	assert.Equal(t, StatusChecking, s.AuthStatus())
	assert.False(t, s.CanSubmit())

	delay := s.ApplyVerify(api.VerifyResult{Success: false})
	assert.Zero(t, delay)
	assert.Equal(t, StatusIncorrect, s.AuthStatus())
	assert.Equal(t, 0, s.Played())
	assert.False(t, s.CanSubmit())
	assert.Equal(t, Locked, s.State())
	assert.Equal(t, ViewAuth, s.View())
}

func TestVerifyRequestFailure(t *testing.T) {
	s := New(1, nil)
	pressAll(s, melody.C4)
	s.BeginVerify()

	s.ApplyVerify(api.VerifyResult{Err: errors.New("connection refused")})
	assert.Equal(t, StatusNoServer, s.AuthStatus())
	assert.Equal(t, 0, s.Played())
	assert.Equal(t, Locked, s.State())
}

func TestVerifySuccess(t *testing.T) {
	s := New(4, nil)
	pressAll(s, melody.C4, melody.D4, melody.E4, melody.F4)
	s.BeginVerify()

	delay := s.ApplyVerify(api.VerifyResult{Success: true})
	assert.Equal(t, UnlockDelay, delay)
	assert.Equal(t, StatusUnlocked, s.AuthStatus())
	assert.Equal(t, Unlocked, s.State())
	assert.False(t, s.CanSubmit(), "submit stays disabled once unlocked")
	assert.Equal(t, ViewAuth, s.View(), "view switches only after the delay")

	s.ShowGenerator()
	assert.Equal(t, ViewGenerate, s.View())

	// unlocked is terminal: input is ignored
	assert.False(t, s.HandleNotePress(melody.C4, PressOptions{}))
	assert.False(t, s.Backspace())
}

func TestInputIgnoredWhileVerifying(t *testing.T) {
	s := New(2, nil)
	pressAll(s, melody.C4, melody.D4)
	s.BeginVerify()

	assert.False(t, s.Backspace())
	s.Reset()
	assert.Equal(t, 2, s.Played())
}

func TestStaleVerifyIgnored(t *testing.T) {
	s := New(2, nil)
	pressAll(s, melody.C4)
	assert.Zero(t, s.ApplyVerify(api.VerifyResult{Success: true}))
	assert.Equal(t, Locked, s.State())
	assert.Equal(t, 1, s.Played())
}

func TestShowGeneratorRequiresUnlock(t *testing.T) {
	s := New(4, nil)
	s.ShowGenerator()
	assert.Equal(t, ViewAuth, s.View())
}

func TestPulse(t *testing.T) {
	s := New(4, nil)
	pressAll(s, melody.C4)
	first := s.Pulse(melody.C4)
	assert.True(t, s.Pulsing(melody.C4))

	pressAll(s, melody.C4)
	second := s.Pulse(melody.C4)
	s.EndPulse(melody.C4, first)
	assert.True(t, s.Pulsing(melody.C4), "a newer press keeps the key lit")

	s.EndPulse(melody.C4, second)
	assert.False(t, s.Pulsing(melody.C4))
}

func TestApplyChallenge(t *testing.T) {
	s := New(4, nil)
	s.ApplyChallenge(api.ChallengeResult{Length: 6})
	assert.Equal(t, 6, s.Required())

	s.ApplyChallenge(api.ChallengeResult{Length: 0})
	assert.Equal(t, melody.DefaultLength, s.Required())
}

func TestChallengeFetchFailureKeepsDefault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := api.NewClient(base, nil, time.Second)
	s := New(melody.DefaultLength, nil)
	s.ApplyChallenge(c.FetchChallenge(context.Background()))
	assert.Equal(t, 4, s.Required())
}

func TestRoundTripAgainstServer(t *testing.T) {
	srv := httptest.NewServer(mockserver.New(mockserver.ParseMelody("E4 E4 F4 G4 G4")).Router())
	defer srv.Close()
	c := api.NewClient(srv.URL, nil, 5*time.Second)
	ctx := context.Background()

	s := New(melody.DefaultLength, nil)
	s.ApplyChallenge(c.FetchChallenge(ctx))
	require.Equal(t, 5, s.Required())

	pressAll(s, melody.E4, melody.E4, melody.F4, melody.G4, melody.A4)
	attempt, ok := s.BeginVerify()
	require.True(t, ok)
	s.ApplyVerify(c.Verify(ctx, attempt))
	assert.Equal(t, StatusIncorrect, s.AuthStatus())
	assert.Equal(t, 0, s.Played())

	pressAll(s, melody.E4, melody.E4, melody.F4, melody.G4, melody.G4)
	attempt, _ = s.BeginVerify()
	assert.Equal(t, UnlockDelay, s.ApplyVerify(c.Verify(ctx, attempt)))
	s.ShowGenerator()
	assert.Equal(t, ViewGenerate, s.View())
}

func TestRestart(t *testing.T) {
	s := New(1, nil)
	s.ApplyChallenge(api.ChallengeResult{Length: 1})
	pressAll(s, melody.C4)
	s.BeginVerify()
	s.ApplyVerify(api.VerifyResult{Success: true})
	s.ShowGenerator()
	s.SetPrompt("koi")

	s.Restart()
	assert.Equal(t, Locked, s.State())
	assert.Equal(t, ViewAuth, s.View())
	assert.Equal(t, 0, s.Played())
	assert.Equal(t, 1, s.Required())
	assert.Empty(t, s.Prompt())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "verifying", Verifying.String())
	assert.Equal(t, "unlocked", Unlocked.String())
}
