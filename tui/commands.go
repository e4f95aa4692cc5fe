package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"melody-gate/api"
	"melody-gate/gate"
	"melody-gate/melody"
	"melody-gate/midi"
)

type challengeMsg api.ChallengeResult

type verifyMsg api.VerifyResult

type generateMsg api.GenerateResult

type pulseEndMsg struct {
	note melody.Note
	id   int
}

type unlockMsg struct{}

type midiNoteMsg struct {
	event midi.NoteEvent
	from  midi.Controller
}

type midiClosedMsg struct{ id string }

type DeviceEventMsg midi.DeviceEvent

func fetchChallenge(svc api.Service, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return challengeMsg(svc.FetchChallenge(ctx))
	}
}

func verify(svc api.Service, attempt []melody.Note, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return verifyMsg(svc.Verify(ctx, attempt))
	}
}

func generate(svc api.Service, req api.GenerateRequest, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return generateMsg(svc.Generate(ctx, req))
	}
}

func endPulse(n melody.Note, id int) tea.Cmd {
	return tea.Tick(gate.PulseDuration, func(time.Time) tea.Msg {
		return pulseEndMsg{note: n, id: id}
	})
}

func unlockAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return unlockMsg{}
	})
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func listenForNotes(c midi.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.NoteEvents()
		if !ok {
			return midiClosedMsg{id: c.ID()}
		}
		return midiNoteMsg{event: ev, from: c}
	}
}
