package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"melody-gate/melody"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "listen":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		listen(port)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List MIDI input ports")
	fmt.Println("  listen [port] - Print notes and the gate note they map to")
	fmt.Println("                  (port is an index or a name substring)")
}

func inPorts() ([]drivers.In, bool) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- midi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		return ins, true
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return nil, false
	}
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, ok := inPorts()
	if !ok {
		return
	}
	if len(ins) == 0 {
		fmt.Println("  (none)")
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func pickPort(ins []drivers.In, want string) drivers.In {
	if want == "" {
		if len(ins) > 0 {
			return ins[0]
		}
		return nil
	}
	if i, err := strconv.Atoi(want); err == nil && i >= 0 && i < len(ins) {
		return ins[i]
	}
	for _, p := range ins {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(want)) {
			return p
		}
	}
	return nil
}

func listen(want string) {
	ins, ok := inPorts()
	if !ok {
		return
	}
	in := pickPort(ins, want)
	if in == nil {
		fmt.Println("No matching input port")
		return
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		var ch, key, vel uint8
		if !msg.GetNoteOn(&ch, &key, &vel) || vel == 0 {
			return
		}
		if n, ok := melody.NoteForMIDI(key); ok {
			r, _ := melody.Key(n)
			fmt.Printf("[%s] note %3d vel %3d -> %s (%c)\n",
				time.Now().Format("15:04:05"), key, vel, n, r)
		} else {
			fmt.Printf("[%s] note %3d vel %3d -> not on the gate piano\n",
				time.Now().Format("15:04:05"), key, vel)
		}
	})
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}
	defer stop()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", in.String())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	midi.CloseDriver()
}
