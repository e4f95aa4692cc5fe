package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"melody-gate/api"
	"melody-gate/config"
	"melody-gate/debug"
	"melody-gate/download"
	"melody-gate/gate"
	"melody-gate/midi"
	"melody-gate/theme"
	"melody-gate/tone"
	"melody-gate/tui"
)

const sentryFlushTimeout = 2 * time.Second

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	debugFlag := flag.Bool("debug", cfg.Debug, "write a debug log to "+config.LogPath())
	mute := flag.Bool("mute", false, "disable the piano tone")
	apiBase := flag.String("api", cfg.APIBase, "image service base URL")
	saveConfig := flag.Bool("save-config", false, "write the effective config and exit")
	flag.Parse()

	cfg.APIBase = *apiBase
	cfg.Debug = *debugFlag
	if *mute {
		cfg.Sound.Enabled = false
	}

	if *saveConfig {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		path, _ := config.ConfigPath()
		fmt.Println("Config written to", path)
		return
	}

	if cfg.Debug {
		if err := debug.Enable(config.LogPath()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		}
		defer debug.Disable()
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: "melody-gate@" + releaseVersion,
		}); err != nil {
			debug.Log("main", "sentry init failed: %v", err)
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	var player tone.Player = tone.Silent{}
	if cfg.Sound.Enabled {
		player = tone.NewOtoPlayer(cfg.Sound.Volume)
	}

	client := api.NewClient(cfg.APIBase, &http.Client{}, cfg.RequestTimeout()).
		WithDefaultLength(cfg.DefaultMelodyLength)

	var saver gate.Saver = download.FileSaver{Dir: cfg.DownloadDir()}
	if cfg.Download.Dialog {
		saver = download.DialogSaver{Dir: cfg.DownloadDir()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MIDI keyboards are picked up while the app runs
	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.Enabled {
		deviceMgr = midi.NewDeviceManager(cfg.MIDI.PortFilter)
		go deviceMgr.Run(ctx)
	}

	session := gate.New(cfg.DefaultMelodyLength, player)
	m := tui.NewModel(session, tui.Options{
		Service:   client,
		DeviceMgr: deviceMgr,
		Theme:     theme.Default(),
		Saver:     saver,
		Timeout:   cfg.RequestTimeout(),
		EchoMIDI:  cfg.MIDI.EchoSound,
		APILabel:  client.Base(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	debug.Log("main", "starting against %s", client.Base())
	if _, err := p.Run(); err != nil {
		debug.Error("main", err, "tui exited")
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
