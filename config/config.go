package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultAPIBase is the hosted image service the gate talks to.
const DefaultAPIBase = "https://imagen.ai-n.workers.dev"

// Environment overrides (a .env file in the working directory is loaded first)
const (
	EnvAPIBase   = "MELODY_GATE_API_BASE"
	EnvSentryDSN = "MELODY_GATE_SENTRY_DSN"
	EnvDebug     = "MELODY_GATE_DEBUG"
)

// SoundConfig controls the piano tone output
type SoundConfig struct {
	Enabled bool    `json:"enabled"`
	Volume  float64 `json:"volume"`
}

// MIDIConfig controls hardware keyboard input
type MIDIConfig struct {
	Enabled    bool   `json:"enabled"`
	PortFilter string `json:"portFilter,omitempty"` // substring of the input port name
	EchoSound  bool   `json:"echoSound"`            // also sound MIDI notes through the tone player
}

// DownloadConfig controls where generated images are saved
type DownloadConfig struct {
	Dir    string `json:"dir,omitempty"`
	Dialog bool   `json:"dialog"` // ask with a native save dialog
}

// Config is the main configuration structure
type Config struct {
	APIBase             string         `json:"apiBase"`
	DefaultMelodyLength int            `json:"defaultMelodyLength"`
	RequestTimeoutMS    int            `json:"requestTimeout"`
	Sound               SoundConfig    `json:"sound"`
	MIDI                MIDIConfig     `json:"midi"`
	Download            DownloadConfig `json:"download"`
	SentryDSN           string         `json:"sentryDSN,omitempty"`
	Debug               bool           `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBase:             DefaultAPIBase,
		DefaultMelodyLength: 4,
		RequestTimeoutMS:    60000,
		Sound: SoundConfig{
			Enabled: true,
			Volume:  1.0,
		},
		MIDI: MIDIConfig{
			Enabled: true,
		},
	}
}

// RequestTimeout is the per-request deadline for the image service.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return time.Minute
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "melody-gate"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the debug log location
func LogPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "melody-gate-debug.log")
	}
	return filepath.Join(dir, "debug.log")
}

// Load reads the config from disk, or returns defaults if not found.
// Environment overrides are applied either way.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file. Missing files yield defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config
func (c *Config) ApplyEnv() {
	c.APIBase = getEnv(EnvAPIBase, c.APIBase)
	c.SentryDSN = getEnv(EnvSentryDSN, c.SentryDSN)
	if v, err := strconv.ParseBool(getEnv(EnvDebug, "")); err == nil {
		c.Debug = v
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DownloadDir returns the directory for saved images, defaulting to ~/Downloads
// and then to the working directory.
func (c *Config) DownloadDir() string {
	if c.Download.Dir != "" {
		return c.Download.Dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		dl := filepath.Join(home, "Downloads")
		if st, err := os.Stat(dl); err == nil && st.IsDir() {
			return dl
		}
	}
	return "."
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
