package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env        string           `yaml:"env"`
	Port       int              `yaml:"port"`
	Logging    LoggingConfig    `yaml:"logging"`
	Recording  RecordingConfig  `yaml:"recording"`
	Whisper    WhisperConfig    `yaml:"whisper"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Store      StoreConfig      `yaml:"store"`
	API        APIConfig        `yaml:"api"`
	Channels   []ChannelConfig  `yaml:"channels"`

	// Set from the environment only, never from the file.
	OpenAIAPIKey string `yaml:"-"`
	GeminiAPIKey string `yaml:"-"`
	RedisURL     string `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RecordingConfig holds the global capture defaults. Channels inherit
// these unless overridden in the channel entry or per-channel env vars.
type RecordingConfig struct {
	LengthSecs   int `yaml:"length_secs"`
	IntervalSecs int `yaml:"interval_secs"`
}

type WhisperConfig struct {
	Model       string `yaml:"model"`
	Language    string `yaml:"language"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type SummarizerConfig struct {
	Backend     string `yaml:"backend"` // "openai" or "gemini"
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type StoreConfig struct {
	RetentionHours int `yaml:"retention_hours"`
}

type APIConfig struct {
	LookbackHours int `yaml:"lookback_hours"`
}

// ChannelConfig describes one monitored stream. It is resolved once at
// startup and immutable afterwards.
type ChannelConfig struct {
	Name              string  `yaml:"name"`
	Source            string  `yaml:"source"`
	RecordingLength   int     `yaml:"recording_length"`
	RecordingInterval int     `yaml:"recording_interval"`
	ContextWindowMins int     `yaml:"context_window_mins"`
	Prompt            string  `yaml:"prompt"`
	Temperature       float64 `yaml:"temperature"`
}

func (c ChannelConfig) Length() time.Duration   { return time.Duration(c.RecordingLength) * time.Second }
func (c ChannelConfig) Interval() time.Duration { return time.Duration(c.RecordingInterval) * time.Second }
func (c ChannelConfig) Window() time.Duration   { return time.Duration(c.ContextWindowMins) * time.Minute }

func (c Config) Retention() time.Duration { return time.Duration(c.Store.RetentionHours) * time.Hour }
func (c Config) Lookback() time.Duration  { return time.Duration(c.API.LookbackHours) * time.Hour }

// Defaults returns a Config with all default values set, including the
// built-in Sveriges Radio channel list used when no config file is given.
func Defaults() Config {
	return Config{
		Port: 5001,
		Logging: LoggingConfig{
			Level: "info",
		},
		Recording: RecordingConfig{
			LengthSecs:   30,
			IntervalSecs: 900,
		},
		Whisper: WhisperConfig{
			Model:       "whisper-1",
			Language:    "sv",
			TimeoutSecs: 60,
		},
		Summarizer: SummarizerConfig{
			Backend:     "openai",
			Model:       "gpt-4o-mini",
			TimeoutSecs: 30,
		},
		Store: StoreConfig{
			RetentionHours: 24,
		},
		API: APIConfig{
			LookbackHours: 1,
		},
		Channels: []ChannelConfig{
			{
				Name:   "P1",
				Source: "https://edge2.sr.se/p1-mp3-96",
			},
			{
				Name:   "P3",
				Source: "https://edge2.sr.se/p3-mp3-96",
			},
		},
	}
}

// Load resolves the full configuration: defaults, then the optional YAML
// file at path, then environment overrides. The environment is read once
// here and never again.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// The file is optional; defaults carry the built-in channels.
		case err != nil:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v, ok := envInt("PORT"); ok {
		c.Port = v
	}
	if v, ok := envInt("RECORDING_LENGTH"); ok {
		c.Recording.LengthSecs = v
	}
	if v, ok := envInt("RECORDING_INTERVAL"); ok {
		c.Recording.IntervalSecs = v
	}

	// Local mode runs a single channel on a tighter cadence.
	if c.Env == "local" {
		if len(c.Channels) > 1 {
			c.Channels = c.Channels[:1]
		}
		if os.Getenv("RECORDING_INTERVAL") == "" {
			c.Recording.IntervalSecs = 120
		}
	}

	for i := range c.Channels {
		ch := &c.Channels[i]

		if ch.RecordingLength == 0 {
			ch.RecordingLength = c.Recording.LengthSecs
		}
		if ch.RecordingInterval == 0 {
			ch.RecordingInterval = c.Recording.IntervalSecs
		}
		if ch.ContextWindowMins == 0 {
			ch.ContextWindowMins = 120
		}

		// Per-channel env overrides win over both file and globals.
		if v, ok := envInt(envKey(ch.Name) + "_RECORDING_LENGTH"); ok {
			ch.RecordingLength = v
		}
		if v, ok := envInt(envKey(ch.Name) + "_RECORDING_INTERVAL"); ok {
			ch.RecordingInterval = v
		}
	}
}

// envKey maps a channel name to its env-var prefix: "P4-Gotland" ->
// "P4_GOTLAND".
func envKey(channel string) string {
	return strings.ToUpper(strings.ReplaceAll(channel, "-", "_"))
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}

	switch c.Summarizer.Backend {
	case "openai":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown summarizer backend %q", c.Summarizer.Backend)
	}

	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel name is required")
		}
		if seen[ch.Name] {
			return fmt.Errorf("duplicate channel %q", ch.Name)
		}
		seen[ch.Name] = true

		if ch.Source == "" {
			return fmt.Errorf("channel %s: source is required", ch.Name)
		}
		if ch.RecordingLength <= 0 {
			return fmt.Errorf("channel %s: recording_length must be positive", ch.Name)
		}
		if ch.RecordingInterval <= 0 {
			return fmt.Errorf("channel %s: recording_interval must be positive", ch.Name)
		}
		if ch.Temperature < 0 || ch.Temperature > 2 {
			return fmt.Errorf("channel %s: temperature must be in [0, 2]", ch.Name)
		}
		if c.Retention() < ch.Window() {
			return fmt.Errorf("channel %s: retention (%dh) is shorter than the context window", ch.Name, c.Store.RetentionHours)
		}
	}

	if c.Store.RetentionHours <= 0 {
		return fmt.Errorf("store.retention_hours must be positive")
	}

	return nil
}
