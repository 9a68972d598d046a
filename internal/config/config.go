package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Slider ranges for the speed and pitch controls.
const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
	MinPitch     = 0.5
	MaxPitch     = 10.0
	SliderStep   = 0.1
	DefaultSpeed = 1.0
	DefaultPitch = 1.0
)

// Config holds all application configuration.
type Config struct {
	// TTS settings
	Engine      string  `yaml:"engine"`
	EspeakPath  string  `yaml:"espeak_path"`
	PiperPath   string  `yaml:"piper_path"`
	PiperModel  string  `yaml:"piper_model"`
	EdgeVoice   string  `yaml:"edge_voice"`
	TTSCommand  string  `yaml:"command"`
	Voice       string  `yaml:"voice"`
	BaseRateWPM float64 `yaml:"base_rate_wpm"`
	RenderDir   string  `yaml:"render_dir"`

	// Playback settings
	OutputSink      string        `yaml:"output_sink"`
	FFmpegPath      string        `yaml:"ffmpeg_path"`
	HighlightUnit   time.Duration `yaml:"highlight_unit"`
	AutoReleaseIdle time.Duration `yaml:"auto_release_idle"`

	// Discord output settings
	DiscordToken   string `yaml:"discord_token"`
	GuildID        string `yaml:"guild_id"`
	VoiceChannelID string `yaml:"voice_channel_id"`

	// Control API settings
	ControlPort int    `yaml:"control_port"`
	BearerToken string `yaml:"bearer_token"`

	// Logging settings
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Engine:          "espeak",
		EspeakPath:      "espeak-ng",
		PiperPath:       "piper",
		EdgeVoice:       "en-US-AriaNeural",
		BaseRateWPM:     200,
		RenderDir:       os.TempDir(),
		OutputSink:      "local",
		FFmpegPath:      "ffmpeg",
		HighlightUnit:   100 * time.Millisecond,
		AutoReleaseIdle: 5 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// TTS_CONFIG_FILE if set, then environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("TTS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found: %w", err)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv overrides fields with any environment variables that are set.
func (c *Config) applyEnv() {
	// TTS settings
	c.Engine = getEnvString("TTS_ENGINE", c.Engine)
	c.EspeakPath = getEnvString("ESPEAK_PATH", c.EspeakPath)
	c.PiperPath = getEnvString("PIPER_PATH", c.PiperPath)
	c.PiperModel = getEnvString("PIPER_MODEL", c.PiperModel)
	c.EdgeVoice = getEnvString("EDGE_VOICE", c.EdgeVoice)
	c.TTSCommand = getEnvString("TTS_COMMAND", c.TTSCommand)
	c.Voice = getEnvString("TTS_VOICE", c.Voice)
	c.BaseRateWPM = getEnvFloat("BASE_RATE_WPM", c.BaseRateWPM)
	c.RenderDir = getEnvString("RENDER_DIR", c.RenderDir)

	// Playback settings
	c.OutputSink = getEnvString("OUTPUT_SINK", c.OutputSink)
	c.FFmpegPath = getEnvString("FFMPEG_PATH", c.FFmpegPath)
	c.HighlightUnit = getEnvDuration("HIGHLIGHT_UNIT", c.HighlightUnit)
	c.AutoReleaseIdle = getEnvDuration("AUTO_RELEASE_IDLE", c.AutoReleaseIdle)

	// Discord output settings
	c.DiscordToken = getEnvString("DISCORD_TOKEN", c.DiscordToken)
	c.GuildID = getEnvString("GUILD_ID", c.GuildID)
	c.VoiceChannelID = getEnvString("VOICE_CHANNEL_ID", c.VoiceChannelID)

	// Control API settings
	c.ControlPort = getEnvInt("CONTROL_PORT", c.ControlPort)
	c.BearerToken = getEnvString("BEARER_TOKEN", c.BearerToken)

	// Logging settings
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
}

// ControlEnabled returns true if the HTTP control API should be started.
func (c *Config) ControlEnabled() bool {
	return c.ControlPort > 0
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	validEngines := map[string]bool{"espeak": true, "piper": true, "edge": true, "command": true}
	if !validEngines[c.Engine] {
		return errors.New("TTS_ENGINE must be one of: espeak, piper, edge, command")
	}

	if c.Engine == "piper" && c.PiperModel == "" {
		return errors.New("PIPER_MODEL is required when TTS_ENGINE=piper")
	}

	if c.Engine == "command" && c.TTSCommand == "" {
		return errors.New("TTS_COMMAND is required when TTS_ENGINE=command")
	}

	if c.BaseRateWPM <= 0 {
		return errors.New("BASE_RATE_WPM must be positive")
	}

	if c.HighlightUnit <= 0 {
		return errors.New("HIGHLIGHT_UNIT must be positive")
	}

	if c.AutoReleaseIdle < 0 {
		return errors.New("AUTO_RELEASE_IDLE must be non-negative")
	}

	validSinks := map[string]bool{"local": true, "discord": true}
	if !validSinks[c.OutputSink] {
		return errors.New("OUTPUT_SINK must be one of: local, discord")
	}

	if c.OutputSink == "discord" && (c.DiscordToken == "" || c.GuildID == "" || c.VoiceChannelID == "") {
		return errors.New("DISCORD_TOKEN, GUILD_ID and VOICE_CHANNEL_ID are required when OUTPUT_SINK=discord")
	}

	if c.ControlPort < 0 || c.ControlPort > 65535 {
		return errors.New("CONTROL_PORT must be between 0 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
