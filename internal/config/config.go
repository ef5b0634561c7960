package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	DefaultMethod string `env:"DEFAULT_METHOD" envDefault:"transcript"`
	DefaultFormat string `env:"DEFAULT_FORMAT" envDefault:"text"`

	YouTubeAPIKey    string        `env:"YOUTUBE_API_KEY"`
	CaptionLanguages []string      `env:"CAPTION_LANGUAGES" envSeparator:"," envDefault:"en"`
	PlatformTimeout  time.Duration `env:"YOUTUBE_TIMEOUT" envDefault:"30s"`

	SpeechProvider string        `env:"SPEECH_PROVIDER" envDefault:"openai"`
	SpeechModel    string        `env:"SPEECH_MODEL"`
	SpeechLanguage string        `env:"SPEECH_LANGUAGE"`
	SpeechTimeout  time.Duration `env:"SPEECH_TIMEOUT" envDefault:"10m"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	DeepInfraAPIKey  string `env:"DEEPINFRA_API_KEY"`

	FFmpegPath string `env:"FFMPEG_PATH"`
	TempDir    string `env:"TEMP_DIR"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile        string
	HTTPAddr       string
	LogLevel       string
	SpeechProvider string
	SpeechModel    string
	SpeechTimeout  time.Duration
	FFmpegPath     string
	TempDir        string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.SpeechProvider != "" {
		cfg.SpeechProvider = overrides.SpeechProvider
	}
	if overrides.SpeechModel != "" {
		cfg.SpeechModel = overrides.SpeechModel
	}
	if overrides.SpeechTimeout > 0 {
		cfg.SpeechTimeout = overrides.SpeechTimeout
	}
	if overrides.FFmpegPath != "" {
		cfg.FFmpegPath = overrides.FFmpegPath
	}
	if overrides.TempDir != "" {
		cfg.TempDir = overrides.TempDir
	}

	cfg.SpeechProvider = strings.ToLower(strings.TrimSpace(cfg.SpeechProvider))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SpeechProvider {
	case "openai", "elevenlabs", "deepinfra":
	default:
		return fmt.Errorf("SPEECH_PROVIDER %q: must be one of openai, elevenlabs, deepinfra", c.SpeechProvider)
	}
	if c.SpeechTimeout < 0 {
		return fmt.Errorf("SPEECH_TIMEOUT must not be negative")
	}
	return nil
}

// SpeechAPIKey returns the credential for the configured speech provider.
// Empty means none is configured.
func (c *Config) SpeechAPIKey() string {
	switch c.SpeechProvider {
	case "elevenlabs":
		return c.ElevenLabsAPIKey
	case "deepinfra":
		return c.DeepInfraAPIKey
	}
	return c.OpenAIAPIKey
}

// SpeechBaseURL returns the endpoint override for the configured provider.
// Only the OpenAI-compatible provider accepts one.
func (c *Config) SpeechBaseURL() string {
	if c.SpeechProvider == "openai" {
		return c.OpenAIBaseURL
	}
	return ""
}
