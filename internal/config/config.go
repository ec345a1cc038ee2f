package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BrianIS8090/wisper/internal/models"
)

// Backend names accepted in Config.Backend.
const (
	BackendLocal  = "local"
	BackendGroq   = "groq"
	BackendYandex = "yandex"
)

var (
	// ErrMissingAPIKey is returned by Validate when a cloud backend has no key.
	ErrMissingAPIKey = errors.New("config: api key required for cloud backend")
	// ErrUnknownBackend is returned by Validate for an unsupported backend name.
	ErrUnknownBackend = errors.New("config: unknown backend")
)

// Config holds all application configuration.
type Config struct {
	Backend   string          `yaml:"backend"` // "local", "groq" or "yandex"
	Language  string          `yaml:"language"`
	Hotkey    HotkeyConfig    `yaml:"hotkey"`
	Audio     AudioConfig     `yaml:"audio"`
	Inject    InjectConfig    `yaml:"inject"`
	Local     LocalConfig     `yaml:"local"`
	Groq      GroqConfig      `yaml:"groq"`
	Yandex    YandexConfig    `yaml:"yandex"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Debounce  time.Duration   `yaml:"debounce"`
	LogLevel  string          `yaml:"log_level"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate  uint32        `yaml:"sample_rate"`
	Channels    uint32        `yaml:"channels"`
	MaxDuration time.Duration `yaml:"max_duration"`
	MinDuration time.Duration `yaml:"min_duration"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method           string        `yaml:"method"` // "type" or "paste"
	PasteDelay       time.Duration `yaml:"paste_delay"`
	RestoreClipboard bool          `yaml:"restore_clipboard"`
}

// LocalConfig configures the on-device whisper.cpp backend.
type LocalConfig struct {
	Model         string `yaml:"model"` // one of models.Sizes
	ModelsDir     string `yaml:"models_dir"`
	InitialPrompt string `yaml:"initial_prompt"`
	Threads       int    `yaml:"threads"` // 0 = all CPUs
}

// GroqConfig configures the Groq OpenAI-compatible transcription API.
type GroqConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// YandexConfig configures SpeechKit recognition and YandexGPT correction.
type YandexConfig struct {
	APIKey      string        `yaml:"api_key"`
	FolderID    string        `yaml:"folder_id"`
	STTURL      string        `yaml:"stt_url"`
	Lang        string        `yaml:"lang"`
	Topic       string        `yaml:"topic"`
	Correct     bool          `yaml:"correct"` // run YandexGPT when folder_id is set
	GPTURL      string        `yaml:"gpt_url"`
	GPTModel    string        `yaml:"gpt_model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IndicatorConfig toggles the system tray status indicator.
type IndicatorConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wisper")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultEnvPath returns the default settings dotfile path.
func DefaultEnvPath() string {
	return filepath.Join(DefaultConfigDir(), ".env")
}

// DefaultModelsDir returns the directory local whisper models are stored in.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(home, ".local", "share", "wisper", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend:  BackendLocal,
		Language: "ru",
		Hotkey: HotkeyConfig{
			Keys: []string{"f8"},
			Mode: "hold",
		},
		Audio: AudioConfig{
			SampleRate:  48000,
			Channels:    1,
			MaxDuration: 60 * time.Second,
			MinDuration: 300 * time.Millisecond,
		},
		Inject: InjectConfig{
			Method:     "paste",
			PasteDelay: 100 * time.Millisecond,
		},
		Local: LocalConfig{
			Model:         "small",
			ModelsDir:     DefaultModelsDir(),
			InitialPrompt: "Привет, это проба пера. Пишем текст на русском языке.",
		},
		Groq: GroqConfig{
			BaseURL: "https://api.groq.com/openai/v1/",
			Model:   "whisper-large-v3",
			Timeout: 60 * time.Second,
		},
		Yandex: YandexConfig{
			STTURL:      "https://stt.api.cloud.yandex.net/speech/v1/stt:recognize",
			Lang:        "ru-RU",
			Topic:       "general",
			Correct:     true,
			GPTURL:      "https://llm.api.cloud.yandex.net/foundationModels/v1/completion",
			GPTModel:    "yandexgpt-lite",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     60 * time.Second,
		},
		Indicator: IndicatorConfig{Enabled: true},
		Debounce:  500 * time.Millisecond,
		LogLevel:  "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in models_dir is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Local.ModelsDir = expandTilde(cfg.Local.ModelsDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		if !IsModelSize(c.Local.Model) {
			return fmt.Errorf("local.model must be one of %s, got %q", strings.Join(models.Sizes, ", "), c.Local.Model)
		}
		if c.Local.ModelsDir == "" {
			return fmt.Errorf("local.models_dir must not be empty")
		}
	case BackendGroq:
		if c.Groq.APIKey == "" {
			return fmt.Errorf("%w: set GROQ_API_KEY or groq.api_key", ErrMissingAPIKey)
		}
	case BackendYandex:
		if c.Yandex.APIKey == "" {
			return fmt.Errorf("%w: set YANDEX_API_KEY or yandex.api_key", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w %q (supported: local, groq, yandex)", ErrUnknownBackend, c.Backend)
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Audio.MaxDuration <= 0 {
		return fmt.Errorf("audio.max_duration must be > 0")
	}

	if c.Audio.MinDuration < 0 {
		return fmt.Errorf("audio.min_duration must not be negative")
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLogLevel maps a level name (debug, info, warn or error) to a
// slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	lvl, ok := logLevels[s]
	if !ok {
		return 0, fmt.Errorf("must be debug, info, warn, or error, got %q", s)
	}
	return lvl, nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	if lvl, err := ParseLogLevel(c.LogLevel); err == nil {
		return lvl
	}
	return slog.LevelInfo
}

// IsModelSize reports whether s names a supported local model size.
func IsModelSize(s string) bool {
	for _, m := range models.Sizes {
		if m == s {
			return true
		}
	}
	return false
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
