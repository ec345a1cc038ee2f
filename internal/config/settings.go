package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Dotfile keys understood by ReadSettings and SaveSettings.
const (
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvYandexAPIKey   = "YANDEX_API_KEY"
	EnvYandexFolderID = "YANDEX_FOLDER_ID"
	EnvModelSize      = "MODEL_SIZE"
	EnvDefaultMode    = "DEFAULT_MODE"
)

// Settings is the user-editable subset of the configuration kept in the
// .env dotfile.
type Settings struct {
	GroqAPIKey     string
	YandexAPIKey   string
	YandexFolderID string
	ModelSize      string
	DefaultMode    string // "api", "yandex" or "local"
}

// ReadSettings collects settings from the process environment and the
// dotfile at path. Values in the dotfile win. A missing dotfile is not an error.
func ReadSettings(path string) (Settings, error) {
	vals := map[string]string{}
	for _, k := range []string{EnvGroqAPIKey, EnvYandexAPIKey, EnvYandexFolderID, EnvModelSize, EnvDefaultMode} {
		if v, ok := os.LookupEnv(k); ok {
			vals[k] = v
		}
	}

	if path != "" {
		file, err := godotenv.Read(path)
		switch {
		case err == nil:
			for k, v := range file {
				vals[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	return Settings{
		GroqAPIKey:     vals[EnvGroqAPIKey],
		YandexAPIKey:   vals[EnvYandexAPIKey],
		YandexFolderID: vals[EnvYandexFolderID],
		ModelSize:      vals[EnvModelSize],
		DefaultMode:    vals[EnvDefaultMode],
	}, nil
}

// Apply overlays non-empty settings onto the config.
func (c *Config) Apply(s Settings) {
	if s.GroqAPIKey != "" {
		c.Groq.APIKey = s.GroqAPIKey
	}
	if s.YandexAPIKey != "" {
		c.Yandex.APIKey = s.YandexAPIKey
	}
	if s.YandexFolderID != "" {
		c.Yandex.FolderID = s.YandexFolderID
	}
	if s.ModelSize != "" {
		c.Local.Model = s.ModelSize
	}
	if s.DefaultMode != "" {
		c.Backend = BackendForMode(s.DefaultMode)
	}
}

// Settings extracts the dotfile subset from the config.
func (c *Config) Settings() Settings {
	return Settings{
		GroqAPIKey:     c.Groq.APIKey,
		YandexAPIKey:   c.Yandex.APIKey,
		YandexFolderID: c.Yandex.FolderID,
		ModelSize:      c.Local.Model,
		DefaultMode:    ModeForBackend(c.Backend),
	}
}

// BackendForMode maps a dotfile DEFAULT_MODE value to a backend name.
func BackendForMode(mode string) string {
	if mode == "api" {
		return BackendGroq
	}
	return mode
}

// ModeForBackend is the inverse of BackendForMode.
func ModeForBackend(backend string) string {
	if backend == BackendGroq {
		return "api"
	}
	return backend
}

// SaveSettings writes s into the dotfile at path, keeping unrelated keys.
// The file and its directory are created when missing.
func SaveSettings(path string, s Settings) error {
	vals, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading settings %s: %w", path, err)
		}
		vals = map[string]string{}
	}

	if s.ModelSize == "" {
		s.ModelSize = "small"
	}
	if s.DefaultMode == "" {
		s.DefaultMode = BackendLocal
	}

	vals[EnvGroqAPIKey] = s.GroqAPIKey
	vals[EnvYandexAPIKey] = s.YandexAPIKey
	vals[EnvYandexFolderID] = s.YandexFolderID
	vals[EnvModelSize] = s.ModelSize
	vals[EnvDefaultMode] = s.DefaultMode

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	if err := godotenv.Write(vals, path); err != nil {
		return fmt.Errorf("writing settings %s: %w", path, err)
	}
	return nil
}

const defaultHeader = `# wisper configuration
# API keys and the default backend may also be set in ~/.config/wisper/.env
# (GROQ_API_KEY, YANDEX_API_KEY, YANDEX_FOLDER_ID, MODEL_SIZE, DEFAULT_MODE).

`

// WriteDefault writes the default config to DefaultConfigPath. It returns the
// written path, or "" when a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
