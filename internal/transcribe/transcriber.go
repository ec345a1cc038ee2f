// Package transcribe provides speech-to-text backends.
//
// Supported backends:
//   - local: whisper.cpp via Go bindings (default)
//   - groq: Groq's OpenAI-compatible whisper-large-v3 endpoint
//   - yandex: Yandex SpeechKit v1 with optional YandexGPT correction
package transcribe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BrianIS8090/wisper/internal/config"
)

// Transcriber converts an audio file to text.
type Transcriber interface {
	// Name identifies the backend in logs.
	Name() string
	// TranscribeFile transcribes the audio file at path.
	TranscribeFile(ctx context.Context, path string) (string, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the config backend setting.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.Backend {
	case config.BackendGroq:
		return NewGroqTranscriber(cfg.Groq, cfg.Language), nil
	case config.BackendYandex:
		return NewYandexTranscriber(cfg.Yandex, &http.Client{Timeout: cfg.Yandex.Timeout}), nil
	case config.BackendLocal, "":
		t, err := NewWhisperTranscriber(cfg.Local, cfg.Language)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: local, groq, yandex)", cfg.Backend)
	}
}
