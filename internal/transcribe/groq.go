package transcribe

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/BrianIS8090/wisper/internal/config"
)

// GroqTranscriber sends audio to Groq's OpenAI-compatible transcription API.
type GroqTranscriber struct {
	client   openai.Client
	model    string
	language string
}

// NewGroqTranscriber creates a Groq client from cfg. language may be empty
// for auto-detection.
func NewGroqTranscriber(cfg config.GroqConfig, language string) *GroqTranscriber {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &GroqTranscriber{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		language: language,
	}
}

// Name returns the backend identifier.
func (g *GroqTranscriber) Name() string {
	return "groq/" + g.model
}

// TranscribeFile uploads the file as is; Groq accepts wav, mp3, ogg, flac and more.
func (g *GroqTranscriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: open audio file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(f, name, contentType),
		Model:          openai.AudioModel(g.model),
		Temperature:    openai.Float(0),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if g.language != "" {
		params.Language = openai.String(g.language)
	}

	resp, err := g.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe: groq: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (g *GroqTranscriber) Close() error {
	return nil
}
