package transcribe

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/BrianIS8090/wisper/internal/audio"
	"github.com/BrianIS8090/wisper/internal/config"
	"github.com/BrianIS8090/wisper/internal/models"
)

// WhisperTranscriber wraps a whisper.cpp model for on-device speech-to-text.
type WhisperTranscriber struct {
	model    whisper.Model
	size     string
	language string
	prompt   string
	threads  int
}

// NewWhisperTranscriber loads the model selected by cfg.Model from
// cfg.ModelsDir. The caller must call Close() when done.
func NewWhisperTranscriber(cfg config.LocalConfig, language string) (*WhisperTranscriber, error) {
	path, err := models.Path(cfg.ModelsDir, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", path, err)
	}
	return &WhisperTranscriber{
		model:    model,
		size:     cfg.Model,
		language: language,
		prompt:   cfg.InitialPrompt,
		threads:  cfg.Threads,
	}, nil
}

// Name returns the backend identifier.
func (t *WhisperTranscriber) Name() string {
	return "local/" + t.size
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// TranscribeFile decodes the file, converts it to 16 kHz mono and runs it
// through the model.
func (t *WhisperTranscriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	clip, err := audio.DecodeFile(path)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return t.Process(ctx, clip.Mono(audio.WhisperRate).Samples)
}

// Process transcribes mono 16kHz float32 audio samples to text.
func (t *WhisperTranscriber) Process(ctx context.Context, samples []float32) (string, error) {
	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if t.language != "" && t.model.IsMultilingual() {
		if err := wctx.SetLanguage(t.language); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", t.language, err)
		}
	}
	if t.prompt != "" {
		wctx.SetInitialPrompt(t.prompt)
	}
	threads := t.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
