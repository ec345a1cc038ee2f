package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/BrianIS8090/wisper/internal/audio"
	"github.com/BrianIS8090/wisper/internal/config"
)

// YandexMaxDuration is the longest clip SpeechKit v1 accepts in one request.
const YandexMaxDuration = 30 * time.Second

// lpcmRates are the sample rates SpeechKit v1 accepts for raw LPCM.
var lpcmRates = map[int]bool{8000: true, 16000: true, 48000: true}

// YandexTranscriber calls SpeechKit v1 stt:recognize and optionally runs the
// result through YandexGPT.
type YandexTranscriber struct {
	cfg       config.YandexConfig
	client    *http.Client
	corrector *Corrector
}

// NewYandexTranscriber creates a SpeechKit client. Correction is enabled when
// cfg.Correct is set and a folder ID is configured.
func NewYandexTranscriber(cfg config.YandexConfig, client *http.Client) *YandexTranscriber {
	if client == nil {
		client = http.DefaultClient
	}
	y := &YandexTranscriber{cfg: cfg, client: client}
	if cfg.Correct && cfg.FolderID != "" {
		y.corrector = NewCorrector(cfg, client)
	}
	return y
}

// Name returns the backend identifier.
func (y *YandexTranscriber) Name() string {
	return "yandex"
}

// TranscribeFile recognizes the file. WAV input is sent as raw LPCM with its
// real sample rate; other files are sent untouched in the service default
// format (OggOpus).
func (y *YandexTranscriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	q := url.Values{}
	q.Set("lang", y.cfg.Lang)
	if y.cfg.Topic != "" {
		q.Set("topic", y.cfg.Topic)
	}
	if y.cfg.FolderID != "" {
		q.Set("folderId", y.cfg.FolderID)
	}

	body, err := y.payload(path, q)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.cfg.STTURL+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("transcribe: yandex request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+y.cfg.APIKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: yandex: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcribe: yandex read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error_message").String()
		if msg == "" {
			msg = truncate(data, 200)
		}
		return "", fmt.Errorf("transcribe: yandex http %d: %s", resp.StatusCode, msg)
	}

	text := strings.TrimSpace(gjson.GetBytes(data, "result").String())
	if text != "" && y.corrector != nil {
		text = y.corrector.Correct(ctx, text)
	}
	return text, nil
}

func (y *YandexTranscriber) payload(path string, q url.Values) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("transcribe: read audio file: %w", err)
		}
		return data, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open audio file: %w", err)
	}
	defer f.Close()

	clip, err := audio.ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	rate := clip.SampleRate
	if !lpcmRates[rate] {
		rate = 48000
	}
	mono := clip.Mono(rate)

	q.Set("format", "lpcm")
	q.Set("sampleRateHertz", strconv.Itoa(rate))
	return audio.PCM16(mono.Samples), nil
}

// Close is a no-op.
func (y *YandexTranscriber) Close() error {
	return nil
}

const correctionInstruction = "Входной текст, который тебе подается, нужно проверить на грамматику, пунктуацию, " +
	"на орфографию, выдать текст в правильном русском литературном формате. " +
	"Если это числовые или размерные параметры, то мы пишем числа 1, 2, 3 и т.п."

// Corrector fixes grammar and punctuation of recognized text with YandexGPT.
type Corrector struct {
	url         string
	apiKey      string
	folderID    string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewCorrector creates a YandexGPT client for the folder in cfg.
func NewCorrector(cfg config.YandexConfig, client *http.Client) *Corrector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Corrector{
		url:         cfg.GPTURL,
		apiKey:      cfg.APIKey,
		folderID:    cfg.FolderID,
		model:       cfg.GPTModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      client,
	}
}

type gptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type gptRequest struct {
	ModelURI          string `json:"modelUri"`
	CompletionOptions struct {
		Stream      bool    `json:"stream"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"maxTokens"`
	} `json:"completionOptions"`
	Messages []gptMessage `json:"messages"`
}

// Correct returns the corrected text, or text unchanged when the call fails
// or yields nothing.
func (c *Corrector) Correct(ctx context.Context, text string) string {
	corrected, err := c.correct(ctx, text)
	if err != nil {
		slog.Warn("yandexgpt correction failed, keeping original text", "err", err)
		return text
	}
	if corrected == "" {
		return text
	}
	slog.Debug("yandexgpt correction", "from", text, "to", corrected)
	return corrected
}

func (c *Corrector) correct(ctx context.Context, text string) (string, error) {
	var body gptRequest
	body.ModelURI = fmt.Sprintf("gpt://%s/%s/latest", c.folderID, c.model)
	body.CompletionOptions.Temperature = c.temperature
	body.CompletionOptions.MaxTokens = c.maxTokens
	body.Messages = []gptMessage{
		{Role: "system", Text: correctionInstruction},
		{Role: "user", Text: text},
	}

	payload, err := jsonMarshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("x-folder-id", c.folderID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, truncate(data, 200))
	}

	return strings.TrimSpace(gjson.GetBytes(data, "result.alternatives.0.message.text").String()), nil
}
