package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BrianIS8090/wisper/internal/config"
)

// yandexServer fakes both SpeechKit and YandexGPT on one test server.
type yandexServer struct {
	t          *testing.T
	sttStatus  int
	sttBody    string
	gptStatus  int
	gptBody    string
	gptCalls   atomic.Int32
	lastQuery  chan map[string]string
	lastLength atomic.Int64
}

func (s *yandexServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Api-Key AQN_test" {
		s.t.Errorf("Authorization = %q, want %q", got, "Api-Key AQN_test")
	}
	body, _ := io.ReadAll(r.Body)

	switch r.URL.Path {
	case "/stt":
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		select {
		case s.lastQuery <- q:
		default:
		}
		s.lastLength.Store(int64(len(body)))
		w.WriteHeader(s.sttStatus)
		fmt.Fprint(w, s.sttBody)
	case "/gpt":
		s.gptCalls.Add(1)
		if got := r.Header.Get("x-folder-id"); got != "b1g_folder" {
			s.t.Errorf("x-folder-id = %q, want b1g_folder", got)
		}
		var req gptRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.t.Errorf("decode gpt request: %v", err)
		}
		if req.ModelURI != "gpt://b1g_folder/yandexgpt-lite/latest" {
			s.t.Errorf("modelUri = %q", req.ModelURI)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			s.t.Errorf("messages = %+v", req.Messages)
		}
		w.WriteHeader(s.gptStatus)
		fmt.Fprint(w, s.gptBody)
	default:
		s.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newYandexFixture(t *testing.T, folder string) (*yandexServer, *YandexTranscriber) {
	t.Helper()
	fake := &yandexServer{
		t:         t,
		sttStatus: http.StatusOK,
		sttBody:   `{"result":"привет мир"}`,
		gptStatus: http.StatusOK,
		gptBody:   `{"result":{"alternatives":[{"message":{"role":"assistant","text":"Привет, мир!"},"status":"ALTERNATIVE_STATUS_FINAL"}]}}`,
		lastQuery: make(chan map[string]string, 1),
	}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	cfg := config.Default().Yandex
	cfg.APIKey = "AQN_test"
	cfg.FolderID = folder
	cfg.STTURL = ts.URL + "/stt"
	cfg.GPTURL = ts.URL + "/gpt"
	return fake, NewYandexTranscriber(cfg, ts.Client())
}

func TestYandexTranscribeWAV_SendsLPCM(t *testing.T) {
	fake, y := newYandexFixture(t, "")

	text, err := y.TranscribeFile(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if text != "привет мир" {
		t.Errorf("TranscribeFile() = %q, want %q", text, "привет мир")
	}

	q := <-fake.lastQuery
	want := map[string]string{"lang": "ru-RU", "topic": "general", "format": "lpcm", "sampleRateHertz": "48000"}
	for k, v := range want {
		if q[k] != v {
			t.Errorf("query %s = %q, want %q", k, q[k], v)
		}
	}
	if _, ok := q["folderId"]; ok {
		t.Error("folderId should be omitted when not configured")
	}
	// 4800 mono samples of 16-bit PCM, no WAV header.
	if got := fake.lastLength.Load(); got != 9600 {
		t.Errorf("body length = %d, want 9600", got)
	}
	if fake.gptCalls.Load() != 0 {
		t.Error("YandexGPT should not be called without folder id")
	}
}

func TestYandexTranscribe_CorrectsWithFolder(t *testing.T) {
	fake, y := newYandexFixture(t, "b1g_folder")

	text, err := y.TranscribeFile(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if text != "Привет, мир!" {
		t.Errorf("TranscribeFile() = %q, want corrected text", text)
	}
	if q := <-fake.lastQuery; q["folderId"] != "b1g_folder" {
		t.Errorf("folderId = %q, want b1g_folder", q["folderId"])
	}
	if fake.gptCalls.Load() != 1 {
		t.Errorf("gpt calls = %d, want 1", fake.gptCalls.Load())
	}
}

func TestYandexTranscribe_CorrectionFailureKeepsText(t *testing.T) {
	fake, y := newYandexFixture(t, "b1g_folder")
	fake.gptStatus = http.StatusInternalServerError
	fake.gptBody = `{"error":"boom"}`

	text, err := y.TranscribeFile(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if text != "привет мир" {
		t.Errorf("TranscribeFile() = %q, want original text", text)
	}
}

func TestYandexTranscribe_EmptyResultSkipsCorrection(t *testing.T) {
	fake, y := newYandexFixture(t, "b1g_folder")
	fake.sttBody = `{"result":""}`

	text, err := y.TranscribeFile(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if text != "" {
		t.Errorf("TranscribeFile() = %q, want empty", text)
	}
	if fake.gptCalls.Load() != 0 {
		t.Error("YandexGPT should not be called for empty text")
	}
}

func TestYandexTranscribe_ErrorMessage(t *testing.T) {
	fake, y := newYandexFixture(t, "")
	fake.sttStatus = http.StatusUnauthorized
	fake.sttBody = `{"error_code":"UNAUTHORIZED","error_message":"The token is invalid"}`

	_, err := y.TranscribeFile(context.Background(), writeTestWAV(t))
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "The token is invalid") {
		t.Errorf("error = %v, want it to carry error_message", err)
	}
}

func TestYandexTranscribe_NonWAVSentAsIs(t *testing.T) {
	fake, y := newYandexFixture(t, "")

	path := filepath.Join(t.TempDir(), "voice.ogg")
	payload := []byte("OggS-fake-opus-payload")
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := y.TranscribeFile(context.Background(), path); err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	q := <-fake.lastQuery
	if _, ok := q["format"]; ok {
		t.Errorf("format should be left to the service default, got %q", q["format"])
	}
	if got := fake.lastLength.Load(); got != int64(len(payload)) {
		t.Errorf("body length = %d, want %d", got, len(payload))
	}
}

func TestCorrector_EmptyAlternativeKeepsText(t *testing.T) {
	fake, _ := newYandexFixture(t, "b1g_folder")
	fake.gptBody = `{"result":{"alternatives":[]}}`

	ts := httptest.NewServer(fake)
	defer ts.Close()

	cfg := config.Default().Yandex
	cfg.APIKey = "AQN_test"
	cfg.FolderID = "b1g_folder"
	cfg.GPTURL = ts.URL + "/gpt"

	c := NewCorrector(cfg, ts.Client())
	if got := c.Correct(context.Background(), "текст"); got != "текст" {
		t.Errorf("Correct() = %q, want original", got)
	}
}
