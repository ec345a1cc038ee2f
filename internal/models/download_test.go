package models

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestPath(t *testing.T) {
	tests := []struct {
		size    string
		want    string
		wantErr bool
	}{
		{"tiny", "ggml-tiny.bin", false},
		{"small", "ggml-small.bin", false},
		{"LARGE", "ggml-large-v3.bin", false},
		{"turbo", "ggml-large-v3-turbo.bin", false},
		{"huge", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			got, err := Path("/models", tt.size)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSize) {
					t.Fatalf("Path(%q) error = %v, want ErrUnknownSize", tt.size, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Path(%q) error = %v", tt.size, err)
			}
			if want := filepath.Join("/models", tt.want); got != want {
				t.Errorf("Path(%q) = %q, want %q", tt.size, got, want)
			}
		})
	}
}

func TestDownloaded(t *testing.T) {
	dir := t.TempDir()
	if got := Downloaded(dir); len(got) != 0 {
		t.Fatalf("Downloaded(empty) = %v, want none", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// Empty files do not count.
	if err := os.WriteFile(filepath.Join(dir, "ggml-tiny.bin"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	got := Downloaded(dir)
	if len(got) != 1 || got[0] != "base" {
		t.Errorf("Downloaded() = %v, want [base]", got)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("small"); !strings.Contains(got, "ggml-small.bin") {
		t.Errorf("Describe(small) = %q", got)
	}
	if got := Describe("bogus"); got != "bogus" {
		t.Errorf("Describe(bogus) = %q, want bogus", got)
	}
}

func withBaseURL(t *testing.T, url string) {
	t.Helper()
	old := BaseURL
	BaseURL = url
	t.Cleanup(func() { BaseURL = old })
}

func TestDownload(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/ggml-tiny.bin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("fake-model-data"))
	}))
	defer ts.Close()
	withBaseURL(t, ts.URL+"/")

	dir := filepath.Join(t.TempDir(), "models")
	var progress bytes.Buffer
	path, err := Download(context.Background(), dir, "tiny", &progress)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading model: %v", err)
	}
	if string(got) != "fake-model-data" {
		t.Errorf("model content = %q", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be gone after download")
	}
	if !strings.Contains(progress.String(), "ggml-tiny.bin") {
		t.Errorf("progress output = %q", progress.String())
	}

	// Second call finds the file and skips the network.
	if _, err := Download(context.Background(), dir, "tiny", nil); err != nil {
		t.Fatalf("second Download() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestDownloadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()
	withBaseURL(t, ts.URL+"/")

	dir := t.TempDir()
	if _, err := Download(context.Background(), dir, "base", nil); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := Downloaded(dir); len(got) != 0 {
		t.Errorf("Downloaded() = %v after failed download, want none", got)
	}
}

func TestDownloadUnknownSize(t *testing.T) {
	if _, err := Download(context.Background(), t.TempDir(), "enormous", nil); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Download() error = %v, want ErrUnknownSize", err)
	}
}

func TestProgressWriter(t *testing.T) {
	var dst, out bytes.Buffer
	pw := &progressWriter{
		writer: &dst,
		out:    &out,
		total:  100,
		label:  "test",
	}

	data := make([]byte, 50)
	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Write() n = %d, want 50", n)
	}
	if pw.written != 50 {
		t.Errorf("written = %d, want 50", pw.written)
	}
	if !strings.Contains(out.String(), "50%") {
		t.Errorf("progress = %q, want percentage", out.String())
	}
}
