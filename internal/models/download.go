// Package models locates and downloads whisper.cpp ggml model files.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// BaseURL is where ggml model files are fetched from.
var BaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// ErrUnknownSize is returned for a model size with no known file.
var ErrUnknownSize = errors.New("models: unknown model size")

// Sizes lists the supported model sizes in ascending order.
var Sizes = []string{"tiny", "base", "small", "medium", "large", "turbo"}

var files = map[string]string{
	"tiny":   "ggml-tiny.bin",
	"base":   "ggml-base.bin",
	"small":  "ggml-small.bin",
	"medium": "ggml-medium.bin",
	"large":  "ggml-large-v3.bin",
	"turbo":  "ggml-large-v3-turbo.bin",
}

// approximate download sizes in MB, for display only.
var approxMB = map[string]int{
	"tiny": 75, "base": 142, "small": 466, "medium": 1500, "large": 2900, "turbo": 1600,
}

// FileName returns the ggml file name for size.
func FileName(size string) (string, error) {
	name, ok := files[strings.ToLower(size)]
	if !ok {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownSize, size, strings.Join(Sizes, ", "))
	}
	return name, nil
}

// Path returns where the model for size lives inside dir.
func Path(dir, size string) (string, error) {
	name, err := FileName(size)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Downloaded reports which sizes have a non-empty model file in dir.
func Downloaded(dir string) []string {
	var out []string
	for _, size := range Sizes {
		path, _ := Path(dir, size)
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			out = append(out, size)
		}
	}
	return out
}

// Describe returns a one-line summary of size for listings.
func Describe(size string) string {
	name, err := FileName(size)
	if err != nil {
		return size
	}
	return fmt.Sprintf("%-7s %-26s ~%d MB", size, name, approxMB[size])
}

// Download fetches the model for size into dir unless it is already there.
// Progress is written to progress when it is non-nil.
func Download(ctx context.Context, dir, size string, progress io.Writer) (string, error) {
	destPath, err := Path(dir, size)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		if progress != nil {
			fmt.Fprintf(progress, "  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		}
		return destPath, nil
	}

	name := filepath.Base(destPath)
	url := BaseURL + name
	if progress != nil {
		fmt.Fprintf(progress, "  URL: %s\n  Destination: %s\n", url, destPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("models: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("models: downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("models: download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("models: creating temp file: %w", err)
	}

	var w io.Writer = f
	if progress != nil {
		w = &progressWriter{writer: f, out: progress, total: resp.ContentLength, label: name}
	}

	written, err := io.Copy(w, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("models: writing model file: %w", err)
	}
	if progress != nil {
		fmt.Fprintf(progress, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("models: moving model file: %w", err)
	}
	return destPath, nil
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
