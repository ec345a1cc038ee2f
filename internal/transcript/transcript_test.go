package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"meeting.mp3", "meeting.txt"},
		{"/tmp/voice.note.ogg", "/tmp/voice.note.txt"},
		{"dir/noext", "dir/noext.txt"},
		{"clip.WAV", "clip.txt"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "lecture.mp3")

	out, err := Write(audio, "Привет, мир.")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if want := OutputPath(audio); out != want {
		t.Errorf("Write() path = %q, want %q", out, want)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Привет, мир." {
		t.Errorf("content = %q", got)
	}

	// Overwrites an existing transcript.
	if _, err := Write(audio, "second"); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	got, _ = os.ReadFile(out)
	if string(got) != "second" {
		t.Errorf("content after overwrite = %q", got)
	}
}

func TestWriteEmpty(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "silence.wav")
	if _, err := Write(audio, "  \n"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Write() error = %v, want ErrEmpty", err)
	}
	if _, err := os.Stat(OutputPath(audio)); !os.IsNotExist(err) {
		t.Error("no file should be written for empty text")
	}
}

func TestWriteBadDir(t *testing.T) {
	if _, err := Write("/nonexistent/dir/a.mp3", "text"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(filepath.Join(dir, "a.ogg"), "text"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.txt" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("dir entries = %v, want [a.txt]", names)
	}
}
