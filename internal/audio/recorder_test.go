package audio

import (
	"testing"
	"time"
)

// newTestRecorder skips when no audio backend is available (headless CI).
func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(48000, 1)
	if err != nil {
		t.Skipf("audio backend unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return r
}

func TestNewRecorderAndClose(t *testing.T) {
	r := newTestRecorder(t)

	if r.sampleRate != 48000 {
		t.Errorf("sampleRate = %d, want 48000", r.sampleRate)
	}
	if r.channels != 1 {
		t.Errorf("channels = %d, want 1", r.channels)
	}
}

func TestRecorderNotRecordingByDefault(t *testing.T) {
	r := newTestRecorder(t)

	if r.IsRecording() {
		t.Error("IsRecording() should be false after creation")
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := newTestRecorder(t)

	if clip := r.Stop(); clip != nil {
		t.Errorf("Stop() without Start() should return nil, got %d samples", len(clip.Samples))
	}
}

func TestCloseWhileRecording(t *testing.T) {
	r := newTestRecorder(t)
	if err := r.Start(); err != nil {
		t.Skipf("no capture device: %v", err)
	}
	// Let the device deliver a few callbacks.
	time.Sleep(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- r.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close() blocked on an active recording")
	}
	if r.IsRecording() {
		t.Error("IsRecording() should be false after Close()")
	}
}

func TestOnDataIgnoredWhenIdle(t *testing.T) {
	r := &Recorder{channels: 1}
	r.onData(nil, []byte{0x00, 0x00, 0x80, 0x3F}, 1)
	if len(r.buf) != 0 {
		t.Errorf("buffered %d samples while idle, want 0", len(r.buf))
	}

	r.recording = true
	r.onData(nil, []byte{0x00, 0x00, 0x80, 0x3F}, 1)
	if len(r.buf) != 1 {
		t.Errorf("buffered %d samples while recording, want 1", len(r.buf))
	}
}

func TestBytesToFloat32(t *testing.T) {
	// Test with known float32 value: 1.0 = 0x3F800000
	data := []byte{0x00, 0x00, 0x80, 0x3F} // 1.0 in little-endian float32
	samples := bytesToFloat32(data, 1)

	if len(samples) != 1 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 1", len(samples))
	}
	if samples[0] != 1.0 {
		t.Errorf("bytesToFloat32() = %f, want 1.0", samples[0])
	}
}

func TestBytesToFloat32Multiple(t *testing.T) {
	// Two samples: 0.0 and -1.0
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // 0.0
		0x00, 0x00, 0x80, 0xBF, // -1.0
	}
	samples := bytesToFloat32(data, 2)

	if len(samples) != 2 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 2", len(samples))
	}
	if samples[0] != 0.0 {
		t.Errorf("samples[0] = %f, want 0.0", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("samples[1] = %f, want -1.0", samples[1])
	}
}

func TestBytesToFloat32Truncated(t *testing.T) {
	samples := bytesToFloat32([]byte{0x00, 0x00, 0x80}, 1)
	if len(samples) != 0 {
		t.Errorf("bytesToFloat32() on short input returned %d samples, want 0", len(samples))
	}
}
