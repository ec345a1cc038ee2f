// Package dictation runs the record → transcribe → inject cycle driven by
// hotkey events.
package dictation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/BrianIS8090/wisper/internal/audio"
	"github.com/BrianIS8090/wisper/internal/hotkey"
)

// State is the session's position in the dictation cycle.
type State int

const (
	Idle State = iota
	Recording
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start() error
	Stop() *audio.Clip
}

// Transcriber turns an audio file into text. transcribe.Transcriber
// satisfies it.
type Transcriber interface {
	Name() string
	TranscribeFile(ctx context.Context, path string) (string, error)
	Close() error
}

// Injector delivers recognized text to the focused application.
type Injector interface {
	Inject(text string) error
}

// Observer is told about every state change, recognized text and error.
// Calls happen on the session goroutine and must not block.
type Observer interface {
	StatusChanged(State)
	TextReady(text string)
	Error(err error)
}

// Options tunes a Session.
type Options struct {
	MaxDuration time.Duration // 0 = no limit
	MinDuration time.Duration
	Debounce    time.Duration
	TempDir     string // "" = os.TempDir()
}

type result struct {
	text    string
	err     error
	elapsed time.Duration
}

// Session owns the dictation state machine. Run drives it; Reload and
// State may be called from other goroutines.
type Session struct {
	rec       Recorder
	inj       Injector
	observers []Observer
	opts      Options
	now       func() time.Time

	mu         sync.Mutex
	state      State
	tr         Transcriber
	pending    Transcriber
	pendingMax time.Duration

	wake    chan struct{}
	results chan result
	wg      sync.WaitGroup

	readyAt time.Time
	timer   *time.Timer
}

// New creates a Session. tr becomes owned by the session and is closed by
// Close or when replaced through Reload.
func New(rec Recorder, tr Transcriber, inj Injector, opts Options, observers ...Observer) *Session {
	return &Session{
		rec:       rec,
		inj:       inj,
		observers: observers,
		opts:      opts,
		now:       time.Now,
		tr:        tr,
		wake:      make(chan struct{}, 1),
		results:   make(chan result, 1),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcriber returns the backend currently in use.
func (s *Session) Transcriber() Transcriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr
}

// Reload queues t to replace the current backend, together with the
// recording limit it accepts (0 = no limit). The swap happens the next time
// the session is idle. A queued backend that never got applied is closed.
func (s *Session) Reload(t Transcriber, maxDuration time.Duration) {
	s.mu.Lock()
	old := s.pending
	s.pending, s.pendingMax = t, maxDuration
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is done or events is closed. A recording in
// progress is stopped and discarded.
func (s *Session) Run(ctx context.Context, events <-chan hotkey.Event) error {
	s.notifyState(Idle)
	defer s.stopTimer()

	for {
		select {
		case <-ctx.Done():
			s.abort()
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				s.abort()
				return nil
			}
			s.handleEvent(ctx, ev)

		case <-s.timerC():
			slog.Info("max recording duration reached", "max", s.opts.MaxDuration)
			s.finishRecording(ctx)

		case r := <-s.results:
			s.handleResult(r)

		case <-s.wake:
			s.applyReload()
		}
	}
}

// Close waits for an in-flight transcription and releases the backends.
func (s *Session) Close() error {
	s.wg.Wait()

	s.mu.Lock()
	tr, pending := s.tr, s.pending
	s.tr, s.pending = nil, nil
	s.mu.Unlock()

	if pending != nil {
		_ = pending.Close()
	}
	if tr != nil {
		return tr.Close()
	}
	return nil
}

func (s *Session) handleEvent(ctx context.Context, ev hotkey.Event) {
	switch ev.Type {
	case hotkey.EventStart:
		s.startRecording()
	case hotkey.EventStop:
		if s.State() == Recording {
			s.finishRecording(ctx)
		}
	case hotkey.EventToggle:
		switch st := s.State(); st {
		case Idle:
			s.startRecording()
		case Recording:
			s.finishRecording(ctx)
		default:
			slog.Debug("hotkey ignored", "state", st)
		}
	}
}

func (s *Session) startRecording() {
	if st := s.State(); st != Idle {
		slog.Debug("hotkey ignored", "state", st)
		return
	}
	if s.now().Before(s.readyAt) {
		slog.Debug("hotkey ignored, debounce")
		return
	}

	if err := s.rec.Start(); err != nil {
		s.notifyError(fmt.Errorf("dictation: start recording: %w", err))
		return
	}
	if s.opts.MaxDuration > 0 {
		s.timer = time.NewTimer(s.opts.MaxDuration)
	}
	s.setState(Recording)
	slog.Info("recording")
}

func (s *Session) finishRecording(ctx context.Context) {
	s.stopTimer()
	clip := s.rec.Stop()

	d := clip.Duration()
	if clip == nil || d < s.opts.MinDuration {
		slog.Info("recording too short, skipping", "duration", d.Round(10*time.Millisecond))
		s.toIdle()
		return
	}

	path, err := s.writeTemp(clip)
	if err != nil {
		s.notifyError(err)
		s.toIdle()
		return
	}

	tr := s.Transcriber()
	slog.Info("captured audio, transcribing", "duration", d.Round(100*time.Millisecond), "backend", tr.Name())
	s.setState(Transcribing)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer os.Remove(path)

		start := time.Now()
		text, err := tr.TranscribeFile(ctx, path)
		s.results <- result{text: text, err: err, elapsed: time.Since(start)}
	}()
}

func (s *Session) writeTemp(clip *audio.Clip) (string, error) {
	f, err := os.CreateTemp(s.opts.TempDir, "wisper-*.wav")
	if err != nil {
		return "", fmt.Errorf("dictation: temp file: %w", err)
	}
	path := f.Name()

	err = audio.EncodeWAV(f, clip)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("dictation: write temp wav: %w", err)
	}
	return path, nil
}

func (s *Session) handleResult(r result) {
	defer s.toIdle()

	elapsed := r.elapsed.Round(time.Millisecond)
	if r.err != nil {
		s.notifyError(fmt.Errorf("dictation: transcription failed: %w", r.err))
		return
	}
	if r.text == "" {
		slog.Info("no speech detected", "elapsed", elapsed)
		return
	}

	slog.Info("transcribed", "elapsed", elapsed, "text", r.text)
	for _, o := range s.observers {
		o.TextReady(r.text)
	}
	if err := s.inj.Inject(r.text); err != nil {
		s.notifyError(fmt.Errorf("dictation: inject text: %w", err))
	}
}

func (s *Session) toIdle() {
	s.readyAt = s.now().Add(s.opts.Debounce)
	s.setState(Idle)
	s.applyReload()
}

func (s *Session) applyReload() {
	s.mu.Lock()
	if s.state != Idle || s.pending == nil {
		s.mu.Unlock()
		return
	}
	old := s.tr
	s.tr, s.pending = s.pending, nil
	s.opts.MaxDuration = s.pendingMax
	name := s.tr.Name()
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	slog.Info("transcriber reloaded", "backend", name, "max_duration", s.opts.MaxDuration)
}

// abort drops an active recording. An in-flight transcription finishes on
// its own; Close waits for it.
func (s *Session) abort() {
	if s.State() == Recording {
		s.stopTimer()
		s.rec.Stop()
		s.setState(Idle)
	}
}

func (s *Session) timerC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.notifyState(st)
	}
}

func (s *Session) notifyState(st State) {
	for _, o := range s.observers {
		o.StatusChanged(st)
	}
}

func (s *Session) notifyError(err error) {
	slog.Error(err.Error())
	for _, o := range s.observers {
		o.Error(err)
	}
}
