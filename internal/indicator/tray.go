// Package indicator shows dictation status in the system tray and in the log.
package indicator

import (
	"sync"
	"unicode/utf8"

	"github.com/getlantern/systray"

	"github.com/BrianIS8090/wisper/internal/dictation"
)

// Label returns the tray title for s.
func Label(s dictation.State) string {
	switch s {
	case dictation.Recording:
		return "● REC"
	case dictation.Transcribing:
		return "… wisper"
	default:
		return "wisper"
	}
}

// Tooltip returns the tray tooltip for s with the active backend.
func Tooltip(backend string, s dictation.State) string {
	switch s {
	case dictation.Recording:
		return "Recording (" + backend + ")"
	case dictation.Transcribing:
		return "Transcribing with " + backend
	default:
		return "Ready (" + backend + "), hold the hotkey to dictate"
	}
}

// shorten cuts s to n runes.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// Tray is a dictation.Observer backed by the system tray. Updates that
// arrive before the tray is ready are applied once it is.
type Tray struct {
	quit chan struct{}
	once sync.Once

	mu          sync.Mutex
	ready       bool
	backend     string
	state       dictation.State
	backendItem *systray.MenuItem
}

// NewTray creates a tray indicator for the named backend.
func NewTray(backend string) *Tray {
	return &Tray{
		quit:    make(chan struct{}),
		backend: backend,
	}
}

// Run shows the tray icon and blocks until Stop is called. It must run on
// the main goroutine. onReady is called once the tray is up.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		systray.SetTooltip("wisper")
		t.mu.Lock()
		t.backendItem = systray.AddMenuItem("Backend: "+t.backend, "Active transcription backend")
		t.backendItem.Disable()
		t.mu.Unlock()
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit wisper")

		go func() {
			<-mQuit.ClickedCh
			t.once.Do(func() { close(t.quit) })
		}()

		t.mu.Lock()
		t.ready = true
		st, backend := t.state, t.backend
		t.mu.Unlock()
		t.show(st, backend)

		if onReady != nil {
			onReady()
		}
	}, func() {})
}

// Quit is closed when the user picks Quit from the tray menu.
func (t *Tray) Quit() <-chan struct{} {
	return t.quit
}

// Stop removes the tray icon and makes Run return.
func (t *Tray) Stop() {
	systray.Quit()
}

// SetBackend updates the backend shown in the menu and tooltip.
func (t *Tray) SetBackend(name string) {
	t.mu.Lock()
	t.backend = name
	ready, st, item := t.ready, t.state, t.backendItem
	t.mu.Unlock()
	if !ready {
		return
	}
	if item != nil {
		item.SetTitle("Backend: " + name)
	}
	t.show(st, name)
}

// StatusChanged implements dictation.Observer.
func (t *Tray) StatusChanged(s dictation.State) {
	t.mu.Lock()
	t.state = s
	ready, backend := t.ready, t.backend
	t.mu.Unlock()
	if ready {
		t.show(s, backend)
	}
}

// TextReady implements dictation.Observer.
func (t *Tray) TextReady(text string) {
	if t.isReady() {
		systray.SetTooltip("Last: " + shorten(text, 80))
	}
}

// Error implements dictation.Observer.
func (t *Tray) Error(err error) {
	if t.isReady() {
		systray.SetTooltip("Error: " + shorten(err.Error(), 120))
	}
}

func (t *Tray) isReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *Tray) show(s dictation.State, backend string) {
	systray.SetTitle(Label(s))
	systray.SetTooltip(Tooltip(backend, s))
}
