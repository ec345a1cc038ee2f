package inject

import (
	"errors"
	"testing"
	"time"

	"github.com/BrianIS8090/wisper/internal/config"
)

type fakeDesktop struct {
	clipboard string
	writes    []string
	taps      []string
	typed     []string
	writeErr  error
	tapErr    error
}

func (f *fakeDesktop) ReadClipboard() (string, error) { return f.clipboard, nil }

func (f *fakeDesktop) WriteClipboard(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.clipboard = text
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeDesktop) KeyTap(key string, modifiers ...string) error {
	if f.tapErr != nil {
		return f.tapErr
	}
	tap := key
	for _, m := range modifiers {
		tap = m + "+" + tap
	}
	f.taps = append(f.taps, tap)
	return nil
}

func (f *fakeDesktop) Type(text string) { f.typed = append(f.typed, text) }

func newFakeInjector(cfg config.InjectConfig, d *fakeDesktop) (*Injector, *[]time.Duration) {
	inj := NewInjectorWith(cfg, d)
	var slept []time.Duration
	inj.sleep = func(d time.Duration) { slept = append(slept, d) }
	return inj, &slept
}

func TestInjectPaste(t *testing.T) {
	d := &fakeDesktop{clipboard: "old"}
	inj, slept := newFakeInjector(config.InjectConfig{Method: "paste", PasteDelay: 100 * time.Millisecond}, d)

	if err := inj.Inject("привет"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if d.clipboard != "привет" {
		t.Errorf("clipboard = %q, want text left in place", d.clipboard)
	}
	want := PasteModifier() + "+v"
	if len(d.taps) != 1 || d.taps[0] != want {
		t.Errorf("taps = %v, want [%s]", d.taps, want)
	}
	if len(*slept) != 1 || (*slept)[0] != 100*time.Millisecond {
		t.Errorf("slept = %v, want one 100ms pause", *slept)
	}
}

func TestInjectPasteRestoresClipboard(t *testing.T) {
	d := &fakeDesktop{clipboard: "old"}
	inj, _ := newFakeInjector(config.InjectConfig{Method: "paste", RestoreClipboard: true}, d)

	if err := inj.Inject("new"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if d.clipboard != "old" {
		t.Errorf("clipboard = %q, want restored %q", d.clipboard, "old")
	}
	if len(d.writes) != 2 {
		t.Errorf("writes = %v, want text then restore", d.writes)
	}
}

func TestInjectType(t *testing.T) {
	d := &fakeDesktop{}
	inj, _ := newFakeInjector(config.InjectConfig{Method: "type"}, d)

	if err := inj.Inject("hello"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(d.typed) != 1 || d.typed[0] != "hello" {
		t.Errorf("typed = %v", d.typed)
	}
	if len(d.writes) != 0 || len(d.taps) != 0 {
		t.Error("type mode should not touch the clipboard")
	}
}

func TestInjectEmpty(t *testing.T) {
	d := &fakeDesktop{}
	inj, _ := newFakeInjector(config.InjectConfig{Method: "paste"}, d)

	if err := inj.Inject(""); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(d.writes)+len(d.taps)+len(d.typed) != 0 {
		t.Error("empty text should be a no-op")
	}
}

func TestInjectErrors(t *testing.T) {
	boom := errors.New("boom")

	d := &fakeDesktop{writeErr: boom}
	inj, _ := newFakeInjector(config.InjectConfig{Method: "paste"}, d)
	if err := inj.Inject("x"); !errors.Is(err, boom) {
		t.Errorf("clipboard failure: error = %v, want wrapped boom", err)
	}

	d = &fakeDesktop{tapErr: boom}
	inj, _ = newFakeInjector(config.InjectConfig{Method: "paste"}, d)
	if err := inj.Inject("x"); !errors.Is(err, boom) {
		t.Errorf("key tap failure: error = %v, want wrapped boom", err)
	}
}
