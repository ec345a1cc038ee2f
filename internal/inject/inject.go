// Package inject provides text injection into the active application
// using robotgo for keystroke simulation or clipboard paste.
package inject

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/BrianIS8090/wisper/internal/config"
)

// Desktop is the slice of robotgo the injector drives.
type Desktop interface {
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	KeyTap(key string, modifiers ...string) error
	Type(text string)
}

type robotDesktop struct{}

func (robotDesktop) ReadClipboard() (string, error) { return robotgo.ReadAll() }

func (robotDesktop) WriteClipboard(text string) error { return robotgo.WriteAll(text) }

func (robotDesktop) KeyTap(key string, modifiers ...string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

func (robotDesktop) Type(text string) { robotgo.Type(text) }

// PasteModifier returns the modifier used with "v" to paste on this OS.
func PasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method  string // "type" or "paste"
	delay   time.Duration
	restore bool
	desktop Desktop
	sleep   func(time.Duration)
}

// NewInjector creates an Injector that drives the real desktop.
func NewInjector(cfg config.InjectConfig) *Injector {
	return NewInjectorWith(cfg, robotDesktop{})
}

// NewInjectorWith creates an Injector on top of d.
func NewInjectorWith(cfg config.InjectConfig, d Desktop) *Injector {
	return &Injector{
		method:  cfg.Method,
		delay:   cfg.PasteDelay,
		restore: cfg.RestoreClipboard,
		desktop: d,
		sleep:   time.Sleep,
	}
}

// Inject sends text to the active application using the configured method.
// Empty text is a no-op.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "type":
		inj.desktop.Type(text)
		return nil
	default: // "paste"
		return inj.paste(text)
	}
}

// paste puts text on the clipboard and sends the paste shortcut. The text
// stays on the clipboard unless restore is set.
func (inj *Injector) paste(text string) error {
	var prev string
	if inj.restore {
		prev, _ = inj.desktop.ReadClipboard()
	}

	if err := inj.desktop.WriteClipboard(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	// Let the clipboard owner settle before the target app reads it.
	if inj.delay > 0 {
		inj.sleep(inj.delay)
	}

	mod := PasteModifier()
	if err := inj.desktop.KeyTap("v", mod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", mod, err)
	}

	if inj.restore {
		if inj.delay > 0 {
			inj.sleep(inj.delay)
		}
		_ = inj.desktop.WriteClipboard(prev)
	}
	return nil
}
