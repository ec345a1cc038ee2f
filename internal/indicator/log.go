package indicator

import (
	"log/slog"

	"github.com/BrianIS8090/wisper/internal/dictation"
)

// Log is a dictation.Observer that writes status lines to a logger. It is
// the indicator used when the tray is disabled.
type Log struct {
	Logger *slog.Logger // nil = slog.Default()
}

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// StatusChanged implements dictation.Observer.
func (l Log) StatusChanged(s dictation.State) {
	l.logger().Debug("status", "state", s.String())
}

// TextReady implements dictation.Observer.
func (l Log) TextReady(text string) {
	l.logger().Info("text ready", "chars", len([]rune(text)))
}

// Error implements dictation.Observer.
func (l Log) Error(err error) {
	l.logger().Warn("dictation error", "err", err)
}
