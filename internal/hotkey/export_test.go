package hotkey

// Press simulates a hotkey press the way the hook callback delivers it.
func (l *Listener) Press() {
	if l.mode == "toggle" {
		l.emit(EventToggle)
		return
	}
	l.emit(EventStart)
}
