// Package hotkey watches for the global Ctrl+Shift+Space chord that toggles
// recording when the TUI is not in front.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	// Pressed yields once per chord press. Holding the chord does not repeat.
	Pressed() <-chan struct{}
}

const Chord = "Ctrl+Shift+Space"

// notify delivers a press without blocking; a press that arrives while the
// previous one is unread is dropped.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
