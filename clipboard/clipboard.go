// Package clipboard copies report text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

// Helper tools such as xclip or wl-copy can block when no display is
// reachable, so every call is bounded.
const timeout = 3 * time.Second

var (
	ErrUnsupported = errors.New("no clipboard utility available")
	ErrTimeout     = errors.New("clipboard timed out")
)

var (
	writeAll    = cb.WriteAll
	readAll     = cb.ReadAll
	unsupported = cb.Unsupported
)

func Copy(text string) error {
	if unsupported {
		return ErrUnsupported
	}
	_, err := bounded(func() (string, error) { return "", writeAll(text) })
	return err
}

func Read() (string, error) {
	if unsupported {
		return "", ErrUnsupported
	}
	return bounded(readAll)
}

// Verify writes a token and reads it back.
func Verify() (string, error) {
	token := fmt.Sprintf("speechlens-check-%d", time.Now().UnixNano())
	if err := Copy(token); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	got, err := Read()
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if got != token {
		return "", fmt.Errorf("mismatch: wrote %q, got %q", token, got)
	}
	return "clipboard write/read verified", nil
}

func bounded(fn func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := fn()
		ch <- result{s, err}
	}()
	select {
	case r := <-ch:
		return r.s, r.err
	case <-time.After(timeout):
		return "", ErrTimeout
	}
}
