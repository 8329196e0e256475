//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Codes from linux/input-event-codes.h.
const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keySpace   = 57
)

// struct input_event on 64-bit: timeval(16) type(2) code(2) value(4).
const inputEventSize = 24

var errNoKeyboards = errors.New("no keyboard devices found (is user in 'input' group?)")

// chord tracks modifier state for one keyboard. Autorepeat (value 2) keeps
// whatever state the key already had.
type chord struct {
	ctrl, shift, space bool
}

// feed applies one key event and reports whether it completed the chord.
func (c *chord) feed(code uint16, value int32) bool {
	pressed := value == keyPress
	released := value == keyRelease
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keySpace:
		if pressed && !c.space && c.ctrl && c.shift {
			c.space = true
			return true
		}
		if released {
			c.space = false
		}
	}
	return false
}

// scan walks a buffer of raw input events and counts completed chords.
func (c *chord) scan(buf []byte) int {
	hits := 0
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
			continue
		}
		code := binary.LittleEndian.Uint16(buf[i+18:])
		value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
		if c.feed(code, value) {
			hits++
		}
	}
	return hits
}

type linuxHotkey struct {
	pressed chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

func New() Hotkey {
	return &linuxHotkey{pressed: make(chan struct{}, 1)}
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboards
	}

	h.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var c chord
	for {
		select {
		case <-h.stop:
			return
		default:
		}
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		if c.scan(buf[:n]) > 0 {
			notify(h.pressed)
		}
	}
}

// Unregister closes the device files, which unblocks the readers.
func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Pressed() <-chan struct{} {
	return h.pressed
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard treats a long key capability bitmap as a keyboard; mice and
// power buttons advertise only a few bits.
func isKeyboard(eventName string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboards
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), path), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
