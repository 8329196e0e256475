package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"speechlens/audio"
)

var errSelectionCancelled = errors.New("device selection cancelled")

// pickerKey is one decoded keystroke from the raw-mode device picker.
type pickerKey int

const (
	keyNone pickerKey = iota
	keyUp
	keyDown
	keyEnter
	keyCancel
)

func decodeKey(buf []byte) pickerKey {
	switch {
	case len(buf) == 1:
		switch buf[0] {
		case 13:
			return keyEnter
		case 3, 'q':
			return keyCancel
		case 'j':
			return keyDown
		case 'k':
			return keyUp
		}
	case len(buf) == 3 && buf[0] == 0x1b && buf[1] == '[':
		switch buf[2] {
		case 'A':
			return keyUp
		case 'B':
			return keyDown
		}
	}
	return keyNone
}

// moveCursor clamps the picker cursor to the device list.
func moveCursor(cursor, n int, k pickerKey) int {
	switch k {
	case keyUp:
		if cursor > 0 {
			cursor--
		}
	case keyDown:
		if cursor < n-1 {
			cursor++
		}
	}
	return cursor
}

func selectDevice(ctx audio.Context) (*audio.DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		fmt.Printf("Using device: %s\n", devices[0].Name)
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select input device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			label := d.Name
			if audio.IsBluetooth(d.Name) {
				label += " (BT, lower quality)"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s\x1b[0m\r\n", label)
			} else {
				fmt.Printf("    %s\r\n", label)
			}
		}
	}
	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch k := decodeKey(buf[:n]); k {
		case keyEnter:
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case keyCancel:
			fmt.Print("\r\n")
			return nil, errSelectionCancelled
		default:
			cursor = moveCursor(cursor, len(devices), k)
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		renderList()
	}
}
