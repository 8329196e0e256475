//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The macOS hotkey backend must own the main thread.
func main() {
	mainthread.Init(run)
}
