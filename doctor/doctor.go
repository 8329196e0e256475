// Package doctor runs the -doctor diagnostics: microphone capture, backend
// reachability and the optional hotkey and clipboard integrations.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"speechlens/audio"
	"speechlens/encoder"
	"speechlens/workflow"
)

// quietLevel is the RMS under which a capture counts as silent.
const quietLevel = 0.02

// Pinger is the part of the backend client doctor needs.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
	Endpoint() string
}

type Deps struct {
	Audio  audio.Context
	Device *audio.DeviceInfo
	Gain   int

	Backend Pinger
	Listen  time.Duration // microphone probe length; 2s when zero

	// Optional checks only warn. Nil skips them.
	Hotkey    func() (string, error)
	Clipboard func() (string, error)

	Out io.Writer
}

type check struct {
	name     string
	required bool
	run      func(ctx context.Context, d Deps) (string, error)
}

// errQuiet marks a capture that worked but heard nothing.
var errQuiet = errors.New("no voice detected")

// Run executes every check and returns an exit code (0=all required pass, 1=any fail).
func Run(ctx context.Context, d Deps) int {
	checks := []check{
		{"Microphone", true, checkMicrophone},
		{"Backend", true, checkBackend},
		{"Global hotkey", false, optional(d.Hotkey)},
		{"Clipboard", false, optional(d.Clipboard)},
	}

	fmt.Fprintln(d.Out, "speechlens doctor - system diagnostics")
	fmt.Fprintln(d.Out, "=======================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintf(d.Out, "\n[%d/%d] %s\n", i+1, len(checks), c.name)
		msg, err := c.run(ctx, d)
		switch {
		case err == nil:
			fmt.Fprintf(d.Out, "  PASS: %s\n", msg)
		case errors.Is(err, errQuiet) || !c.required:
			fmt.Fprintf(d.Out, "  WARN: %v\n", err)
		default:
			fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
			allPass = false
		}
	}

	fmt.Fprintln(d.Out)
	if allPass {
		fmt.Fprintln(d.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(d.Out, "Some checks failed. See details above.")
	return 1
}

func optional(fn func() (string, error)) func(context.Context, Deps) (string, error) {
	return func(context.Context, Deps) (string, error) {
		if fn == nil {
			return "", errors.New("skipped")
		}
		return fn()
	}
}

func checkMicrophone(ctx context.Context, d Deps) (string, error) {
	if d.Audio == nil {
		return "", errors.New("no audio backend")
	}
	src := &audio.Source{
		Ctx:    d.Audio,
		Device: d.Device,
		Config: audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels, Gain: d.Gain},
	}
	dev, err := src.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer dev.Close()

	var (
		mu       sync.Mutex
		captured int
		peak     float64
	)
	dev.SetCallback(func(data []byte, _ uint32) {
		l := workflow.Level(data)
		mu.Lock()
		captured += len(data)
		peak = max(peak, l)
		mu.Unlock()
	})
	if err := dev.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", audio.ErrUnavailable, err)
	}

	listen := d.Listen
	if listen <= 0 {
		listen = 2 * time.Second
	}
	select {
	case <-time.After(listen):
	case <-ctx.Done():
	}
	dev.ClearCallback()
	dev.Stop()

	mu.Lock()
	defer mu.Unlock()
	if captured == 0 {
		return "", fmt.Errorf("%s delivered no audio", src.DeviceLabel())
	}
	secs := float64(captured) / float64(encoder.SampleRate*2)
	if peak < quietLevel {
		return "", fmt.Errorf("%w on %s (%.1fs captured, peak %.3f)", errQuiet, src.DeviceLabel(), secs, peak)
	}
	return fmt.Sprintf("%s: %.1fs captured, peak level %.3f", src.DeviceLabel(), secs, peak), nil
}

func checkBackend(ctx context.Context, d Deps) (string, error) {
	if d.Backend == nil {
		return "", errors.New("no backend configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rtt, err := d.Backend.Ping(ctx)
	if err != nil {
		return "", fmt.Errorf("%s unreachable: %w", d.Backend.Endpoint(), err)
	}
	return fmt.Sprintf("%s reachable in %dms", d.Backend.Endpoint(), rtt.Milliseconds()), nil
}
