// Package beep plays short audible cues when recording starts, when a report
// arrives and when something fails.
package beep

import (
	"math"
	"sync/atomic"
)

type Cue int

const (
	CueStart Cue = iota
	CueDone
	CueError
)

func (c Cue) String() string {
	switch c {
	case CueStart:
		return "start"
	case CueDone:
		return "done"
	default:
		return "error"
	}
}

var disabled atomic.Bool

func Disable()          { disabled.Store(true) }
func Enabled() bool     { return !disabled.Load() }
func SetEnabled(b bool) { disabled.Store(!b) }

const sampleRate = 44100

type tone struct {
	freq   float64
	dur    float64 // seconds
	volume float64
	decay  float64
}

// Start is a short high tick, done a falling pair and error a low double beep.
var cues = map[Cue][]tone{
	CueStart: {{freq: 1200, dur: 0.15, volume: 0.5, decay: 60}},
	CueDone:  {{freq: 1000, dur: 0.08, volume: 0.45, decay: 40}, {freq: 750, dur: 0.12, volume: 0.45, decay: 30}},
	CueError: {{freq: 350, dur: 0.08, volume: 0.6, decay: 30}, {dur: 0.05}, {freq: 350, dur: 0.08, volume: 0.6, decay: 30}},
}

// Samples renders a cue as interleaved stereo 16-bit PCM at sampleRate.
// A tone with zero frequency is a gap.
func Samples(c Cue) []int16 {
	var out []int16
	for _, t := range cues[c] {
		out = append(out, render(t)...)
	}
	return out
}

func render(t tone) []int16 {
	n := int(float64(sampleRate) * t.dur)
	samples := make([]int16, n*2)
	if t.freq == 0 {
		return samples
	}
	for i := 0; i < n; i++ {
		x := float64(i) / sampleRate
		s := int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * math.Exp(-x*t.decay))
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

// Play starts a cue in the background and returns at once.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	go play(Samples(c))
}
