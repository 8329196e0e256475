package workflow

import (
	"encoding/binary"
	"math"
	"time"
)

// A window whose RMS reaches voiceLevel counts as speech. Clearing the
// warning needs speechClearRatio, more than speechMinRatio, so it does not
// flap.
const (
	voiceSampleRate  = 16000
	voiceWindow      = 100 * time.Millisecond
	voiceWarnAfter   = 8 * time.Second
	voiceLevel       = 0.02
	speechMinRatio   = 0.10
	speechClearRatio = 0.25
	samplesPerWindow = int(voiceSampleRate * voiceWindow / time.Second)
	bytesPerSample   = 2
)

type VoiceEvent int

const (
	VoiceNone  VoiceEvent = iota
	VoiceWarn             // no voice detected
	VoiceClear            // speech resumed after warning
)

// voiceMonitor judges each 100 ms of audio as speech or not and warns when
// the last 8 s hold too little of it.
type voiceMonitor struct {
	warnAt int

	ticks  int
	window []bool
	warned bool

	pending    []byte
	sumSquares float64
	count      int
}

func newVoiceMonitor() *voiceMonitor {
	warnAt := int(voiceWarnAfter / voiceWindow)
	return &voiceMonitor{
		warnAt: warnAt,
		window: make([]bool, warnAt),
	}
}

func (m *voiceMonitor) ratio() float64 {
	n := min(m.ticks, m.warnAt)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.warnAt)%m.warnAt] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Tick records one window and reports a warning transition, if any.
func (m *voiceMonitor) Tick(hasSpeech bool) VoiceEvent {
	m.window[m.ticks%m.warnAt] = hasSpeech
	m.ticks++

	r := m.ratio()
	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		return VoiceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return VoiceClear
	}
	return VoiceNone
}

// Feed consumes 16-bit PCM and ticks once per complete window. Only the
// last transition is returned; a chunk spanning many windows rarely has two.
func (m *voiceMonitor) Feed(pcm []byte) VoiceEvent {
	ev := VoiceNone
	if len(m.pending) > 0 {
		pcm = append(m.pending, pcm...)
		m.pending = nil
	}
	for len(pcm) >= bytesPerSample {
		s := float64(int16(binary.LittleEndian.Uint16(pcm))) / 32768
		m.sumSquares += s * s
		m.count++
		pcm = pcm[bytesPerSample:]
		if m.count == samplesPerWindow {
			rms := math.Sqrt(m.sumSquares / float64(m.count))
			if e := m.Tick(rms >= voiceLevel); e != VoiceNone {
				ev = e
			}
			m.sumSquares, m.count = 0, 0
		}
	}
	if len(pcm) > 0 {
		m.pending = append([]byte(nil), pcm...)
	}
	return ev
}

// Level is the RMS of a chunk of 16-bit PCM scaled to 0-1.
func Level(pcm []byte) float64 {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
