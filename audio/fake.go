package audio

import (
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays PCM from a WAV file as if it came from a microphone.
// Deny makes every capture fail to start, the way a refused permission does.
type FakeContext struct {
	pcm        []byte
	sampleRate int
	realtime   bool
	Deny       bool
}

func NewFakeContext(wavPath string, sampleRate int, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	return NewFakeContextPCM(data, sampleRate, realtime), nil
}

// NewFakeContextPCM accepts either raw PCM or a full WAV file.
func NewFakeContextPCM(data []byte, sampleRate int, realtime bool) *FakeContext {
	if len(data) > WAVHeaderSize && string(data[:4]) == "RIFF" {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data, sampleRate: sampleRate, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.Deny {
		return nil, os.ErrPermission
	}
	return &FakeCapture{pcm: f.pcm, sampleRate: f.sampleRate, realtime: f.realtime, audioDone: make(chan struct{})}, nil
}

type FakeCapture struct {
	pcm        []byte
	sampleRate int
	realtime   bool
	audioDone  chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	stopped  bool
}

// AudioDone closes once every sample of the source has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		// Deliver everything synchronously so tests see a deterministic buffer.
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(f.audioDone)
		close(f.feedDone)
		return nil
	}

	rate := f.sampleRate
	if rate <= 0 {
		rate = 16000
	}
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(rate)
	if len(f.pcm) == 0 {
		close(f.audioDone)
	}
	go func() {
		defer close(f.feedDone)
		pos := 0
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
				if pos >= len(f.pcm) {
					close(f.audioDone)
				}
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
