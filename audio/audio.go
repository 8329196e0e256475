package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const WAVHeaderSize = 44

// ErrUnavailable marks a capture stream that could not be acquired: access was
// refused by the OS or sound server, or no input device exists.
var ErrUnavailable = errors.New("microphone unavailable")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	Gain       int // software gain on the PulseAudio path; 0 means unity
}

// amplify scales samples by gain, saturating at the int16 range, and returns
// them as little-endian PCM. A gain below 1 is unity.
func amplify(buf []int16, gain int) []byte {
	g := int32(max(gain, 1))
	data := make([]byte, len(buf)*2)
	for i, s := range buf {
		v := min(max(int32(s)*g, -32768), 32767)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	return data
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Source hands out capture devices for one configured input. Each Acquire
// opens a fresh device so the hardware is fully released between recordings.
type Source struct {
	Ctx    Context
	Device *DeviceInfo
	Config CaptureConfig

	mu sync.Mutex
}

// Acquire opens the configured input. Failures wrap ErrUnavailable.
func (s *Source) Acquire(ctx context.Context) (CaptureDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	device := s.Device
	s.mu.Unlock()
	dev, err := s.Ctx.NewCapture(device, s.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dev, nil
}

// Select swaps the device used by later Acquire calls.
func (s *Source) Select(device *DeviceInfo) {
	s.mu.Lock()
	s.Device = device
	s.mu.Unlock()
}

func (s *Source) DeviceLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Device == nil {
		return "system default"
	}
	return s.Device.Name
}
