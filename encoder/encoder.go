package encoder

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

// Payload is one packaged recording, ready to upload.
type Payload struct {
	Data        []byte
	Format      string
	Filename    string
	ContentType string
	Frames      uint64
	EncodeTime  time.Duration
}

// Duration is the audio length implied by the frame count.
func (p Payload) Duration() time.Duration {
	return time.Duration(float64(p.Frames) / float64(SampleRate) * float64(time.Second))
}

func New(format string) (Encoder, error) {
	switch format {
	case FormatWAV:
		return NewWAV(), nil
	case FormatFLAC:
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func Valid(format string) bool {
	return format == FormatWAV || format == FormatFLAC
}

// Package encodes little-endian 16-bit mono PCM into the given container.
func Package(format string, pcm []byte) (Payload, error) {
	enc, err := New(format)
	if err != nil {
		return Payload{}, err
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		start := time.Now()
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return Payload{}, err
		}
		enc.AddEncodeTime(time.Since(start))
	}
	if err := enc.Close(); err != nil {
		return Payload{}, fmt.Errorf("closing %s encoder: %w", format, err)
	}

	return Payload{
		Data:        enc.Bytes(),
		Format:      format,
		Filename:    "recording." + format,
		ContentType: "audio/" + format,
		Frames:      enc.TotalFrames(),
		EncodeTime:  enc.EncodeTime(),
	}, nil
}
