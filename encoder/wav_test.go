package encoder

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestWAVHeader(t *testing.T) {
	h := WAVHeader(3200, SampleRate, Channels)
	if len(h) != 44 {
		t.Fatalf("header length = %d", len(h))
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[36:40]) != "data" {
		t.Fatalf("bad chunk ids: %q", h)
	}
	if got := binary.LittleEndian.Uint32(h[4:8]); got != 36+3200 {
		t.Errorf("riff size = %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[28:32]); got != SampleRate*2 {
		t.Errorf("byte rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(h[40:44]); got != 3200 {
		t.Errorf("data size = %d", got)
	}
}

func TestWAVEncoderKeepsSampleOrder(t *testing.T) {
	enc := NewWAV()
	if err := enc.EncodeBlock([]int16{1, -1}); err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeBlock([]int16{300}); err != nil {
		t.Fatal(err)
	}
	if len(enc.Bytes()) != 0 {
		t.Error("Bytes should be empty before Close")
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	out := enc.Bytes()
	if len(out) != 44+6 {
		t.Fatalf("len = %d", len(out))
	}
	want := []int16{1, -1, 300}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[44+i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
	if enc.TotalFrames() != 3 {
		t.Errorf("TotalFrames = %d", enc.TotalFrames())
	}
}

func TestPackage(t *testing.T) {
	pcm := make([]byte, (BlockSize+100)*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	tests := []struct {
		format      string
		filename    string
		contentType string
		magic       string
	}{
		{FormatWAV, "recording.wav", "audio/wav", "RIFF"},
		{FormatFLAC, "recording.flac", "audio/flac", "fLaC"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			p, err := Package(tt.format, pcm)
			if err != nil {
				t.Fatalf("Package: %v", err)
			}
			if p.Filename != tt.filename || p.ContentType != tt.contentType {
				t.Errorf("got %q %q", p.Filename, p.ContentType)
			}
			if string(p.Data[:4]) != tt.magic {
				t.Errorf("magic = %q", p.Data[:4])
			}
			if p.Frames != BlockSize+100 {
				t.Errorf("Frames = %d", p.Frames)
			}
		})
	}
}

func TestPackageWAVRoundTripsBytes(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	p, err := Package(FormatWAV, pcm)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Data[44:]) != string(pcm) {
		t.Errorf("body = %v, want %v", p.Data[44:], pcm)
	}
}

func TestPackageUnknownFormat(t *testing.T) {
	if _, err := Package("ogg", nil); err == nil {
		t.Fatal("expected error")
	}
	if Valid("ogg") {
		t.Error("ogg should not be valid")
	}
}

func TestPayloadDuration(t *testing.T) {
	p := Payload{Frames: SampleRate * 3 / 2}
	if got := p.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
}
