package encoder

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"
)

// WAVEncoder writes canonical 44-byte-header PCM WAV. The header needs the
// final data size, so samples are buffered until Close.
type WAVEncoder struct {
	data        bytes.Buffer
	out         []byte
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewWAV() *WAVEncoder {
	return &WAVEncoder{}
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var b [2]byte
	for _, s := range block {
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		e.data.Write(b[:])
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.out = append(WAVHeader(e.data.Len(), SampleRate, Channels), e.data.Bytes()...)
	return nil
}

// Bytes returns the finished file; it is empty before Close.
func (e *WAVEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out
}

func (e *WAVEncoder) TotalFrames() uint64 {
	return e.totalFrames
}

func (e *WAVEncoder) AddEncodeTime(d time.Duration) {
	e.mu.Lock()
	e.encodeTime += d
	e.mu.Unlock()
}

func (e *WAVEncoder) EncodeTime() time.Duration {
	return e.encodeTime
}

// WAVHeader builds a RIFF header for dataSize bytes of 16-bit PCM.
func WAVHeader(dataSize, sampleRate, channels int) []byte {
	const headerSize = 44
	blockAlign := channels * BitsPerSample / 8

	buf := make([]byte, headerSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}
