package analysis

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"speechlens/encoder"
)

// Upload bounds enforced by the analysis backend.
const (
	MinPayloadSize = 1024
	MaxPayloadSize = 50 << 20
)

var (
	ErrEmptyPayload    = errors.New("empty payload")
	ErrPayloadTooSmall = errors.New("payload too small")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrInvalidFilename = errors.New("invalid filename")
)

// BackendTypes is the set of upload content types the backend accepts.
var BackendTypes = []string{
	"audio/wav",
	"audio/mpeg",
	"audio/mp3",
	"audio/webm",
	"audio/ogg",
	"audio/x-wav",
	"audio/wave",
}

func typeSet(types []string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Validate rejects payloads the backend would refuse, before any network I/O.
func (c *Client) Validate(p encoder.Payload) error {
	size := len(p.Data)
	switch {
	case size == 0:
		return ErrEmptyPayload
	case size < MinPayloadSize:
		return fmt.Errorf("%w: %d bytes, minimum %d", ErrPayloadTooSmall, size, MinPayloadSize)
	case size > MaxPayloadSize:
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrPayloadTooLarge, size, MaxPayloadSize)
	}
	if !c.allowed[p.ContentType] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, p.ContentType)
	}

	name := p.Filename
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, p.Filename)
	}
	return nil
}
