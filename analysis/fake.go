package analysis

import (
	"context"
	"fmt"
	"sync"

	"speechlens/encoder"
)

// Fake answers Analyze with a canned result or error and records payloads.
// When Gate is non-nil each call blocks until Gate yields or ctx ends.
type Fake struct {
	Gate chan struct{}

	mu       sync.Mutex
	result   *Result
	err      error
	payloads []encoder.Payload
}

func NewFake(result *Result, err error) *Fake {
	return &Fake{result: result, err: err}
}

func (f *Fake) Set(result *Result, err error) {
	f.mu.Lock()
	f.result, f.err = result, err
	f.mu.Unlock()
}

func (f *Fake) Analyze(ctx context.Context, p encoder.Payload) (*Result, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, fmt.Errorf("fake analyzer: %w", f.err)
	}
	return f.result, nil
}

func (f *Fake) Payloads() []encoder.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]encoder.Payload(nil), f.payloads...)
}
