package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/encoder"
	"speechlens/log"
)

const (
	tickInterval  = time.Second
	completeDelay = 300 * time.Millisecond
	resetDelay    = 2 * time.Second
)

type session struct {
	dev     audio.CaptureDevice
	buf     Buffer
	voice   *voiceMonitor
	ticker  Ticker
	done    chan struct{}
	elapsed int
	stopped bool
}

// Recorder runs one recording-and-submission cycle at a time:
// idle → recording → stopped → submitting → idle.
type Recorder struct {
	mic      Microphone
	analyzer Analyzer
	sink     EventSink
	clock    Clock
	format   string

	mu         sync.Mutex
	status     Status
	stage      Stage
	stageGen   uint64
	starting   bool
	current    *session
	elapsed    int
	last       *analysis.Result
	resetTimer Timer
}

type Option func(*Recorder)

func WithClock(c Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithFormat picks the upload container; wav when unset.
func WithFormat(format string) Option {
	return func(r *Recorder) { r.format = format }
}

func New(mic Microphone, analyzer Analyzer, sink EventSink, opts ...Option) *Recorder {
	r := &Recorder{
		mic:      mic,
		analyzer: analyzer,
		sink:     sink,
		clock:    realClock{},
		format:   encoder.FormatWAV,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Recorder) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Elapsed is the running session's length, or the last session's once it
// has stopped.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return r.current.elapsed
	}
	return r.elapsed
}

// LastResult is the most recent successful analysis. A failed attempt
// leaves it untouched.
func (r *Recorder) LastResult() *analysis.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start acquires the microphone and begins buffering.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.status == StatusRecording || r.starting:
		r.mu.Unlock()
		return ErrSessionActive
	case r.status != StatusIdle:
		r.mu.Unlock()
		return ErrBusy
	}
	r.starting = true
	r.mu.Unlock()

	s := &session{voice: newVoiceMonitor(), done: make(chan struct{})}

	dev, err := r.mic.Acquire(ctx)
	if err == nil {
		s.dev = dev
		dev.SetCallback(func(data []byte, _ uint32) { r.onChunk(s, data) })
		if err = dev.Start(); err != nil {
			dev.ClearCallback()
			dev.Close()
		}
	}
	if err != nil {
		r.mu.Lock()
		r.starting = false
		r.mu.Unlock()
		log.Errorf("microphone: %v", err)
		r.sink.Error(ErrorPermission, MsgPermissionDenied)
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	s.ticker = r.clock.NewTicker(tickInterval)

	r.mu.Lock()
	r.starting = false
	r.current = s
	r.status = StatusRecording
	r.elapsed = 0
	r.setStageLocked(StageIdle)
	r.mu.Unlock()

	log.SessionStart(dev.DeviceName(), r.format)
	r.sink.StageChanged(StageIdle)
	r.sink.StatusChanged(StatusRecording)
	r.sink.Elapsed(0)

	go r.runTicker(s)
	return nil
}

func (r *Recorder) runTicker(s *session) {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C():
			r.onTick(s)
		}
	}
}

// onTick counts a second only for the live, still-recording session, so a
// tick that fires after Stop is dropped.
func (r *Recorder) onTick(s *session) {
	r.mu.Lock()
	if r.current != s || s.stopped || r.status != StatusRecording {
		r.mu.Unlock()
		return
	}
	s.elapsed++
	elapsed := s.elapsed
	r.mu.Unlock()

	r.sink.Elapsed(elapsed)
}

func (r *Recorder) onChunk(s *session, data []byte) {
	r.mu.Lock()
	if s.stopped {
		r.mu.Unlock()
		return
	}
	s.buf.Append(data)
	ev := s.voice.Feed(data)
	r.mu.Unlock()

	r.sink.AudioLevel(Level(data))
	switch ev {
	case VoiceWarn:
		r.sink.VoiceWarning(true)
	case VoiceClear:
		r.sink.VoiceWarning(false)
	}
}

// Stop halts capture and submits what was recorded. It blocks until the
// analysis finishes or fails.
func (r *Recorder) Stop(ctx context.Context) (*analysis.Result, error) {
	r.mu.Lock()
	s := r.current
	if s == nil || r.status != StatusRecording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.stopped = true
	r.status = StatusStopped
	r.elapsed = s.elapsed
	r.mu.Unlock()

	s.ticker.Stop()
	close(s.done)
	s.dev.ClearCallback()
	s.dev.Stop()
	s.dev.Close()
	r.sink.StatusChanged(StatusStopped)
	r.sink.VoiceWarning(false)

	r.mu.Lock()
	r.current = nil
	r.status = StatusSubmitting
	pcm := s.buf.Assemble()
	chunks := s.buf.Len()
	s.buf = Buffer{}
	r.mu.Unlock()

	log.SessionEnd(r.Elapsed(), chunks, len(pcm))
	r.sink.StatusChanged(StatusSubmitting)

	r.setStage(StagePreprocessing)
	payload, err := encoder.Package(r.format, pcm)
	if err != nil {
		return nil, r.fail(err)
	}

	r.setStage(StageTranscribing)
	res, err := r.analyzer.Analyze(ctx, payload)
	if err != nil {
		return nil, r.fail(err)
	}

	r.setStage(StageAnalyzing)
	r.clock.Sleep(ctx, completeDelay)

	r.mu.Lock()
	r.last = res
	r.status = StatusIdle
	gen := r.setStageLocked(StageComplete)
	r.resetTimer = r.clock.AfterFunc(resetDelay, func() { r.resetStage(gen) })
	r.mu.Unlock()

	log.Stage(StageComplete.String())
	r.sink.StageChanged(StageComplete)
	r.sink.Result(res)
	r.sink.StatusChanged(StatusIdle)
	return res, nil
}

func (r *Recorder) fail(err error) error {
	log.Errorf("analysis: %v", err)

	r.mu.Lock()
	r.status = StatusIdle
	r.setStageLocked(StageIdle)
	r.mu.Unlock()

	r.sink.StageChanged(StageIdle)
	r.sink.StatusChanged(StatusIdle)
	r.sink.Error(ErrorAnalysis, MsgAnalysisFailed)
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
}

func (r *Recorder) setStage(st Stage) {
	r.mu.Lock()
	r.setStageLocked(st)
	r.mu.Unlock()

	log.Stage(st.String())
	r.sink.StageChanged(st)
}

// setStageLocked bumps the stage generation so a pending reset from an
// earlier run cannot clobber a newer stage.
func (r *Recorder) setStageLocked(st Stage) uint64 {
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
	r.stage = st
	r.stageGen++
	return r.stageGen
}

func (r *Recorder) resetStage(gen uint64) {
	r.mu.Lock()
	if r.stageGen != gen {
		r.mu.Unlock()
		return
	}
	r.stage = StageIdle
	r.stageGen++
	r.resetTimer = nil
	r.mu.Unlock()

	r.sink.StageChanged(StageIdle)
}

// Toggle starts when idle and stops when recording, for single-key and
// hotkey control.
func (r *Recorder) Toggle(ctx context.Context) (*analysis.Result, error) {
	if r.Status() == StatusRecording {
		return r.Stop(ctx)
	}
	return nil, r.Start(ctx)
}
