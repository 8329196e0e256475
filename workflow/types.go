package workflow

import (
	"context"
	"errors"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/encoder"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrAnalysisFailed   = errors.New("analysis failed")
	ErrSessionActive    = errors.New("a recording is already in progress")
	ErrBusy             = errors.New("an analysis is still in progress")
	ErrNotRecording     = errors.New("not recording")
)

// Messages shown in the inline error region.
const (
	MsgPermissionDenied = "Failed to access microphone. Please grant permission and try again."
	MsgAnalysisFailed   = "Analysis failed. Please try again."
)

type Status int

const (
	StatusIdle Status = iota
	StatusRecording
	StatusStopped
	StatusSubmitting
)

func (s Status) String() string {
	switch s {
	case StatusRecording:
		return "recording"
	case StatusStopped:
		return "stopped"
	case StatusSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Stage is the client-side progress indicator. It advances on request
// boundaries only; the backend reports no phases of its own.
type Stage int

const (
	StageIdle Stage = iota
	StagePreprocessing
	StageTranscribing
	StageAnalyzing
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StagePreprocessing:
		return "preprocessing"
	case StageTranscribing:
		return "transcribing"
	case StageAnalyzing:
		return "analyzing"
	case StageComplete:
		return "complete"
	default:
		return "idle"
	}
}

type ErrorKind int

const (
	ErrorPermission ErrorKind = iota
	ErrorAnalysis
)

// Microphone hands out a started-or-startable capture device. A refused or
// missing device is an error.
type Microphone interface {
	Acquire(ctx context.Context) (audio.CaptureDevice, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, p encoder.Payload) (*analysis.Result, error)
}

// EventSink receives every observable change. Calls arrive from the
// recorder's goroutines and the capture callback, never under its lock.
type EventSink interface {
	StatusChanged(s Status)
	StageChanged(s Stage)
	Elapsed(seconds int)
	AudioLevel(level float64)
	VoiceWarning(active bool)
	Result(r *analysis.Result)
	Error(kind ErrorKind, message string)
}
