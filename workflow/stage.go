package workflow

import "fmt"

type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepComplete
)

type Step struct {
	Label string
	State StepState
}

// Steps lays out the four-step indicator for the given status and stage.
func Steps(status Status, stage Stage) []Step {
	recording := StepPending
	switch status {
	case StatusRecording:
		recording = StepActive
	case StatusStopped, StatusSubmitting:
		recording = StepComplete
	}
	return []Step{
		{"Recording", recording},
		{"Preprocessing", stepState(stage, StagePreprocessing)},
		{"Transcribing", stepState(stage, StageTranscribing)},
		{"Analyzing", stepState(stage, StageAnalyzing)},
	}
}

func stepState(current, step Stage) StepState {
	switch {
	case current == step:
		return StepActive
	case current > step:
		return StepComplete
	default:
		return StepPending
	}
}

// Caption is the one-line description shown while a stage is active.
func Caption(stage Stage) string {
	switch stage {
	case StagePreprocessing:
		return "Processing audio..."
	case StageTranscribing:
		return "Transcribing speech..."
	case StageAnalyzing:
		return "Analyzing personality traits..."
	default:
		return ""
	}
}

// FormatElapsed renders whole seconds as m:ss.
func FormatElapsed(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
