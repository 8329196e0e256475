package main

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"speechlens/analysis"
	"speechlens/beep"
	"speechlens/log"
	"speechlens/report"
	"speechlens/workflow"
)

// Recorder events as Bubble Tea messages.
type (
	statusMsg  struct{ Status workflow.Status }
	stageMsg   struct{ Stage workflow.Stage }
	elapsedMsg struct{ Seconds int }
	levelMsg   struct{ Level float64 }
	voiceMsg   struct{ Warning bool }
	resultMsg  struct{ Result *analysis.Result }
	errorMsg   struct {
		Kind    workflow.ErrorKind
		Message string
	}
)

// teaSink forwards recorder events into a running program.
type teaSink struct {
	send func(tea.Msg)
}

func (s teaSink) StatusChanged(st workflow.Status) { s.send(statusMsg{st}) }
func (s teaSink) StageChanged(st workflow.Stage)   { s.send(stageMsg{st}) }
func (s teaSink) Elapsed(n int)                    { s.send(elapsedMsg{n}) }
func (s teaSink) AudioLevel(l float64)             { s.send(levelMsg{l}) }
func (s teaSink) VoiceWarning(on bool)             { s.send(voiceMsg{on}) }
func (s teaSink) Result(r *analysis.Result)        { s.send(resultMsg{r}) }
func (s teaSink) Error(k workflow.ErrorKind, m string) {
	s.send(errorMsg{Kind: k, Message: m})
}

// consoleSink prints a line per transition and the full report when one
// arrives. Used by headless and -test runs.
type consoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	theme report.Theme
}

func (c *consoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *consoleSink) StatusChanged(st workflow.Status) { c.printf("status: %s\n", st) }

func (c *consoleSink) StageChanged(st workflow.Stage) {
	if caption := workflow.Caption(st); caption != "" {
		c.printf("%s\n", caption)
	}
}

func (c *consoleSink) Elapsed(int)        {}
func (c *consoleSink) AudioLevel(float64) {}

func (c *consoleSink) VoiceWarning(on bool) {
	if on {
		c.printf("warning: no voice detected\n")
	}
}

func (c *consoleSink) Result(r *analysis.Result) {
	out := report.Renderer{Theme: c.theme, Width: 80}.Render(report.Build(r), report.AllExpanded())
	c.printf("%s\n", out)
}

func (c *consoleSink) Error(_ workflow.ErrorKind, m string) { c.printf("error: %s\n", m) }

// auditSink records each report to reports_log.txt and plays the audible
// cues before passing events on.
type auditSink struct {
	workflow.EventSink
}

func newAuditSink(next workflow.EventSink) auditSink {
	return auditSink{EventSink: next}
}

func (a auditSink) StatusChanged(st workflow.Status) {
	if st == workflow.StatusRecording {
		beep.Play(beep.CueStart)
	}
	a.EventSink.StatusChanged(st)
}

func (a auditSink) Result(r *analysis.Result) {
	log.Report(report.NormalizeConfidence(r.ConfidenceScore), r.ConfidenceLabel, r.Transcript)
	beep.Play(beep.CueDone)
	a.EventSink.Result(r)
}

func (a auditSink) Error(k workflow.ErrorKind, m string) {
	beep.Play(beep.CueError)
	a.EventSink.Error(k, m)
}
