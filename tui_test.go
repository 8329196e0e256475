package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/prefs"
	"speechlens/report"
	"speechlens/workflow"
)

type fakeController struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	return nil
}

func (f *fakeController) Stop(context.Context) (*analysis.Result, error) {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil, nil
}

type fakeSource struct {
	device *audio.DeviceInfo
}

func (f *fakeSource) Select(d *audio.DeviceInfo) { f.device = d }

func (f *fakeSource) DeviceLabel() string {
	if f.device == nil {
		return "system default"
	}
	return f.device.Name
}

func testModel(t *testing.T) (tuiModel, *fakeController) {
	t.Helper()
	fc := &fakeController{}
	m := tuiModel{
		ctx:       context.Background(),
		rec:       fc,
		source:    &fakeSource{},
		endpoint:  "http://backend.test/analyze",
		format:    "wav",
		reportDir: t.TempDir(),
		copy:      func(string) error { return nil },
		now:       func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
		expanded:  report.DefaultExpanded(),
		dark:      true,
	}
	return update(t, m, tea.WindowSizeMsg{Width: 160, Height: 80}), fc
}

func update(t *testing.T, m tuiModel, msgs ...tea.Msg) tuiModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleResult() *analysis.Result {
	res, err := analysis.Decode([]byte(`{
		"transcript": "hello world",
		"confidence_score": 0.42,
		"confidence_label": "Low",
		"final_report": "Calm and measured.",
		"speech_metrics": {"speech_rate": 2.5},
		"agent_results": {"tone": "steady"},
		"model": "v2"
	}`))
	if err != nil {
		panic(err)
	}
	res.RequestID = "req-123"
	return res
}

func TestTUIToggleRecording(t *testing.T) {
	m, fc := testModel(t)

	_, cmd := m.Update(keyMsg("r"))
	if cmd == nil {
		t.Fatal("r while idle returned no command")
	}
	cmd()
	if fc.starts != 1 {
		t.Fatalf("starts = %d", fc.starts)
	}

	m = update(t, m, statusMsg{workflow.StatusRecording})
	_, cmd = m.Update(keyMsg(" "))
	if cmd == nil {
		t.Fatal("space while recording returned no command")
	}
	cmd()
	if fc.stops != 1 {
		t.Fatalf("stops = %d", fc.stops)
	}

	m = update(t, m, statusMsg{workflow.StatusSubmitting})
	if _, cmd := m.Update(keyMsg("r")); cmd != nil {
		t.Error("start is not disabled while submitting")
	}
}

func TestTUIRecordingStatus(t *testing.T) {
	m, _ := testModel(t)
	if !strings.Contains(m.View(), "○ STANDBY") {
		t.Error("idle view missing STANDBY")
	}

	m = update(t, m,
		statusMsg{workflow.StatusRecording},
		elapsedMsg{65},
		voiceMsg{true},
	)
	v := m.View()
	for _, want := range []string{"● REC 1:05", "no voice detected", "Recording"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = update(t, m, statusMsg{workflow.StatusSubmitting}, stageMsg{workflow.StageTranscribing})
	v = m.View()
	if !strings.Contains(v, "PROCESSING") || !strings.Contains(v, "Transcribing speech...") {
		t.Errorf("submitting view:\n%s", v)
	}
}

func TestTUIResultAndSections(t *testing.T) {
	m, _ := testModel(t)
	m = update(t, m, resultMsg{sampleResult()})

	v := m.View()
	for _, want := range []string{"Analysis Results", "42%", "hello world", "Speech Rate"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = update(t, m, keyMsg("2"))
	if strings.Contains(m.View(), "hello world") {
		t.Error("transcript still shown after collapsing section 2")
	}
	m = update(t, m, keyMsg("2"))
	if !strings.Contains(m.View(), "hello world") {
		t.Error("transcript hidden after expanding section 2")
	}
}

func TestTUIErrorClearsOnNextRecording(t *testing.T) {
	m, _ := testModel(t)
	m = update(t, m, errorMsg{workflow.ErrorAnalysis, workflow.MsgAnalysisFailed})
	if !strings.Contains(m.View(), workflow.MsgAnalysisFailed) {
		t.Fatal("error message not shown")
	}
	m = update(t, m, statusMsg{workflow.StatusRecording})
	if strings.Contains(m.View(), workflow.MsgAnalysisFailed) {
		t.Error("error message kept after a new recording started")
	}
}

func TestTUIDarkModePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := prefs.Load(dir, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	m, _ := testModel(t)
	m.prefs = store
	m = update(t, m, keyMsg("d"))
	if m.dark {
		t.Fatal("dark mode not toggled")
	}

	reloaded, err := prefs.Load(dir, func() bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.DarkMode() {
		t.Error("toggle was not persisted")
	}
}

func TestTUISaveAndCopy(t *testing.T) {
	m, _ := testModel(t)
	m = update(t, m, keyMsg("s"))
	if m.notice != "Nothing to save yet" {
		t.Errorf("notice = %q", m.notice)
	}

	var copied string
	m.copy = func(s string) error { copied = s; return nil }
	m = update(t, m, resultMsg{sampleResult()}, keyMsg("s"))

	path := filepath.Join(m.reportDir, "speechlens-report-20260304-050607.md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not saved: %v", err)
	}
	if !strings.Contains(string(data), "Calm and measured.") {
		t.Error("saved report missing final report")
	}

	_, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("c returned no command")
	}
	if got := cmd(); got != (noticeMsg{"Report copied to clipboard"}) {
		t.Errorf("copy notice = %v", got)
	}
	if !strings.Contains(copied, "Calm and measured.") {
		t.Errorf("copied = %q", copied)
	}

	m.copy = func(string) error { return errors.New("no display") }
	_, cmd = m.Update(keyMsg("c"))
	if got := cmd(); got != (noticeMsg{"Copy failed: no display"}) {
		t.Errorf("copy failure notice = %v", got)
	}
}

func TestTUIDetailsPanel(t *testing.T) {
	m, _ := testModel(t)
	res := sampleResult()
	res.Metrics = &analysis.NetworkMetrics{Total: 120 * time.Millisecond, ConnReused: true}
	m = update(t, m, resultMsg{res})
	if strings.Contains(m.View(), "Details") {
		t.Fatal("details shown before tab")
	}

	m = update(t, m, keyMsg("tab"))
	v := m.View()
	for _, want := range []string{"Details", "req-123", "total 120ms", "conn reused", "model"} {
		if !strings.Contains(v, want) {
			t.Errorf("details missing %q", want)
		}
	}
}

func TestTUIDeviceSwitch(t *testing.T) {
	m, _ := testModel(t)
	m = update(t, m, deviceMsg{Device: &audio.DeviceInfo{ID: "2", Name: "USB Mic"}})
	if got := m.source.DeviceLabel(); got != "USB Mic" {
		t.Errorf("device = %q", got)
	}
	if !strings.Contains(m.View(), "mic: USB Mic") {
		t.Error("device line not updated")
	}

	m = update(t, m, deviceMsg{Err: errSelectionCancelled})
	if m.source.DeviceLabel() != "USB Mic" {
		t.Error("cancelled selection changed device")
	}
}

func TestTUIScrollStopsAtEnd(t *testing.T) {
	m, _ := testModel(t)
	res := sampleResult()
	res.FinalReport = strings.Repeat("line\n", 200) + "last line"
	m = update(t, m, resultMsg{res}, keyMsg("5"))

	limit := m.maxScroll()
	if limit == 0 {
		t.Fatal("report fits the panel; test needs a longer report")
	}
	for i := 0; i < limit+50; i++ {
		m = update(t, m, keyMsg("j"))
	}
	if m.scroll != limit {
		t.Fatalf("scroll = %d, want %d", m.scroll, limit)
	}
	if !strings.Contains(m.View(), "last line") {
		t.Error("end of report not visible at max scroll")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	if m.scroll != limit {
		t.Errorf("pgdown past end: scroll = %d, want %d", m.scroll, limit)
	}
	m = update(t, m, keyMsg("k"))
	if m.scroll != limit-1 {
		t.Errorf("one up from the end: scroll = %d, want %d", m.scroll, limit-1)
	}
}

func TestTUIScrollShortReport(t *testing.T) {
	m, _ := testModel(t)
	m = update(t, m, resultMsg{sampleResult()}, keyMsg("j"), keyMsg("j"))
	if m.scroll != 0 {
		t.Errorf("scroll = %d on a report that fits", m.scroll)
	}
}

func TestTUIQuit(t *testing.T) {
	m, _ := testModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestPickerKeys(t *testing.T) {
	tests := []struct {
		in   []byte
		want pickerKey
	}{
		{[]byte{13}, keyEnter},
		{[]byte{3}, keyCancel},
		{[]byte("j"), keyDown},
		{[]byte("k"), keyUp},
		{[]byte{0x1b, '[', 'A'}, keyUp},
		{[]byte{0x1b, '[', 'B'}, keyDown},
		{[]byte("x"), keyNone},
	}
	for _, tt := range tests {
		if got := decodeKey(tt.in); got != tt.want {
			t.Errorf("decodeKey(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := moveCursor(0, 3, keyUp); got != 0 {
		t.Errorf("up at top = %d", got)
	}
	if got := moveCursor(2, 3, keyDown); got != 2 {
		t.Errorf("down at bottom = %d", got)
	}
	if got := moveCursor(1, 3, keyDown); got != 2 {
		t.Errorf("down = %d", got)
	}
}
