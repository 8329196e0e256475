package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/clipboard"
	"speechlens/config"
	"speechlens/log"
	"speechlens/prefs"
	"speechlens/report"
	"speechlens/workflow"
)

const (
	sidebarWidth = 38
	detailsWidth = 34
	meterWidth   = 24
)

type controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*analysis.Result, error)
}

type deviceSource interface {
	Select(device *audio.DeviceInfo)
	DeviceLabel() string
}

// Local messages produced by commands.
type (
	noticeMsg struct{ Text string }
	deviceMsg struct {
		Device *audio.DeviceInfo
		Err    error
	}
)

type tuiModel struct {
	ctx       context.Context
	rec       controller
	prefs     *prefs.Store
	audio     audio.Context
	source    deviceSource
	endpoint  string
	format    string
	reportDir string
	logDir    string
	copy      func(string) error
	now       func() time.Time

	status    workflow.Status
	stage     workflow.Stage
	elapsed   int
	level     float64
	voiceWarn bool
	errText   string
	notice    string

	result   *analysis.Result
	view     *report.View
	expanded report.Expanded
	scroll   int
	details  bool
	dark     bool

	width, height int
}

func newTUIModel(ctx context.Context, cfg config.Config, rec controller, src deviceSource, actx audio.Context, endpoint string, store *prefs.Store) tuiModel {
	dark := lipgloss.HasDarkBackground()
	if store != nil {
		dark = store.DarkMode()
	}
	return tuiModel{
		ctx:       ctx,
		rec:       rec,
		prefs:     store,
		audio:     actx,
		source:    src,
		endpoint:  endpoint,
		format:    cfg.Format,
		reportDir: cfg.ReportDir,
		logDir:    log.Dir(),
		copy:      clipboard.Copy,
		now:       time.Now,
		expanded:  report.DefaultExpanded(),
		dark:      dark,
	}
}

func runTUI(cfg config.Config, src *audio.Source, actx audio.Context, client *analysis.Client, store *prefs.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var p *tea.Program
	sink := newAuditSink(teaSink{send: func(msg tea.Msg) { p.Send(msg) }})
	rec := workflow.New(src, client, sink, workflow.WithFormat(cfg.Format))

	m := newTUIModel(ctx, cfg, rec, src, actx, client.Endpoint(), store)
	p = tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Printf("Error: %v\n", err)
	}
}

func (m tuiModel) theme() report.Theme { return report.ThemeFor(m.dark) }

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll = min(m.scroll, m.maxScroll())

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.status = msg.Status
		switch msg.Status {
		case workflow.StatusRecording:
			m.errText = ""
			m.notice = ""
			m.elapsed = 0
			m.voiceWarn = false
		case workflow.StatusStopped:
			m.level = 0
		}

	case stageMsg:
		m.stage = msg.Stage

	case elapsedMsg:
		m.elapsed = msg.Seconds

	case levelMsg:
		if m.status == workflow.StatusRecording {
			m.level = m.level*0.6 + msg.Level*0.4
		}

	case voiceMsg:
		m.voiceWarn = msg.Warning

	case resultMsg:
		v := report.Build(msg.Result)
		m.result = msg.Result
		m.view = &v
		m.expanded = report.DefaultExpanded()
		m.scroll = 0

	case errorMsg:
		m.errText = msg.Message

	case noticeMsg:
		m.notice = msg.Text

	case deviceMsg:
		switch {
		case errors.Is(msg.Err, errSelectionCancelled):
		case msg.Err != nil:
			m.notice = "Device selection failed: " + msg.Err.Error()
		default:
			m.source.Select(msg.Device)
			log.Info("device_switch: " + m.source.DeviceLabel())
			m.notice = "Microphone: " + m.source.DeviceLabel()
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "r", " ":
		return m, m.toggleRecording()

	case "tab":
		m.details = !m.details

	case "d":
		m.dark = !m.dark
		if m.prefs != nil {
			if err := m.prefs.SetDarkMode(m.dark); err != nil {
				log.Warnf("saving preferences: %v", err)
				m.notice = "Could not save preference: " + err.Error()
			}
		}

	case "s":
		if m.view == nil {
			m.notice = "Nothing to save yet"
			break
		}
		path, err := report.Save(m.reportDir, *m.view, m.now())
		if err != nil {
			log.Errorf("saving report: %v", err)
			m.notice = "Save failed: " + err.Error()
			break
		}
		log.Info("report_saved: " + path)
		m.notice = "Saved " + path

	case "c":
		if m.view == nil {
			m.notice = "Nothing to copy yet"
			break
		}
		return m, m.copyReport(report.Markdown(*m.view))

	case "ctrl+g":
		if m.status != workflow.StatusIdle || m.audio == nil {
			break
		}
		return m, m.pickDevice()

	case "1", "2", "3", "4", "5":
		m.expanded.Toggle(report.SectionID(key[0] - '0'))

	case "up", "k":
		m.scroll = max(m.scroll-1, 0)
	case "down", "j":
		m.scroll++
	case "pgup":
		m.scroll = max(m.scroll-m.pageSize(), 0)
	case "pgdown":
		m.scroll += m.pageSize()
	case "home", "g":
		m.scroll = 0
	}
	m.scroll = min(m.scroll, m.maxScroll())
	return m, nil
}

// toggleRecording starts when idle and stops when recording. Stop blocks
// through the whole submission, so both run as commands off the UI loop.
func (m tuiModel) toggleRecording() tea.Cmd {
	rec, ctx := m.rec, m.ctx
	switch m.status {
	case workflow.StatusIdle:
		return func() tea.Msg {
			if err := rec.Start(ctx); err != nil && !errors.Is(err, workflow.ErrPermissionDenied) {
				log.Warnf("start: %v", err)
			}
			return nil
		}
	case workflow.StatusRecording:
		return func() tea.Msg {
			if _, err := rec.Stop(ctx); err != nil && !errors.Is(err, workflow.ErrAnalysisFailed) {
				log.Warnf("stop: %v", err)
			}
			return nil
		}
	}
	return nil
}

func (m tuiModel) copyReport(text string) tea.Cmd {
	copyFn := m.copy
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			log.Warnf("clipboard: %v", err)
			return noticeMsg{"Copy failed: " + err.Error()}
		}
		return noticeMsg{"Report copied to clipboard"}
	}
}

// pickerExec runs the raw-mode device picker with the terminal released.
type pickerExec struct {
	ctx    audio.Context
	chosen *audio.DeviceInfo
}

func (p *pickerExec) Run() error {
	dev, err := selectDevice(p.ctx)
	p.chosen = dev
	return err
}

func (p *pickerExec) SetStdin(_ io.Reader)  {}
func (p *pickerExec) SetStdout(_ io.Writer) {}
func (p *pickerExec) SetStderr(_ io.Writer) {}

func (m tuiModel) pickDevice() tea.Cmd {
	pe := &pickerExec{ctx: m.audio}
	return tea.Exec(pe, func(err error) tea.Msg {
		return deviceMsg{Device: pe.chosen, Err: err}
	})
}

func (m tuiModel) pageSize() int {
	return max(m.height-2, 1)
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	th := m.theme()

	panels := []string{m.sidebar(th)}
	panels = append(panels, m.reportPanel(th, m.reportWidth()))
	if m.details {
		panels = append(panels, m.detailsPanel(th))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (m tuiModel) statusLine(th report.Theme) string {
	switch m.status {
	case workflow.StatusRecording:
		return th.Style(th.Record).Bold(true).Render("● REC " + workflow.FormatElapsed(m.elapsed))
	case workflow.StatusStopped, workflow.StatusSubmitting:
		return th.Style(th.Accent).Bold(true).Render("◐ PROCESSING")
	default:
		return th.Style(th.Muted).Render("○ STANDBY")
	}
}

func (m tuiModel) sidebar(th report.Theme) string {
	var lines []string
	lines = append(lines, th.Style(th.Text).Bold(true).Render("speechlens")+" "+th.Style(th.Faint).Render(version), "")
	lines = append(lines, m.statusLine(th))

	if m.status == workflow.StatusRecording {
		lines = append(lines, report.Meter(m.level*4, meterWidth, th))
		if m.voiceWarn {
			lines = append(lines, th.Style(th.Caution).Render("⚠ no voice detected"))
		}
	}

	if m.status != workflow.StatusIdle || m.stage != workflow.StageIdle {
		lines = append(lines, "")
		for _, s := range m.progress() {
			lines = append(lines, report.Progress([]report.ProgressStep{s}, th))
		}
		if caption := workflow.Caption(m.stage); caption != "" {
			lines = append(lines, th.Style(th.Muted).Italic(true).Render(caption))
		}
	}

	if m.errText != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(th.Concern).Width(sidebarWidth-2).Render(m.errText))
	}
	if m.notice != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(th.Muted).Width(sidebarWidth-2).Render(m.notice))
	}

	mic := "mic: " + m.source.DeviceLabel()
	if audio.IsBluetooth(m.source.DeviceLabel()) {
		mic += " (BT!)"
	}
	lines = append(lines, "", th.Style(th.Faint).Render(mic+" (ctrl+g)"))

	help := th.Style(th.Faint)
	bold := help.Bold(true)
	startLabel := " record"
	if m.status == workflow.StatusRecording {
		startLabel = " stop"
	}
	lines = append(lines, "",
		bold.Render("r")+help.Render(startLabel)+"  "+bold.Render("tab")+help.Render(" details"),
		bold.Render("1-5")+help.Render(" sections")+"  "+bold.Render("d")+help.Render(" theme"),
		bold.Render("s")+help.Render(" save")+"  "+bold.Render("c")+help.Render(" copy")+"  "+bold.Render("q")+help.Render(" quit"),
	)

	return lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(m.height).
		PaddingLeft(1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(th.Border).
		Render(strings.Join(lines, "\n"))
}

func (m tuiModel) progress() []report.ProgressStep {
	steps := workflow.Steps(m.status, m.stage)
	out := make([]report.ProgressStep, len(steps))
	for i, s := range steps {
		mark := report.StepPending
		switch s.State {
		case workflow.StepActive:
			mark = report.StepActive
		case workflow.StepComplete:
			mark = report.StepDone
		}
		out[i] = report.ProgressStep{Label: s.Label, Mark: mark}
	}
	return out
}

func (m tuiModel) reportWidth() int {
	w := m.width - sidebarWidth - 1
	if m.details {
		w -= detailsWidth + 1
	}
	return max(w, 20)
}

func (m tuiModel) reportLines(th report.Theme, width int) []string {
	var body string
	if m.view == nil {
		body = th.Style(th.Muted).Render("No analysis yet. Press r to record, r again to analyze.")
	} else {
		body = report.Renderer{Theme: th, Width: width - 1}.Render(*m.view, m.expanded)
	}
	return strings.Split(body, "\n")
}

// maxScroll is the largest offset that still fills the panel.
func (m tuiModel) maxScroll() int {
	if m.view == nil || m.height == 0 {
		return 0
	}
	return max(len(m.reportLines(m.theme(), m.reportWidth()))-m.height, 0)
}

func (m tuiModel) reportPanel(th report.Theme, width int) string {
	lines := m.reportLines(th, width)
	offset := min(m.scroll, max(len(lines)-m.height, 0))
	lines = lines[offset:]
	if len(lines) > m.height {
		lines = lines[:m.height]
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

func (m tuiModel) detailsPanel(th report.Theme) string {
	label := th.Style(th.Muted)
	value := th.Style(th.Text)
	row := func(k, v string) string { return label.Render(k) + "\n" + value.Render(v) }

	rows := []string{
		th.Style(th.Accent).Bold(true).Render("Details"),
		row("backend", m.endpoint),
		row("format", m.format),
		row("theme", th.Name),
		row("logs", m.logDir),
	}
	if m.prefs != nil {
		rows = append(rows, row("preferences", m.prefs.Path()))
	}
	if r := m.result; r != nil {
		if r.RequestID != "" {
			rows = append(rows, row("request", r.RequestID))
		}
		if nm := r.Metrics; nm != nil {
			reuse := "new"
			if nm.ConnReused {
				reuse = "reused"
			}
			rows = append(rows, row("network", fmt.Sprintf(
				"total %dms  ttfb %dms\ndns %dms  tcp %dms  tls %dms\nconn %s",
				nm.Total.Milliseconds(), nm.TTFB.Milliseconds(),
				nm.DNS.Milliseconds(), nm.TCP.Milliseconds(), nm.TLS.Milliseconds(), reuse)))
		}
		if keys := r.Extra.Keys(); len(keys) > 0 {
			rows = append(rows, row("extra fields", strings.Join(keys, ", ")))
		}
	}

	return lipgloss.NewStyle().
		Width(detailsWidth).
		Height(m.height).
		PaddingLeft(1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(th.Border).
		Render(strings.Join(rows, "\n\n"))
}
