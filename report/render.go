package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type SectionID int

const (
	SectionConfidence SectionID = iota + 1
	SectionTranscript
	SectionMetrics
	SectionAgents
	SectionReport
)

var sectionTitles = map[SectionID]string{
	SectionConfidence: "Confidence Score",
	SectionTranscript: "Transcript",
	SectionMetrics:    "Speech Metrics",
	SectionAgents:     "Agent Analysis",
	SectionReport:     "Final Personality Report",
}

func (s SectionID) Title() string { return sectionTitles[s] }

// Expanded holds which accordion sections are open.
type Expanded map[SectionID]bool

// DefaultExpanded opens the confidence gauge and the transcript.
func DefaultExpanded() Expanded {
	return Expanded{SectionConfidence: true, SectionTranscript: true}
}

func AllExpanded() Expanded {
	e := Expanded{}
	for id := range sectionTitles {
		e[id] = true
	}
	return e
}

// Toggle flips section id; unknown ids are ignored.
func (e Expanded) Toggle(id SectionID) {
	if _, ok := sectionTitles[id]; ok {
		e[id] = !e[id]
	}
}

type Renderer struct {
	Theme Theme
	Width int
}

func (r Renderer) width() int {
	if r.Width <= 0 {
		return 80
	}
	return r.Width
}

func (r Renderer) Render(v View, e Expanded) string {
	th := r.Theme
	w := r.width()
	inner := w - 4

	var parts []string
	title := th.Style(th.Text).Bold(true).Render("Analysis Results")
	parts = append(parts, title+"  "+Badge("Complete", TierGood, th))

	add := func(id SectionID, body string) {
		parts = append(parts, Section(int(id), id.Title(), body, e[id], inner, th))
	}

	add(SectionConfidence, r.confidence(v.Confidence, inner))

	transcript := v.Transcript
	if strings.TrimSpace(transcript) == "" {
		transcript = th.Style(th.Muted).Render("(no transcript)")
	}
	add(SectionTranscript, transcript)

	if len(v.Metrics) > 0 {
		add(SectionMetrics, r.metrics(v.Metrics, inner))
	}
	if len(v.Agents) > 0 {
		add(SectionAgents, r.agents(v.Agents))
	}
	add(SectionReport, v.FinalReport)

	if v.RequestID != "" {
		parts = append(parts, th.Style(th.Faint).Render("request "+v.RequestID))
	}
	return strings.Join(parts, "\n\n")
}

func (r Renderer) confidence(g Gauge, width int) string {
	th := r.Theme
	label := g.Label
	if label == "" {
		label = g.Tier.String()
	}
	pct := th.Style(th.TierColor(g.Tier)).Bold(true).Render(g.Text)
	bar := Meter(g.Percent/100, min(30, max(width-20, 5)), th)
	return fmt.Sprintf("%s %s  %s", pct, bar, Badge(label, g.Tier, th))
}

func (r Renderer) metrics(ms []Metric, width int) string {
	const cardWidth = 22
	perRow := max(1, width/(cardWidth+2))

	var rows []string
	for i := 0; i < len(ms); i += perRow {
		end := min(i+perRow, len(ms))
		cards := make([]string, 0, end-i)
		for _, m := range ms[i:end] {
			cards = append(cards, Card(m.Title, m.Value, cardWidth, r.Theme))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return strings.Join(rows, "\n")
}

func (r Renderer) agents(as []Agent) string {
	th := r.Theme
	blocks := make([]string, len(as))
	for i, a := range as {
		blocks[i] = th.Style(th.Accent).Bold(true).Render(a.Title) + "\n" + a.Body
	}
	return strings.Join(blocks, "\n\n")
}
