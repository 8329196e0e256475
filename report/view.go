package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"speechlens/analysis"
)

type Gauge struct {
	Percent float64
	Text    string
	Label   string
	Tier    Tier
}

type Metric struct {
	Key   string
	Title string
	Value string
}

type Agent struct {
	Key   string
	Title string
	Body  string
}

// View is a result prepared for display. Empty Metrics or Agents mean the
// section is left out.
type View struct {
	Transcript  string
	Confidence  Gauge
	Metrics     []Metric
	Agents      []Agent
	FinalReport string
	RequestID   string
}

var knownMetrics = []struct{ key, title string }{
	{"pitch_mean", "Pitch Mean"},
	{"energy_mean", "Energy"},
	{"speech_rate", "Speech Rate"},
	{"pause_rate", "Pause Rate"},
}

func Build(r *analysis.Result) View {
	if r == nil {
		return View{}
	}
	pct := NormalizeConfidence(r.ConfidenceScore)
	return View{
		Transcript: r.Transcript,
		Confidence: Gauge{
			Percent: pct,
			Text:    FormatPercent(pct),
			Label:   r.ConfidenceLabel,
			Tier:    TierFor(pct),
		},
		Metrics:     buildMetrics(r.SpeechMetrics),
		Agents:      buildAgents(r.AgentResults),
		FinalReport: r.FinalReport,
		RequestID:   r.RequestID,
	}
}

func buildMetrics(fields analysis.Fields) []Metric {
	var out []Metric
	seen := map[string]bool{}
	for _, k := range knownMetrics {
		seen[k.key] = true
		if f, ok := fields.Get(k.key); ok && !f.IsNull() {
			out = append(out, Metric{Key: k.key, Title: k.title, Value: metricValue(f)})
		}
	}
	for _, f := range fields {
		if seen[f.Key] || f.IsNull() {
			continue
		}
		out = append(out, Metric{Key: f.Key, Title: Humanize(f.Key), Value: metricValue(f)})
	}
	return out
}

func metricValue(f analysis.Field) string {
	if n, ok := f.Number(); ok {
		return fmt.Sprintf("%.2f", n)
	}
	if s, ok := f.Text(); ok {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, f.Value); err != nil {
		return string(f.Value)
	}
	return buf.String()
}

func buildAgents(fields analysis.Fields) []Agent {
	var out []Agent
	for _, f := range fields {
		if f.IsNull() {
			continue
		}
		out = append(out, Agent{Key: f.Key, Title: Humanize(f.Key), Body: agentBody(f)})
	}
	return out
}

func agentBody(f analysis.Field) string {
	if s, ok := f.Text(); ok {
		return s
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, f.Value, "", "  "); err != nil {
		return string(f.Value)
	}
	return buf.String()
}

// Humanize turns "total_words" into "Total Words".
func Humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
