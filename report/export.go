package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Markdown renders v as a standalone document, sections in display order.
func Markdown(v View) string {
	var b strings.Builder
	b.WriteString("# Speech Analysis Report\n\n")

	fmt.Fprintf(&b, "## %s\n\n", SectionConfidence.Title())
	label := v.Confidence.Label
	if label == "" {
		label = v.Confidence.Tier.String()
	}
	fmt.Fprintf(&b, "**%s** (%s)\n\n", v.Confidence.Text, label)

	fmt.Fprintf(&b, "## %s\n\n", SectionTranscript.Title())
	b.WriteString(quote(v.Transcript))
	b.WriteString("\n\n")

	if len(v.Metrics) > 0 {
		fmt.Fprintf(&b, "## %s\n\n| Metric | Value |\n|---|---|\n", SectionMetrics.Title())
		for _, m := range v.Metrics {
			fmt.Fprintf(&b, "| %s | %s |\n", m.Title, strings.ReplaceAll(m.Value, "|", `\|`))
		}
		b.WriteString("\n")
	}

	if len(v.Agents) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", SectionAgents.Title())
		for _, a := range v.Agents {
			fmt.Fprintf(&b, "### %s\n\n", a.Title)
			if strings.HasPrefix(a.Body, "{") || strings.HasPrefix(a.Body, "[") {
				fmt.Fprintf(&b, "```json\n%s\n```\n\n", a.Body)
			} else {
				b.WriteString(a.Body + "\n\n")
			}
		}
	}

	fmt.Fprintf(&b, "## %s\n\n%s\n", SectionReport.Title(), v.FinalReport)
	if v.RequestID != "" {
		fmt.Fprintf(&b, "\n---\nRequest ID: `%s`\n", v.RequestID)
	}
	return b.String()
}

func quote(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_(no transcript)_"
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// Save writes the Markdown report into dir and returns its path.
func Save(dir string, v View, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, "speechlens-report-"+now.Format("20060102-150405")+".md")
	if err := os.WriteFile(path, []byte(Markdown(v)), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
