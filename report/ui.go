package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette every primitive draws with.
type Theme struct {
	Name    string
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Faint   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
	Good    lipgloss.Color
	Caution lipgloss.Color
	Concern lipgloss.Color
	Record  lipgloss.Color
}

var (
	DarkTheme = Theme{
		Name:    "dark",
		Text:    "252",
		Muted:   "245",
		Faint:   "239",
		Accent:  "75",
		Border:  "238",
		Good:    "42",
		Caution: "214",
		Concern: "196",
		Record:  "196",
	}
	LightTheme = Theme{
		Name:    "light",
		Text:    "235",
		Muted:   "243",
		Faint:   "249",
		Accent:  "25",
		Border:  "250",
		Good:    "28",
		Caution: "130",
		Concern: "160",
		Record:  "160",
	}
)

func ThemeFor(dark bool) Theme {
	if dark {
		return DarkTheme
	}
	return LightTheme
}

func (th Theme) TierColor(t Tier) lipgloss.Color {
	switch t {
	case TierGood:
		return th.Good
	case TierCaution:
		return th.Caution
	default:
		return th.Concern
	}
}

func (th Theme) Style(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func Badge(text string, t Tier, th Theme) string {
	return lipgloss.NewStyle().
		Foreground(th.TierColor(t)).
		Bold(true).
		Render("[" + text + "]")
}

type StepMark int

const (
	StepPending StepMark = iota
	StepActive
	StepDone
)

type ProgressStep struct {
	Label string
	Mark  StepMark
}

// Progress draws "✓ Preprocessing  ◐ Transcribing  ○ Analyzing".
func Progress(steps []ProgressStep, th Theme) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		switch s.Mark {
		case StepDone:
			parts[i] = th.Style(th.Good).Render("✓ " + s.Label)
		case StepActive:
			parts[i] = th.Style(th.Accent).Bold(true).Render("◐ " + s.Label)
		default:
			parts[i] = th.Style(th.Faint).Render("○ " + s.Label)
		}
	}
	return strings.Join(parts, "  ")
}

// Meter draws level (0-1) as a bar of width cells.
func Meter(level float64, width int, th Theme) string {
	if width <= 0 {
		return ""
	}
	level = min(max(level, 0), 1)
	filled := int(level*float64(width) + 0.5)
	color := th.Good
	if level > 0.85 {
		color = th.Concern
	} else if level > 0.6 {
		color = th.Caution
	}
	return th.Style(color).Render(strings.Repeat("█", filled)) +
		th.Style(th.Faint).Render(strings.Repeat("░", width-filled))
}

func Card(title, body string, width int, th Theme) string {
	content := th.Style(th.Muted).Render(title) + "\n" + th.Style(th.Text).Bold(true).Render(body)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Border).
		Padding(0, 1).
		Width(width).
		Render(content)
}

// Section is one accordion entry. Collapsed sections show only the header.
func Section(key int, title, body string, expanded bool, width int, th Theme) string {
	arrow := "▸"
	if expanded {
		arrow = "▾"
	}
	header := th.Style(th.Accent).Bold(true).Render(fmt.Sprintf("%s %d %s", arrow, key, title))
	if !expanded {
		return header
	}
	content := lipgloss.NewStyle().
		Foreground(th.Text).
		PaddingLeft(2).
		Width(max(width, 10)).
		Render(body)
	return header + "\n" + content
}
