package report

import "fmt"

type Tier int

const (
	TierConcern Tier = iota
	TierCaution
	TierGood
)

func (t Tier) String() string {
	switch t {
	case TierGood:
		return "good"
	case TierCaution:
		return "caution"
	default:
		return "concern"
	}
}

// NormalizeConfidence maps a backend score onto 0-100. Scores up to 1 are
// fractions; anything larger is already a percentage. Nothing is clamped.
func NormalizeConfidence(score float64) float64 {
	if score <= 1 {
		return score * 100
	}
	return score
}

func TierFor(pct float64) Tier {
	switch {
	case pct >= 80:
		return TierGood
	case pct >= 60:
		return TierCaution
	default:
		return TierConcern
	}
}

func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}
