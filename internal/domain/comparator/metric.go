package comparator

import "github.com/okian/duelcard/internal/domain/model"

// Metric identifies one stat row. The declaration order is the row order.
type Metric int

const (
	MetricModifiers Metric = iota
	MetricPerformance
	MetricAccuracy
	MetricCombo
	MetricScore
	MetricMisses
	MetricPerfect
	MetricGood
	MetricMeh
)

const (
	// RowCount is the number of stat rows on a card.
	RowCount = 9
	// KeyMetricCount is the number of rows that vote on the outcome.
	KeyMetricCount = 5
	// MajorityThreshold is the number of key wins needed to take the title.
	MajorityThreshold = 3
)

// Metrics lists every row in display order.
var Metrics = [RowCount]Metric{
	MetricModifiers,
	MetricPerformance,
	MetricAccuracy,
	MetricCombo,
	MetricScore,
	MetricMisses,
	MetricPerfect,
	MetricGood,
	MetricMeh,
}

var metricNames = [RowCount]string{
	"modifiers", "performance", "accuracy", "combo", "score",
	"misses", "perfect", "good", "meh",
}

func (m Metric) String() string {
	if m < 0 || int(m) >= RowCount {
		return "unknown"
	}
	return metricNames[m]
}

// IsKey reports whether the row counts toward the majority vote.
func (m Metric) IsKey() bool {
	return m >= MetricPerformance && m <= MetricMisses
}

// LowerWins reports whether the smaller value takes the row. Misses and the
// two near-miss tiers are counted against the player.
func (m Metric) LowerWins() bool {
	return m == MetricMisses || m == MetricGood || m == MetricMeh
}

// Competitive reports whether the row has a winner at all.
func (m Metric) Competitive() bool {
	return m != MetricModifiers && m >= 0 && int(m) < RowCount
}

// Value reads the row's numeric value from r. With perfectFallback set the
// performance row carries the perfect hit count instead of PP.
func (m Metric) Value(r model.ScoreRecord, perfectFallback bool) float64 {
	switch m {
	case MetricPerformance:
		if perfectFallback {
			return float64(r.Hits.Perfect)
		}
		return r.PerformancePoints
	case MetricAccuracy:
		return r.Accuracy
	case MetricCombo:
		return float64(r.MaxCombo)
	case MetricScore:
		return float64(r.TotalScore)
	case MetricMisses:
		return float64(r.Hits.Miss)
	case MetricPerfect:
		return float64(r.Hits.Perfect)
	case MetricGood:
		return float64(r.Hits.Good)
	case MetricMeh:
		return float64(r.Hits.Meh)
	default:
		return 0
	}
}
