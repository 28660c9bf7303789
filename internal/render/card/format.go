package card

import (
	"fmt"
	"strings"

	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	maxModifierRunes = 12
	maxNameRunes     = 18
	ellipsis         = "…"
	noModifiers      = "NM"
	million          = 1_000_000
)

type rowFormat struct {
	label         string
	fallbackLabel string
	value         func(v float64) string
}

// formats is the one table of labels and value formatting per row.
var formats = map[comparator.Metric]rowFormat{
	comparator.MetricModifiers:   {label: "Mods"},
	comparator.MetricPerformance: {label: "PP", fallbackLabel: "300s", value: performance},
	comparator.MetricAccuracy:    {label: "Accuracy", value: percent},
	comparator.MetricCombo:       {label: "Combo", value: integer},
	comparator.MetricScore:       {label: "Score", value: score},
	comparator.MetricMisses:      {label: "Misses", value: integer},
	comparator.MetricPerfect:     {label: "300s", value: integer},
	comparator.MetricGood:        {label: "100s", value: integer},
	comparator.MetricMeh:         {label: "50s", value: integer},
}

// Label returns the row label. Under the perfect fallback the performance
// row shows perfect hits and is labelled accordingly.
func Label(m comparator.Metric, perfectFallback bool) string {
	f := formats[m]
	if perfectFallback && f.fallbackLabel != "" {
		return f.fallbackLabel
	}
	return f.label
}

// FormatValue renders the row value for r.
func FormatValue(m comparator.Metric, r model.ScoreRecord, perfectFallback bool) string {
	if m == comparator.MetricModifiers {
		return Modifiers(r.Modifiers)
	}
	if m == comparator.MetricPerformance && perfectFallback {
		return integer(m.Value(r, true))
	}
	f, ok := formats[m]
	if !ok || f.value == nil {
		return ""
	}
	return f.value(m.Value(r, perfectFallback))
}

// Modifiers joins modifier codes, "NM" when there are none.
func Modifiers(mods []string) string {
	if len(mods) == 0 {
		return noModifiers
	}
	return Truncate(strings.Join(mods, ""), maxModifierRunes)
}

// Truncate shortens s to at most n runes, ending in an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 1 {
		return s
	}
	return string(r[:n-1]) + ellipsis
}

func performance(v float64) string { return fmt.Sprintf("%.1f", v) }

func percent(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

func integer(v float64) string { return fmt.Sprintf("%d", int64(v)) }

func score(v float64) string {
	if v > million {
		return fmt.Sprintf("%.2fM", v/million)
	}
	// Printers keep internal buffers, so one per call.
	return message.NewPrinter(language.English).Sprintf("%d", int64(v))
}
