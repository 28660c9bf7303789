package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Key aliases accepted by ParseRecord, first match wins.
var (
	scoreKeys    = []string{"score", "total_score", "totalScore"}
	ppKeys       = []string{"pp", "performance_points", "performancePoints"}
	accuracyKeys = []string{"accuracy", "accuracyFraction"}
	comboKeys    = []string{"max_combo", "maxCombo"}
	modKeys      = []string{"mods", "modifiers"}
	mapKeys      = []string{"beatmap", "map", "mapReference"}
	hitKeys      = []string{"statistics", "hits", "hitCounts"}

	perfectKeys = []string{"great", "perfect", "count_300"}
	goodKeys    = []string{"ok", "good", "count_100"}
	mehKeys     = []string{"meh", "count_50"}
	missKeys    = []string{"miss", "count_miss"}
)

// TotalScoreOf is the single extraction rule for raw score values. It
// accepts a JSON number, a numeric string, or an object carrying the value
// under "total" (preferred) or "value". ok is false when nothing resolves to
// a non-negative integer; fractional numbers are rejected, not truncated.
func TotalScoreOf(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		if v.Num < 0 || v.Num >= math.MaxInt64 || v.Num != math.Trunc(v.Num) {
			return 0, false
		}
		return int64(v.Num), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	case gjson.JSON:
		if !v.IsObject() {
			return 0, false
		}
		if total := v.Get("total"); total.Exists() {
			return TotalScoreOf(total)
		}
		if value := v.Get("value"); value.Exists() {
			return TotalScoreOf(value)
		}
	}
	return 0, false
}

// ParseRecord decodes a raw score payload into a ScoreRecord. Only the score
// is required; any other absent numeric field defaults to 0. Accuracy given
// as a percentage (above 1) is converted to a fraction.
func ParseRecord(raw []byte) (ScoreRecord, error) {
	if !gjson.ValidBytes(raw) {
		return ScoreRecord{}, invalid("", "malformed JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return ScoreRecord{}, invalid("", "not an object")
	}

	var rec ScoreRecord
	scoreField, ok := first(doc, scoreKeys)
	if !ok {
		return ScoreRecord{}, invalid("score", "missing")
	}
	if rec.TotalScore, ok = TotalScoreOf(scoreField); !ok {
		return ScoreRecord{}, invalid("score", "not a non-negative integer")
	}

	var err error
	if rec.PerformancePoints, err = optionalFloat(doc, "pp", ppKeys); err != nil {
		return ScoreRecord{}, err
	}
	if rec.Accuracy, err = optionalFloat(doc, "accuracy", accuracyKeys); err != nil {
		return ScoreRecord{}, err
	}
	if rec.Accuracy > 1 && rec.Accuracy <= 100 {
		rec.Accuracy /= 100
	}
	if rec.MaxCombo, err = optionalInt(doc, "max_combo", comboKeys); err != nil {
		return ScoreRecord{}, err
	}

	if hits, ok := first(doc, hitKeys); ok && hits.IsObject() {
		if rec.Hits.Perfect, err = optionalInt(hits, "hits.perfect", perfectKeys); err != nil {
			return ScoreRecord{}, err
		}
		if rec.Hits.Good, err = optionalInt(hits, "hits.good", goodKeys); err != nil {
			return ScoreRecord{}, err
		}
		if rec.Hits.Meh, err = optionalInt(hits, "hits.meh", mehKeys); err != nil {
			return ScoreRecord{}, err
		}
		if rec.Hits.Miss, err = optionalInt(hits, "hits.miss", missKeys); err != nil {
			return ScoreRecord{}, err
		}
	}

	if mods, ok := first(doc, modKeys); ok && mods.IsArray() {
		mods.ForEach(func(_, m gjson.Result) bool {
			code := m.Str
			if m.IsObject() {
				code = m.Get("acronym").Str
			}
			if code = strings.TrimSpace(code); code != "" {
				rec.Modifiers = append(rec.Modifiers, code)
			}
			return true
		})
	}

	if bm, ok := first(doc, mapKeys); ok && bm.IsObject() {
		ref := &MapReference{ID: bm.Get("id").Int()}
		if name, ok := first(bm, []string{"version", "difficulty_name", "difficultyName"}); ok {
			ref.DifficultyName = name.String()
		}
		if set, ok := first(bm, []string{"beatmapset_id", "set_id", "setId"}); ok {
			ref.SetID = set.Int()
		}
		rec.Map = ref
	}

	if owner, ok := first(doc, []string{"owner_name", "ownerDisplayName", "user.username"}); ok {
		rec.OwnerName = strings.TrimSpace(owner.String())
	}

	if err := rec.Validate(); err != nil {
		return ScoreRecord{}, err
	}
	return rec, nil
}

func first(doc gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func optionalFloat(doc gjson.Result, field string, keys []string) (float64, error) {
	v, ok := first(doc, keys)
	if !ok {
		return 0, nil
	}
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, invalid(field, "not a number")
		}
		return f, nil
	default:
		return 0, invalid(field, "not a number")
	}
}

func optionalInt(doc gjson.Result, field string, keys []string) (int64, error) {
	f, err := optionalFloat(doc, field, keys)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, invalid(field, "not an integer")
	}
	return int64(f), nil
}
