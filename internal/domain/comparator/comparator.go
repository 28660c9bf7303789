// Package comparator decides head-to-head contests between two score records.
package comparator

import (
	"fmt"

	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
)

// Verdict is the outcome of comparing a challenger's record to a responder's.
type Verdict struct {
	Winners         [RowCount]types.Tag `json:"winners"`
	ChallengerWins  int                 `json:"challenger_wins"`
	ResponderWins   int                 `json:"responder_wins"`
	PerfectFallback bool                `json:"perfect_fallback"`
	ResponderName   string              `json:"responder_name,omitempty"`
}

// ResponderWon reports whether the responder took a majority of key metrics.
func (v Verdict) ResponderWon() bool {
	return v.ResponderWins >= MajorityThreshold
}

// Outcome returns the overall winner, or TagTie when neither side reached
// the majority. A tie leaves the challenger in place.
func (v Verdict) Outcome() types.Tag {
	switch {
	case v.ResponderWins >= MajorityThreshold:
		return types.TagResponder
	case v.ChallengerWins >= MajorityThreshold:
		return types.TagChallenger
	default:
		return types.TagTie
	}
}

// Loser returns the card side to shade: the challenger's when the responder
// won, the responder's otherwise.
func (v Verdict) Loser() types.Side {
	if v.ResponderWon() {
		return types.SideOf(types.TagChallenger)
	}
	return types.SideOf(types.TagResponder)
}

// WinnerTags returns the per-row winners as a slice.
func (v Verdict) WinnerTags() []types.Tag {
	out := make([]types.Tag, RowCount)
	copy(out, v.Winners[:])
	return out
}

// UsesPerfectFallback reports whether the performance row should compare
// perfect hit counts. This happens only when both sides have zero PP.
func UsesPerfectFallback(challenger, responder model.ScoreRecord) bool {
	return challenger.PerformancePoints == 0 && responder.PerformancePoints == 0
}

// Compare scores every row and tallies the key metrics. It fails only when
// one of the records is invalid; the error wraps model.ErrInvalidScoreData.
func Compare(challenger, responder model.ScoreRecord, responderName string) (Verdict, error) {
	if err := challenger.Validate(); err != nil {
		return Verdict{}, fmt.Errorf("challenger: %w", err)
	}
	if err := responder.Validate(); err != nil {
		return Verdict{}, fmt.Errorf("responder: %w", err)
	}

	v := Verdict{
		PerfectFallback: UsesPerfectFallback(challenger, responder),
		ResponderName:   responderName,
	}
	for i, m := range Metrics {
		tag := RowWinner(m, challenger, responder, v.PerfectFallback)
		v.Winners[i] = tag
		if !m.IsKey() {
			continue
		}
		switch tag {
		case types.TagChallenger:
			v.ChallengerWins++
		case types.TagResponder:
			v.ResponderWins++
		}
	}
	return v, nil
}

// RowWinner decides a single row. Modifiers are never competitive.
func RowWinner(m Metric, challenger, responder model.ScoreRecord, perfectFallback bool) types.Tag {
	if !m.Competitive() {
		return types.TagTie
	}
	a := m.Value(challenger, perfectFallback)
	b := m.Value(responder, perfectFallback)
	if a == b {
		return types.TagTie
	}
	if (a > b) != m.LowerWins() {
		return types.TagChallenger
	}
	return types.TagResponder
}
