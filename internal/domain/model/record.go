// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// HitCounts holds the four judgement buckets of a play, best to worst.
type HitCounts struct {
	Perfect int64 `json:"perfect"`
	Good    int64 `json:"good"`
	Meh     int64 `json:"meh"`
	Miss    int64 `json:"miss"`
}

// MapReference identifies the map a record was set on. Display only.
type MapReference struct {
	ID             int64  `json:"id"`
	DifficultyName string `json:"difficulty_name"`
	SetID          int64  `json:"set_id,omitempty"`
}

// ScoreRecord is one normalized performance result on one map attempt.
// PerformancePoints == 0 is a real value (unranked maps), not "missing".
type ScoreRecord struct {
	TotalScore        int64         `json:"total_score"`
	PerformancePoints float64       `json:"pp"`
	Accuracy          float64       `json:"accuracy"` // fraction in [0,1]
	MaxCombo          int64         `json:"max_combo"`
	Hits              HitCounts     `json:"hits"`
	Modifiers         []string      `json:"mods,omitempty"`
	Map               *MapReference `json:"beatmap,omitempty"`
	OwnerName         string        `json:"owner_name,omitempty"`
}

// Validate checks the numeric invariants comparison relies on.
func (r ScoreRecord) Validate() error {
	switch {
	case r.TotalScore < 0:
		return invalid("total_score", "must not be negative")
	case !finiteNonNegative(r.PerformancePoints):
		return invalid("pp", "must be a finite non-negative number")
	case !finiteNonNegative(r.Accuracy) || r.Accuracy > 1:
		return invalid("accuracy", "must be a fraction in [0,1]")
	case r.MaxCombo < 0:
		return invalid("max_combo", "must not be negative")
	case r.Hits.Perfect < 0, r.Hits.Good < 0, r.Hits.Meh < 0, r.Hits.Miss < 0:
		return invalid("hits", "counts must not be negative")
	}
	return nil
}

// HasMap reports whether the record carries a displayable map reference.
func (r ScoreRecord) HasMap() bool {
	return r.Map != nil && r.Map.ID != 0
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Submission is a responder's answer to an open challenge, queued for
// asynchronous resolution.
type Submission struct {
	SubmissionID  string      // unique id for idempotency
	ChallengeID   string      // challenge being answered
	ResponderID   string      // platform user id of the responder
	ResponderName string      // display name used on the card
	AvatarURL     string      // optional responder avatar
	ChannelID     string      // where the resulting card is posted
	Record        ScoreRecord // the responder's play
	ReceivedAt    time.Time
}
