// Package repository stores open challenges and their current champions.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/duelcard/internal/domain/model"
)

// Challenge is an open challenge on one map. Version increases by one on
// every champion change and guards concurrent updates.
type Challenge struct {
	ID             string            `json:"id"`
	MapID          int64             `json:"map_id"`
	ChallengerID   string            `json:"challenger_id"`
	ChallengerName string            `json:"challenger_name"`
	ChampionID     string            `json:"champion_id"`
	ChampionName   string            `json:"champion_name"`
	ChampionAvatar string            `json:"champion_avatar_url,omitempty"`
	Champion       model.ScoreRecord `json:"champion"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ChampionUpdate is the new title holder written by ReplaceChampion.
type ChampionUpdate struct {
	ID        string
	Name      string
	AvatarURL string
	Record    model.ScoreRecord
}

// Store provides access to challenges.
type Store interface {
	// Create inserts ch with version 1. Returns ErrAlreadyExists on a
	// duplicate id.
	Create(ctx context.Context, ch Challenge) (Challenge, error)

	// Get returns the challenge or ErrNotFound.
	Get(ctx context.Context, id string) (Challenge, error)

	// ReplaceChampion swaps the champion only if the stored version still
	// equals expectedVersion, as one conditional update. A stale version
	// yields ErrVersionConflict.
	ReplaceChampion(ctx context.Context, id string, expectedVersion int64, next ChampionUpdate) (Challenge, error)

	// Delete removes the challenge or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored challenges.
	Count(ctx context.Context) (int, error)
}

// checkUpdate rejects a champion swap whose record could not have been
// created in the first place.
func checkUpdate(next ChampionUpdate) error {
	if err := next.Record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChallenge, err)
	}
	return nil
}

// prepare validates ch and fills the fields Create owns.
func prepare(ch Challenge, now time.Time) (Challenge, error) {
	if ch.ID == "" {
		return Challenge{}, fmt.Errorf("%w: empty id", ErrInvalidChallenge)
	}
	if err := ch.Champion.Validate(); err != nil {
		return Challenge{}, fmt.Errorf("%w: %w", ErrInvalidChallenge, err)
	}
	if ch.ChampionID == "" {
		ch.ChampionID, ch.ChampionName = ch.ChallengerID, ch.ChallengerName
	}
	ch.Version = 1
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = ch.CreatedAt
	ch.Champion = cloneRecord(ch.Champion)
	return ch, nil
}

func apply(ch Challenge, next ChampionUpdate, now time.Time) Challenge {
	ch.ChampionID = next.ID
	ch.ChampionName = next.Name
	ch.ChampionAvatar = next.AvatarURL
	ch.Champion = cloneRecord(next.Record)
	ch.Version++
	ch.UpdatedAt = now
	return ch
}

func cloneRecord(r model.ScoreRecord) model.ScoreRecord {
	if r.Modifiers != nil {
		r.Modifiers = append([]string(nil), r.Modifiers...)
	}
	if r.Map != nil {
		m := *r.Map
		r.Map = &m
	}
	return r
}

// storedChallenge is the serialized form. The champion is kept raw so it is
// read back through the canonical score parser.
type storedChallenge struct {
	Challenge
	Champion json.RawMessage `json:"champion"`
}

func encode(ch Challenge) ([]byte, error) {
	rec, err := json.Marshal(ch.Champion)
	if err != nil {
		return nil, fmt.Errorf("encode champion: %w", err)
	}
	data, err := json.Marshal(storedChallenge{Challenge: ch, Champion: rec})
	if err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Challenge, error) {
	var s storedChallenge
	if err := json.Unmarshal(data, &s); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	rec, err := model.ParseRecord(s.Champion)
	if err != nil {
		return Challenge{}, fmt.Errorf("decode champion of %s: %w", s.ID, err)
	}
	ch := s.Challenge
	ch.Champion = rec
	return ch, nil
}
