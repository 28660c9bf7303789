package model

import (
	"errors"
	"fmt"
)

// ErrInvalidScoreData is the sentinel kind for malformed score records.
var ErrInvalidScoreData = errors.New("invalid score data")

// InvalidScoreDataError describes which part of a record was unusable.
type InvalidScoreDataError struct {
	Field  string
	Reason string
}

func (e *InvalidScoreDataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidScoreData, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidScoreData, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidScoreData.
func (e *InvalidScoreDataError) Unwrap() error { return ErrInvalidScoreData }

func invalid(field, reason string) error {
	return &InvalidScoreDataError{Field: field, Reason: reason}
}
