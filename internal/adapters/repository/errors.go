package repository

import "errors"

// Sentinel kinds for challenge store errors.
var (
	ErrNotFound         = errors.New("challenge not found")
	ErrAlreadyExists    = errors.New("challenge already exists")
	ErrVersionConflict  = errors.New("challenge version conflict")
	ErrInvalidChallenge = errors.New("invalid challenge")
)
