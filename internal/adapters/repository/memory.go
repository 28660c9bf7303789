package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps challenges in a map. It is the default backend and the
// reference behaviour for the networked stores.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]Challenge
	opts       options
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]Challenge),
		opts:       newOptions(opts),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, ch Challenge) (Challenge, error) {
	ch, err := prepare(ch, s.opts.now())
	if err != nil {
		return Challenge{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[ch.ID]; ok {
		return Challenge{}, ErrAlreadyExists
	}
	s.challenges[ch.ID] = ch
	return clone(ch), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return clone(ch), nil
}

// ReplaceChampion implements Store.
func (s *MemoryStore) ReplaceChampion(_ context.Context, id string, expectedVersion int64, next ChampionUpdate) (Challenge, error) {
	if err := checkUpdate(next); err != nil {
		return Challenge{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if ch.Version != expectedVersion {
		return Challenge{}, ErrVersionConflict
	}
	ch = apply(ch, next, s.opts.now())
	s.challenges[id] = ch
	return clone(ch), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[id]; !ok {
		return ErrNotFound
	}
	delete(s.challenges, id)
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.challenges), nil
}

func clone(ch Challenge) Challenge {
	ch.Champion = cloneRecord(ch.Champion)
	return ch
}
