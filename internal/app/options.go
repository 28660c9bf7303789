package service

import (
	"time"

	"github.com/okian/duelcard/internal/adapters/repository"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the challenge store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCompositor sets the card compositor.
func WithCompositor(c *card.Compositor) Option {
	return func(s *Service) {
		if c != nil {
			s.compositor = c
		}
	}
}

// WithAvatarSource sets where avatars are downloaded from.
func WithAvatarSource(a AvatarSource) Option {
	return func(s *Service) {
		if a != nil {
			s.avatars = a
		}
	}
}

// WithPoster sets where resolved cards are sent.
func WithPoster(p Poster) Option {
	return func(s *Service) {
		if p != nil {
			s.poster = p
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of submission ids remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithResultHistory sets how many resolutions are kept for lookup.
func WithResultHistory(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithResolveAttempts bounds how often a resolution is retried after a
// concurrent champion change.
func WithResolveAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resolveAttempts = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
