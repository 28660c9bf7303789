package fonts

import "github.com/okian/duelcard/pkg/logger"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report skipped candidates.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCandidates replaces the candidate list.
func WithCandidates(paths ...string) Option {
	return func(r *Registry) {
		r.candidates = append([]string(nil), paths...)
	}
}
