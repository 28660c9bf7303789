package api

import "github.com/okian/duelcard/pkg/logger"

type options struct {
	logger logger.Logger
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger used for unexpected handler failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
