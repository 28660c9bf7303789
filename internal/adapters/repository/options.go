package repository

import "time"

const defaultKeyPrefix = "duel:"

type options struct {
	ttl       time.Duration
	keyPrefix string
	now       func() time.Time
}

func newOptions(opts []Option) options {
	o := options{keyPrefix: defaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithTTL expires challenges after ttl. Only the Redis store honours it.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
