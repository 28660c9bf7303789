// Package avatar downloads profile pictures for card rendering.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"
)

// Defaults for the fetcher.
const (
	DefaultTimeout  = 4 * time.Second
	DefaultRetryMax = 2
	DefaultMaxBytes = 4 << 20
)

// Fetcher downloads avatars with a per-attempt timeout and a bounded number
// of retries with exponential backoff.
type Fetcher struct {
	client   *retryablehttp.Client
	maxBytes int64
	logger   logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.HTTPClient.Timeout = d
		}
	}
}

// WithRetryMax sets how many times a failed attempt is retried.
func WithRetryMax(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.client.RetryMax = n
		}
	}
}

// WithBackoff sets the wait bounds between retries.
func WithBackoff(minWait, maxWait time.Duration) Option {
	return func(f *Fetcher) {
		if minWait > 0 && maxWait >= minWait {
			f.client.RetryWaitMin = minWait
			f.client.RetryWaitMax = maxWait
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets the logger used for failed fetches.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = DefaultRetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = DefaultTimeout

	f := &Fetcher{client: client, maxBytes: DefaultMaxBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body at url, or nil when the avatar cannot be had. A nil
// result means the card falls back to its placeholder.
func (f *Fetcher) Fetch(ctx context.Context, url string) []byte {
	if url == "" {
		return nil
	}
	data, err := f.get(ctx, url)
	if err != nil {
		f.logger.Warn(ctx, "avatar fetch failed", logger.String("url", url), logger.Error(err))
		metrics.RecordAvatarFetchFailure()
		return nil
	}
	return data
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("avatar larger than %d bytes", f.maxBytes)
	}
	return data, nil
}
