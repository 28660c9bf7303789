package service

import (
	"context"

	"github.com/okian/duelcard/pkg/logger"
)

// LogPoster is the Poster used when no chat integration is configured. It
// only logs what would have been sent.
type LogPoster struct {
	logger logger.Logger
}

// NewLogPoster returns a LogPoster writing to l.
func NewLogPoster(l logger.Logger) LogPoster {
	if l == nil {
		l = logger.Nop()
	}
	return LogPoster{logger: l}
}

// PostCard implements Poster.
func (p LogPoster) PostCard(ctx context.Context, channelID, content string, png []byte) error {
	p.logger.Info(ctx, "card ready",
		logger.String("channelID", channelID),
		logger.String("content", content),
		logger.Int("bytes", len(png)),
	)
	return nil
}
