// Package discord posts rendered duel cards into Discord channels.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/okian/duelcard/pkg/logger"
)

// cardFileName is the attachment name Discord shows for the card.
const cardFileName = "duel.png"

// Sentinel errors.
var (
	ErrNoToken   = errors.New("discord token is empty")
	ErrNoChannel = errors.New("no discord channel to post to")
)

// messageSender is the slice of *discordgo.Session the poster needs.
type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Poster sends cards as message attachments.
type Poster struct {
	sender         messageSender
	defaultChannel string
	logger         logger.Logger
}

// Option configures a Poster.
type Option func(*Poster)

// WithDefaultChannel sets the channel used when a post names none.
func WithDefaultChannel(id string) Option {
	return func(p *Poster) { p.defaultChannel = id }
}

// WithLogger sets the poster's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poster) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Poster authenticated as a bot. Posting only uses the REST
// API, so no gateway connection is opened.
func New(token string, opts ...Option) (*Poster, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return newPoster(session, opts...), nil
}

func newPoster(sender messageSender, opts ...Option) *Poster {
	p := &Poster{sender: sender, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PostCard sends content with the PNG attached to channelID, or to the
// default channel when channelID is empty.
func (p *Poster) PostCard(ctx context.Context, channelID, content string, png []byte) error {
	if channelID == "" {
		channelID = p.defaultChannel
	}
	if channelID == "" {
		return ErrNoChannel
	}

	msg := &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        cardFileName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(png),
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	sent, err := p.sender.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send to %s: %w", channelID, err)
	}
	if sent != nil {
		p.logger.Debug(ctx, "card posted", logger.String("channelID", channelID), logger.String("messageID", sent.ID))
	}
	return nil
}
