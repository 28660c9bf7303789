package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/duelcard/internal/adapters/repository"
	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"
)

// resolve settles one submission: it compares against the current champion,
// swaps the champion when the responder takes the majority, renders the card
// and posts it. The card always shows the champion the responder faced.
func (s *Service) resolve(ctx context.Context, sub model.Submission) error { //nolint:gocritic // hugeParam: queue item
	res := Resolution{
		SubmissionID:  sub.SubmissionID,
		ChallengeID:   sub.ChallengeID,
		ResponderName: sub.ResponderName,
	}

	faced, v, updated, err := s.settle(ctx, sub)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		res.UpdatedAt = s.now()
		s.results.put(res)
		return err
	}

	res.Verdict = &v
	res.ChampionChanged = v.ResponderWon()
	res.ChampionID, res.ChampionName, res.Version = updated.ChampionID, updated.ChampionName, updated.Version
	res.Message = summary(faced.ChampionName, sub.ResponderName, v)

	png, err := s.renderResolution(ctx, faced, sub, v)
	if err != nil {
		metrics.RecordWorkerError("render")
		res.Status = StatusFailed
		res.Error = err.Error()
		res.UpdatedAt = s.now()
		s.results.put(res)
		return fmt.Errorf("render: %w", err)
	}

	res.Status = StatusResolved
	if err := s.poster.PostCard(ctx, sub.ChannelID, res.Message, png); err != nil {
		metrics.RecordWorkerError("post")
		s.logger.Warn(ctx, "posting card failed",
			logger.String("submissionID", sub.SubmissionID),
			logger.String("channelID", sub.ChannelID),
			logger.Error(err),
		)
		res.Error = "post: " + err.Error()
	}
	res.UpdatedAt = s.now()
	s.results.put(res)

	s.logger.Info(ctx, "submission resolved",
		logger.String("submissionID", sub.SubmissionID),
		logger.String("challengeID", sub.ChallengeID),
		logger.Bool("championChanged", res.ChampionChanged),
		logger.Int("responderWins", v.ResponderWins),
		logger.Int("challengerWins", v.ChallengerWins),
	)
	return nil
}

// settle runs the compare-and-swap loop. It returns the challenge as it was
// compared against, the verdict, and the challenge after the update (the
// same challenge when the champion kept the title).
func (s *Service) settle(ctx context.Context, sub model.Submission) (faced repository.Challenge, v comparator.Verdict, after repository.Challenge, err error) { //nolint:gocritic // hugeParam: queue item
	for attempt := 1; ; attempt++ {
		faced, err = s.store.Get(ctx, sub.ChallengeID)
		if err != nil {
			return faced, v, after, fmt.Errorf("load challenge: %w", err)
		}
		v, err = s.Compare(ctx, faced.Champion, sub.Record, sub.ResponderName)
		if err != nil {
			return faced, v, after, err
		}
		if !v.ResponderWon() {
			return faced, v, faced, nil
		}

		after, err = s.store.ReplaceChampion(ctx, faced.ID, faced.Version, repository.ChampionUpdate{
			ID:        sub.ResponderID,
			Name:      sub.ResponderName,
			AvatarURL: sub.AvatarURL,
			Record:    sub.Record,
		})
		if err == nil {
			metrics.RecordChampionUpdate()
			return faced, v, after, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return faced, v, after, fmt.Errorf("replace champion: %w", err)
		}

		metrics.RecordChampionConflict()
		s.logger.Debug(ctx, "champion changed during resolution, retrying",
			logger.String("challengeID", sub.ChallengeID),
			logger.Int("attempt", attempt),
		)
		if attempt >= s.resolveAttempts {
			return faced, v, after, fmt.Errorf("%w: %d attempts", ErrConflict, attempt)
		}
	}
}

func (s *Service) renderResolution(ctx context.Context, faced repository.Challenge, sub model.Submission, v comparator.Verdict) ([]byte, error) { //nolint:gocritic // hugeParam: queue item
	champ, resp := s.fetchPair(ctx,
		CardParty{AvatarURL: faced.ChampionAvatar},
		CardParty{AvatarURL: sub.AvatarURL},
	)
	return s.compositor.RenderChallenge(ctx,
		card.Party{Name: faced.ChampionName, Avatar: champ},
		card.Party{Name: sub.ResponderName, Avatar: resp},
		faced.Champion, sub.Record, v,
	)
}

func summary(champion, responder string, v comparator.Verdict) string {
	switch v.Outcome() {
	case types.TagResponder:
		return fmt.Sprintf("**%s** takes the crown from **%s** (%d-%d)",
			responder, champion, v.ResponderWins, v.ChallengerWins)
	case types.TagChallenger:
		return fmt.Sprintf("**%s** defends against **%s** (%d-%d)",
			champion, responder, v.ChallengerWins, v.ResponderWins)
	default:
		return fmt.Sprintf("**%s** holds on against **%s**, no majority (%d-%d)",
			champion, responder, v.ChallengerWins, v.ResponderWins)
	}
}
