// Package service wires comparison, rendering, storage and the submission
// pipeline into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/duelcard/internal/adapters/avatar"
	submissionqueue "github.com/okian/duelcard/internal/adapters/mq/queue"
	workerpool "github.com/okian/duelcard/internal/adapters/mq/worker"
	"github.com/okian/duelcard/internal/adapters/repository"
	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/dedupe"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"
)

const (
	defaultQueueSize       = 1024
	defaultDedupeSize      = 50000
	defaultHistorySize     = 1000
	defaultResolveAttempts = 3
	metricsUpdateInterval  = 10 * time.Second
)

// AvatarSource downloads avatar images. A nil result means "no avatar".
type AvatarSource interface {
	Fetch(ctx context.Context, url string) []byte
}

// Poster publishes a rendered card to a chat channel.
type Poster interface {
	PostCard(ctx context.Context, channelID, content string, png []byte) error
}

// resolverAdapter exposes the resolution step to the worker pool.
type resolverAdapter struct {
	svc *Service
}

func (a resolverAdapter) Resolve(ctx context.Context, sub model.Submission) error { //nolint:gocritic // hugeParam: matches worker.Resolver
	return a.svc.resolve(ctx, sub)
}

// Service implements the API dependencies for the challenge bot engine.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	compositor *card.Compositor
	avatars    AvatarSource
	poster     Poster

	deduper dedupe.Deduper
	queue   *submissionqueue.InMemoryQueue
	pool    *workerpool.Pool
	results *history

	workerCount     int
	queueSize       int
	dedupeSize      int
	historySize     int
	resolveAttempts int

	now   func() time.Time
	newID func() string

	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     0, // one per CPU
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		historySize:     defaultHistorySize,
		resolveAttempts: defaultResolveAttempts,
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
		stopCh:          make(chan struct{}),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.compositor == nil {
		s.compositor = card.New(nil, card.WithLogger(s.logger.Named("card")))
	}
	if s.avatars == nil {
		s.avatars = avatar.New(avatar.WithLogger(s.logger.Named("avatar")))
	}
	if s.poster == nil {
		s.poster = NewLogPoster(s.logger.Named("poster"))
	}
	s.results = newHistory(s.historySize)
	return s
}

// Start initializes and starts the submission pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting duel service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = submissionqueue.NewInMemoryQueue(submissionqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, resolverAdapter{svc: s},
		workerpool.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.stopCh = make(chan struct{})
	go s.runMetricsUpdater(ctx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "duel service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes intake and waits for the workers to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping duel service...")

	_ = s.queue.Close()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	close(s.stopCh)

	s.started = false
	s.logger.Info(ctx, "duel service stopped")
}

func (s *Service) runMetricsUpdater(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if n, err := s.store.Count(ctx); err == nil {
				metrics.UpdateTotalChallenges(n)
			}
		}
	}
}

// Compare runs the comparator and records the outcome.
func (s *Service) Compare(_ context.Context, challenger, responder model.ScoreRecord, responderName string) (comparator.Verdict, error) {
	v, err := comparator.Compare(challenger, responder, responderName)
	if err != nil {
		metrics.RecordInvalidScoreData()
		return comparator.Verdict{}, err
	}
	metrics.RecordComparison(string(v.Outcome()))
	return v, nil
}

// CardParty is one side of a card request. Avatar bytes win over AvatarURL.
type CardParty struct {
	Name      string
	AvatarURL string
	Avatar    []byte
}

// CardInput is a challenge-mode render request. When Winners is empty the
// verdict is computed from the two records.
type CardInput struct {
	Left, Right           CardParty
	LeftScore, RightScore model.ScoreRecord
	Winners               []types.Tag
	Loser                 types.Side
}

// RenderCard renders a challenge card and returns the PNG together with the
// verdict it was drawn from.
func (s *Service) RenderCard(ctx context.Context, in CardInput) ([]byte, comparator.Verdict, error) {
	var v comparator.Verdict
	req := card.Request{Mode: card.ModeChallenge}

	if len(in.Winners) == 0 {
		var err error
		v, err = s.Compare(ctx, in.LeftScore, in.RightScore, in.Right.Name)
		if err != nil {
			return nil, comparator.Verdict{}, err
		}
		req.Winners = v.WinnerTags()
		req.Loser = v.Loser()
		req.PerfectFallback = v.PerfectFallback
	} else {
		for _, rec := range []model.ScoreRecord{in.LeftScore, in.RightScore} {
			if err := rec.Validate(); err != nil {
				metrics.RecordInvalidScoreData()
				return nil, comparator.Verdict{}, err
			}
		}
		if len(in.Winners) != comparator.RowCount {
			return nil, comparator.Verdict{}, fmt.Errorf("%w: winners must have %d entries",
				model.ErrInvalidScoreData, comparator.RowCount)
		}
		for i, tag := range in.Winners {
			if !tag.Valid() {
				return nil, comparator.Verdict{}, fmt.Errorf("%w: winners[%d] is %q",
					model.ErrInvalidScoreData, i, tag)
			}
			v.Winners[i] = tag
			if !comparator.Metrics[i].IsKey() {
				continue
			}
			switch tag {
			case types.TagChallenger:
				v.ChallengerWins++
			case types.TagResponder:
				v.ResponderWins++
			}
		}
		req.Winners = in.Winners
		req.Loser = in.Loser
		if req.Loser == types.SideNone {
			req.Loser = v.Loser()
		}
		if !req.Loser.Valid() {
			return nil, comparator.Verdict{}, fmt.Errorf("%w: loser is %q", model.ErrInvalidScoreData, req.Loser)
		}
		req.PerfectFallback = comparator.UsesPerfectFallback(in.LeftScore, in.RightScore)
		v.PerfectFallback = req.PerfectFallback
		v.ResponderName = in.Right.Name
	}

	left, right := s.fetchPair(ctx, in.Left, in.Right)
	req.Left = card.Party{Name: in.Left.Name, Avatar: left}
	req.Right = card.Party{Name: in.Right.Name, Avatar: right}
	req.Scores = &[2]model.ScoreRecord{in.LeftScore, in.RightScore}

	png, err := s.compositor.Render(ctx, req)
	if err != nil {
		return nil, comparator.Verdict{}, err
	}
	return png, v, nil
}

// RenderPreview renders the prototype card of a single party.
func (s *Service) RenderPreview(ctx context.Context, p CardParty, rec *model.ScoreRecord) ([]byte, error) {
	if rec != nil {
		if err := rec.Validate(); err != nil {
			return nil, err
		}
	}
	return s.compositor.RenderPrototype(ctx, card.Party{Name: p.Name, Avatar: s.avatarOf(ctx, p)}, rec)
}

func (s *Service) avatarOf(ctx context.Context, p CardParty) []byte {
	if len(p.Avatar) > 0 {
		return p.Avatar
	}
	return s.avatars.Fetch(ctx, p.AvatarURL)
}

// fetchPair downloads both avatars concurrently.
func (s *Service) fetchPair(ctx context.Context, left, right CardParty) ([]byte, []byte) {
	var (
		wg   sync.WaitGroup
		l, r []byte
	)
	wg.Add(2)
	go func() { defer wg.Done(); l = s.avatarOf(ctx, left) }()
	go func() { defer wg.Done(); r = s.avatarOf(ctx, right) }()
	wg.Wait()
	return l, r
}

// NewChallenge is the input of CreateChallenge.
type NewChallenge struct {
	ChallengerID   string
	ChallengerName string
	AvatarURL      string
	MapID          int64
	Record         model.ScoreRecord
}

// CreateChallenge opens a challenge with the challenger as first champion.
func (s *Service) CreateChallenge(ctx context.Context, in NewChallenge) (repository.Challenge, error) { //nolint:gocritic // hugeParam: input value
	if err := in.Record.Validate(); err != nil {
		metrics.RecordInvalidScoreData()
		return repository.Challenge{}, err
	}
	mapID := in.MapID
	if mapID == 0 && in.Record.HasMap() {
		mapID = in.Record.Map.ID
	}
	ch, err := s.store.Create(ctx, repository.Challenge{
		ID:             s.newID(),
		MapID:          mapID,
		ChallengerID:   in.ChallengerID,
		ChallengerName: in.ChallengerName,
		ChampionID:     in.ChallengerID,
		ChampionName:   in.ChallengerName,
		ChampionAvatar: in.AvatarURL,
		Champion:       in.Record,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return repository.Challenge{}, err
	}
	s.logger.Info(ctx, "challenge created",
		logger.String("challengeID", ch.ID),
		logger.String("challenger", ch.ChallengerName),
		logger.Int64("mapID", ch.MapID),
	)
	return ch, nil
}

// GetChallenge returns a stored challenge.
func (s *Service) GetChallenge(ctx context.Context, id string) (repository.Challenge, error) {
	return s.store.Get(ctx, id)
}

// SubmitResult reports how a submission was taken in.
type SubmitResult struct {
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// SubmitResponse validates and enqueues a responder's submission. Repeated
// submission ids are acknowledged without being queued again.
func (s *Service) SubmitResponse(ctx context.Context, sub model.Submission) (SubmitResult, error) { //nolint:gocritic // hugeParam: input value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return SubmitResult{}, ErrNotStarted
	}

	if err := sub.Record.Validate(); err != nil {
		metrics.RecordInvalidScoreData()
		return SubmitResult{}, err
	}
	if _, err := s.store.Get(ctx, sub.ChallengeID); err != nil {
		return SubmitResult{}, err
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = s.newID()
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission, skipping", logger.String("submissionID", sub.SubmissionID))
		return SubmitResult{SubmissionID: sub.SubmissionID, Duplicate: true}, nil
	}

	s.results.put(Resolution{
		SubmissionID:  sub.SubmissionID,
		ChallengeID:   sub.ChallengeID,
		ResponderName: sub.ResponderName,
		Status:        StatusPending,
		UpdatedAt:     s.now(),
	})
	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, sub.SubmissionID)
		s.results.put(Resolution{
			SubmissionID: sub.SubmissionID,
			ChallengeID:  sub.ChallengeID,
			Status:       StatusFailed,
			Error:        err.Error(),
			UpdatedAt:    s.now(),
		})
		if errors.Is(err, submissionqueue.ErrFull) {
			return SubmitResult{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return SubmitResult{}, err
	}
	return SubmitResult{SubmissionID: sub.SubmissionID}, nil
}

// Resolution returns the latest known state of a submission.
func (s *Service) Resolution(_ context.Context, submissionID string) (Resolution, bool) {
	return s.results.get(submissionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	width, height := s.compositor.Size()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"resolutions": s.results.len(),
		"canvas":      fmt.Sprintf("%dx%d", width, height),
	}
	if n, err := s.store.Count(ctx); err == nil {
		stats["totalChallenges"] = n
		metrics.UpdateTotalChallenges(n)
	}
	if s.started {
		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}
