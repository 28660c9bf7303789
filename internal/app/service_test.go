package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/duelcard/internal/adapters/repository"
	"github.com/okian/duelcard/internal/domain/comparator"
	"github.com/okian/duelcard/internal/domain/model"
	"github.com/okian/duelcard/internal/domain/types"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/internal/render/fonts"
	. "github.com/smartystreets/goconvey/convey"
)

type noAvatars struct{ calls atomic.Int32 }

func (a *noAvatars) Fetch(context.Context, string) []byte {
	a.calls.Add(1)
	return nil
}

type post struct {
	channelID string
	content   string
	size      int
}

type recordingPoster struct {
	mu    sync.Mutex
	posts []post
	err   error

	entered chan struct{}
	release chan struct{}
}

func (p *recordingPoster) PostCard(_ context.Context, channelID, content string, png []byte) error {
	if p.entered != nil {
		p.entered <- struct{}{}
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, post{channelID: channelID, content: content, size: len(png)})
	return p.err
}

func (p *recordingPoster) all() []post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post(nil), p.posts...)
}

// conflictStore loses every compare-and-swap.
type conflictStore struct {
	*repository.MemoryStore
	replaces atomic.Int32
}

func (s *conflictStore) ReplaceChampion(context.Context, string, int64, repository.ChampionUpdate) (repository.Challenge, error) {
	s.replaces.Add(1)
	return repository.Challenge{}, repository.ErrVersionConflict
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return "id-" + strconv.FormatInt(n.Add(1), 10) }
}

func championRecord() model.ScoreRecord {
	return model.ScoreRecord{
		TotalScore: 900_000, PerformancePoints: 150, Accuracy: 0.95, MaxCombo: 400,
		Hits: model.HitCounts{Perfect: 300, Good: 12, Meh: 3, Miss: 4},
		Map:  &model.MapReference{ID: 4242, DifficultyName: "Insane"},
	}
}

func strongerRecord() model.ScoreRecord {
	return model.ScoreRecord{
		TotalScore: 1_100_000, PerformancePoints: 180, Accuracy: 0.98, MaxCombo: 450,
		Hits: model.HitCounts{Perfect: 310, Good: 8, Meh: 2, Miss: 1},
	}
}

func weakerRecord() model.ScoreRecord {
	return model.ScoreRecord{
		TotalScore: 700_000, PerformancePoints: 100, Accuracy: 0.90, MaxCombo: 200,
		Hits: model.HitCounts{Perfect: 280, Good: 20, Meh: 5, Miss: 9},
	}
}

func newTestService(poster Poster, opts ...Option) *Service {
	base := []Option{
		WithCompositor(card.New(fonts.New(fonts.WithCandidates()), card.WithSize(400, 250))),
		WithAvatarSource(&noAvatars{}),
		WithPoster(poster),
		WithWorkerCount(1),
		WithIDGenerator(sequentialIDs()),
	}
	return New(append(base, opts...)...)
}

func waitResolved(svc *Service, id string) Resolution {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := svc.Resolution(context.Background(), id); ok && r.Status != StatusPending {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	r, _ := svc.Resolution(context.Background(), id)
	return r
}

func TestCompare(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newTestService(&recordingPoster{})
		ctx := context.Background()

		Convey("When the responder is stronger", func() {
			v, err := svc.Compare(ctx, championRecord(), strongerRecord(), "bob")
			So(err, ShouldBeNil)
			So(v.ResponderWon(), ShouldBeTrue)
			So(v.ResponderName, ShouldEqual, "bob")
		})

		Convey("When a record is invalid", func() {
			bad := strongerRecord()
			bad.Accuracy = 2
			_, err := svc.Compare(ctx, championRecord(), bad, "bob")
			So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
		})
	})
}

func TestRenderCard(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newTestService(&recordingPoster{})
		ctx := context.Background()
		in := CardInput{
			Left:       CardParty{Name: "alice", AvatarURL: "http://avatars.invalid/a.png"},
			Right:      CardParty{Name: "bob"},
			LeftScore:  championRecord(),
			RightScore: strongerRecord(),
		}

		Convey("When no winners are given they are computed", func() {
			png, v, err := svc.RenderCard(ctx, in)
			So(err, ShouldBeNil)
			So(len(png), ShouldBeGreaterThan, 0)
			So(v.ResponderWon(), ShouldBeTrue)
		})

		Convey("When winners are given they are tallied", func() {
			in.Winners = make([]types.Tag, comparator.RowCount)
			for i := range in.Winners {
				in.Winners[i] = types.TagChallenger
			}
			_, v, err := svc.RenderCard(ctx, in)
			So(err, ShouldBeNil)
			So(v.ChallengerWins, ShouldEqual, comparator.KeyMetricCount)
			So(v.ResponderWins, ShouldEqual, 0)
		})

		Convey("When the winners list has the wrong length", func() {
			in.Winners = []types.Tag{types.TagTie}
			_, _, err := svc.RenderCard(ctx, in)
			So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
		})

		Convey("When a winner tag is unknown", func() {
			in.Winners = make([]types.Tag, comparator.RowCount)
			for i := range in.Winners {
				in.Winners[i] = "left"
			}
			_, _, err := svc.RenderCard(ctx, in)
			So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
		})

		Convey("When rendering a preview", func() {
			rec := strongerRecord()
			png, err := svc.RenderPreview(ctx, CardParty{Name: "alice"}, &rec)
			So(err, ShouldBeNil)
			So(len(png), ShouldBeGreaterThan, 0)

			png, err = svc.RenderPreview(ctx, CardParty{Name: "alice"}, nil)
			So(err, ShouldBeNil)
			So(len(png), ShouldBeGreaterThan, 0)
		})
	})
}

func TestChallenges(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newTestService(&recordingPoster{})
		ctx := context.Background()

		Convey("When a challenge is created", func() {
			ch, err := svc.CreateChallenge(ctx, NewChallenge{
				ChallengerID: "u1", ChallengerName: "alice", Record: championRecord(),
			})
			So(err, ShouldBeNil)

			Convey("Then the challenger holds the title at version 1", func() {
				So(ch.ID, ShouldEqual, "id-1")
				So(ch.ChampionID, ShouldEqual, "u1")
				So(ch.ChampionName, ShouldEqual, "alice")
				So(ch.Version, ShouldEqual, 1)
			})

			Convey("Then the map id comes from the record", func() {
				So(ch.MapID, ShouldEqual, 4242)
			})

			Convey("Then it can be read back", func() {
				got, err := svc.GetChallenge(ctx, ch.ID)
				So(err, ShouldBeNil)
				So(got.Champion.TotalScore, ShouldEqual, 900_000)
			})
		})

		Convey("When the record is invalid", func() {
			rec := championRecord()
			rec.TotalScore = -1
			_, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: rec})
			So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
		})

		Convey("When reading an unknown challenge", func() {
			_, err := svc.GetChallenge(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSubmitResponse(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := newTestService(&recordingPoster{})
		_, err := svc.SubmitResponse(context.Background(), model.Submission{ChallengeID: "x", Record: strongerRecord()})
		So(errors.Is(err, ErrNotStarted), ShouldBeTrue)
	})

	Convey("Given a running service with an open challenge", t, func() {
		ctx := context.Background()
		poster := &recordingPoster{}
		svc := newTestService(poster)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		ch, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: championRecord()})
		So(err, ShouldBeNil)

		submit := func(id string, rec model.ScoreRecord) (SubmitResult, error) {
			return svc.SubmitResponse(ctx, model.Submission{
				SubmissionID: id, ChallengeID: ch.ID, ResponderID: "u2",
				ResponderName: "bob", ChannelID: "chan-1", Record: rec,
			})
		}

		Convey("When a stronger responder answers", func() {
			res, err := submit("s1", strongerRecord())
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeFalse)

			r := waitResolved(svc, "s1")

			Convey("Then the champion changes", func() {
				So(r.Status, ShouldEqual, StatusResolved)
				So(r.ChampionChanged, ShouldBeTrue)
				So(r.ChampionName, ShouldEqual, "bob")
				So(r.Version, ShouldEqual, 2)

				stored, err := svc.GetChallenge(ctx, ch.ID)
				So(err, ShouldBeNil)
				So(stored.ChampionID, ShouldEqual, "u2")
				So(stored.Champion.TotalScore, ShouldEqual, 1_100_000)
			})

			Convey("Then the card is posted to the channel", func() {
				posts := poster.all()
				So(len(posts), ShouldEqual, 1)
				So(posts[0].channelID, ShouldEqual, "chan-1")
				So(posts[0].content, ShouldContainSubstring, "bob")
				So(posts[0].content, ShouldContainSubstring, "alice")
				So(posts[0].size, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a weaker responder answers", func() {
			_, err := submit("s2", weakerRecord())
			So(err, ShouldBeNil)
			r := waitResolved(svc, "s2")

			Convey("Then the champion defends", func() {
				So(r.Status, ShouldEqual, StatusResolved)
				So(r.ChampionChanged, ShouldBeFalse)
				So(r.Verdict, ShouldNotBeNil)
				So(r.Verdict.Outcome(), ShouldEqual, types.TagChallenger)

				stored, _ := svc.GetChallenge(ctx, ch.ID)
				So(stored.ChampionID, ShouldEqual, "u1")
				So(stored.Version, ShouldEqual, 1)
			})
		})

		Convey("When the same submission arrives twice", func() {
			_, err := submit("s3", weakerRecord())
			So(err, ShouldBeNil)
			res, err := submit("s3", weakerRecord())
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeTrue)
		})

		Convey("When the challenge does not exist", func() {
			_, err := svc.SubmitResponse(ctx, model.Submission{SubmissionID: "s4", ChallengeID: "nope", Record: strongerRecord()})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the record is invalid", func() {
			bad := strongerRecord()
			bad.MaxCombo = -5
			_, err := submit("s5", bad)
			So(errors.Is(err, model.ErrInvalidScoreData), ShouldBeTrue)
		})

		Convey("Then stats report the pipeline", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 1)
			So(stats["totalChallenges"], ShouldEqual, 1)
			So(stats["canvas"], ShouldEqual, "400x250")
		})
	})
}

func TestResolutionFailures(t *testing.T) {
	Convey("Given a store that always loses the champion swap", t, func() {
		ctx := context.Background()
		store := &conflictStore{MemoryStore: repository.NewMemoryStore()}
		svc := newTestService(&recordingPoster{}, WithStore(store), WithResolveAttempts(3))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		ch, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: championRecord()})
		So(err, ShouldBeNil)

		_, err = svc.SubmitResponse(ctx, model.Submission{SubmissionID: "c1", ChallengeID: ch.ID, ResponderName: "bob", Record: strongerRecord()})
		So(err, ShouldBeNil)
		r := waitResolved(svc, "c1")

		So(r.Status, ShouldEqual, StatusFailed)
		So(r.Error, ShouldContainSubstring, ErrConflict.Error())
		So(store.replaces.Load(), ShouldEqual, 3)
	})

	Convey("Given a poster that fails", t, func() {
		ctx := context.Background()
		svc := newTestService(&recordingPoster{err: errors.New("chat down")})
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		ch, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: championRecord()})
		So(err, ShouldBeNil)
		_, err = svc.SubmitResponse(ctx, model.Submission{SubmissionID: "p1", ChallengeID: ch.ID, ResponderName: "bob", Record: weakerRecord()})
		So(err, ShouldBeNil)

		r := waitResolved(svc, "p1")
		So(r.Status, ShouldEqual, StatusResolved)
		So(r.Error, ShouldContainSubstring, "chat down")
	})

	Convey("Given a full queue", t, func() {
		ctx := context.Background()
		poster := &recordingPoster{entered: make(chan struct{}), release: make(chan struct{})}
		svc := newTestService(poster, WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)

		ch, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: championRecord()})
		So(err, ShouldBeNil)
		sub := func(id string) error {
			_, err := svc.SubmitResponse(ctx, model.Submission{SubmissionID: id, ChallengeID: ch.ID, ResponderName: "bob", Record: weakerRecord()})
			return err
		}

		So(sub("q1"), ShouldBeNil)
		<-poster.entered // the only worker is now busy
		So(sub("q2"), ShouldBeNil)

		err = sub("q3")
		So(errors.Is(err, ErrBackpressure), ShouldBeTrue)

		Convey("Then the rejected id can be submitted again later", func() {
			close(poster.release)
			<-poster.entered
			So(waitResolved(svc, "q1").Status, ShouldEqual, StatusResolved)
			So(waitResolved(svc, "q2").Status, ShouldEqual, StatusResolved)
			So(sub("q3"), ShouldBeNil)
			<-poster.entered
			So(waitResolved(svc, "q3").Status, ShouldEqual, StatusResolved)
			svc.Stop()
		})
	})
}

func TestStopDrainsQueue(t *testing.T) {
	Convey("Given submissions still queued behind a single worker", t, func() {
		ctx := context.Background()
		svc := newTestService(&recordingPoster{}, WithQueueSize(8))
		So(svc.Start(ctx), ShouldBeNil)

		ch, err := svc.CreateChallenge(ctx, NewChallenge{ChallengerID: "u1", ChallengerName: "alice", Record: championRecord()})
		So(err, ShouldBeNil)

		ids := []string{"d1", "d2", "d3", "d4", "d5", "d6"}
		for _, id := range ids {
			_, err := svc.SubmitResponse(ctx, model.Submission{SubmissionID: id, ChallengeID: ch.ID, ResponderName: "bob", Record: weakerRecord()})
			So(err, ShouldBeNil)
		}

		Convey("When the service stops", func() {
			svc.Stop()

			Convey("Then every accepted submission has been settled", func() {
				for _, id := range ids {
					r, ok := svc.Resolution(ctx, id)
					So(ok, ShouldBeTrue)
					So(r.Status, ShouldNotEqual, StatusPending)
				}
			})
		})
	})
}
