package scoreboard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the read-only query surface the engine pulls from. GetContest
// returns an error wrapping ErrNotFound for unknown contests; the other
// methods return empty slices, not errors, when there is nothing to read.
type Store interface {
	GetContest(ctx context.Context, contestID uint) (*Contest, error)
	GetContestProblems(ctx context.Context, contestID uint) ([]ProblemRef, error)
	GetParticipants(ctx context.Context, contestID uint) ([]UserRef, error)
	GetContestScores(ctx context.Context, contestID uint) ([]ContestScore, error)
	// GetSubmissions returns the contest's submissions ordered by id.
	GetSubmissions(ctx context.Context, contestID uint, filter SubmissionFilter) ([]Submission, error)
}

// RankWriter persists computed ranks. Saving is an idempotent upsert keyed
// by (contest, user).
type RankWriter interface {
	SaveRanks(ctx context.Context, contestID uint, ranks map[uint]int) error
}

// TrendEntry is one top user's cumulative score line.
type TrendEntry struct {
	User    UserRef         `json:"user"`
	Total   int             `json:"total_score"`
	Rank    int             `json:"rank"`
	History []TimelinePoint `json:"history"`
}

// DefaultTrendSize is how many leading users a trend shows, before ties.
const DefaultTrendSize = 10

type Option func(*Service)

// WithClock replaces the wall clock used by the visibility gate.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// Service runs the engine against a Store. It keeps no state between calls
// apart from the optional cache, so one instance serves concurrent requests.
type Service struct {
	store  Store
	cache  Cache
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger.With(zap.String("component", "scoreboard_service")),
		tracer: otel.Tracer("github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

// CheckVisibility loads the contest and applies the visibility gate without
// touching scores, so callers can reject early.
func (s *Service) CheckVisibility(ctx context.Context, contestID uint, caller Caller) (*Contest, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !CanView(*contest, caller, s.now()) {
		observeDenied()
		return nil, fmt.Errorf("contest %d: %w", contestID, ErrForbidden)
	}
	return contest, nil
}

// Scoreboard returns the ranked standings of a contest if caller may see them.
func (s *Service) Scoreboard(ctx context.Context, contestID uint, caller Caller) (*Scoreboard, error) {
	ctx, span := s.tracer.Start(ctx, "Scoreboard.Scoreboard", trace.WithAttributes(attribute.Int("contest.id", int(contestID))))
	defer span.End()

	contest, err := s.CheckVisibility(ctx, contestID, caller)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.cache != nil {
		if sb, ok := s.cache.GetScoreboard(ctx, contestID); ok {
			observeCache(true)
			return sb, nil
		}
		observeCache(false)
	}

	sb, err := s.compute(ctx, *contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetScoreboard(ctx, sb)
	}
	return sb, nil
}

func (s *Service) compute(ctx context.Context, contest Contest) (*Scoreboard, error) {
	start := time.Now()

	var (
		problems     []ProblemRef
		participants []UserRef
		scores       []ContestScore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		problems, err = s.store.GetContestProblems(gctx, contest.ID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.store.GetParticipants(gctx, contest.ID)
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = s.store.GetContestScores(gctx, contest.ID)
		return err
	})
	err := g.Wait()
	observe("scoreboard", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings data for contest %d: %w", contest.ID, err)
	}

	if problems == nil {
		problems = []ProblemRef{}
	}
	sb := &Scoreboard{
		Contest:  contest,
		Problems: problems,
		Rows:     Rank(contest, problems, participants, scores),
	}
	s.logger.Debug("scoreboard computed",
		zap.Uint("contest_id", contest.ID),
		zap.Int("rows", len(sb.Rows)),
		zap.Duration("took", time.Since(start)))
	return sb, nil
}

// ScoreHistory replays one user's submissions in a contest.
func (s *Service) ScoreHistory(ctx context.Context, contestID, userID uint, caller Caller) (*ScoreHistory, error) {
	ctx, span := s.tracer.Start(ctx, "Scoreboard.ScoreHistory", trace.WithAttributes(
		attribute.Int("contest.id", int(contestID)),
		attribute.Int("user.id", int(userID)),
	))
	defer span.End()

	if _, err := s.CheckVisibility(ctx, contestID, caller); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	var (
		problems []ProblemRef
		subs     []Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		problems, err = s.store.GetContestProblems(gctx, contestID)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.store.GetSubmissions(gctx, contestID, SubmissionFilter{UserID: userID})
		return err
	})
	err := g.Wait()
	observe("history", time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load history data for contest %d user %d: %w", contestID, userID, err)
	}

	history := ReconstructHistory(contestID, userID, problems, subs)
	return &history, nil
}

// Achievements computes first-blood and one-man-solve sets. It does not gate
// on visibility; callers must run CheckVisibility first.
func (s *Service) Achievements(ctx context.Context, contestID uint) (*Achievements, error) {
	ctx, span := s.tracer.Start(ctx, "Scoreboard.Achievements", trace.WithAttributes(attribute.Int("contest.id", int(contestID))))
	defer span.End()

	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}

	start := time.Now()
	subs, err := s.store.GetSubmissions(ctx, contestID, SubmissionFilter{Status: StatusAccept})
	observe("achievements", time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load accepted submissions for contest %d: %w", contestID, err)
	}

	achievements := CalculateAchievements(contestID, subs)
	return &achievements, nil
}

// Trend returns the cumulative score lines of the leading users: the first
// size users with a positive score, plus anyone tied with the last of them.
func (s *Service) Trend(ctx context.Context, contestID uint, caller Caller, size int) ([]TrendEntry, error) {
	if size <= 0 {
		size = DefaultTrendSize
	}
	sb, err := s.Scoreboard(ctx, contestID, caller)
	if err != nil {
		return nil, err
	}

	var top []Row
	for _, row := range sb.Rows {
		if row.TotalScore == 0 {
			break
		}
		if len(top) >= size && row.TotalScore != top[len(top)-1].TotalScore {
			break
		}
		top = append(top, row)
	}
	if len(top) == 0 {
		return []TrendEntry{}, nil
	}

	start := time.Now()
	subs, err := s.store.GetSubmissions(ctx, contestID, SubmissionFilter{})
	observe("trend", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions for contest %d: %w", contestID, err)
	}

	entries := make([]TrendEntry, 0, len(top))
	for _, row := range top {
		history := ReconstructHistory(contestID, row.User.ID, sb.Problems, subs)
		entries = append(entries, TrendEntry{
			User:    row.User,
			Total:   row.TotalScore,
			Rank:    row.Rank,
			History: Timeline(history),
		})
	}
	return entries, nil
}

// PersistRanks recomputes the standings from scratch and writes every
// participant's rank back.
func (s *Service) PersistRanks(ctx context.Context, contestID uint, writer RankWriter) (*Scoreboard, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	sb, err := s.compute(ctx, *contest)
	if err != nil {
		return nil, err
	}

	ranks := make(map[uint]int, len(sb.Rows))
	for _, row := range sb.Rows {
		ranks[row.User.ID] = row.Rank
	}
	if err := writer.SaveRanks(ctx, contestID, ranks); err != nil {
		return nil, fmt.Errorf("failed to save ranks for contest %d: %w", contestID, err)
	}
	s.logger.Info("ranks persisted", zap.Uint("contest_id", contestID), zap.Int("participants", len(ranks)))
	return sb, nil
}

// Invalidate drops any cached scoreboard of the contest.
func (s *Service) Invalidate(ctx context.Context, contestID uint) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, contestID)
	}
}
