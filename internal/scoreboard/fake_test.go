package scoreboard

import (
	"context"
	"fmt"
	"sync"
)

// fakeStore is an in-memory Store that records which methods were called.
type fakeStore struct {
	mu    sync.Mutex
	trace []string

	contests     map[uint]Contest
	problems     map[uint][]ProblemRef
	participants map[uint][]UserRef
	scores       map[uint][]ContestScore
	submissions  []Submission

	GetContestScoresFunc func(ctx context.Context, contestID uint) ([]ContestScore, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contests:     map[uint]Contest{},
		problems:     map[uint][]ProblemRef{},
		participants: map[uint][]UserRef{},
		scores:       map[uint][]ContestScore{},
	}
}

func (f *fakeStore) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *fakeStore) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *fakeStore) GetContest(ctx context.Context, contestID uint) (*Contest, error) {
	f.record("GetContest")
	c, ok := f.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("contest %d: %w", contestID, ErrNotFound)
	}
	return &c, nil
}

func (f *fakeStore) GetContestProblems(ctx context.Context, contestID uint) ([]ProblemRef, error) {
	f.record("GetContestProblems")
	return f.problems[contestID], nil
}

func (f *fakeStore) GetParticipants(ctx context.Context, contestID uint) ([]UserRef, error) {
	f.record("GetParticipants")
	return f.participants[contestID], nil
}

func (f *fakeStore) GetContestScores(ctx context.Context, contestID uint) ([]ContestScore, error) {
	f.record("GetContestScores")
	if f.GetContestScoresFunc != nil {
		return f.GetContestScoresFunc(ctx, contestID)
	}
	return f.scores[contestID], nil
}

func (f *fakeStore) GetSubmissions(ctx context.Context, contestID uint, filter SubmissionFilter) ([]Submission, error) {
	f.record("GetSubmissions")
	var out []Submission
	for _, s := range sortedByID(f.submissions) {
		if !inContest(s, contestID) {
			continue
		}
		if filter.UserID != 0 && s.UserID != filter.UserID {
			continue
		}
		if filter.ProblemID != 0 && s.ProblemID != filter.ProblemID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeRankWriter struct {
	saved map[uint]map[uint]int
}

func (w *fakeRankWriter) SaveRanks(ctx context.Context, contestID uint, ranks map[uint]int) error {
	if w.saved == nil {
		w.saved = map[uint]map[uint]int{}
	}
	w.saved[contestID] = ranks
	return nil
}
