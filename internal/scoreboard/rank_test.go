package scoreboard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testContest() Contest {
	return Contest{
		ID:               1,
		Name:             "Spring Cup",
		Mode:             ModeRated,
		GradingMode:      GradingClassic,
		ScoreboardPolicy: PolicyDuringContest,
		StartTime:        t0,
		EndTime:          t0.Add(5 * time.Hour),
	}
}

func score(user, problem uint, points int, after time.Duration) ContestScore {
	return ContestScore{
		ContestID:            1,
		UserID:               user,
		ProblemID:            problem,
		SubmissionID:         user*100 + problem,
		Score:                points,
		LatestSubmissionTime: t0.Add(after),
	}
}

func TestPenalty(t *testing.T) {
	c := testContest()
	tests := []struct {
		name string
		at   time.Time
		want int64
	}{
		{name: "125 seconds in", at: t0.Add(125 * time.Second), want: 125},
		{name: "exactly at start", at: t0, want: 0},
		{name: "before start clamps", at: t0.Add(-time.Minute), want: 0},
		{name: "sub-second is floored", at: t0.Add(1999 * time.Millisecond), want: 1},
		{name: "nothing scored", at: time.Time{}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Penalty(c, tt.at))
		})
	}
}

func TestRankTieSharesRankAndNextRowKeepsPosition(t *testing.T) {
	c := testContest()
	problems := []ProblemRef{{ID: 1, Name: "A"}}
	users := []UserRef{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}, {ID: 3, Username: "c"}}

	// A(100, 50), B(100, 30), C(80, 10): equal totals with different penalties do not tie.
	scores := []ContestScore{
		score(1, 1, 100, 50*time.Second),
		score(2, 1, 100, 30*time.Second),
		score(3, 1, 80, 10*time.Second),
	}
	rows := Rank(c, problems, users, scores)
	require.Len(t, rows, 3)

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.User.Username)
	}
	require.Equal(t, []string{"b", "a", "c"}, got)
	require.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})

	// Same total and same penalty share the rank; the next row jumps to its position.
	scores[0] = score(1, 1, 100, 30*time.Second)
	rows = Rank(c, problems, users, scores)
	require.Equal(t, []int{1, 1, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	require.Equal(t, "a", rows[0].User.Username, "full ties keep participant order")
	require.Equal(t, "b", rows[1].User.Username)
}

func TestRankMaxPenaltyIsTakenOverAllProblems(t *testing.T) {
	c := testContest()
	problems := []ProblemRef{{ID: 1}, {ID: 2}}
	users := []UserRef{{ID: 1}, {ID: 2}}
	scores := []ContestScore{
		score(1, 1, 50, 10*time.Second),
		score(1, 2, 50, 400*time.Second),
		score(2, 1, 50, 200*time.Second),
		score(2, 2, 50, 300*time.Second),
	}
	rows := Rank(c, problems, users, scores)
	require.Equal(t, uint(2), rows[0].User.ID)
	require.Equal(t, int64(300), rows[0].MaxPenalty)
	require.Equal(t, int64(400), rows[1].MaxPenalty)
	require.Equal(t, 100, rows[1].TotalScore)
}

func TestRankZeroDefaultForUnattemptedParticipants(t *testing.T) {
	c := testContest()
	problems := []ProblemRef{{ID: 1}}
	users := []UserRef{{ID: 1, Username: "idle"}, {ID: 2, Username: "solver"}}
	rows := Rank(c, problems, users, []ContestScore{score(2, 1, 1, time.Hour)})

	require.Len(t, rows, 2)
	require.Equal(t, "solver", rows[0].User.Username)
	require.Equal(t, Row{User: users[0], Scores: []ContestScore{}, TotalScore: 0, MaxPenalty: 0, Rank: 2}, rows[1])
}

func TestRankExcludesStaffAndUnknownUsers(t *testing.T) {
	c := testContest()
	users := []UserRef{{ID: 1}, {ID: 9, Role: RoleAdmin}}
	scores := []ContestScore{
		score(1, 1, 10, time.Minute),
		score(9, 1, 100, time.Second),
		score(42, 1, 100, time.Second),
	}
	rows := Rank(c, []ProblemRef{{ID: 1}}, users, scores)
	require.Len(t, rows, 1)
	require.Equal(t, uint(1), rows[0].User.ID)
	require.Equal(t, 1, rows[0].Rank)
}

func TestRankToleratesScoresOutsideProblemSet(t *testing.T) {
	c := testContest()
	users := []UserRef{{ID: 1}}
	scores := []ContestScore{
		score(1, 7, 30, 2*time.Minute),
		score(1, 2, 20, time.Minute),
		score(1, 1, 10, 3*time.Minute),
	}
	rows := Rank(c, []ProblemRef{{ID: 1}, {ID: 2}}, users, scores)

	require.Equal(t, 60, rows[0].TotalScore)
	got := []uint{rows[0].Scores[0].ProblemID, rows[0].Scores[1].ProblemID, rows[0].Scores[2].ProblemID}
	require.Equal(t, []uint{1, 2, 7}, got, "contest order first, then dropped problems")
}

func TestRankIsIdempotent(t *testing.T) {
	c := testContest()
	problems := []ProblemRef{{ID: 1}, {ID: 2}}
	var users []UserRef
	var scores []ContestScore
	for i := uint(1); i <= 40; i++ {
		users = append(users, UserRef{ID: i})
		scores = append(scores, score(i, 1, int(i%4)*25, time.Duration(i%3)*time.Minute))
		if i%2 == 0 {
			scores = append(scores, score(i, 2, 50, time.Duration(i%5)*time.Minute))
		}
	}

	first := Rank(c, problems, users, scores)
	second := Rank(c, problems, users, scores)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Rank() not idempotent (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, a, b)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		require.True(t, prev.TotalScore > cur.TotalScore ||
			(prev.TotalScore == cur.TotalScore && prev.MaxPenalty <= cur.MaxPenalty))
		if prev.TotalScore == cur.TotalScore && prev.MaxPenalty == cur.MaxPenalty {
			require.Equal(t, prev.Rank, cur.Rank)
		} else {
			require.Equal(t, i+1, cur.Rank)
		}
	}
}

func TestRankEmptyInputs(t *testing.T) {
	rows := Rank(testContest(), nil, nil, nil)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}
