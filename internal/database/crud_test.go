package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Init("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedContest creates contest 1 with problems A (1) and B (2) and users
// alice (1), bob (2) and root (3, admin).
func seedContest(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, UpsertContest(db, &models.Contest{
		ID:               1,
		Name:             "Spring Cup",
		Mode:             "rated",
		GradingMode:      "classic",
		ScoreboardPolicy: "during-contest",
		StartTime:        start,
		EndTime:          start.Add(5 * time.Hour),
	}))
	require.NoError(t, UpsertProblem(db, &models.Problem{ID: 1, Name: "A"}))
	require.NoError(t, UpsertProblem(db, &models.Problem{ID: 2, Name: "B"}))
	require.NoError(t, SetContestProblems(db, 1, []uint{1, 2}))

	require.NoError(t, CreateUser(db, &models.User{ID: 1, Username: "alice"}))
	require.NoError(t, CreateUser(db, &models.User{ID: 2, Username: "bob"}))
	require.NoError(t, CreateUser(db, &models.User{ID: 3, Username: "root", Role: models.RoleAdmin}))
}

func submit(t *testing.T, db *gorm.DB, userID, problemID uint, status models.Status, score int, offset time.Duration) *models.Submission {
	t.Helper()
	contestID := uint(1)
	sub := &models.Submission{
		UserID:        userID,
		ProblemID:     problemID,
		ContestID:     &contestID,
		Status:        status,
		Score:         score,
		SubtaskScores: models.IntList{score},
		CreatedAt:     start.Add(offset),
	}
	require.NoError(t, CreateSubmission(db, sub))
	return sub
}

func TestRecalculateContestScoreKeepsEarliestBest(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	first := submit(t, db, 1, 1, models.StatusReject, 60, 10*time.Minute)
	submit(t, db, 1, 1, models.StatusReject, 40, 20*time.Minute)
	submit(t, db, 1, 1, models.StatusReject, 60, 30*time.Minute)
	submit(t, db, 1, 1, models.StatusWaiting, 0, 40*time.Minute)

	best, ok, err := RecalculateContestScore(db, 1, 1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 60, best.Score)
	require.Equal(t, first.ID, best.SubmissionID)
	require.True(t, best.LatestSubmissionTime.Equal(start.Add(10*time.Minute)))

	accepted := submit(t, db, 1, 1, models.StatusAccept, 100, 50*time.Minute)
	best, ok, err = RecalculateContestScore(db, 1, 1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, accepted.ID, best.SubmissionID)

	var count int64
	require.NoError(t, db.Model(&models.ContestScore{}).Count(&count).Error)
	require.Equal(t, int64(1), count, "one row per (contest, user, problem)")
}

func TestRecalculateContestScoreDeletesWhenNothingGraded(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	sub := submit(t, db, 2, 2, models.StatusAccept, 100, time.Minute)
	_, ok, err := RecalculateContestScore(db, 1, 2, 2)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = UpdateSubmissionResult(db, sub.ID, models.StatusGrading, 0, nil)
	require.NoError(t, err)
	_, ok, err = RecalculateContestScore(db, 1, 2, 2)
	require.NoError(t, err)
	require.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.ContestScore{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRecalculateContestVisitsEveryTriple(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	submit(t, db, 1, 1, models.StatusAccept, 100, time.Minute)
	submit(t, db, 1, 2, models.StatusReject, 30, 2*time.Minute)
	submit(t, db, 2, 1, models.StatusReject, 70, 3*time.Minute)
	require.NoError(t, db.Create(&models.ContestScore{ContestID: 1, UserID: 2, ProblemID: 2, Score: 999}).Error)

	n, err := RecalculateContest(db, 1)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	scores, err := NewStore(db).GetContestScores(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, scores, 3, "the stale row without submissions is removed")
	for _, s := range scores {
		require.NotEqual(t, 999, s.Score)
	}
}

func TestStoreReads(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)
	store := NewStore(db)
	ctx := context.Background()

	c, err := store.GetContest(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, scoreboard.PolicyDuringContest, c.ScoreboardPolicy)

	_, err = store.GetContest(ctx, 42)
	require.ErrorIs(t, err, scoreboard.ErrNotFound)

	problems, err := store.GetContestProblems(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, problems)

	participants, err := store.GetParticipants(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, participants)

	require.NoError(t, RegisterForContest(db, 1, 1, start.Add(time.Minute)))
	submit(t, db, 3, 1, models.StatusAccept, 100, time.Minute)
	submit(t, db, 2, 2, models.StatusAccept, 100, 2*time.Minute)
	_, err = RecalculateContest(db, 1)
	require.NoError(t, err)

	participants, err = store.GetParticipants(ctx, 1)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	require.Equal(t, scoreboard.RoleAdmin, participants[2].Role)

	subs, err := store.GetSubmissions(ctx, 1, scoreboard.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Less(t, subs[0].ID, subs[1].ID)
	require.Equal(t, scoreboard.RoleAdmin, subs[0].UserRole)
	require.Equal(t, []int{100}, subs[0].SubtaskScores)

	subs, err = store.GetSubmissions(ctx, 1, scoreboard.SubmissionFilter{UserID: 2, Status: scoreboard.StatusAccept})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, uint(2), subs[0].UserID)
}

func TestSoftDeletedAdminStaysExcludedFromAchievements(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)
	staff := submit(t, db, 3, 1, models.StatusAccept, 100, time.Minute)
	mine := submit(t, db, 1, 1, models.StatusAccept, 100, 2*time.Minute)
	require.NoError(t, db.Delete(&models.User{}, 3).Error)

	subs, err := NewStore(db).GetSubmissions(context.Background(), 1, scoreboard.SubmissionFilter{Status: scoreboard.StatusAccept})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, scoreboard.RoleAdmin, subs[0].UserRole)

	got := scoreboard.CalculateAchievements(1, subs)
	require.Len(t, got.FirstBlood, 1)
	require.Equal(t, mine.ID, got.FirstBlood[0].ID)
	require.Len(t, got.OneManSolve, 1)
	require.Equal(t, mine.ID, got.OneManSolve[0].ID)

	sub, err := GetSubmission(db, staff.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, sub.User.Role)
}

func TestStoreServesScoreboard(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)
	submit(t, db, 1, 1, models.StatusAccept, 100, 10*time.Minute)
	submit(t, db, 2, 1, models.StatusAccept, 100, 5*time.Minute)
	submit(t, db, 3, 1, models.StatusAccept, 100, time.Minute)
	_, err := RecalculateContest(db, 1)
	require.NoError(t, err)

	store := NewStore(db)
	svc := scoreboard.NewService(store, zap.NewNop(), scoreboard.WithClock(func() time.Time { return start.Add(time.Hour) }))
	sb, err := svc.PersistRanks(context.Background(), 1, store)
	require.NoError(t, err)
	require.Len(t, sb.Rows, 2)
	require.Equal(t, "bob", sb.Rows[0].User.Username)

	var entries []models.UserContestEntry
	require.NoError(t, db.Order("user_id asc").Find(&entries).Error)
	require.Len(t, entries, 2)
	require.Equal(t, 2, *entries[0].Rank)
	require.Equal(t, 1, *entries[1].Rank)
}

func TestProblemToggleFrozenAfterEnd(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)
	store := NewStore(db)

	require.NoError(t, SetContestProblemEnabled(db, 1, 2, false, start.Add(time.Hour)))
	problems, err := store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 1, Name: "A"}}, problems)

	err = SetContestProblemEnabled(db, 1, 2, true, start.Add(5*time.Hour))
	require.ErrorIs(t, err, scoreboard.ErrConflict)

	err = SetContestProblemEnabled(db, 1, 7, true, start)
	require.ErrorIs(t, err, scoreboard.ErrNotFound)

	require.NoError(t, SetContestProblems(db, 1, []uint{2, 1}))
	problems, err = store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 1, Name: "A"}}, problems, "resync keeps the disabled flag")
}

func TestRegisterForContestWindow(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	require.ErrorIs(t, RegisterForContest(db, 1, 1, start.Add(-time.Minute)), scoreboard.ErrConflict)
	require.NoError(t, RegisterForContest(db, 1, 1, start))
	require.ErrorIs(t, RegisterForContest(db, 1, 1, start.Add(time.Minute)), scoreboard.ErrConflict)
	require.ErrorIs(t, RegisterForContest(db, 1, 2, start.Add(5*time.Hour)), scoreboard.ErrConflict)
	require.ErrorIs(t, RegisterForContest(db, 9, 1, start), scoreboard.ErrNotFound)
	require.ErrorIs(t, RegisterForContest(db, 1, 99, start), scoreboard.ErrNotFound)
}

func TestGetRatedEntriesHidesUnrated(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	rating := 1650
	require.NoError(t, db.Create(&models.UserContestEntry{ContestID: 1, UserID: 1, RatingAfterUpdate: &rating}).Error)
	require.NoError(t, db.Create(&models.UserContestEntry{ContestID: 2, UserID: 1}).Error)

	entries, err := GetRatedEntries(db, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1650, *entries[0].RatingAfterUpdate)

	entries, err = GetRatedEntries(db, 2)
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestIntListRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedContest(t, db)

	sub := submit(t, db, 1, 1, models.StatusAccept, 100, time.Minute)
	_, err := UpdateSubmissionResult(db, sub.ID, models.StatusAccept, 70, []int{30, 40, 0})
	require.NoError(t, err)

	got, err := GetSubmission(db, sub.ID)
	require.NoError(t, err)
	require.Equal(t, models.IntList{30, 40, 0}, got.SubtaskScores)
	require.Equal(t, "alice", got.User.Username)

	_, err = GetSubmission(db, 404)
	require.ErrorIs(t, err, scoreboard.ErrNotFound)
}
