package database

import (
	"context"
	"sort"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ scoreboard.Store      = (*Store)(nil)
	_ scoreboard.RankWriter = (*Store)(nil)
)

// Store serves the scoreboard engine's reads and rank write-back from gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetContest(ctx context.Context, contestID uint) (*scoreboard.Contest, error) {
	contest, err := GetContest(s.db.WithContext(ctx), contestID)
	if err != nil {
		return nil, err
	}
	c := toContest(*contest)
	return &c, nil
}

// GetContestProblems returns the enabled problems of a contest in position order.
func (s *Store) GetContestProblems(ctx context.Context, contestID uint) ([]scoreboard.ProblemRef, error) {
	problems := make([]scoreboard.ProblemRef, 0)
	err := s.db.WithContext(ctx).Table("contest_problems").
		Select("problems.id AS id, problems.name AS name").
		Joins("JOIN problems ON problems.id = contest_problems.problem_id").
		Where("contest_problems.contest_id = ? AND contest_problems.enabled = ?", contestID, true).
		Order("contest_problems.position asc, problems.id asc").
		Scan(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}

// GetParticipants returns registered users plus anyone holding a score in the
// contest, ordered by user id. Roles are included so the engine can filter
// staff.
func (s *Store) GetParticipants(ctx context.Context, contestID uint) ([]scoreboard.UserRef, error) {
	registered := s.db.Model(&models.UserContestEntry{}).Select("user_id").Where("contest_id = ?", contestID)
	scored := s.db.Model(&models.ContestScore{}).Select("user_id").Where("contest_id = ?", contestID)

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("id IN (?) OR id IN (?)", registered, scored).
		Order("id asc").
		Find(&users).Error; err != nil {
		return nil, err
	}

	out := make([]scoreboard.UserRef, 0, len(users))
	for _, u := range users {
		out = append(out, toUserRef(u))
	}
	return out, nil
}

func (s *Store) GetContestScores(ctx context.Context, contestID uint) ([]scoreboard.ContestScore, error) {
	var rows []models.ContestScore
	if err := s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]scoreboard.ContestScore, 0, len(rows))
	for _, r := range rows {
		out = append(out, scoreboard.ContestScore{
			ContestID:            r.ContestID,
			UserID:               r.UserID,
			ProblemID:            r.ProblemID,
			SubmissionID:         r.SubmissionID,
			Score:                r.Score,
			LatestSubmissionTime: r.LatestSubmissionTime,
		})
	}
	return out, nil
}

// GetSubmissions reads the contest's ledger in id order with the submitter's
// role attached.
func (s *Store) GetSubmissions(ctx context.Context, contestID uint, filter scoreboard.SubmissionFilter) ([]scoreboard.Submission, error) {
	q := s.db.WithContext(ctx).Preload("User", unscoped).Where("contest_id = ?", contestID)
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ProblemID != 0 {
		q = q.Where("problem_id = ?", filter.ProblemID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var subs []models.Submission
	if err := q.Order("id asc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return toSubmissions(subs), nil
}

// SaveRanks upserts each user's rank into their contest entry.
func (s *Store) SaveRanks(ctx context.Context, contestID uint, ranks map[uint]int) error {
	userIDs := make([]uint, 0, len(ranks))
	for id := range ranks {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, userID := range userIDs {
			rank := ranks[userID]
			entry := models.UserContestEntry{ContestID: contestID, UserID: userID, Rank: &rank}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contest_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rank", "updated_at"}),
			}).Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func toContest(c models.Contest) scoreboard.Contest {
	return scoreboard.Contest{
		ID:               c.ID,
		Name:             c.Name,
		Mode:             scoreboard.Mode(c.Mode),
		GradingMode:      scoreboard.GradingMode(c.GradingMode),
		ScoreboardPolicy: scoreboard.Policy(c.ScoreboardPolicy),
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
	}
}

func toUserRef(u models.User) scoreboard.UserRef {
	return scoreboard.UserRef{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
		Role:      scoreboard.Role(u.Role),
	}
}

func toSubmissions(subs []models.Submission) []scoreboard.Submission {
	out := make([]scoreboard.Submission, 0, len(subs))
	for _, s := range subs {
		subtasks := []int(s.SubtaskScores)
		if subtasks == nil {
			subtasks = []int{}
		}
		out = append(out, scoreboard.Submission{
			ID:            s.ID,
			UserID:        s.UserID,
			ProblemID:     s.ProblemID,
			ContestID:     s.ContestID,
			Status:        scoreboard.Status(s.Status),
			Score:         s.Score,
			SubtaskScores: subtasks,
			CreatedAt:     s.CreatedAt,
			UserRole:      scoreboard.Role(s.User.Role),
		})
	}
	return out
}
