package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notFound translates gorm's missing-row error into the engine sentinel.
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, scoreboard.ErrNotFound)
	}
	return err
}

// unscoped keeps soft-deleted rows visible to a Preload.
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// Submission CRUD
func CreateSubmission(db *gorm.DB, sub *models.Submission) error {
	return db.Create(sub).Error
}

func GetSubmission(db *gorm.DB, id uint) (*models.Submission, error) {
	var sub models.Submission
	if err := db.Preload("User", unscoped).First(&sub, id).Error; err != nil {
		return nil, notFound(err, "submission", id)
	}
	return &sub, nil
}

// UpdateSubmissionResult stores a final grading result on a submission. It is
// used for first results and rejudges alike.
func UpdateSubmissionResult(db *gorm.DB, id uint, status models.Status, score int, subtasks []int) (*models.Submission, error) {
	var sub models.Submission
	if err := db.First(&sub, id).Error; err != nil {
		return nil, notFound(err, "submission", id)
	}
	if subtasks == nil {
		subtasks = []int{}
	}
	if err := db.Model(&sub).Updates(map[string]interface{}{
		"status":         status,
		"score":          score,
		"subtask_scores": models.IntList(subtasks),
	}).Error; err != nil {
		return nil, err
	}
	sub.Status = status
	sub.Score = score
	sub.SubtaskScores = subtasks
	return &sub, nil
}

// Contest CRUD
func ListContests(db *gorm.DB) ([]models.Contest, error) {
	var contests []models.Contest
	if err := db.Order("start_time asc, id asc").Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

func GetContest(db *gorm.DB, id uint) (*models.Contest, error) {
	var contest models.Contest
	if err := db.First(&contest, id).Error; err != nil {
		return nil, notFound(err, "contest", id)
	}
	return &contest, nil
}

func UpsertContest(db *gorm.DB, contest *models.Contest) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "mode", "grading_mode", "scoreboard_policy",
			"start_time", "end_time", "updated_at",
		}),
	}).Create(contest).Error
}

func UpsertProblem(db *gorm.DB, problem *models.Problem) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(problem).Error
}

// SetContestProblems makes problemIDs, in order, the contest's problem set.
// Existing links keep their enabled flag; links not listed are removed.
// Scores recorded against removed problems are left alone.
func SetContestProblems(db *gorm.DB, contestID uint, problemIDs []uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for pos, pid := range problemIDs {
			link := models.ContestProblem{ContestID: contestID, ProblemID: pid, Position: pos, Enabled: true}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contest_id"}, {Name: "problem_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position"}),
			}).Create(&link).Error; err != nil {
				return err
			}
		}

		stale := tx.Where("contest_id = ?", contestID)
		if len(problemIDs) > 0 {
			stale = stale.Where("problem_id NOT IN ?", problemIDs)
		}
		return stale.Delete(&models.ContestProblem{}).Error
	})
}

// HasContestProblems reports whether the contest has any problem links.
func HasContestProblems(db *gorm.DB, contestID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.ContestProblem{}).Where("contest_id = ?", contestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetContestProblemEnabled toggles one problem's membership. Membership is
// frozen once the contest has finished.
func SetContestProblemEnabled(db *gorm.DB, contestID, problemID uint, enabled bool, now time.Time) error {
	contest, err := GetContest(db, contestID)
	if err != nil {
		return err
	}
	if c := toContest(*contest); c.Finished(now) {
		return fmt.Errorf("contest %d has finished, problem set is frozen: %w", contestID, scoreboard.ErrConflict)
	}

	result := db.Model(&models.ContestProblem{}).
		Where("contest_id = ? AND problem_id = ?", contestID, problemID).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("problem %d in contest %d: %w", problemID, contestID, scoreboard.ErrNotFound)
	}
	return nil
}

// Participation

// RegisterForContest enrolls a user while the contest is running.
func RegisterForContest(db *gorm.DB, contestID, userID uint, now time.Time) error {
	contest, err := GetContest(db, contestID)
	if err != nil {
		return err
	}
	if c := toContest(*contest); !c.Running(now) {
		return fmt.Errorf("contest %d is not running: %w", contestID, scoreboard.ErrConflict)
	}
	if _, err := GetUserByID(db, userID); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.UserContestEntry{}).
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("user %d already registered for contest %d: %w", userID, contestID, scoreboard.ErrConflict)
	}

	entry := models.UserContestEntry{ContestID: contestID, UserID: userID}
	return db.Create(&entry).Error
}

// GetRatedEntries returns a user's contest entries that carry a rating.
// Entries without one have not been rated yet and stay hidden.
func GetRatedEntries(db *gorm.DB, userID uint) ([]models.UserContestEntry, error) {
	entries := make([]models.UserContestEntry, 0)
	if err := db.Where("user_id = ? AND rating_after_update IS NOT NULL", userID).
		Order("contest_id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Scores

var gradedStatuses = []models.Status{models.StatusAccept, models.StatusReject}

// LockContestScore takes row locks on every submission of a (contest, user,
// problem) triple, in id order, for the rest of the transaction. Writers of
// the same triple are serialized by it. Drivers without row locks ignore it.
func LockContestScore(tx *gorm.DB, contestID, userID, problemID uint) error {
	var ids []uint
	return tx.Model(&models.Submission{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contest_id = ? AND user_id = ? AND problem_id = ?", contestID, userID, problemID).
		Order("id asc").
		Pluck("id", &ids).Error
}

// RecalculateContestScore re-derives one (contest, user, problem) score from
// the submission ledger. The row is upserted, or deleted when no graded
// submission remains. It reports the resulting score and whether a row exists.
// db may be an open transaction, in which case the work joins it.
func RecalculateContestScore(db *gorm.DB, contestID, userID, problemID uint) (scoreboard.ContestScore, bool, error) {
	var (
		best  scoreboard.ContestScore
		found bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := LockContestScore(tx, contestID, userID, problemID); err != nil {
			return err
		}

		var subs []models.Submission
		if err := tx.Where("contest_id = ? AND user_id = ? AND problem_id = ? AND status IN ?",
			contestID, userID, problemID, gradedStatuses).
			Order("id asc").
			Find(&subs).Error; err != nil {
			return err
		}

		best, found = scoreboard.BestScore(contestID, toSubmissions(subs))
		if !found {
			return tx.Where("contest_id = ? AND user_id = ? AND problem_id = ?", contestID, userID, problemID).
				Delete(&models.ContestScore{}).Error
		}

		row := models.ContestScore{
			ContestID:            contestID,
			UserID:               userID,
			ProblemID:            problemID,
			SubmissionID:         best.SubmissionID,
			Score:                best.Score,
			LatestSubmissionTime: best.LatestSubmissionTime,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contest_id"}, {Name: "user_id"}, {Name: "problem_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"submission_id", "score", "latest_submission_time"}),
		}).Create(&row).Error
	})
	if err != nil {
		return scoreboard.ContestScore{}, false, fmt.Errorf("failed to recalculate score (contest %d, user %d, problem %d): %w",
			contestID, userID, problemID, err)
	}
	return best, found, nil
}

// RecalculateContest rebuilds every score of a contest from the ledger and
// returns how many triples were visited.
func RecalculateContest(db *gorm.DB, contestID uint) (int, error) {
	type pair struct {
		UserID    uint
		ProblemID uint
	}
	var fromSubs, fromScores []pair
	if err := db.Model(&models.Submission{}).
		Distinct("user_id", "problem_id").
		Where("contest_id = ?", contestID).
		Scan(&fromSubs).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.ContestScore{}).
		Select("user_id", "problem_id").
		Where("contest_id = ?", contestID).
		Scan(&fromScores).Error; err != nil {
		return 0, err
	}

	seen := make(map[pair]struct{})
	var pairs []pair
	for _, p := range append(fromSubs, fromScores...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].UserID != pairs[j].UserID {
			return pairs[i].UserID < pairs[j].UserID
		}
		return pairs[i].ProblemID < pairs[j].ProblemID
	})

	for _, p := range pairs {
		if _, _, err := RecalculateContestScore(db, contestID, p.UserID, p.ProblemID); err != nil {
			return 0, err
		}
	}
	return len(pairs), nil
}

func GetContestScore(db *gorm.DB, contestID, userID, problemID uint) (*models.ContestScore, error) {
	var row models.ContestScore
	if err := db.Where("contest_id = ? AND user_id = ? AND problem_id = ?", contestID, userID, problemID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("score of user %d on problem %d: %w", userID, problemID, scoreboard.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}
