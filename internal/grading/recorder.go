package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/pubsub"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result is a grader's verdict for one submission. Sending a new Result for
// an already graded submission is a rejudge.
type Result struct {
	SubmissionID  uint   `json:"submission_id" validate:"required"`
	Status        string `json:"status" validate:"oneof=waiting grading accept reject"`
	Score         int    `json:"score" validate:"gte=0"`
	SubtaskScores []int  `json:"subtask_scores" validate:"dive,gte=0"`
}

// Outcome reports what applying a Result did to the contest score.
type Outcome struct {
	Submission *models.Submission       `json:"submission"`
	Score      *scoreboard.ContestScore `json:"contest_score,omitempty"`
	Changed    bool                     `json:"changed"`
}

// Recorder writes grading results to the ledger and keeps the materialized
// contest score of the affected triple in step.
type Recorder struct {
	db       *gorm.DB
	broker   *pubsub.Broker
	validate *validator.Validate
	logger   *zap.Logger
}

func NewRecorder(db *gorm.DB, broker *pubsub.Broker, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:       db,
		broker:   broker,
		validate: validator.New(),
		logger:   logger.With(zap.String("component", "grading_recorder")),
	}
}

// Apply records res and refreshes the affected contest score in a single
// transaction. Results for the same triple are applied one at a time.
func (r *Recorder) Apply(ctx context.Context, res Result) (*Outcome, error) {
	if err := r.validate.Struct(res); err != nil {
		observeResult("invalid")
		return nil, fmt.Errorf("%w: %v", scoreboard.ErrInvalidInput, err)
	}

	var (
		out       *Outcome
		contestID uint
		best      scoreboard.ContestScore
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Submission
		if err := tx.First(&cur, res.SubmissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("submission %d: %w", res.SubmissionID, scoreboard.ErrNotFound)
			}
			return err
		}
		if cur.ContestID != nil {
			if err := database.LockContestScore(tx, *cur.ContestID, cur.UserID, cur.ProblemID); err != nil {
				return err
			}
		}

		sub, err := database.UpdateSubmissionResult(tx, res.SubmissionID, models.Status(res.Status), res.Score, res.SubtaskScores)
		if err != nil {
			return err
		}
		out = &Outcome{Submission: sub}
		if sub.ContestID == nil {
			return nil
		}
		contestID = *sub.ContestID

		prev, err := database.GetContestScore(tx, contestID, sub.UserID, sub.ProblemID)
		if err != nil && !errors.Is(err, scoreboard.ErrNotFound) {
			return err
		}

		var found bool
		best, found, err = database.RecalculateContestScore(tx, contestID, sub.UserID, sub.ProblemID)
		if err != nil {
			return err
		}

		switch {
		case prev == nil:
			out.Changed = found
		case !found:
			out.Changed = true
		default:
			out.Changed = prev.Score != best.Score || prev.SubmissionID != best.SubmissionID
		}
		if found {
			out.Score = &best
		}
		return nil
	})
	if err != nil {
		observeResult("error")
		return nil, err
	}
	sub := out.Submission
	if sub.ContestID == nil {
		observeResult("practice")
		return out, nil
	}

	ev := pubsub.ScoreEvent{
		ContestID:    contestID,
		UserID:       sub.UserID,
		ProblemID:    sub.ProblemID,
		SubmissionID: sub.ID,
		Score:        best.Score,
		Changed:      out.Changed,
	}
	if r.broker != nil {
		r.broker.Publish(ev)
	}

	observeResult("applied")
	r.logger.Info("grading result applied",
		zap.Uint("submission_id", sub.ID),
		zap.Uint("contest_id", contestID),
		zap.String("status", res.Status),
		zap.Int("score", res.Score),
		zap.Bool("changed", out.Changed))
	return out, nil
}
