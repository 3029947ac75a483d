package contest

import (
	"fmt"
	"sort"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sync loads every contest under root and writes contests, problems and
// problem membership to the database. It returns the synced contest ids.
//
// Membership of a contest that has finished by now is frozen: it is written
// only if the contest has none yet.
func Sync(db *gorm.DB, root string, now time.Time) ([]uint, error) {
	dirs, err := FindContestDirs(root)
	if err != nil {
		return nil, err
	}
	contests, problems := LoadAll(dirs)

	problemIDs := make([]uint, 0, len(problems))
	for id := range problems {
		problemIDs = append(problemIDs, id)
	}
	sort.Slice(problemIDs, func(i, j int) bool { return problemIDs[i] < problemIDs[j] })

	contestIDs := make([]uint, 0, len(contests))
	for id := range contests {
		contestIDs = append(contestIDs, id)
	}
	sort.Slice(contestIDs, func(i, j int) bool { return contestIDs[i] < contestIDs[j] })

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, id := range problemIDs {
			p := problems[id]
			if err := database.UpsertProblem(tx, &models.Problem{ID: p.ID, Name: p.Name}); err != nil {
				return fmt.Errorf("failed to sync problem %d: %w", p.ID, err)
			}
		}
		for _, id := range contestIDs {
			c := contests[id]
			if err := database.UpsertContest(tx, &models.Contest{
				ID:               c.ID,
				Name:             c.Name,
				Description:      c.Description,
				Mode:             c.Mode,
				GradingMode:      c.GradingMode,
				ScoreboardPolicy: c.ScoreboardPolicy,
				StartTime:        c.StartTime,
				EndTime:          c.EndTime,
			}); err != nil {
				return fmt.Errorf("failed to sync contest %d: %w", c.ID, err)
			}
			if !now.Before(c.EndTime) {
				seeded, err := database.HasContestProblems(tx, c.ID)
				if err != nil {
					return err
				}
				if seeded {
					zap.S().Infof("contest %d has finished, keeping its problem set", c.ID)
					continue
				}
			}
			if err := database.SetContestProblems(tx, c.ID, c.ProblemIDs); err != nil {
				return fmt.Errorf("failed to sync problems of contest %d: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infof("synced %d contests and %d problems from %s", len(contestIDs), len(problemIDs), root)
	return contestIDs, nil
}
