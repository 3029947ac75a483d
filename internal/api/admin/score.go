package admin

import (
	"fmt"
	"net/http"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/grading"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) submitResult(c *gin.Context) {
	submissionID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	var res grading.Result
	if err := c.ShouldBindJSON(&res); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	res.SubmissionID = submissionID

	out, err := h.recorder.Apply(c.Request.Context(), res)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, out, "Result recorded")
}

// recalculateScore rebuilds one user's score on one problem, or the whole
// contest when user_id and problem_id are omitted.
func (h *Handler) recalculateScore(c *gin.Context) {
	var req struct {
		ContestID uint `json:"contest_id" binding:"required"`
		UserID    uint `json:"user_id"`
		ProblemID uint `json:"problem_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if (req.UserID == 0) != (req.ProblemID == 0) {
		util.Error(c, http.StatusBadRequest, "user_id and problem_id must be given together")
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	if _, err := database.GetContest(db, req.ContestID); err != nil {
		util.Fail(c, err)
		return
	}

	recalculated := 1
	if req.UserID == 0 {
		n, err := database.RecalculateContest(db, req.ContestID)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, fmt.Errorf("failed to recalculate scores: %w", err))
			return
		}
		recalculated = n
	} else if _, _, err := database.RecalculateContestScore(db, req.ContestID, req.UserID, req.ProblemID); err != nil {
		util.Error(c, http.StatusInternalServerError, fmt.Errorf("failed to recalculate scores: %w", err))
		return
	}
	h.svc.Invalidate(ctx, req.ContestID)

	zap.S().Infof("admin triggered score recalculation for contest %d (%d triples)", req.ContestID, recalculated)
	util.Success(c, gin.H{"recalculated": recalculated}, "Score recalculation finished")
}
