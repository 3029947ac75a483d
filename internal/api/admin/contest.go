package admin

import (
	"fmt"
	"net/http"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/export"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getScoreboard(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	sb, err := h.svc.Scoreboard(c.Request.Context(), contestID, api.CallerFrom(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, sb, "Scoreboard retrieved")
}

func (h *Handler) setContestProblem(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	problemID, err := scoreboard.ParseID(c.Param("pid"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	if err := database.SetContestProblemEnabled(h.db.WithContext(ctx), contestID, problemID, *req.Enabled, h.svc.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	h.svc.Invalidate(ctx, contestID)

	zap.S().Infof("admin set problem %d of contest %d enabled=%t", problemID, contestID, *req.Enabled)
	util.Success(c, gin.H{"contest_id": contestID, "problem_id": problemID, "enabled": *req.Enabled}, "Problem updated")
}

func (h *Handler) persistRanks(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	sb, err := h.svc.PersistRanks(c.Request.Context(), contestID, h.store)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, sb, "Ranks saved")
}

func (h *Handler) exportScoreboard(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	sb, err := h.svc.Scoreboard(c.Request.Context(), contestID, api.CallerFrom(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	data, err := export.ScoreboardXLSX(sb)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contest-%d-scoreboard.xlsx"`, contestID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
