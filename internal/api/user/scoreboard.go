package user

import (
	"net/http"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/plot"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"
	"github.com/gin-gonic/gin"
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

func (h *Handler) getScoreHistory(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	userID, err := scoreboard.ParseID(c.Param("userID"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	history, err := h.svc.ScoreHistory(c.Request.Context(), contestID, userID, api.CallerFrom(c))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, history, "User score history retrieved successfully")
}

func (h *Handler) getAchievements(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.svc.CheckVisibility(ctx, contestID, api.CallerFrom(c)); err != nil {
		util.Fail(c, err)
		return
	}
	achievements, err := h.svc.Achievements(ctx, contestID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, achievements, "Achievements retrieved")
}

func (h *Handler) getContestTrend(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	trend, err := h.svc.Trend(c.Request.Context(), contestID, api.CallerFrom(c), scoreboard.DefaultTrendSize)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, trend, "Trend data retrieved")
}

func (h *Handler) getContestTrendPNG(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := api.CallerFrom(c)
	contest, err := h.svc.CheckVisibility(ctx, contestID, caller)
	if err != nil {
		util.Fail(c, err)
		return
	}
	trend, err := h.svc.Trend(ctx, contestID, caller, scoreboard.DefaultTrendSize)
	if err != nil {
		util.Fail(c, err)
		return
	}
	img, err := plot.TrendPNG(*contest, trend, h.svc.Now())
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
