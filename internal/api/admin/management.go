package admin

import (
	"fmt"
	"net/http"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/contest"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) reload(c *gin.Context) {
	zap.S().Info("starting reload process...")

	ids, err := contest.Sync(h.db.WithContext(c.Request.Context()), h.cfg.Contests, h.svc.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, fmt.Errorf("failed to sync contests: %w", err))
		return
	}
	for _, id := range ids {
		h.svc.Invalidate(c.Request.Context(), id)
	}

	util.Success(c, gin.H{
		"contests_loaded": len(ids),
		"contest_ids":     ids,
	}, "Reload successful")
}
