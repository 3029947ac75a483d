package admin

import (
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/grading"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewAdminRouter creates and configures the admin Gin engine.
func NewAdminRouter(cfg *config.Config, db *gorm.DB, svc *scoreboard.Service, recorder *grading.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(zap.L().Named("admin_http")))
	r.Use(api.CORSMiddleware(cfg.CORS))
	r.Use(api.AdminCaller())

	h := NewHandler(cfg, db, svc, recorder)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// Management
		v1.POST("/reload", h.reload)

		// Contest Management
		contests := v1.Group("/contests")
		{
			contests.GET("/:id/scoreboard", h.getScoreboard)
			contests.PUT("/:id/problems/:pid", h.setContestProblem)
			contests.POST("/:id/ranks", h.persistRanks)
			contests.GET("/:id/export.xlsx", h.exportScoreboard)
		}

		// Submission Management
		submissions := v1.Group("/submissions")
		{
			submissions.POST("/:id/result", h.submitResult)
		}

		// Score Management
		scores := v1.Group("/scores")
		{
			scores.POST("/recalculate", h.recalculateScore)
		}
	}

	return r
}
