package user

import (
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(cfg *config.Config, db *gorm.DB, svc *scoreboard.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(zap.L().Named("http")))
	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, svc)
	limiter := api.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	v1 := r.Group("/api/v1")
	v1.Use(api.RateLimitMiddleware(limiter))
	{
		public := v1.Group("/")
		public.Use(api.CallerMiddleware(cfg.Auth.JWT.Secret, false))
		{
			public.GET("/contests", h.getAllContests)
			public.GET("/contests/:id", h.getContest)
			public.GET("/contests/:id/scoreboard", h.getScoreboard)
			public.GET("/contests/:id/history/:userID", h.getScoreHistory)
			public.GET("/contests/:id/achievements", h.getAchievements)
			public.GET("/contests/:id/trend", h.getContestTrend)
			public.GET("/contests/:id/trend.png", h.getContestTrendPNG)
			public.GET("/users/:id/ratings", h.getUserRatings)
		}

		authed := v1.Group("/")
		authed.Use(api.CallerMiddleware(cfg.Auth.JWT.Secret, true))
		{
			authed.POST("/contests/:id/register", h.registerForContest)
		}
	}

	return r
}
