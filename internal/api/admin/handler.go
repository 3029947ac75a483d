package admin

import (
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/grading"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the admin API handlers.
type Handler struct {
	cfg      *config.Config
	db       *gorm.DB
	store    *database.Store
	svc      *scoreboard.Service
	recorder *grading.Recorder
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(cfg *config.Config, db *gorm.DB, svc *scoreboard.Service, recorder *grading.Recorder) *Handler {
	return &Handler{
		cfg:      cfg,
		db:       db,
		store:    database.NewStore(db),
		svc:      svc,
		recorder: recorder,
	}
}
