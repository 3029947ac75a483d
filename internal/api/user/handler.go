package user

import (
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg *config.Config
	db  *gorm.DB
	svc *scoreboard.Service
}

// NewHandler creates a new user handler with its dependencies.
func NewHandler(cfg *config.Config, db *gorm.DB, svc *scoreboard.Service) *Handler {
	return &Handler{
		cfg: cfg,
		db:  db,
		svc: svc,
	}
}
