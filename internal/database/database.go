package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"go.uber.org/zap"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Init opens the database named by driver ("sqlite" or "postgres") and
// migrates the schema.
func Init(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "sqlite":
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if _, err := os.Stat(dsn); os.IsNotExist(err) {
				zap.S().Infof("database file not found at '%s', creating directory for it.", dsn)
				if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
					return nil, err
				}
			}
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres dsn must not be empty")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Contest{},
		&models.Problem{},
		&models.ContestProblem{},
		&models.Submission{},
		&models.ContestScore{},
		&models.UserContestEntry{},
	)
}
