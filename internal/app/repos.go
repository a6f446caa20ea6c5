package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/config"
	"github.com/yungbote/neurobridge-mastery/internal/data/db"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// wireRepos returns a nil *gorm.DB for the memory driver.
func wireRepos(cfg *config.Config, log *logger.Logger) (*gorm.DB, repos.Set, error) {
	log.Info("Wiring repos...", "driver", cfg.Database.Driver)
	if cfg.Database.Driver == "memory" {
		log.Warn("Using in-memory repositories; state is lost on restart")
		return nil, repos.NewMemorySet(), nil
	}
	theDB, err := db.Open(db.Options{
		Driver:        cfg.Database.Driver,
		DSN:           cfg.Database.DSN,
		SlowThreshold: cfg.Database.SlowThreshold.Duration,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		MaxIdleConns:  cfg.Database.MaxIdleConns,
	}, log)
	if err != nil {
		return nil, repos.Set{}, fmt.Errorf("init database: %w", err)
	}
	return theDB, repos.NewGormSet(theDB, log), nil
}
