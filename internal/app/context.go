package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/cache"
	"github.com/soundmate/soundmate/internal/config"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Scores     *cache.ScoreCache
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Scores:     cache.NewScoreCache(rdb, cfg.Cache.ScoreTTL),
		Logger:     logger,
	}
}
