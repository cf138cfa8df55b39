package main

import (
	"context"

	"github.com/soundmate/soundmate/internal/app"
	"github.com/soundmate/soundmate/internal/auth"
	"github.com/soundmate/soundmate/internal/cache"
	"github.com/soundmate/soundmate/internal/config"
	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/logger"
	"github.com/soundmate/soundmate/internal/playlist"
	"github.com/soundmate/soundmate/internal/server"
	"github.com/soundmate/soundmate/internal/service/match"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(cfg, database, redisCache, log)
	authn := auth.New(cfg)

	matchSvc := match.NewService(appCtx, playlist.FromConfig(cfg, log))
	matchSvc.StartMaterializer(context.Background())

	registrars := []server.Registrar{
		match.NewRegistrar(matchSvc, authn),
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, registrars...); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
