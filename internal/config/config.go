package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Auth struct {
		Secret   string
		TokenTTL time.Duration
	}

	Feed struct {
		PageSize      int
		MaxCandidates int
		ScoreWorkers  int
		Timeout       time.Duration
	}

	Cache struct {
		ScoreTTL time.Duration
	}

	Playlist struct {
		BaseURL string
		Timeout time.Duration
	}

	Materializer struct {
		QueueSize   int
		MaxAttempts int
		BaseBackoff time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "match_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "soundmate")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Auth
	cfg.Auth.Secret = getEnvDefault("AUTH_SECRET", "dev-secret-change-me")
	cfg.Auth.TokenTTL = getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour)

	// Feed
	cfg.Feed.PageSize = getEnvInt("FEED_PAGE_SIZE", 20)
	cfg.Feed.MaxCandidates = getEnvInt("FEED_MAX_CANDIDATES", 500)
	cfg.Feed.ScoreWorkers = getEnvInt("FEED_SCORE_WORKERS", 8)
	cfg.Feed.Timeout = getEnvDuration("FEED_TIMEOUT", 3*time.Second)

	// Score cache
	cfg.Cache.ScoreTTL = getEnvDuration("SCORE_CACHE_TTL", 12*time.Hour)

	// Playlist service
	cfg.Playlist.BaseURL = getEnvDefault("PLAYLIST_BASE_URL", "")
	cfg.Playlist.Timeout = getEnvDuration("PLAYLIST_TIMEOUT", 5*time.Second)

	// Materializer
	cfg.Materializer.QueueSize = getEnvInt("MATERIALIZER_QUEUE_SIZE", 128)
	cfg.Materializer.MaxAttempts = getEnvInt("MATERIALIZER_MAX_ATTEMPTS", 4)
	cfg.Materializer.BaseBackoff = getEnvDuration("MATERIALIZER_BASE_BACKOFF", 2*time.Second)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
