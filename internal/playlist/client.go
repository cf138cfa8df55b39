// Package playlist is the engine's narrow view of the external playlist
// service: one call to create a shared playlist for a fresh match.
package playlist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/soundmate/soundmate/internal/config"
)

// SeedTrack is one track seeding a shared playlist.
type SeedTrack struct {
	Name    string `json:"track_name"`
	Artist  string `json:"artist"`
	Album   string `json:"album,omitempty"`
	TrackID string `json:"track_id"`
}

// Request describes the shared playlist to create for a match.
type Request struct {
	MatchID     string      `json:"match_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	UserA       uint64      `json:"user_a"`
	UserB       uint64      `json:"user_b"`
	SeedTracks  []SeedTrack `json:"seed_tracks"`
}

// Service is the collaborator contract consumed by the materializer.
type Service interface {
	CreateSharedPlaylist(ctx context.Context, req Request) error
}

// HTTPClient talks to the playlist service over HTTP, behind a circuit
// breaker so a dead downstream fails fast instead of tying up
// materializer retries.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	cb      *gobreaker.CircuitBreaker[struct{}]
	log     *slog.Logger
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *HTTPClient {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "playlist-service",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &HTTPClient{
		baseURL: cfg.Playlist.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Playlist.Timeout},
		cb:      cb,
		log:     log,
	}
}

func (c *HTTPClient) CreateSharedPlaylist(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode playlist request: %w", err)
	}

	_, err = c.cb.Execute(func() (struct{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/playlists", bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(httpReq)
		if err != nil {
			return struct{}{}, fmt.Errorf("playlist service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return struct{}{}, fmt.Errorf("playlist service returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}

// LogService is the stand-in used when no playlist service is configured
// (development, tests). It only records what would have been created.
type LogService struct {
	log *slog.Logger
}

func NewLogService(log *slog.Logger) *LogService {
	return &LogService{log: log}
}

func (s *LogService) CreateSharedPlaylist(_ context.Context, req Request) error {
	s.log.Info("would create shared playlist",
		"match_id", req.MatchID,
		"name", req.Name,
		"seed_tracks", len(req.SeedTracks),
	)
	return nil
}

// FromConfig picks the HTTP client when a base URL is configured and the
// log-only service otherwise.
func FromConfig(cfg *config.Config, log *slog.Logger) Service {
	if cfg.Playlist.BaseURL != "" {
		return NewHTTPClient(cfg, log)
	}
	return NewLogService(log)
}
