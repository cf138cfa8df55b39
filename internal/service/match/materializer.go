package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"github.com/soundmate/soundmate/internal/app"
	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/playlist"
	"github.com/soundmate/soundmate/internal/repository"
	"github.com/soundmate/soundmate/internal/scoring"
)

// Materializer runs the side effects of a fresh match: seeding the
// shared playlist and generating the icebreaker prompts. It is fed
// exactly once per created match, works off a queue outside the swipe's
// critical section, and retries with backoff. A failing downstream never
// rolls the match back; the match row is the committed truth.
type Materializer struct {
	log       *slog.Logger
	matches   *repository.MatchRepository
	profiles  *repository.ProfileRepository
	users     *repository.UserRepository
	playlists playlist.Service

	queue       chan db.Match
	maxAttempts int
	baseBackoff time.Duration
	done        chan struct{}
}

func NewMaterializer(
	appCtx *app.AppContext,
	matches *repository.MatchRepository,
	profiles *repository.ProfileRepository,
	users *repository.UserRepository,
	playlists playlist.Service,
) *Materializer {
	return &Materializer{
		log:         appCtx.Logger,
		matches:     matches,
		profiles:    profiles,
		users:       users,
		playlists:   playlists,
		queue:       make(chan db.Match, appCtx.Config.Materializer.QueueSize),
		maxAttempts: appCtx.Config.Materializer.MaxAttempts,
		baseBackoff: appCtx.Config.Materializer.BaseBackoff,
		done:        make(chan struct{}),
	}
}

// Start launches the worker. It drains until ctx is cancelled.
func (m *Materializer) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case match := <-m.queue:
				m.process(ctx, match)
			}
		}
	}()
}

// Done is closed once the worker has stopped. Used by tests and shutdown.
func (m *Materializer) Done() <-chan struct{} { return m.done }

// Enqueue hands a fresh match to the worker. Best-effort: a full queue
// drops the job with a log line rather than stalling the swipe path;
// the match itself is already committed.
func (m *Materializer) Enqueue(match db.Match) {
	select {
	case m.queue <- match:
	default:
		m.log.Error("materializer queue full, dropping side effects", "match", match.ID)
	}
}

func (m *Materializer) process(ctx context.Context, match db.Match) {
	backoff := m.baseBackoff
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err := m.Materialize(ctx, match)
		if err == nil {
			return
		}

		m.log.Warn("materialization failed",
			"match", match.ID, "attempt", attempt, "err", err)

		if attempt == m.maxAttempts {
			m.log.Error("giving up on match side effects", "match", match.ID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Materialize performs one side-effect attempt for the match: create the
// shared playlist seeded from both users' recent tracks by shared
// artists, then persist the deterministic icebreaker prompts. The
// materialized_at guard in the repository makes reruns no-ops.
func (m *Materializer) Materialize(ctx context.Context, match db.Match) error {
	current, err := m.matches.GetByID(ctx, match.ID)
	if err != nil {
		return fmt.Errorf("reload match: %w", err)
	}
	if current == nil || current.MaterializedAt != nil || current.Status != db.MatchStatusActive {
		return nil
	}

	var breakdown scoring.Breakdown
	if len(current.Breakdown) > 0 {
		if err := json.Unmarshal(current.Breakdown, &breakdown); err != nil {
			return fmt.Errorf("decode breakdown: %w", err)
		}
	}

	users, err := m.users.GetByIDs(ctx, []uint64{current.UserA, current.UserB})
	if err != nil {
		return fmt.Errorf("load matched users: %w", err)
	}

	profiles, err := m.profiles.GetProfiles(ctx, []uint64{current.UserA, current.UserB})
	if err != nil {
		return fmt.Errorf("load matched profiles: %w", err)
	}
	profileA, profileB := profiles[current.UserA], profiles[current.UserB]

	req := playlist.Request{
		MatchID: current.ID,
		Name: fmt.Sprintf("%s & %s's Mix",
			users[current.UserA].DisplayName, users[current.UserB].DisplayName),
		Description: fmt.Sprintf("Shared playlist from your %d%% music match!", current.Score),
		UserA:       current.UserA,
		UserB:       current.UserB,
		SeedTracks:  seedTracks(breakdown.SharedArtists, profileA, profileB),
	}
	if err := m.playlists.CreateSharedPlaylist(ctx, req); err != nil {
		return fmt.Errorf("create shared playlist: %w", err)
	}

	prompts, err := json.Marshal(Icebreakers(profileA, profileB, breakdown))
	if err != nil {
		return fmt.Errorf("encode icebreakers: %w", err)
	}
	if err := m.matches.MarkMaterialized(ctx, current.ID, datatypes.JSON(prompts)); err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}

	m.log.Info("match materialized", "match", current.ID, "seed_tracks", len(req.SeedTracks))
	return nil
}

// seedTracks collects both users' recent tracks by the shared artists,
// deduplicated by track id, in a stable order.
func seedTracks(sharedArtists []string, profiles ...scoring.Profile) []playlist.SeedTrack {
	shared := make(map[string]struct{}, len(sharedArtists))
	for _, name := range sharedArtists {
		shared[name] = struct{}{}
	}

	seen := make(map[string]struct{})
	tracks := make([]playlist.SeedTrack, 0)
	for _, p := range profiles {
		for _, t := range p.Tracks {
			if _, ok := shared[t.Artist]; !ok {
				continue
			}
			if _, dup := seen[t.TrackID]; dup {
				continue
			}
			seen[t.TrackID] = struct{}{}
			tracks = append(tracks, playlist.SeedTrack{
				Name:    t.Name,
				Artist:  t.Artist,
				Album:   t.Album,
				TrackID: t.TrackID,
			})
		}
	}
	return tracks
}

// Icebreakers derives up to three conversation-starter prompts from the
// pair's shared artists and genres. Deterministic: shared artists are
// taken by combined rank (best first, name as tiebreak), genres by
// combined weight, and the templates are fixed.
func Icebreakers(a, b scoring.Profile, bd scoring.Breakdown) []string {
	prompts := make([]string, 0, 3)

	for i, artist := range rankSharedArtists(a, b, bd.SharedArtists) {
		switch i {
		case 0:
			prompts = append(prompts, fmt.Sprintf(
				"You both have %s on heavy rotation. What's the one track you'd open with?", artist))
		case 1:
			prompts = append(prompts, fmt.Sprintf(
				"Settle it: best album by %s?", artist))
		}
		if i == 1 {
			break
		}
	}

	if genre := topSharedGenre(a, b, bd.SharedGenres); genre != "" {
		prompts = append(prompts, fmt.Sprintf(
			"You're both into %s. Trade your most underrated %s find.", genre, genre))
	}

	return prompts
}

func rankSharedArtists(a, b scoring.Profile, shared []string) []string {
	ranksA := make(map[string]int, len(a.TopArtists))
	for _, artist := range a.TopArtists {
		ranksA[artist.Name] = artist.Rank
	}
	ranksB := make(map[string]int, len(b.TopArtists))
	for _, artist := range b.TopArtists {
		ranksB[artist.Name] = artist.Rank
	}

	ordered := append([]string(nil), shared...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := ranksA[ordered[i]]+ranksB[ordered[i]], ranksA[ordered[j]]+ranksB[ordered[j]]
		if ci != cj {
			return ci < cj
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}

func topSharedGenre(a, b scoring.Profile, shared []string) string {
	if len(shared) == 0 {
		return ""
	}

	weights := make(map[string]float64, len(a.TopGenres)+len(b.TopGenres))
	for _, g := range a.TopGenres {
		weights[g.Name] += g.Weight
	}
	for _, g := range b.TopGenres {
		weights[g.Name] += g.Weight
	}

	best := shared[0]
	for _, g := range shared[1:] {
		if weights[g] > weights[best] || (weights[g] == weights[best] && g < best) {
			best = g
		}
	}
	return best
}
