// Package match implements the matching and compatibility engine's API:
// the ranked candidate feed, the swipe ledger with mutual-like resolution,
// and the match list, plus the async side effects of a fresh match.
package match

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/app"
	"github.com/soundmate/soundmate/internal/auth"
	"github.com/soundmate/soundmate/internal/db"
	svcErr "github.com/soundmate/soundmate/internal/errors"
	"github.com/soundmate/soundmate/internal/playlist"
	"github.com/soundmate/soundmate/internal/repository"
	"github.com/soundmate/soundmate/internal/scoring"
	"github.com/soundmate/soundmate/internal/utils/pagination"
	"github.com/soundmate/soundmate/internal/utils/pairlock"
)

// Service carries the engine's business logic on top of the repository
// and cache layers. One instance serves all requests.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository

	locks        *pairlock.PairLock
	materializer *Materializer
}

// NewService wires a Service from the AppContext and the playlist
// collaborator. Call StartMaterializer before serving traffic.
func NewService(appCtx *app.AppContext, playlists playlist.Service) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	profiles := repository.NewProfileRepository(appCtx.DB)
	matches := repository.NewMatchRepository(appCtx.DB)

	s := &Service{
		appCtx:   appCtx,
		users:    users,
		profiles: profiles,
		swipes:   repository.NewSwipeRepository(appCtx.DB),
		matches:  matches,
		locks:    pairlock.New(),
	}
	s.materializer = NewMaterializer(appCtx, matches, profiles, users, playlists)
	return s
}

// StartMaterializer launches the side-effect worker. It drains until ctx
// is cancelled.
func (s *Service) StartMaterializer(ctx context.Context) {
	s.materializer.Start(ctx)
}

//
// HTTP handler layer
//

type userView struct {
	ID          uint64  `json:"id"`
	DisplayName string  `json:"display_name"`
	Course      *string `json:"course,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
}

type candidateView struct {
	UserID             uint64            `json:"user_id"`
	DisplayName        string            `json:"display_name"`
	Course             *string           `json:"course,omitempty"`
	Year               *int              `json:"year,omitempty"`
	Faculty            *string           `json:"faculty,omitempty"`
	CompatibilityScore int               `json:"compatibility_score"`
	Breakdown          scoring.Breakdown `json:"breakdown"`
	TopArtists         []string          `json:"top_artists"`
}

type feedView struct {
	Candidates []candidateView `json:"candidates"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type matchView struct {
	ID                 string            `json:"id"`
	OtherUser          userView          `json:"other_user"`
	CompatibilityScore int               `json:"compatibility_score"`
	Breakdown          scoring.Breakdown `json:"breakdown"`
	Icebreakers        []string          `json:"icebreakers,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

type swipeRequest struct {
	TargetUserID uint64 `json:"target_user_id"`
	Action       string `json:"action"`
}

type swipeView struct {
	Message string     `json:"message"`
	IsMatch bool       `json:"is_match"`
	Match   *matchView `json:"match,omitempty"`
}

// HandleFeed serves GET /api/match/feed.
func (s *Service) HandleFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUser(r.Context())
	if !ok {
		svcErr.WriteHTTP(w, svcErr.Unauthorized("no session"))
		return
	}

	q := r.URL.Query()
	filters := repository.CandidateFilters{
		Course:  q.Get("course"),
		Faculty: q.Get("faculty"),
	}
	if yearStr := q.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			svcErr.WriteHTTP(w, svcErr.InvalidRequest("year must be an integer"))
			return
		}
		filters.Year = year
	}

	cursor, err := pagination.Decode(q.Get("cursor"))
	if err != nil {
		svcErr.WriteHTTP(w, svcErr.InvalidRequest("invalid pagination cursor"))
		return
	}

	pageSize := s.appCtx.Config.Feed.PageSize
	if sizeStr := q.Get("page_size"); sizeStr != "" {
		if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	page, err := s.BuildFeed(r.Context(), userID, filters, cursor, pageSize)
	if err != nil && svcErr.KindOf(err) != svcErr.KindFeedTimeout {
		s.appCtx.Logger.Error("feed failed", "user", userID, "err", err)
		svcErr.WriteHTTP(w, err)
		return
	}

	view := feedView{Candidates: make([]candidateView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, item := range page.Items {
		view.Candidates = append(view.Candidates, candidateFor(item))
	}

	if err != nil {
		// partial page under FeedTimeout: still hand over what was scored
		s.appCtx.Logger.Warn("feed timed out", "user", userID, "partial", len(view.Candidates))
		writeJSON(w, http.StatusServiceUnavailable, struct {
			feedView
			Error struct {
				Kind    svcErr.Kind `json:"kind"`
				Message string      `json:"message"`
			} `json:"error"`
		}{
			feedView: view,
			Error: struct {
				Kind    svcErr.Kind `json:"kind"`
				Message string      `json:"message"`
			}{Kind: svcErr.KindFeedTimeout, Message: "feed generation timed out, retry for a full page"},
		})
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleSwipe serves POST /api/match/swipe.
func (s *Service) HandleSwipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUser(r.Context())
	if !ok {
		svcErr.WriteHTTP(w, svcErr.Unauthorized("no session"))
		return
	}

	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.InvalidRequest("invalid request body"))
		return
	}
	action, err := ParseAction(req.Action)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}

	result, err := s.RecordSwipe(r.Context(), userID, req.TargetUserID, action)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}

	view := swipeView{Message: "Swipe recorded.", IsMatch: result.IsMatch}
	if result.IsMatch {
		view.Message = "It's a match!"
		mv, err := s.matchViewFor(r.Context(), userID, *result.Match)
		if err != nil {
			s.appCtx.Logger.Error("render match failed", "match", result.Match.ID, "err", err)
			svcErr.WriteHTTP(w, err)
			return
		}
		view.Match = &mv
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleMatches serves GET /api/match/matches.
func (s *Service) HandleMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUser(r.Context())
	if !ok {
		svcErr.WriteHTTP(w, svcErr.Unauthorized("no session"))
		return
	}

	matches, err := s.matches.ActiveForUser(r.Context(), userID)
	if err != nil {
		s.appCtx.Logger.Error("list matches failed", "user", userID, "err", err)
		svcErr.WriteHTTP(w, err)
		return
	}

	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		mv, err := s.matchViewFor(r.Context(), userID, m)
		if err != nil {
			s.appCtx.Logger.Error("render match failed", "match", m.ID, "err", err)
			svcErr.WriteHTTP(w, err)
			return
		}
		views = append(views, mv)
	}

	writeJSON(w, http.StatusOK, views)
}

// HandleLikeCount serves GET /api/match/likes/count: how many people have
// an outstanding like on the caller. Reads the Redis counter kept by the
// swipe path.
func (s *Service) HandleLikeCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUser(r.Context())
	if !ok {
		svcErr.WriteHTTP(w, svcErr.Unauthorized("no session"))
		return
	}

	count, err := s.appCtx.RedisCache.GetLikeCount(r.Context(), userID)
	if err != nil {
		s.appCtx.Logger.Error("like count lookup failed", "user", userID, "err", err)
		svcErr.WriteHTTP(w, svcErr.Wrap(svcErr.KindInternal, "like count unavailable", err))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		LikeCount int64 `json:"like_count"`
	}{count})
}

// HandleUnmatch serves POST /api/match/matches/{id}/unmatch.
func (s *Service) HandleUnmatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUser(r.Context())
	if !ok {
		svcErr.WriteHTTP(w, svcErr.Unauthorized("no session"))
		return
	}

	matchID := chi.URLParam(r, "id")
	if err := s.matches.Unmatch(r.Context(), matchID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = svcErr.NotFound("no active match with that id")
		}
		svcErr.WriteHTTP(w, err)
		return
	}

	s.appCtx.Logger.Info("unmatched", "match", matchID, "by", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) matchViewFor(ctx context.Context, viewerID uint64, m db.Match) (matchView, error) {
	otherID := m.UserA
	if otherID == viewerID {
		otherID = m.UserB
	}

	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return matchView{}, err
	}

	mv := matchView{
		ID:                 m.ID,
		CompatibilityScore: m.Score,
		CreatedAt:          m.CreatedAt,
	}
	if other != nil {
		mv.OtherUser = viewFor(*other)
	}
	if len(m.Breakdown) > 0 {
		if err := json.Unmarshal(m.Breakdown, &mv.Breakdown); err != nil {
			return matchView{}, err
		}
	}
	if len(m.Icebreakers) > 0 {
		if err := json.Unmarshal(m.Icebreakers, &mv.Icebreakers); err != nil {
			return matchView{}, err
		}
	}
	return mv, nil
}

// viewFor applies the user's visibility flags; hidden fields are omitted,
// not blanked, so clients can tell "hidden" from "empty".
func viewFor(u db.User) userView {
	v := userView{ID: u.ID, DisplayName: u.DisplayName}
	if u.ShowCourse && u.Course != "" {
		v.Course = &u.Course
	}
	if u.ShowYear && u.Year != 0 {
		v.Year = &u.Year
	}
	if u.ShowFaculty && u.Faculty != "" {
		v.Faculty = &u.Faculty
	}
	return v
}

func candidateFor(item FeedItem) candidateView {
	uv := viewFor(item.User)

	topArtists := make([]string, 0, 5)
	for _, a := range item.Profile.TopArtists {
		topArtists = append(topArtists, a.Name)
		if len(topArtists) == 5 {
			break
		}
	}

	return candidateView{
		UserID:             item.User.ID,
		DisplayName:        item.User.DisplayName,
		Course:             uv.Course,
		Year:               uv.Year,
		Faculty:            uv.Faculty,
		CompatibilityScore: item.Breakdown.Score,
		Breakdown:          item.Breakdown,
		TopArtists:         topArtists,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
