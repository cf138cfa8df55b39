package match

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/soundmate/soundmate/internal/db"
	svcErr "github.com/soundmate/soundmate/internal/errors"
	"github.com/soundmate/soundmate/internal/repository"
	"github.com/soundmate/soundmate/internal/scoring"
	"github.com/soundmate/soundmate/internal/utils/pagination"
)

// FeedItem is one scored feed candidate.
type FeedItem struct {
	User      db.User
	Profile   scoring.Profile
	Breakdown scoring.Breakdown
}

// FeedPage is one page of the ranked candidate feed.
type FeedPage struct {
	Items      []FeedItem
	NextCursor string
}

// BuildFeed selects, scores, ranks and paginates candidates for the
// requester.
//
// Ordering is score DESC with candidate id ASC as the tiebreak, so
// repeated calls over unchanged state page deterministically. The work
// is bounded by the candidate limit and the feed deadline; when the
// deadline hits mid-scoring the page built from what was scored so far
// is returned together with a FeedTimeout error.
func (s *Service) BuildFeed(
	ctx context.Context,
	requesterID uint64,
	filters repository.CandidateFilters,
	cursor pagination.Cursor,
	pageSize int,
) (FeedPage, error) {
	myProfile, err := s.profiles.GetProfile(ctx, requesterID)
	if errors.Is(err, repository.ErrProfileNotSynced) {
		return FeedPage{}, svcErr.ProfileUnavailable("sync your music profile first")
	}
	if err != nil {
		return FeedPage{}, err
	}

	feedCtx, cancel := context.WithTimeout(ctx, s.appCtx.Config.Feed.Timeout)
	defer cancel()

	candidates, err := s.users.Candidates(feedCtx, requesterID, filters, s.appCtx.Config.Feed.MaxCandidates)
	if err != nil {
		return FeedPage{}, s.feedErr(feedCtx, fmt.Errorf("load candidates: %w", err))
	}

	ids := make([]uint64, len(candidates))
	for i, u := range candidates {
		ids[i] = u.ID
	}
	profiles, err := s.profiles.GetProfiles(feedCtx, ids)
	if err != nil {
		return FeedPage{}, s.feedErr(feedCtx, fmt.Errorf("load candidate profiles: %w", err))
	}

	items, timedOut := s.scoreCandidates(feedCtx, myProfile, candidates, profiles)

	sort.Slice(items, func(i, j int) bool {
		if items[i].Breakdown.Score != items[j].Breakdown.Score {
			return items[i].Breakdown.Score > items[j].Breakdown.Score
		}
		return items[i].User.ID < items[j].User.ID
	})

	page := paginate(items, cursor, pageSize)
	if timedOut {
		return page, svcErr.FeedTimeout("feed generation timed out")
	}
	return page, nil
}

// scoreCandidates fans the scoring out over a bounded worker pool; each
// candidate pulls its breakdown through the score cache. A candidate
// whose profile vanished since the pool query is skipped, never fatal.
// Returns whatever was scored before the deadline, plus whether the
// deadline cut the run short.
func (s *Service) scoreCandidates(
	ctx context.Context,
	myProfile scoring.Profile,
	candidates []db.User,
	profiles map[uint64]scoring.Profile,
) ([]FeedItem, bool) {
	results := make([]*FeedItem, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.appCtx.Config.Feed.ScoreWorkers)

	for i, user := range candidates {
		i, user := i, user
		profile, ok := profiles[user.ID]
		if !ok {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bd := s.appCtx.Scores.GetOrCompute(gctx, myProfile, profile)
			results[i] = &FeedItem{User: user, Profile: profile, Breakdown: bd}
			return nil
		})
	}

	err := g.Wait()

	items := make([]FeedItem, 0, len(candidates))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, err != nil
}

// paginate applies the keyset cursor to the fully ranked slice and cuts
// one page, issuing the next cursor when more remains.
func paginate(items []FeedItem, cursor pagination.Cursor, pageSize int) FeedPage {
	start := 0
	if !cursor.Zero() {
		for start < len(items) {
			it := items[start]
			if it.Breakdown.Score < cursor.Score ||
				(it.Breakdown.Score == cursor.Score && it.User.ID > cursor.CandidateID) {
				break
			}
			start++
		}
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	page := FeedPage{Items: items[start:end]}
	if end < len(items) && end > start {
		last := items[end-1]
		token, err := pagination.Encode(pagination.Cursor{
			Score:       last.Breakdown.Score,
			CandidateID: last.User.ID,
		})
		if err == nil {
			page.NextCursor = token
		}
	}
	return page
}

// feedErr folds a deadline-driven failure into the FeedTimeout kind;
// anything else passes through.
func (s *Service) feedErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return svcErr.FeedTimeout("feed generation timed out")
	}
	return err
}
