package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"github.com/soundmate/soundmate/internal/db"
	svcErr "github.com/soundmate/soundmate/internal/errors"
	"github.com/soundmate/soundmate/internal/repository"
	"github.com/soundmate/soundmate/internal/scoring"
)

// Action is a swipe decision.
type Action string

const (
	ActionLike Action = "like"
	ActionPass Action = "pass"
)

// ParseAction validates the wire form of a swipe action.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionLike, ActionPass:
		return Action(raw), nil
	default:
		return "", svcErr.InvalidSwipe(`action must be "like" or "pass"`)
	}
}

// SwipeResult is the outcome of a recorded swipe.
type SwipeResult struct {
	IsMatch bool
	Match   *db.Match
}

// RecordSwipe upserts the actor's decision on the target and, on a like,
// resolves a mutual like into a match.
//
// The whole mutual-like region is serialized per unordered pair: the
// per-pair lock orders concurrent swipes of one pair while disjoint
// pairs run in parallel, and the conditional insert underneath makes
// match creation a single atomic step keyed by the canonical pair. Two
// users liking each other at the same instant end up with exactly one
// match, and both calls report its id.
//
// Re-swiping is idempotent: the decision row is overwritten in place and
// an already-matched pair keeps returning the known match. A later pass
// cannot unmake a match that already materialized; only an explicit
// unmatch does that.
func (s *Service) RecordSwipe(ctx context.Context, actorID, targetID uint64, action Action) (SwipeResult, error) {
	if actorID == targetID {
		return SwipeResult{}, svcErr.InvalidSwipe("cannot swipe on yourself")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("lookup target %d: %w", targetID, err)
	}
	if target == nil || !target.Active {
		return SwipeResult{}, svcErr.InvalidSwipe("unknown target user")
	}

	unlock := s.locks.Lock(actorID, targetID)
	defer unlock()

	liked := action == ActionLike

	prev, err := s.swipes.Get(ctx, actorID, targetID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("load prior swipe: %w", err)
	}

	if err := s.swipes.Upsert(ctx, actorID, targetID, liked); err != nil {
		return SwipeResult{}, fmt.Errorf("record swipe: %w", err)
	}

	s.adjustLikeCount(ctx, targetID, prev, liked)

	if !liked {
		return SwipeResult{}, nil
	}

	// A live match for the pair means mutual like already resolved;
	// re-swipes converge on it.
	existing, err := s.matches.ActiveByPair(ctx, actorID, targetID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("check existing match: %w", err)
	}
	if existing != nil {
		return SwipeResult{IsMatch: true, Match: existing}, nil
	}

	reciprocal, err := s.swipes.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("check reciprocal like: %w", err)
	}
	if !reciprocal {
		return SwipeResult{}, nil
	}

	breakdown := s.breakdownFor(ctx, actorID, targetID)
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("encode breakdown: %w", err)
	}

	created, fresh, err := s.matches.CreateIfAbsent(ctx, actorID, targetID, breakdown.Score, datatypes.JSON(raw))
	if err != nil {
		return SwipeResult{}, fmt.Errorf("create match: %w", err)
	}

	if fresh {
		s.appCtx.Logger.Info("match created",
			"match", created.ID, "user_a", created.UserA, "user_b", created.UserB, "score", created.Score)
		s.materializer.Enqueue(*created)
	}

	return SwipeResult{IsMatch: true, Match: created}, nil
}

// breakdownFor computes the pair's compatibility via the score cache. A
// missing profile on either side degrades to a zero-overlap breakdown;
// the swipe itself still succeeds.
func (s *Service) breakdownFor(ctx context.Context, actorID, targetID uint64) scoring.Breakdown {
	actorProfile, errA := s.profiles.GetProfile(ctx, actorID)
	targetProfile, errB := s.profiles.GetProfile(ctx, targetID)

	if errA != nil || errB != nil {
		if (errA != nil && !errors.Is(errA, repository.ErrProfileNotSynced)) ||
			(errB != nil && !errors.Is(errB, repository.ErrProfileNotSynced)) {
			s.appCtx.Logger.Warn("profile load failed during match, degrading to empty breakdown",
				"actor", actorID, "target", targetID, "err_a", errA, "err_b", errB)
		}
		return scoring.Score(scoring.Profile{UserID: actorID}, scoring.Profile{UserID: targetID})
	}

	return s.appCtx.Scores.GetOrCompute(ctx, actorProfile, targetProfile)
}

// adjustLikeCount keeps the target's incoming-like counter in Redis in
// step with the decision. Only transitions count, so idempotent
// re-swipes leave it untouched; counter trouble is never fatal.
func (s *Service) adjustLikeCount(ctx context.Context, targetID uint64, prev *db.Swipe, liked bool) {
	wasLiked := prev != nil && prev.Liked
	if wasLiked == liked {
		return
	}

	key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
	var err error
	if liked {
		_, err = s.appCtx.RedisCache.Incr(ctx, key)
	} else if wasLiked {
		_, err = s.appCtx.RedisCache.Decr(ctx, key)
	}
	if err != nil {
		s.appCtx.Logger.Warn("like counter update failed", "target", targetID, "err", err)
	}
}
