package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/utils/pairlock"
)

// MatchRepository provides data access for matches. The at-most-one-
// active-match-per-pair invariant lives in the schema: the nullable
// unique pair_key column is the conditional-insert target.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent atomically creates an active match for the pair unless
// one already exists. The insert no-ops on a pair_key conflict, and the
// losing caller is handed the winner's row, so concurrent mutual-like
// resolution yields exactly one match that both callers agree on.
func (r *MatchRepository) CreateIfAbsent(
	ctx context.Context,
	userA, userB uint64,
	score int,
	breakdown datatypes.JSON,
) (*db.Match, bool, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	pairKey := pairlock.Key(userA, userB)

	match := db.Match{
		ID:        uuid.NewString(),
		UserA:     userA,
		UserB:     userB,
		PairKey:   &pairKey,
		Score:     score,
		Breakdown: breakdown,
		Status:    db.MatchStatusActive,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create match %s: %w", pairKey, res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := r.ActiveByPair(ctx, userA, userB)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("match %s vanished during creation", pairKey)
		}
		return existing, false, nil
	}

	return &match, true, nil
}

// ActiveByPair returns the active match for the unordered pair, or nil.
func (r *MatchRepository) ActiveByPair(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	pairKey := pairlock.Key(userA, userB)

	var match db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND status = ?", pairKey, db.MatchStatusActive).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByID returns the match with the given id, or nil.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ActiveForUser lists the user's active matches, newest first.
func (r *MatchRepository) ActiveForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("status = ? AND (user_a = ? OR user_b = ?)", db.MatchStatusActive, userID, userID).
		Order("created_at DESC, id").
		Find(&matches).Error
	return matches, err
}

// Unmatch flips the match to unmatched and frees its pair_key so a later
// mutual like can open a fresh match for the pair. Only a participant may
// unmatch; returns gorm.ErrRecordNotFound when no active match qualifies.
func (r *MatchRepository) Unmatch(ctx context.Context, matchID string, byUserID uint64) error {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND status = ? AND (user_a = ? OR user_b = ?)",
			matchID, db.MatchStatusActive, byUserID, byUserID).
		Updates(map[string]interface{}{
			"status":   db.MatchStatusUnmatched,
			"pair_key": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkMaterialized records the side-effect completion, storing the
// generated icebreaker prompts. First writer wins; reruns are no-ops.
func (r *MatchRepository) MarkMaterialized(ctx context.Context, matchID string, icebreakers datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND materialized_at IS NULL", matchID).
		Updates(map[string]interface{}{
			"icebreakers":     icebreakers,
			"materialized_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
