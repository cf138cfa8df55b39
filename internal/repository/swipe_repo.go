package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soundmate/soundmate/internal/db"
)

// SwipeRepository provides data access for the swipe ledger rows.
type SwipeRepository struct {
	db *gorm.DB
}

func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or overwrites the decision actor -> target.
//
// The composite PK (actor_id, target_id) guarantees a single live row per
// ordered pair: re-swiping updates "liked" in place, it never appends.
func (r *SwipeRepository) Upsert(ctx context.Context, actorID, targetID uint64, liked bool) error {
	swipe := db.Swipe{
		ActorID:  actorID,
		TargetID: targetID,
		Liked:    liked,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).
		Create(&swipe).Error
}

// Get returns the live decision actor -> target, or nil when none exists.
func (r *SwipeRepository) Get(ctx context.Context, actorID, targetID uint64) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&swipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// HasLiked reports whether actor's live decision on target is a like.
// Used for the reciprocal check during mutual-like resolution.
func (r *SwipeRepository) HasLiked(ctx context.Context, actorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND target_id = ? AND liked = ?", actorID, targetID, true).
		Count(&count).Error
	return count > 0, err
}
