package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/db"
)

// CandidateFilters are the optional equality filters for the feed.
// Zero values impose no constraint.
type CandidateFilters struct {
	Course  string
	Year    int
	Faculty string
}

// UserRepository provides data access for user rows and the feed's
// candidate pool query.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID returns the user, or nil when unknown.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs returns the given users keyed by id.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	if len(ids) == 0 {
		return map[uint64]db.User{}, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// Candidates returns the feed candidate pool for the requester: active
// users with a synced music profile, excluding the requester, anyone
// with a live swipe in either direction with them, and anyone in an
// active match with them. Optional filters narrow by course/year/faculty.
//
// Results are ordered by id for a deterministic pool; ranking happens in
// the feed generator after scoring.
func (r *UserRepository) Candidates(
	ctx context.Context,
	requesterID uint64,
	filters CandidateFilters,
	limit int,
) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Table("users u").
		Select("u.*").
		Joins("JOIN music_profiles mp ON mp.user_id = u.id").
		Where("u.id <> ?", requesterID).
		Where("u.active = ?", true).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE (s.actor_id = ? AND s.target_id = u.id)
				   OR (s.actor_id = u.id AND s.target_id = ?)
			)`, requesterID, requesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE m.status = ?
				  AND ((m.user_a = ? AND m.user_b = u.id)
				    OR (m.user_a = u.id AND m.user_b = ?))
			)`, db.MatchStatusActive, requesterID, requesterID).
		Order("u.id").
		Limit(limit)

	if filters.Course != "" {
		query = query.Where("u.course = ?", filters.Course)
	}
	if filters.Year != 0 {
		query = query.Where("u.year = ?", filters.Year)
	}
	if filters.Faculty != "" {
		query = query.Where("u.faculty = ?", filters.Faculty)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
