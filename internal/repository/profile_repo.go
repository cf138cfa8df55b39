package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/scoring"
)

// ErrProfileNotSynced marks a user without a materialized music profile.
// Feeds exclude such users; swipes degrade to a zero-overlap breakdown.
var ErrProfileNotSynced = errors.New("music profile not synced")

// ProfileRepository reads the music profiles owned by the external
// profile-sync collaborator. The engine never writes them.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetProfile returns the synced profile for a user, or ErrProfileNotSynced.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uint64) (scoring.Profile, error) {
	var row db.MusicProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scoring.Profile{}, ErrProfileNotSynced
	}
	if err != nil {
		return scoring.Profile{}, fmt.Errorf("load profile for user %d: %w", userID, err)
	}
	return decodeProfile(row)
}

// GetProfiles returns the synced profiles for the given users, keyed by
// user id. Users without a profile are simply absent from the map.
func (r *ProfileRepository) GetProfiles(ctx context.Context, userIDs []uint64) (map[uint64]scoring.Profile, error) {
	if len(userIDs) == 0 {
		return map[uint64]scoring.Profile{}, nil
	}

	var rows []db.MusicProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	profiles := make(map[uint64]scoring.Profile, len(rows))
	for _, row := range rows {
		p, err := decodeProfile(row)
		if err != nil {
			return nil, err
		}
		profiles[row.UserID] = p
	}
	return profiles, nil
}

func decodeProfile(row db.MusicProfile) (scoring.Profile, error) {
	p := scoring.Profile{
		UserID:  row.UserID,
		Version: row.Version,
	}

	fields := []struct {
		raw []byte
		dst interface{}
	}{
		{row.TopArtists, &p.TopArtists},
		{row.TopGenres, &p.TopGenres},
		{row.ListeningPatterns, &p.Patterns},
		{row.RecentTracks, &p.Tracks},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return scoring.Profile{}, fmt.Errorf("decode profile for user %d: %w", row.UserID, err)
		}
	}
	return p, nil
}
