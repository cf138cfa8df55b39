package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/repository"
)

func TestGetProfile_NotSynced(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProfileRepository(setupTestDB(t))

	_, err := repo.GetProfile(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrProfileNotSynced)
}

func TestGetProfile_DecodesColumns(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	row := db.MusicProfile{
		UserID:            7,
		Version:           3,
		TopArtists:        datatypes.JSON([]byte(`[{"name":"X","rank":1},{"name":"Y","rank":2}]`)),
		TopGenres:         datatypes.JSON([]byte(`[{"genre":"rock","weight":0.9}]`)),
		ListeningPatterns: datatypes.JSON([]byte(`{"total_artists":30,"total_genres":8,"dominant_genre":"rock"}`)),
		RecentTracks:      datatypes.JSON([]byte(`[{"name":"T","artist":"X","track_id":"trk-1"}]`)),
	}
	require.NoError(t, dbase.Create(&row).Error)

	p, err := repo.GetProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.UserID)
	assert.Equal(t, uint64(3), p.Version)
	require.Len(t, p.TopArtists, 2)
	assert.Equal(t, "X", p.TopArtists[0].Name)
	assert.Equal(t, 1, p.TopArtists[0].Rank)
	require.Len(t, p.TopGenres, 1)
	assert.InDelta(t, 0.9, p.TopGenres[0].Weight, 1e-9)
	assert.Equal(t, "rock", p.Patterns.DominantGenre)
	require.Len(t, p.Tracks, 1)
	assert.Equal(t, "trk-1", p.Tracks[0].TrackID)
}

func TestGetProfiles_MissingUsersAbsent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	require.NoError(t, dbase.Create(&db.MusicProfile{UserID: 1, Version: 1}).Error)

	profiles, err := repo.GetProfiles(ctx, []uint64{1, 2})
	require.NoError(t, err)
	assert.Contains(t, profiles, uint64(1))
	assert.NotContains(t, profiles, uint64(2))
}
