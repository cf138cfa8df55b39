package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/repository"
)

func TestCreateIfAbsent_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	breakdown := datatypes.JSON([]byte(`{"score":80}`))

	first, created, err := repo.CreateIfAbsent(ctx, 2, 1, 80, breakdown)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, uint64(1), first.UserA) // canonical ordering
	assert.Equal(t, uint64(2), first.UserB)

	// same pair, opposite argument order: no second row, winner returned
	second, created, err := repo.CreateIfAbsent(ctx, 1, 2, 80, breakdown)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActiveByPair(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	m, err := repo.ActiveByPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, m)

	created, _, err := repo.CreateIfAbsent(ctx, 1, 2, 50, nil)
	require.NoError(t, err)

	m, err = repo.ActiveByPair(ctx, 2, 1)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, created.ID, m.ID)
}

func TestUnmatch_FreesThePair(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	first, _, err := repo.CreateIfAbsent(ctx, 1, 2, 50, nil)
	require.NoError(t, err)

	// non-participant cannot unmatch
	err = repo.Unmatch(ctx, first.ID, 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Unmatch(ctx, first.ID, 1))

	// unmatch is terminal for this instance
	err = repo.Unmatch(ctx, first.ID, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active, err := repo.ActiveByPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, active)

	// the pair can open a fresh match afterwards
	second, created, err := repo.CreateIfAbsent(ctx, 1, 2, 60, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMarkMaterialized_FirstWriteOnly(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, _, err := repo.CreateIfAbsent(ctx, 1, 2, 50, nil)
	require.NoError(t, err)

	require.NoError(t, repo.MarkMaterialized(ctx, m.ID, datatypes.JSON([]byte(`["hi"]`))))

	// a rerun must not clobber the stored prompts
	require.NoError(t, repo.MarkMaterialized(ctx, m.ID, datatypes.JSON([]byte(`["other"]`))))

	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.MaterializedAt)
	assert.JSONEq(t, `["hi"]`, string(stored.Icebreakers))
}

func TestActiveForUser_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	_, _, err := repo.CreateIfAbsent(ctx, 1, 2, 50, nil)
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, 1, 3, 70, nil)
	require.NoError(t, err)
	unrelated, _, err := repo.CreateIfAbsent(ctx, 2, 3, 90, nil)
	require.NoError(t, err)

	matches, err := repo.ActiveForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, unrelated.ID, m.ID)
	}
}
