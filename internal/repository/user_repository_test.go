package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soundmate/soundmate/internal/db"
	"github.com/soundmate/soundmate/internal/repository"
)

func seedCandidatePool(t *testing.T, dbase *gorm.DB) {
	t.Helper()

	users := []db.User{
		{ID: 1, Email: "u1@test.edu", PasswordHash: "x", DisplayName: "u1", Course: "CS", Year: 2, Faculty: "Eng", Active: true},
		{ID: 2, Email: "u2@test.edu", PasswordHash: "x", DisplayName: "u2", Course: "CS", Year: 2, Faculty: "Eng", Active: true},
		{ID: 3, Email: "u3@test.edu", PasswordHash: "x", DisplayName: "u3", Course: "Bio", Year: 1, Faculty: "Sci", Active: true},
		{ID: 4, Email: "u4@test.edu", PasswordHash: "x", DisplayName: "u4", Course: "CS", Year: 3, Faculty: "Eng", Active: true},
		{ID: 5, Email: "u5@test.edu", PasswordHash: "x", DisplayName: "u5", Course: "CS", Year: 2, Faculty: "Eng", Active: true},
		{ID: 6, Email: "u6@test.edu", PasswordHash: "x", DisplayName: "u6", Course: "CS", Year: 2, Faculty: "Eng", Active: false},
	}
	require.NoError(t, dbase.Create(&users).Error)

	// all but user 5 have a synced profile
	for _, id := range []uint64{1, 2, 3, 4, 6} {
		require.NoError(t, dbase.Create(&db.MusicProfile{UserID: id, Version: 1}).Error)
	}
}

func candidateIDs(users []db.User) []uint64 {
	ids := make([]uint64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestCandidates_Exclusions(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidatePool(t, dbase)

	users := repository.NewUserRepository(dbase)
	swipes := repository.NewSwipeRepository(dbase)
	matches := repository.NewMatchRepository(dbase)

	// requester already swiped on 2; 3 swiped on requester; 4 is matched
	require.NoError(t, swipes.Upsert(ctx, 1, 2, false))
	require.NoError(t, swipes.Upsert(ctx, 3, 1, true))
	_, _, err := matches.CreateIfAbsent(ctx, 1, 4, 50, nil)
	require.NoError(t, err)

	got, err := users.Candidates(ctx, 1, repository.CandidateFilters{}, 100)
	require.NoError(t, err)

	// excluded: self (1), decided either direction (2, 3), matched (4),
	// no profile (5), inactive (6)
	assert.Empty(t, candidateIDs(got))
}

func TestCandidates_UnmatchedPairReturns(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidatePool(t, dbase)

	users := repository.NewUserRepository(dbase)
	matches := repository.NewMatchRepository(dbase)

	m, _, err := matches.CreateIfAbsent(ctx, 1, 4, 50, nil)
	require.NoError(t, err)
	require.NoError(t, matches.Unmatch(ctx, m.ID, 1))

	got, err := users.Candidates(ctx, 1, repository.CandidateFilters{}, 100)
	require.NoError(t, err)
	assert.Contains(t, candidateIDs(got), uint64(4))
}

func TestCandidates_Filters(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidatePool(t, dbase)

	users := repository.NewUserRepository(dbase)

	got, err := users.Candidates(ctx, 1, repository.CandidateFilters{Course: "CS"}, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 4}, candidateIDs(got))

	got, err = users.Candidates(ctx, 1, repository.CandidateFilters{Course: "CS", Year: 3}, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{4}, candidateIDs(got))

	got, err = users.Candidates(ctx, 1, repository.CandidateFilters{Faculty: "Sci"}, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{3}, candidateIDs(got))
}
