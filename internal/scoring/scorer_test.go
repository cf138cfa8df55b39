package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmate/soundmate/internal/scoring"
)

func profileA() scoring.Profile {
	return scoring.Profile{
		UserID:  1,
		Version: 1,
		TopArtists: []scoring.Artist{
			{Name: "X", Rank: 1},
			{Name: "Y", Rank: 2},
		},
		TopGenres: []scoring.Genre{
			{Name: "rock", Weight: 0.9},
			{Name: "pop", Weight: 0.4},
		},
	}
}

func profileB() scoring.Profile {
	return scoring.Profile{
		UserID:  2,
		Version: 1,
		TopArtists: []scoring.Artist{
			{Name: "Y", Rank: 1},
			{Name: "Z", Rank: 2},
		},
		TopGenres: []scoring.Genre{
			{Name: "rock", Weight: 0.8},
			{Name: "jazz", Weight: 0.3},
		},
	}
}

// TestScore_KnownPair pins the breakdown for the reference pair:
// shared artist Y (union of 3), shared genre rock, a score strictly
// inside (0, 100).
func TestScore_KnownPair(t *testing.T) {
	bd := scoring.Score(profileA(), profileB())

	assert.Equal(t, []string{"Y"}, bd.SharedArtists)
	assert.Equal(t, []string{"rock"}, bd.SharedGenres)
	assert.InDelta(t, 1.0/3.0, bd.ArtistOverlapPct, 1e-9)
	assert.InDelta(t, 1.0/3.0, bd.GenreOverlapPct, 1e-9)
	assert.Greater(t, bd.Score, 0)
	assert.Less(t, bd.Score, 100)
}

func TestScore_Symmetric(t *testing.T) {
	pairs := [][2]scoring.Profile{
		{profileA(), profileB()},
		{profileA(), scoring.Profile{}},
		{profileB(), scoring.Profile{TopGenres: []scoring.Genre{{Name: "rock", Weight: 0.5}}}},
		{
			scoring.Profile{TopArtists: []scoring.Artist{{Name: "Q", Rank: 7}}},
			scoring.Profile{TopArtists: []scoring.Artist{{Name: "Q", Rank: 1}, {Name: "R", Rank: 2}}},
		},
	}

	for _, p := range pairs {
		ab := scoring.Score(p[0], p[1])
		ba := scoring.Score(p[1], p[0])
		assert.Equal(t, ab, ba)
	}
}

func TestScore_IdenticalProfiles(t *testing.T) {
	a := profileA()
	assert.Equal(t, 100, scoring.Score(a, a).Score)

	// identity holds even when only one of the lists is populated
	artistsOnly := scoring.Profile{TopArtists: []scoring.Artist{{Name: "X", Rank: 1}}}
	assert.Equal(t, 100, scoring.Score(artistsOnly, artistsOnly).Score)

	genresOnly := scoring.Profile{TopGenres: []scoring.Genre{{Name: "rock", Weight: 0.7}}}
	assert.Equal(t, 100, scoring.Score(genresOnly, genresOnly).Score)
}

func TestScore_EmptyProfiles(t *testing.T) {
	empty := scoring.Profile{}

	bd := scoring.Score(empty, empty)
	assert.Equal(t, 0, bd.Score)
	assert.Zero(t, bd.ArtistOverlapPct)
	assert.Zero(t, bd.GenreOverlapPct)
	assert.Empty(t, bd.SharedArtists)
	assert.Empty(t, bd.SharedGenres)

	// one-sided emptiness degrades to zero overlap, never an error
	bd = scoring.Score(empty, profileB())
	assert.Equal(t, 0, bd.Score)
}

func TestScore_Bounds(t *testing.T) {
	profiles := []scoring.Profile{
		{},
		profileA(),
		profileB(),
		{TopArtists: []scoring.Artist{{Name: "A", Rank: 1}}},
		{TopGenres: []scoring.Genre{{Name: "metal", Weight: 1.0}, {Name: "folk", Weight: 0.01}}},
	}

	for _, a := range profiles {
		for _, b := range profiles {
			bd := scoring.Score(a, b)
			assert.GreaterOrEqual(t, bd.Score, 0)
			assert.LessOrEqual(t, bd.Score, 100)
			assert.GreaterOrEqual(t, bd.ArtistOverlapPct, 0.0)
			assert.LessOrEqual(t, bd.ArtistOverlapPct, 1.0)
			assert.GreaterOrEqual(t, bd.GenreOverlapPct, 0.0)
			assert.LessOrEqual(t, bd.GenreOverlapPct, 1.0)
		}
	}
}

// TestScore_RankAffinity verifies that, overlap being equal, artists
// ranked closer together by both users score higher.
func TestScore_RankAffinity(t *testing.T) {
	base := scoring.Profile{TopArtists: []scoring.Artist{
		{Name: "X", Rank: 1}, {Name: "Y", Rank: 2}, {Name: "Z", Rank: 3},
	}}
	closeRanks := scoring.Profile{TopArtists: []scoring.Artist{
		{Name: "X", Rank: 1}, {Name: "W", Rank: 2}, {Name: "V", Rank: 3},
	}}
	farRanks := scoring.Profile{TopArtists: []scoring.Artist{
		{Name: "W", Rank: 1}, {Name: "V", Rank: 2}, {Name: "X", Rank: 9},
	}}

	require.Equal(t,
		scoring.Score(base, closeRanks).ArtistOverlapPct,
		scoring.Score(base, farRanks).ArtistOverlapPct)

	assert.Greater(t,
		scoring.Score(base, closeRanks).Score,
		scoring.Score(base, farRanks).Score)
}

func TestScore_SharedListsSorted(t *testing.T) {
	a := scoring.Profile{TopArtists: []scoring.Artist{
		{Name: "zeta", Rank: 1}, {Name: "alpha", Rank: 2}, {Name: "mid", Rank: 3},
	}}
	bd := scoring.Score(a, a)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, bd.SharedArtists)
}
