// Package scoring computes the compatibility score and its explanatory
// breakdown between two music profiles. Score is a pure function: no I/O,
// no shared state, symmetric in its arguments.
package scoring

import (
	"math"
	"sort"
)

// Scoring policy. The final score is a weighted blend of three terms;
// the weights and the rank-decay form are tunable in one place and are
// exercised directly by tests.
const (
	// ArtistOverlapWeight scales the Jaccard overlap of the two
	// top-artist sets.
	ArtistOverlapWeight = 0.45

	// GenreOverlapWeight scales the weight-aware genre overlap:
	// sum(min(wA, wB)) over shared genres / sum(max(wA, wB)) over the union.
	GenreOverlapWeight = 0.35

	// ArtistAffinityWeight scales the rank-affinity term: shared artists
	// ranked similarly by both users count for more.
	ArtistAffinityWeight = 0.20

	// MaxScore is the upper bound of the blended score.
	MaxScore = 100
)

// Breakdown explains a compatibility score for a given profile-version
// pair. Immutable once computed; shared lists are sorted for determinism.
type Breakdown struct {
	SharedArtists    []string `json:"shared_artists"`
	SharedGenres     []string `json:"shared_genres"`
	ArtistOverlapPct float64  `json:"artist_overlap_pct"`
	GenreOverlapPct  float64  `json:"genre_overlap_pct"`
	Score            int      `json:"score"`
}

// rankDecay maps the rank distance of a shared artist to its affinity
// contribution: identical ranks contribute 1, each step of distance
// halves-ish the contribution (1, 1/2, 1/3, ...).
func rankDecay(dist int) float64 {
	return 1.0 / float64(1+dist)
}

// Score computes the compatibility breakdown between two profiles.
// Symmetric: Score(a, b) == Score(b, a) for all inputs. Empty lists yield
// zero overlap terms, never a division error; identical non-empty
// profiles score exactly MaxScore.
func Score(a, b Profile) Breakdown {
	artistRanksA := artistRanks(a.TopArtists)
	artistRanksB := artistRanks(b.TopArtists)

	// Artist overlap: |A ∩ B| / |A ∪ B|. Accumulation runs over the
	// sorted intersection so the result is bit-identical regardless of
	// argument order.
	shared := make([]string, 0)
	union := len(artistRanksB)
	for name := range artistRanksA {
		if _, ok := artistRanksB[name]; ok {
			shared = append(shared, name)
		} else {
			union++
		}
	}
	sort.Strings(shared)

	var affinity float64
	for _, name := range shared {
		affinity += rankDecay(absDiff(artistRanksA[name], artistRanksB[name]))
	}

	var artistOverlap float64
	if union > 0 {
		artistOverlap = float64(len(shared)) / float64(union)
	}
	if len(shared) > 0 {
		affinity /= float64(len(shared))
	}

	// Genre overlap, weight-aware: shared genres contribute min(wA, wB),
	// normalized by sum of max weights over the union.
	weightsA := genreWeights(a.TopGenres)
	weightsB := genreWeights(b.TopGenres)

	genreNames := make(map[string]struct{}, len(weightsA)+len(weightsB))
	for name := range weightsA {
		genreNames[name] = struct{}{}
	}
	for name := range weightsB {
		genreNames[name] = struct{}{}
	}
	allGenres := make([]string, 0, len(genreNames))
	for name := range genreNames {
		allGenres = append(allGenres, name)
	}
	sort.Strings(allGenres)

	sharedGenres := make([]string, 0)
	genreUnion := len(allGenres)
	var minSum, maxSum float64
	for _, name := range allGenres {
		wA, inA := weightsA[name]
		wB, inB := weightsB[name]
		switch {
		case inA && inB:
			sharedGenres = append(sharedGenres, name)
			minSum += math.Min(wA, wB)
			maxSum += math.Max(wA, wB)
		case inA:
			maxSum += wA
		default:
			maxSum += wB
		}
	}

	// Reported overlap is the plain set overlap; the score blends the
	// weight-aware form so that a faintly shared genre counts less than
	// a dominant one.
	var genreOverlap, genreWeighted float64
	if genreUnion > 0 {
		genreOverlap = float64(len(sharedGenres)) / float64(genreUnion)
	}
	if maxSum > 0 {
		genreWeighted = minSum / maxSum
	}

	// Blend only the terms whose underlying union is non-empty, and
	// renormalize over their weights. A pair with artists but no genre
	// data (or vice versa) is judged on what is there, so identical
	// profiles always score MaxScore and fully empty pairs score 0.
	var blended, totalWeight float64
	if union > 0 {
		blended += ArtistOverlapWeight*artistOverlap + ArtistAffinityWeight*affinity
		totalWeight += ArtistOverlapWeight + ArtistAffinityWeight
	}
	if genreUnion > 0 {
		blended += GenreOverlapWeight * genreWeighted
		totalWeight += GenreOverlapWeight
	}

	var score int
	if totalWeight > 0 {
		score = int(math.Round(MaxScore * blended / totalWeight))
	}
	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}

	return Breakdown{
		SharedArtists:    shared,
		SharedGenres:     sharedGenres,
		ArtistOverlapPct: artistOverlap,
		GenreOverlapPct:  genreOverlap,
		Score:            score,
	}
}

func artistRanks(artists []Artist) map[string]int {
	m := make(map[string]int, len(artists))
	for _, a := range artists {
		m[a.Name] = a.Rank
	}
	return m
}

func genreWeights(genres []Genre) map[string]float64 {
	m := make(map[string]float64, len(genres))
	for _, g := range genres {
		m[g.Name] = g.Weight
	}
	return m
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
