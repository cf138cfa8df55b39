package scoring

// Profile is the engine-side view of a user's synced music taste.
// It is read-only here: the sync collaborator owns the content and bumps
// Version on every resync.
type Profile struct {
	UserID     uint64   `json:"user_id"`
	Version    uint64   `json:"version"`
	TopArtists []Artist `json:"top_artists"`
	TopGenres  []Genre  `json:"top_genres"`
	Patterns   Patterns `json:"listening_patterns"`
	Tracks     []Track  `json:"recent_tracks,omitempty"`
}

// Artist is one entry of a profile's top-artist list. Rank 1 = most listened.
type Artist struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Genre is one entry of a profile's top-genre list. Weight in (0,1], descending.
type Genre struct {
	Name   string  `json:"genre"`
	Weight float64 `json:"weight"`
}

// Patterns are aggregate listening stats.
type Patterns struct {
	TotalArtists  int    `json:"total_artists"`
	TotalGenres   int    `json:"total_genres"`
	DominantGenre string `json:"dominant_genre,omitempty"`
}

// Track is one recently played track; used to seed shared playlists.
type Track struct {
	Name    string `json:"name"`
	Artist  string `json:"artist"`
	Album   string `json:"album,omitempty"`
	TrackID string `json:"track_id"`
}

// Empty reports whether the profile carries no taste signal at all.
func (p Profile) Empty() bool {
	return len(p.TopArtists) == 0 && len(p.TopGenres) == 0
}
