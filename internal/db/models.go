package db

import (
	"time"

	"gorm.io/datatypes"
)

// User table
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:64;not null"`
	Course       string `gorm:"size:64"`
	Year         int
	Faculty      string    `gorm:"size:64"`
	ShowCourse   bool      `gorm:"default:true"`
	ShowYear     bool      `gorm:"default:true"`
	ShowFaculty  bool      `gorm:"default:true"`
	Active       bool      `gorm:"default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// MusicProfile holds a user's summarized listening taste as synced from
// the streaming provider. The engine only reads it; the sync collaborator
// owns the content and bumps Version on every resync, which is what keys
// score-cache validity.
//
// JSON columns:
//   - TopArtists: [{"name": "...", "rank": 1}, ...] rank 1 = most listened
//   - TopGenres: [{"genre": "...", "weight": 0.9}, ...] weight in (0,1], descending
//   - ListeningPatterns: {"total_artists": N, "total_genres": N, "dominant_genre": "..."}
//   - RecentTracks: [{"name": "...", "artist": "...", "album": "...", "track_id": "..."}, ...]
type MusicProfile struct {
	ID                uint64         `gorm:"primaryKey;autoIncrement"`
	UserID            uint64         `gorm:"uniqueIndex;not null"`
	TopArtists        datatypes.JSON `gorm:"type:json"`
	TopGenres         datatypes.JSON `gorm:"type:json"`
	ListeningPatterns datatypes.JSON `gorm:"type:json"`
	RecentTracks      datatypes.JSON `gorm:"type:json"`
	Version           uint64         `gorm:"not null;default:1"`
	LastSynced        time.Time
}

// Swipe represents an actor's like/pass decision on a target.
//
// Composite PK: (ActorID, TargetID)
//   - At most one live decision per ordered pair; a repeated swipe
//     overwrites the row (idempotent upsert), it never appends.
//
// Index idx_target_liked(target_id, liked) serves reciprocal-like
// lookups and both-direction feed exclusion.
type Swipe struct {
	ActorID   uint64    `gorm:"primaryKey"`
	TargetID  uint64    `gorm:"primaryKey;index:idx_target_liked,priority:1"`
	Liked     bool      `gorm:"not null;index:idx_target_liked,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match statuses.
const (
	MatchStatusActive    = "active"
	MatchStatusUnmatched = "unmatched"
)

// Match is the bidirectional state created when two users like each other.
//
// UserA < UserB always (canonical ordering). PairKey is "a:b" while the
// match is active and NULL once unmatched; the unique index on it is the
// atomic guard that makes concurrent mutual-like resolution create exactly
// one row, while still letting a pair re-match after an unmatch (multiple
// NULLs are allowed, a second active "a:b" is not).
type Match struct {
	ID             string         `gorm:"primaryKey;size:36"`
	UserA          uint64         `gorm:"not null;index"`
	UserB          uint64         `gorm:"not null;index"`
	PairKey        *string        `gorm:"uniqueIndex;size:42"`
	Score          int            `gorm:"not null"`
	Breakdown      datatypes.JSON `gorm:"type:json"`
	Icebreakers    datatypes.JSON `gorm:"type:json"`
	Status         string         `gorm:"size:16;not null;default:active"`
	MaterializedAt *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}
