package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedArtists = []string{
	"The Midnight Owls", "Glass Harbor", "Nova Crane", "Velvet Antenna",
	"Paper Satellites", "Iron Lullaby", "Cassette Summer", "Low Tide Choir",
	"Neon Foxes", "Static Bloom", "Golden Hour Radio", "Wren & Wire",
}

var seedGenres = []string{
	"indie rock", "electronic", "hip hop", "jazz", "pop", "folk", "metal", "lo-fi",
}

var seedCourses = []struct {
	course  string
	faculty string
}{
	{"Computer Science", "Engineering"},
	{"Music Production", "Arts"},
	{"Biology", "Science"},
	{"Economics", "Business"},
}

// SeedDemoData resets the database and populates it with demo users,
// their music profiles, and a spread of swipes.
//
// Behavior:
//  1. Clears swipes, matches, music_profiles and users.
//  2. Creates 20 users across four courses with hashed passwords.
//  3. Gives every user a music profile with overlapping artist/genre
//     slices so neighbors score well against each other.
//  4. Generates ~150 swipes with ~70% likes; every 3rd like is made
//     mutual so the matches API has something to show.
//
// Matches themselves are not seeded: they only ever come from the
// ledger's mutual-like resolution at runtime.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"swipes", "matches", "music_profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		c := seedCourses[(i-1)%len(seedCourses)]
		user := User{
			Email:        fmt.Sprintf("user%d@example.edu", i),
			PasswordHash: string(hash),
			DisplayName:  fmt.Sprintf("user%d", i),
			Course:       c.course,
			Faculty:      c.faculty,
			Year:         1 + (i-1)%4,
			Active:       true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		profile, err := demoProfile(user.ID, i)
		if err != nil {
			return err
		}
		if err := db.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 users with music profiles.")

	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load seeded users: %w", err)
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 8; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID {
				continue
			}

			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				recip := Swipe{ActorID: target.ID, TargetID: actor.ID, Liked: true}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
				}).Create(&recip)
			}

			swipe := Swipe{ActorID: actor.ID, TargetID: target.ID, Liked: liked}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
			}).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}
	log.Printf("Seeded %d swipes.", counter)

	return nil
}

// demoProfile builds a profile whose artist/genre windows overlap with
// the neighboring users' windows.
func demoProfile(userID uint64, seq int) (*MusicProfile, error) {
	type artistEntry struct {
		Name string `json:"name"`
		Rank int    `json:"rank"`
	}
	type genreEntry struct {
		Genre  string  `json:"genre"`
		Weight float64 `json:"weight"`
	}
	type trackEntry struct {
		Name    string `json:"name"`
		Artist  string `json:"artist"`
		Album   string `json:"album"`
		TrackID string `json:"track_id"`
	}

	artists := make([]artistEntry, 0, 5)
	tracks := make([]trackEntry, 0, 5)
	for rank := 1; rank <= 5; rank++ {
		name := seedArtists[(seq+rank-2)%len(seedArtists)]
		artists = append(artists, artistEntry{Name: name, Rank: rank})
		tracks = append(tracks, trackEntry{
			Name:    fmt.Sprintf("%s - Track %d", name, rank),
			Artist:  name,
			Album:   name + " (Deluxe)",
			TrackID: fmt.Sprintf("trk-%d-%d", seq, rank),
		})
	}

	genres := make([]genreEntry, 0, 3)
	for k := 0; k < 3; k++ {
		genres = append(genres, genreEntry{
			Genre:  seedGenres[(seq+k-1)%len(seedGenres)],
			Weight: 0.9 - 0.25*float64(k),
		})
	}

	patterns := map[string]interface{}{
		"total_artists":  25 + seq,
		"total_genres":   6 + seq%4,
		"dominant_genre": genres[0].Genre,
	}

	profile := &MusicProfile{
		UserID:     userID,
		Version:    1,
		LastSynced: time.Now().UTC(),
	}
	for _, col := range []struct {
		dst *datatypes.JSON
		src interface{}
	}{
		{&profile.TopArtists, artists},
		{&profile.TopGenres, genres},
		{&profile.ListeningPatterns, patterns},
		{&profile.RecentTracks, tracks},
	} {
		raw, err := json.Marshal(col.src)
		if err != nil {
			return nil, fmt.Errorf("failed to encode profile column: %w", err)
		}
		*col.dst = datatypes.JSON(raw)
	}
	return profile, nil
}
