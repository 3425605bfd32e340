// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"snapgram/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumStories  int
	ShouldClean bool
	// ExpiredRatio is the fraction of seeded stories that are already past
	// their expiry, for exercising the sweep.
	ExpiredRatio float64
}

// Seed populates the database with test users, stories and views.
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Printf("Seeding %d users and %d stories...", opts.NumUsers, opts.NumStories)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	items, err := createStories(db, r, users, opts.NumStories, opts.ExpiredRatio)
	if err != nil {
		return fmt.Errorf("failed to create stories: %w", err)
	}
	log.Printf("created %d stories", len(items))

	views, err := createViews(db, r, users, items)
	if err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}
	log.Printf("created %d story views", views)

	return nil
}

func clearData(db *gorm.DB) error {
	for _, table := range []string{"story_views", "stories", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user := &models.User{
			Username: fmt.Sprintf("%s%d", gofakeit.Username(), i),
			ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
			IsAdmin:  i == 0,
		}
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createStories(db *gorm.DB, r *rand.Rand, users []*models.User, count int, expiredRatio float64) ([]*models.Story, error) {
	if expiredRatio < 0 || expiredRatio > 1 {
		expiredRatio = 0.2
	}

	items := make([]*models.Story, 0, count)
	now := time.Now()
	for i := 0; i < count; i++ {
		author := users[r.Intn(len(users))]

		var createdAt time.Time
		if r.Float64() < expiredRatio {
			// Already expired: posted more than a day ago.
			createdAt = now.Add(-models.StoryTTL - time.Duration(r.Intn(48))*time.Hour)
		} else {
			createdAt = now.Add(-time.Duration(r.Intn(23)) * time.Hour)
		}

		key := gofakeit.UUID() + ".jpg"
		story := &models.Story{
			UserID:      author.ID,
			ImageID:     key,
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/1080/1920", key),
			ContentType: "image/jpeg",
			CreatedAt:   createdAt,
			ExpiresAt:   createdAt.Add(models.StoryTTL),
		}
		if err := db.Create(story).Error; err != nil {
			return nil, err
		}
		items = append(items, story)
	}
	return items, nil
}

func createViews(db *gorm.DB, r *rand.Rand, users []*models.User, items []*models.Story) (int, error) {
	created := 0
	for _, story := range items {
		for _, viewer := range users {
			if viewer.ID == story.UserID || r.Float64() > 0.4 {
				continue
			}
			view := &models.StoryView{
				StoryID:  story.ID,
				UserID:   viewer.ID,
				ViewedAt: story.CreatedAt.Add(time.Duration(r.Intn(60)) * time.Minute),
			}
			if err := db.Create(view).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
