// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/models"

	"gorm.io/gorm"
)

// StoryRepository defines the interface for story metadata operations
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uint) (*models.Story, error)
	ListLive(ctx context.Context, now time.Time, limit int) ([]*models.Story, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.Story, error)
	Delete(ctx context.Context, id uint) error
}

// storyRepository implements StoryRepository
type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	err := r.db.WithContext(ctx).Create(story).Error
	if err == nil {
		cache.InvalidateLiveStories(ctx)
	}
	return err
}

func (r *storyRepository) GetByID(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	err := r.applyViewCount(r.db.WithContext(ctx)).
		Preload("User").
		First(&story, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Story", id)
		}
		return nil, err
	}
	return &story, nil
}

// ListLive returns stories whose expiry instant has not yet passed, newest
// first. Grouping and ordering for the feed happens above this layer; the
// gateway only guarantees the liveness filter.
func (r *storyRepository) ListLive(ctx context.Context, now time.Time, limit int) ([]*models.Story, error) {
	var stories []*models.Story
	err := r.applyViewCount(r.db.WithContext(ctx)).
		Preload("User").
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Limit(limit).
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.Story, error) {
	var stories []*models.Story
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Story{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Story", id)
	}
	cache.InvalidateLiveStories(ctx)
	return nil
}

// applyViewCount adds a subquery to fetch the distinct viewer count in a single query.
func (r *storyRepository) applyViewCount(db *gorm.DB) *gorm.DB {
	return db.Select("stories.*, " +
		"(SELECT COUNT(*) FROM story_views WHERE story_views.story_id = stories.id) as views_count")
}
