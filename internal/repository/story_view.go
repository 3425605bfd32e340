package repository

import (
	"context"

	"snapgram/internal/cache"
	"snapgram/internal/models"

	"gorm.io/gorm"
)

// StoryViewRepository defines the interface for the view ledger's persistence
type StoryViewRepository interface {
	// Record inserts a (story, viewer) pair if absent. It reports whether a
	// new row was created; false means the pair already existed.
	Record(ctx context.Context, storyID, viewerID uint) (bool, error)
	ListViewedIDs(ctx context.Context, viewerID uint) ([]uint, error)
	ListViewers(ctx context.Context, storyID uint) ([]models.StoryViewer, error)
	CountViewers(ctx context.Context, storyID uint) (int64, error)
}

// storyViewRepository implements StoryViewRepository
type storyViewRepository struct {
	db *gorm.DB
}

// NewStoryViewRepository creates a new story view repository
func NewStoryViewRepository(db *gorm.DB) StoryViewRepository {
	return &storyViewRepository{db: db}
}

func (r *storyViewRepository) Record(ctx context.Context, storyID, viewerID uint) (bool, error) {
	// Use INSERT ... ON CONFLICT DO NOTHING so concurrent records of the same
	// pair cannot produce duplicates or duplicate-key errors. RowsAffected
	// tells us whether this call was the first observation.
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO story_views (story_id, user_id, viewed_at)
		 VALUES (?, ?, NOW())
		 ON CONFLICT (story_id, user_id) DO NOTHING`,
		storyID, viewerID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	recorded := result.RowsAffected > 0
	if recorded {
		cache.InvalidateViewedSet(ctx, viewerID)
		cache.InvalidateViewers(ctx, storyID)
	}
	return recorded, nil
}

func (r *storyViewRepository) ListViewedIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	var ids []uint
	err := cache.Aside(ctx, cache.ViewedSetKey(viewerID), &ids, cache.ViewedSetTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.StoryView{}).
			Where("user_id = ?", viewerID).
			Pluck("story_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *storyViewRepository) ListViewers(ctx context.Context, storyID uint) ([]models.StoryViewer, error) {
	var viewers []models.StoryViewer
	err := cache.Aside(ctx, cache.ViewersKey(storyID), &viewers, cache.ViewersTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.StoryView{}).
			Select("story_views.user_id, users.username, users.image_url, story_views.viewed_at").
			Joins("JOIN users ON users.id = story_views.user_id").
			Where("story_views.story_id = ?", storyID).
			Order("story_views.viewed_at DESC").
			Scan(&viewers).Error
	})
	if err != nil {
		return nil, err
	}
	return viewers, nil
}

func (r *storyViewRepository) CountViewers(ctx context.Context, storyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoryView{}).
		Where("story_id = ?", storyID).
		Count(&count).Error
	return count, err
}
