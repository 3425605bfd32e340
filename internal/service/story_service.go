package service

import (
	"context"
	"fmt"
	"time"

	"snapgram/internal/blob"
	"snapgram/internal/cache"
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/stories"

	"github.com/google/uuid"
)

const liveStoriesPageSize = 50

// StoryService orchestrates the story lifecycle across the metadata store and
// the blob store. Creation uploads the blob first and compensates by deleting
// it when the metadata write fails, so a persisted story always has a
// readable image. Deletion removes metadata first; an orphaned blob after a
// failed blob delete is tolerated and swept up operationally.
type StoryService struct {
	storyRepo repository.StoryRepository
	viewRepo  repository.StoryViewRepository
	userRepo  repository.UserRepository
	blobs     blob.Store
	views     *ViewLedger

	ttl            time.Duration
	maxUploadBytes int64

	// now is injectable for tests.
	now func() time.Time
}

func NewStoryService(
	storyRepo repository.StoryRepository,
	viewRepo repository.StoryViewRepository,
	userRepo repository.UserRepository,
	blobs blob.Store,
	views *ViewLedger,
	ttl time.Duration,
	maxUploadBytes int64,
) *StoryService {
	return &StoryService{
		storyRepo:      storyRepo,
		viewRepo:       viewRepo,
		userRepo:       userRepo,
		blobs:          blobs,
		views:          views,
		ttl:            ttl,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

type CreateStoryInput struct {
	UserID  uint
	Content []byte
}

func (s *StoryService) CreateStory(ctx context.Context, input CreateStoryInput) (*models.Story, error) {
	if input.UserID == 0 {
		return nil, models.NewValidationError("User ID is required")
	}

	normalized, contentType, err := processStoryImage(input.Content, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString() + extensionFor(contentType)
	if err := s.blobs.Upload(ctx, key, normalized, contentType); err != nil {
		return nil, models.NewUploadFailedError(err)
	}

	now := s.now()
	story := &models.Story{
		UserID:      input.UserID,
		ImageID:     key,
		ImageURL:    s.blobs.URL(key),
		ContentType: contentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.storyRepo.Create(ctx, story); err != nil {
		// Compensate so the failed create leaves no dangling blob. A failed
		// compensation is logged by the store and the blob leaks, which is
		// preferable to a story row without an image.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			middleware.Logger.WarnContext(ctx, "compensating blob delete failed",
				"key", key, "error", delErr)
		}
		return nil, models.NewPersistFailedError(err)
	}

	return story, nil
}

type DeleteStoryInput struct {
	StoryID uint
	UserID  uint
}

func (s *StoryService) DeleteStory(ctx context.Context, input DeleteStoryInput) error {
	story, err := s.storyRepo.GetByID(ctx, input.StoryID)
	if err != nil {
		return err
	}

	if story.UserID != input.UserID {
		isAdmin, err := s.userRepo.IsAdmin(ctx, input.UserID)
		if err != nil || !isAdmin {
			return models.NewUnauthorizedError("You can only delete your own stories")
		}
	}

	// Metadata first: once the row is gone the story is gone from every
	// surface, even if the blob delete below fails.
	if err := s.storyRepo.Delete(ctx, input.StoryID); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, story.ImageID); err != nil {
		middleware.Logger.WarnContext(ctx, "story blob delete failed, blob orphaned",
			"story_id", story.ID, "key", story.ImageID, "error", err)
	}

	return nil
}

// ListLive returns all unexpired stories, newest first, with each story's
// Seen flag set for the given viewer. The raw list is shared across viewers
// through the cache; only the per-viewer enrichment runs every call.
func (s *StoryService) ListLive(ctx context.Context, viewerID uint) ([]*models.Story, error) {
	now := s.now()

	var items []*models.Story
	err := cache.Aside(ctx, cache.LiveStoriesKey, &items, cache.LiveStoriesTTL, func() error {
		fetched, fetchErr := s.storyRepo.ListLive(ctx, now, liveStoriesPageSize)
		if fetchErr != nil {
			return fetchErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The cached list may contain entries that expired since it was written.
	items = stories.FilterLive(items, now)

	viewed, err := s.views.ViewedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item.Seen = viewed.Contains(item.ID) || item.UserID == viewerID
	}
	return items, nil
}

// Feed returns live stories grouped per author and ordered for the stories
// tray: the viewer's own group first, then authors with unseen stories,
// then fully-seen authors, each bucket by most recent story.
func (s *StoryService) Feed(ctx context.Context, viewerID uint) (*stories.Feed, error) {
	now := s.now()

	var items []*models.Story
	err := cache.Aside(ctx, cache.LiveStoriesKey, &items, cache.LiveStoriesTTL, func() error {
		fetched, fetchErr := s.storyRepo.ListLive(ctx, now, liveStoriesPageSize)
		if fetchErr != nil {
			return fetchErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	items = stories.FilterLive(items, now)

	viewed, err := s.views.ViewedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	feed := stories.BuildFeed(items, viewed, viewerID)
	return &feed, nil
}

type ViewersInput struct {
	StoryID uint
	UserID  uint
}

// Viewers lists who viewed a story. Only the story's creator may see this.
func (s *StoryService) Viewers(ctx context.Context, input ViewersInput) ([]models.StoryViewer, int64, error) {
	story, err := s.storyRepo.GetByID(ctx, input.StoryID)
	if err != nil {
		return nil, 0, err
	}
	if story.UserID != input.UserID {
		return nil, 0, models.NewUnauthorizedError("Only the story owner can see viewers")
	}

	viewers, err := s.viewRepo.ListViewers(ctx, input.StoryID)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.viewRepo.CountViewers(ctx, input.StoryID)
	if err != nil {
		return nil, 0, err
	}
	return viewers, count, nil
}

// SweepExpired hard-deletes every story whose expiry has passed, blob
// included. Failures are isolated per story so one bad row never blocks the
// rest of the sweep; the returned count covers successful deletions only.
func (s *StoryService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.storyRepo.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired stories: %w", err)
	}

	swept := 0
	for _, story := range expired {
		if err := s.storyRepo.Delete(ctx, story.ID); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to sweep expired story",
				"story_id", story.ID, "error", err)
			continue
		}
		if err := s.blobs.Delete(ctx, story.ImageID); err != nil {
			middleware.Logger.WarnContext(ctx, "expired story blob delete failed, blob orphaned",
				"story_id", story.ID, "key", story.ImageID, "error", err)
		}
		swept++
	}

	if swept > 0 {
		middleware.StoriesSwept.Add(float64(swept))
		middleware.Logger.InfoContext(ctx, "swept expired stories", "count", swept, "candidates", len(expired))
	}
	return swept, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
