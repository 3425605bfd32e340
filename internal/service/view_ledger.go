package service

import (
	"context"

	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/stories"
)

// ViewLedger records which viewer has seen which story. Writes are
// idempotent: marking the same story twice is a no-op, and a creator viewing
// their own story is never recorded.
type ViewLedger struct {
	viewRepo  repository.StoryViewRepository
	storyRepo repository.StoryRepository
}

func NewViewLedger(viewRepo repository.StoryViewRepository, storyRepo repository.StoryRepository) *ViewLedger {
	return &ViewLedger{viewRepo: viewRepo, storyRepo: storyRepo}
}

// MarkViewed records that viewerID saw the given story. It returns true when
// a new view row was written, false when the view already existed or the
// viewer is the story's creator.
func (l *ViewLedger) MarkViewed(ctx context.Context, storyID, viewerID uint) (bool, error) {
	if viewerID == 0 {
		return false, models.NewValidationError("Viewer ID is required")
	}

	story, err := l.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return false, err
	}
	if story.UserID == viewerID {
		return false, nil
	}

	return l.viewRepo.Record(ctx, storyID, viewerID)
}

// HasViewed reports whether viewerID has a recorded view of storyID.
func (l *ViewLedger) HasViewed(ctx context.Context, viewerID, storyID uint) (bool, error) {
	viewed, err := l.ViewedSet(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return viewed.Contains(storyID), nil
}

// ViewedSet returns the set of story IDs viewerID has seen, for bulk Seen
// enrichment. A zero viewer ID yields an empty set.
func (l *ViewLedger) ViewedSet(ctx context.Context, viewerID uint) (stories.ViewedSet, error) {
	if viewerID == 0 {
		return stories.NewViewedSet(nil), nil
	}
	ids, err := l.viewRepo.ListViewedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return stories.NewViewedSet(ids), nil
}
