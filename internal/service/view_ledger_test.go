package service

import (
	"context"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkViewed_SelfViewShortCircuits(t *testing.T) {
	storyRepo := &stubStoryRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Story, error) {
			return &models.Story{ID: id, UserID: 7}, nil
		},
	}
	viewRepo := &stubViewRepo{
		recordFn: func(_ context.Context, _, _ uint) (bool, error) {
			t.Fatal("a creator viewing their own story must not hit the ledger")
			return false, nil
		},
	}

	ledger := NewViewLedger(viewRepo, storyRepo)

	recorded, err := ledger.MarkViewed(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestMarkViewed_RecordsNewView(t *testing.T) {
	storyRepo := &stubStoryRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Story, error) {
			return &models.Story{ID: id, UserID: 7}, nil
		},
	}
	viewRepo := &stubViewRepo{
		recordFn: func(_ context.Context, storyID, viewerID uint) (bool, error) {
			assert.Equal(t, uint(1), storyID)
			assert.Equal(t, uint(2), viewerID)
			return true, nil
		},
	}

	ledger := NewViewLedger(viewRepo, storyRepo)

	recorded, err := ledger.MarkViewed(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestMarkViewed_DuplicateIsNoop(t *testing.T) {
	storyRepo := &stubStoryRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Story, error) {
			return &models.Story{ID: id, UserID: 7}, nil
		},
	}
	viewRepo := &stubViewRepo{
		recordFn: func(_ context.Context, _, _ uint) (bool, error) {
			return false, nil
		},
	}

	ledger := NewViewLedger(viewRepo, storyRepo)

	recorded, err := ledger.MarkViewed(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestMarkViewed_MissingStory(t *testing.T) {
	storyRepo := &stubStoryRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Story, error) {
			return nil, models.NewNotFoundError("Story", id)
		},
	}

	ledger := NewViewLedger(&stubViewRepo{}, storyRepo)

	_, err := ledger.MarkViewed(context.Background(), 1, 2)
	assert.True(t, models.IsNotFound(err))
}

func TestViewedSet_AnonymousViewerIsEmpty(t *testing.T) {
	viewRepo := &stubViewRepo{
		listViewedIDsFn: func(_ context.Context, _ uint) ([]uint, error) {
			t.Fatal("viewer ID zero must not query the ledger")
			return nil, nil
		},
	}

	ledger := NewViewLedger(viewRepo, &stubStoryRepo{})

	set, err := ledger.ViewedSet(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, set.Contains(1))
}

func TestHasViewed(t *testing.T) {
	viewRepo := &stubViewRepo{
		listViewedIDsFn: func(_ context.Context, viewerID uint) ([]uint, error) {
			assert.Equal(t, uint(2), viewerID)
			return []uint{5, 9}, nil
		},
	}

	ledger := NewViewLedger(viewRepo, &stubStoryRepo{})

	seen, err := ledger.HasViewed(context.Background(), 2, 9)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = ledger.HasViewed(context.Background(), 2, 6)
	require.NoError(t, err)
	assert.False(t, seen)
}
