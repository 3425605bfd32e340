package stories

import (
	"testing"
	"time"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestIsLive(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	story := &models.Story{CreatedAt: created, ExpiresAt: created.Add(models.StoryTTL)}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "just created", now: created, want: true},
		{name: "one second before expiry", now: story.ExpiresAt.Add(-time.Second), want: true},
		{name: "exactly at expiry", now: story.ExpiresAt, want: false},
		{name: "after expiry", now: story.ExpiresAt.Add(time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLive(story, tt.now))
		})
	}
}

func TestFilterLive(t *testing.T) {
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	live := &models.Story{ID: 1, ExpiresAt: now.Add(time.Hour)}
	dead := &models.Story{ID: 2, ExpiresAt: now.Add(-time.Hour)}
	edge := &models.Story{ID: 3, ExpiresAt: now}

	got := FilterLive([]*models.Story{live, dead, edge}, now)
	assert.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)
}
