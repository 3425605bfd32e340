// Package stories holds the pure domain logic of the ephemeral-content
// subsystem: liveness, and the grouping and ordering of the story feed.
package stories

import (
	"time"

	"snapgram/internal/models"
)

// IsLive reports whether the story is still visible at the given instant.
// A story dies the moment now reaches ExpiresAt, not after.
func IsLive(story *models.Story, now time.Time) bool {
	return now.Before(story.ExpiresAt)
}

// FilterLive returns only the stories still live at the given instant,
// preserving input order.
func FilterLive(items []*models.Story, now time.Time) []*models.Story {
	live := make([]*models.Story, 0, len(items))
	for _, s := range items {
		if IsLive(s, now) {
			live = append(live, s)
		}
	}
	return live
}
