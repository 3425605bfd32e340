package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ViewedSetKeyPrefix = "story_views:viewer:%d"
	LiveStoriesKey     = "stories:live"
	ViewersKeyPrefix   = "story:%d:viewers"
)

// TTLs are short on purpose: the live set changes as stories expire, and the
// viewed set is only required to be a point-in-time snapshot per session.
const (
	ViewedSetTTL   = 5 * time.Minute
	LiveStoriesTTL = 30 * time.Second
	ViewersTTL     = time.Minute
)

func ViewedSetKey(viewerID uint) string {
	return fmt.Sprintf(ViewedSetKeyPrefix, viewerID)
}

func ViewersKey(storyID uint) string {
	return fmt.Sprintf(ViewersKeyPrefix, storyID)
}

func InvalidateViewedSet(ctx context.Context, viewerID uint) {
	Invalidate(ctx, ViewedSetKey(viewerID))
}

func InvalidateViewers(ctx context.Context, storyID uint) {
	Invalidate(ctx, ViewersKey(storyID))
}

func InvalidateLiveStories(ctx context.Context) {
	Invalidate(ctx, LiveStoriesKey)
}
