package stories

import (
	"sort"
	"time"

	"snapgram/internal/models"
)

// ViewedSet is the set of story IDs a viewer has already seen.
type ViewedSet map[uint]struct{}

// NewViewedSet builds a ViewedSet from a slice of story IDs.
func NewViewedSet(ids []uint) ViewedSet {
	set := make(ViewedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the given story ID.
func (v ViewedSet) Contains(id uint) bool {
	_, ok := v[id]
	return ok
}

// AuthorGroup is one author's live stories in playback order. It is a derived
// view, recomputed from the live set and the viewer's viewed set — never stored.
type AuthorGroup struct {
	AuthorID uint            `json:"author_id"`
	Author   models.User     `json:"author"`
	Stories  []*models.Story `json:"stories"`
	// HasUnseen is true when at least one story in the group is unseen by the
	// viewer the feed was built for. The viewer's own group never counts as
	// unseen (self-views are not tracked).
	HasUnseen bool `json:"has_unseen"`
}

// Feed is the ordered story feed for one viewer. Own is nil when the viewer
// has no live stories; the client substitutes a create affordance in that case.
type Feed struct {
	Own    *AuthorGroup  `json:"own"`
	Others []AuthorGroup `json:"others"`
}

// BuildFeed partitions live stories by author and orders them for the given
// viewer.
//
// Within a group, unseen stories come before seen ones ("seen" meaning viewed
// by this viewer or authored by them), and within each partition newest first.
// The sort is stable on both keys.
//
// Across groups (the viewer's own group is pulled out first and excluded),
// groups with at least one unseen story come before groups with none; within
// each partition groups order by their newest story's creation time,
// descending. Equal timestamps tie-break on ascending author ID so the order
// is a deterministic total order rather than an accident of map iteration.
func BuildFeed(items []*models.Story, viewed ViewedSet, viewerID uint) Feed {
	grouped := make(map[uint]*AuthorGroup)
	order := make([]uint, 0) // first-appearance order, for deterministic iteration

	for _, s := range items {
		g, ok := grouped[s.UserID]
		if !ok {
			g = &AuthorGroup{AuthorID: s.UserID, Author: s.User}
			grouped[s.UserID] = g
			order = append(order, s.UserID)
		}
		s.Seen = viewed.Contains(s.ID) || s.UserID == viewerID
		g.Stories = append(g.Stories, s)
		if !s.Seen && s.UserID != viewerID {
			g.HasUnseen = true
		}
	}

	var feed Feed
	for _, authorID := range order {
		g := grouped[authorID]
		sortWithinGroup(g.Stories)
		if authorID == viewerID {
			feed.Own = g
			continue
		}
		feed.Others = append(feed.Others, *g)
	}

	sort.SliceStable(feed.Others, func(i, j int) bool {
		a, b := feed.Others[i], feed.Others[j]
		if a.HasUnseen != b.HasUnseen {
			return a.HasUnseen
		}
		an, bn := newestAt(a.Stories), newestAt(b.Stories)
		if !an.Equal(bn) {
			return an.After(bn)
		}
		return a.AuthorID < b.AuthorID
	})

	return feed
}

// sortWithinGroup orders one author's stories: unseen before seen, then
// newest first. Stable two-key sort.
func sortWithinGroup(items []*models.Story) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Seen != items[j].Seen {
			return !items[i].Seen
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func newestAt(items []*models.Story) time.Time {
	var newest time.Time
	for _, s := range items {
		if s.CreatedAt.After(newest) {
			newest = s.CreatedAt
		}
	}
	return newest
}
