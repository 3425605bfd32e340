package server

import (
	"io"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateStory handles POST /api/stories
// Accepts a multipart form with an "image" file field. The image is
// normalized server-side and published with a 24h expiry.
func (s *Server) CreateStory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	story, err := s.storyService.CreateStory(c.UserContext(), service.CreateStoryInput{
		UserID:  userID,
		Content: content,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(story)
}

// GetStories handles GET /api/stories
// Returns all live stories newest first, with Seen set for the caller.
func (s *Server) GetStories(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	items, err := s.storyService.ListLive(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"stories": items,
		"count":   len(items),
	})
}

// GetStoriesFeed handles GET /api/stories/feed
// Returns live stories grouped per author in tray order. "own" is null when
// the caller has no live stories.
func (s *Server) GetStoriesFeed(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	feed, err := s.storyService.Feed(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(feed)
}

// GetStory handles GET /api/stories/:id
func (s *Server) GetStory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	story, err := s.storyRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if story.UserID == userID {
		story.Seen = true
	} else {
		seen, err := s.viewLedger.HasViewed(c.UserContext(), userID, id)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		story.Seen = seen
	}

	return c.JSON(story)
}

// DeleteStory handles DELETE /api/stories/:id
// Only the creator (or an admin) may delete a story.
func (s *Server) DeleteStory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.storyService.DeleteStory(c.UserContext(), service.DeleteStoryInput{
		StoryID: id,
		UserID:  userID,
	}); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"message": "Story deleted successfully",
	})
}

// MarkStoryViewed handles POST /api/stories/:id/view
// Idempotent: repeat views and self-views report recorded=false.
func (s *Server) MarkStoryViewed(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recorded, err := s.viewLedger.MarkViewed(c.UserContext(), id, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"recorded": recorded,
	})
}

// GetMyViewedStories handles GET /api/stories/views/me
// Returns the IDs of every story the caller has viewed.
func (s *Server) GetMyViewedStories(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	ids, err := s.viewRepo.ListViewedIDs(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if ids == nil {
		ids = []uint{}
	}

	return c.JSON(fiber.Map{
		"story_ids": ids,
	})
}

// GetStoryViewers handles GET /api/stories/:id/viewers
// Only the story's creator may list who viewed it.
func (s *Server) GetStoryViewers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewers, count, err := s.storyService.Viewers(c.UserContext(), service.ViewersInput{
		StoryID: id,
		UserID:  userID,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if viewers == nil {
		viewers = []models.StoryViewer{}
	}

	return c.JSON(fiber.Map{
		"viewers": viewers,
		"count":   count,
	})
}

// SweepStories handles POST /api/admin/sweep
// Runs the expiry sweep immediately instead of waiting for the next tick.
func (s *Server) SweepStories(c *fiber.Ctx) error {
	swept, err := s.storyService.SweepExpired(c.UserContext(), time.Now())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{
		"swept": swept,
	})
}
