package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStoryRepository is a mock of the StoryRepository interface
type MockStoryRepository struct {
	mock.Mock
}

func (m *MockStoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) GetByID(ctx context.Context, id uint) (*models.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Story), args.Error(1)
}

func (m *MockStoryRepository) ListLive(ctx context.Context, now time.Time, limit int) ([]*models.Story, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*models.Story), args.Error(1)
}

func (m *MockStoryRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.Story, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*models.Story), args.Error(1)
}

func (m *MockStoryRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStoryViewRepository is a mock of the StoryViewRepository interface
type MockStoryViewRepository struct {
	mock.Mock
}

func (m *MockStoryViewRepository) Record(ctx context.Context, storyID, viewerID uint) (bool, error) {
	args := m.Called(ctx, storyID, viewerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoryViewRepository) ListViewedIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockStoryViewRepository) ListViewers(ctx context.Context, storyID uint) ([]models.StoryViewer, error) {
	args := m.Called(ctx, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StoryViewer), args.Error(1)
}

func (m *MockStoryViewRepository) CountViewers(ctx context.Context, storyID uint) (int64, error) {
	args := m.Called(ctx, storyID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type fakeBlobStore struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{uploads: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.uploads[key] = data
	return nil
}

func (f *fakeBlobStore) URL(key string) string {
	return "http://blobs.test/" + key
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type testDeps struct {
	storyRepo *MockStoryRepository
	viewRepo  *MockStoryViewRepository
	userRepo  *MockUserRepository
	blobs     *fakeBlobStore
}

func newTestServer(t *testing.T, userID uint) (*fiber.App, *Server, *testDeps) {
	t.Helper()

	deps := &testDeps{
		storyRepo: new(MockStoryRepository),
		viewRepo:  new(MockStoryViewRepository),
		userRepo:  new(MockUserRepository),
		blobs:     newFakeBlobStore(),
	}

	s := &Server{
		storyRepo: deps.storyRepo,
		viewRepo:  deps.viewRepo,
		userRepo:  deps.userRepo,
		blobs:     deps.blobs,
	}
	s.viewLedger = service.NewViewLedger(deps.viewRepo, deps.storyRepo)
	s.storyService = service.NewStoryService(
		deps.storyRepo, deps.viewRepo, deps.userRepo, deps.blobs, s.viewLedger,
		24*time.Hour, 10*1024*1024)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	return app, s, deps
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, dest))
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 90, A: 255})
		}
	}
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "story.png")
	require.NoError(t, err)
	_, err = part.Write(encoded.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestCreateStoryHandler(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Post("/stories", s.CreateStory)

	deps.storyRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var story models.Story
	decodeBody(t, resp, &story)
	assert.Equal(t, uint(1), story.UserID)
	assert.NotEmpty(t, story.ImageURL)
	assert.Len(t, deps.blobs.uploads, 1)
}

func TestCreateStoryHandler_NoFile(t *testing.T) {
	app, s, _ := newTestServer(t, 1)
	app.Post("/stories", s.CreateStory)

	req := httptest.NewRequest(http.MethodPost, "/stories", bytes.NewReader(nil))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStoriesHandler(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Get("/stories", s.GetStories)

	future := time.Now().Add(time.Hour)
	deps.storyRepo.On("ListLive", mock.Anything, mock.Anything, mock.Anything).Return([]*models.Story{
		{ID: 1, UserID: 2, ExpiresAt: future},
		{ID: 2, UserID: 3, ExpiresAt: future},
	}, nil)
	deps.viewRepo.On("ListViewedIDs", mock.Anything, uint(1)).Return([]uint{2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stories", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Stories []models.Story `json:"stories"`
		Count   int            `json:"count"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, 2, payload.Count)
	assert.False(t, payload.Stories[0].Seen)
	assert.True(t, payload.Stories[1].Seen)
}

func TestGetStoriesFeedHandler_OwnIsNullWithoutLiveStories(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Get("/stories/feed", s.GetStoriesFeed)

	future := time.Now().Add(time.Hour)
	deps.storyRepo.On("ListLive", mock.Anything, mock.Anything, mock.Anything).Return([]*models.Story{
		{ID: 1, UserID: 2, ExpiresAt: future},
	}, nil)
	deps.viewRepo.On("ListViewedIDs", mock.Anything, uint(1)).Return([]uint{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stories/feed", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"own":null`)
}

func TestMarkStoryViewedHandler(t *testing.T) {
	tests := []struct {
		name         string
		storyOwner   uint
		recordResult bool
		wantRecorded bool
	}{
		{name: "New view", storyOwner: 2, recordResult: true, wantRecorded: true},
		{name: "Repeat view", storyOwner: 2, recordResult: false, wantRecorded: false},
		{name: "Self view", storyOwner: 1, wantRecorded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, s, deps := newTestServer(t, 1)
			app.Post("/stories/:id/view", s.MarkStoryViewed)

			deps.storyRepo.On("GetByID", mock.Anything, uint(5)).Return(
				&models.Story{ID: 5, UserID: tt.storyOwner}, nil)
			deps.viewRepo.On("Record", mock.Anything, uint(5), uint(1)).Return(tt.recordResult, nil)

			req := httptest.NewRequest(http.MethodPost, "/stories/5/view", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var payload struct {
				Recorded bool `json:"recorded"`
			}
			decodeBody(t, resp, &payload)
			assert.Equal(t, tt.wantRecorded, payload.Recorded)

			if tt.storyOwner == 1 {
				deps.viewRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestMarkStoryViewedHandler_MissingStory(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Post("/stories/:id/view", s.MarkStoryViewed)

	deps.storyRepo.On("GetByID", mock.Anything, uint(99)).Return(
		nil, models.NewNotFoundError("Story", uint(99)))

	req := httptest.NewRequest(http.MethodPost, "/stories/99/view", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkStoryViewedHandler_InvalidID(t *testing.T) {
	app, s, _ := newTestServer(t, 1)
	app.Post("/stories/:id/view", s.MarkStoryViewed)

	req := httptest.NewRequest(http.MethodPost, "/stories/abc/view", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteStoryHandler(t *testing.T) {
	tests := []struct {
		name           string
		storyOwner     uint
		isAdmin        bool
		expectedStatus int
	}{
		{name: "Creator deletes own story", storyOwner: 1, expectedStatus: http.StatusOK},
		{name: "Admin deletes any story", storyOwner: 2, isAdmin: true, expectedStatus: http.StatusOK},
		{name: "Non-creator forbidden", storyOwner: 2, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, s, deps := newTestServer(t, 1)
			app.Delete("/stories/:id", s.DeleteStory)

			deps.storyRepo.On("GetByID", mock.Anything, uint(7)).Return(
				&models.Story{ID: 7, UserID: tt.storyOwner, ImageID: "key.jpg"}, nil)
			deps.userRepo.On("IsAdmin", mock.Anything, uint(1)).Return(tt.isAdmin, nil)
			deps.storyRepo.On("Delete", mock.Anything, uint(7)).Return(nil)

			req := httptest.NewRequest(http.MethodDelete, "/stories/7", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, []string{"key.jpg"}, deps.blobs.deleted)
			} else {
				deps.storyRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetStoryViewersHandler(t *testing.T) {
	tests := []struct {
		name           string
		storyOwner     uint
		expectedStatus int
	}{
		{name: "Owner sees viewers", storyOwner: 1, expectedStatus: http.StatusOK},
		{name: "Non-owner forbidden", storyOwner: 2, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, s, deps := newTestServer(t, 1)
			app.Get("/stories/:id/viewers", s.GetStoryViewers)

			deps.storyRepo.On("GetByID", mock.Anything, uint(5)).Return(
				&models.Story{ID: 5, UserID: tt.storyOwner}, nil)
			deps.viewRepo.On("ListViewers", mock.Anything, uint(5)).Return(
				[]models.StoryViewer{{UserID: 3, Username: "reza"}}, nil)
			deps.viewRepo.On("CountViewers", mock.Anything, uint(5)).Return(int64(1), nil)

			req := httptest.NewRequest(http.MethodGet, "/stories/5/viewers", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				var payload struct {
					Viewers []models.StoryViewer `json:"viewers"`
					Count   int64                `json:"count"`
				}
				decodeBody(t, resp, &payload)
				assert.Equal(t, int64(1), payload.Count)
				require.Len(t, payload.Viewers, 1)
				assert.Equal(t, "reza", payload.Viewers[0].Username)
			}
		})
	}
}

func TestGetMyViewedStoriesHandler(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Get("/stories/views/me", s.GetMyViewedStories)

	deps.viewRepo.On("ListViewedIDs", mock.Anything, uint(1)).Return([]uint{3, 8}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stories/views/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		StoryIDs []uint `json:"story_ids"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, []uint{3, 8}, payload.StoryIDs)
}

func TestSweepStoriesHandler(t *testing.T) {
	app, s, deps := newTestServer(t, 1)
	app.Post("/admin/sweep", s.SweepStories)

	deps.storyRepo.On("ListExpired", mock.Anything, mock.Anything).Return([]*models.Story{
		{ID: 1, ImageID: "a.jpg"},
		{ID: 2, ImageID: "b.jpg"},
	}, nil)
	deps.storyRepo.On("Delete", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/sweep", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Swept int `json:"swept"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, 2, payload.Swept)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, deps.blobs.deleted)
}
