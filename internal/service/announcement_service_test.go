package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type announcementRepoStub struct {
	items       map[string]*models.Announcement
	visible     []models.Announcement
	visibleArgs []bool
	listErr     error
	created     []*models.Announcement
}

func newAnnouncementRepoStub() *announcementRepoStub {
	return &announcementRepoStub{items: map[string]*models.Announcement{}}
}

func (r *announcementRepoStub) ListVisible(ctx context.Context, authenticated bool) ([]models.Announcement, error) {
	r.visibleArgs = append(r.visibleArgs, authenticated)
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.visible, nil
}

func (r *announcementRepoStub) ListAll(ctx context.Context) ([]models.Announcement, error) {
	out := make([]models.Announcement, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, r.listErr
}

func (r *announcementRepoStub) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (r *announcementRepoStub) Create(ctx context.Context, ann *models.Announcement) error {
	ann.ID = "ann-1"
	r.items[ann.ID] = ann
	r.created = append(r.created, ann)
	return nil
}

func (r *announcementRepoStub) Update(ctx context.Context, ann *models.Announcement) error {
	if _, ok := r.items[ann.ID]; !ok {
		return sql.ErrNoRows
	}
	r.items[ann.ID] = ann
	return nil
}

func (r *announcementRepoStub) SetActive(ctx context.Context, id string, active bool) error {
	item, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.IsActive = active
	return nil
}

func (r *announcementRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

// memoryCacheRepo is a CacheRepository backed by a map of JSON payloads.
type memoryCacheRepo struct {
	data    map[string][]byte
	getErr  error
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func newAnnouncementServiceForTest(t *testing.T, repo *announcementRepoStub, cacheRepo *memoryCacheRepo) (*AnnouncementService, *MetricsService) {
	t.Helper()
	metrics := NewMetricsService()
	var cache announcementCache
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	}
	svc := NewAnnouncementService(repo, cache, nil, nil)
	svc.now = fixedClock("2024-03-01T10:00:00Z")
	return svc, metrics
}

func TestAnnouncementServiceListVisibleReadThrough(t *testing.T) {
	repo := newAnnouncementRepoStub()
	past := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	repo.visible = []models.Announcement{
		{ID: "a1", Title: "전체", Visibility: models.VisibilityAll, IsActive: true},
		{ID: "a2", Title: "회원", Visibility: models.VisibilityMembers, IsActive: true},
		{ID: "a3", Title: "만료", Visibility: models.VisibilityAll, IsActive: true, ExpiresAt: &past},
	}
	cacheRepo := newMemoryCacheRepo()
	svc, metrics := newAnnouncementServiceForTest(t, repo, cacheRepo)
	ctx := context.Background()

	first, err := svc.ListVisible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, announcementIDs(first))

	second, err := svc.ListVisible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, announcementIDs(first), announcementIDs(second))
	assert.Equal(t, []bool{true}, repo.visibleArgs)

	guests, err := svc.ListVisible(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, announcementIDs(guests))
	assert.Equal(t, []bool{true, false}, repo.visibleArgs)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestAnnouncementServiceCacheFailureFallsBack(t *testing.T) {
	repo := newAnnouncementRepoStub()
	repo.visible = []models.Announcement{{ID: "a1", Visibility: models.VisibilityAll, IsActive: true}}
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.getErr = errors.New("redis down")
	svc, _ := newAnnouncementServiceForTest(t, repo, cacheRepo)

	items, err := svc.ListVisible(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	repo.listErr = errors.New("db down")
	_, err = svc.ListVisible(context.Background(), false)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAnnouncementServiceCreateDefaultsAndInvalidates(t *testing.T) {
	repo := newAnnouncementRepoStub()
	cacheRepo := newMemoryCacheRepo()
	svc, _ := newAnnouncementServiceForTest(t, repo, cacheRepo)
	ctx := context.Background()

	ann, err := svc.Create(ctx, 1, dto.UpsertAnnouncementRequest{Title: "  시험 안내 ", Content: "다음 주 모의고사"})
	require.NoError(t, err)
	assert.Equal(t, "시험 안내", ann.Title)
	assert.Equal(t, models.VisibilityAll, ann.Visibility)
	assert.Equal(t, models.AnnouncementPriorityNormal, ann.Priority)
	assert.True(t, ann.IsActive)
	assert.Equal(t, int64(1), ann.CreatedBy)
	assert.ElementsMatch(t, []string{cacheKeyAnnouncementsMembers, cacheKeyAnnouncementsGuests}, cacheRepo.deleted)
}

func TestAnnouncementServiceValidation(t *testing.T) {
	svc, _ := newAnnouncementServiceForTest(t, newAnnouncementRepoStub(), nil)
	ctx := context.Background()
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []dto.UpsertAnnouncementRequest{
		{Title: "", Content: "c"},
		{Title: "t", Content: "c", Visibility: "everyone"},
		{Title: "t", Content: "c", Priority: "critical"},
		{Title: "t", Content: "c", ExpiresAt: &past},
	}
	for _, req := range cases {
		_, err := svc.Create(ctx, 1, req)
		assert.ErrorIs(t, err, appErrors.ErrValidation, "%+v", req)
	}
}

func TestAnnouncementServiceToggleUpdateDelete(t *testing.T) {
	repo := newAnnouncementRepoStub()
	repo.items["a1"] = &models.Announcement{ID: "a1", Title: "old", Visibility: models.VisibilityAll, Priority: models.AnnouncementPriorityLow, IsActive: true}
	svc, _ := newAnnouncementServiceForTest(t, repo, newMemoryCacheRepo())
	ctx := context.Background()

	active, err := svc.Toggle(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, active)

	inactive := false
	updated, err := svc.Update(ctx, "a1", dto.UpsertAnnouncementRequest{Title: "new", Content: "body", Visibility: "MEMBERS", Priority: "urgent", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityMembers, updated.Visibility)
	assert.Equal(t, models.AnnouncementPriorityUrgent, updated.Priority)
	assert.False(t, updated.IsActive)

	_, err = svc.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "a1"))
	assert.ErrorIs(t, svc.Delete(ctx, "a1"), appErrors.ErrNotFound)
	_, err = svc.Get(ctx, "a1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "k", "v", 0)
	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
	assert.Empty(t, repo.data)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func announcementIDs(items []models.Announcement) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
