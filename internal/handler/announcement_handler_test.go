package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type announcementServiceMock struct {
	visibleCalls []bool
	createdBy    int64
	toggled      bool
	err          error
}

func (m *announcementServiceMock) ListVisible(ctx context.Context, authenticated bool) ([]models.Announcement, error) {
	m.visibleCalls = append(m.visibleCalls, authenticated)
	return []models.Announcement{}, m.err
}

func (m *announcementServiceMock) ListAll(ctx context.Context) ([]models.Announcement, error) {
	return []models.Announcement{{ID: "a1"}}, m.err
}

func (m *announcementServiceMock) Get(ctx context.Context, id string) (*models.Announcement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Announcement{ID: id}, nil
}

func (m *announcementServiceMock) Create(ctx context.Context, createdBy int64, req dto.UpsertAnnouncementRequest) (*models.Announcement, error) {
	m.createdBy = createdBy
	return &models.Announcement{ID: "a1", Title: req.Title}, m.err
}

func (m *announcementServiceMock) Update(ctx context.Context, id string, req dto.UpsertAnnouncementRequest) (*models.Announcement, error) {
	return &models.Announcement{ID: id, Title: req.Title}, m.err
}

func (m *announcementServiceMock) Toggle(ctx context.Context, id string) (bool, error) {
	return m.toggled, m.err
}

func (m *announcementServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func TestAnnouncementHandlerListAudience(t *testing.T) {
	svc := &announcementServiceMock{}
	h := NewAnnouncementHandler(svc)

	c, w := newTestContext(http.MethodGet, "/announcements", "", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, _ = newTestContext(http.MethodGet, "/announcements", "", studentClaims)
	h.List(c)
	assert.Equal(t, []bool{false, true}, svc.visibleCalls)
}

func TestAnnouncementHandlerAdmin(t *testing.T) {
	svc := &announcementServiceMock{toggled: true}
	h := NewAnnouncementHandler(svc)
	admin := &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}

	c, w := newTestContext(http.MethodPost, "/admin/announcements", `{"title":"점검","content":"서버 점검"}`, admin)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(1), svc.createdBy)

	c, w = newTestContext(http.MethodPost, "/admin/announcements/a1/toggle", "", admin)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	h.Toggle(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"is_active":true}}`, w.Body.String())

	c, w = newTestContext(http.MethodPut, "/admin/announcements/a1", `{"title":`, admin)
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "공지사항을 찾을 수 없습니다.")
	c, w = newTestContext(http.MethodDelete, "/admin/announcements/zz", "", admin)
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
