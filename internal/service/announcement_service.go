package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

const (
	cacheKeyAnnouncementsMembers = "announcements:visible:members"
	cacheKeyAnnouncementsGuests  = "announcements:visible:guests"
)

type announcementRepository interface {
	ListVisible(ctx context.Context, authenticated bool) ([]models.Announcement, error)
	ListAll(ctx context.Context) ([]models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type announcementCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	cache     announcementCache
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service. cache may be nil.
func NewAnnouncementService(repo announcementRepository, cache announcementCache, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
	svc.validator.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementVisibility(strings.ToLower(fl.Field().String())) {
		case models.VisibilityAll, models.VisibilityMembers, models.VisibilityNonMembers:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("annpriority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(strings.ToLower(fl.Field().String())) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityNormal, models.AnnouncementPriorityHigh, models.AnnouncementPriorityUrgent:
			return true
		default:
			return false
		}
	})
	return svc
}

// ListVisible returns the feed for guests or members. Cached lists are filtered again so that an
// announcement expiring within the cache TTL disappears on time.
func (s *AnnouncementService) ListVisible(ctx context.Context, authenticated bool) ([]models.Announcement, error) {
	key := cacheKeyAnnouncementsGuests
	if authenticated {
		key = cacheKeyAnnouncementsMembers
	}

	var items []models.Announcement
	if s.cache != nil && s.cache.Get(ctx, key, &items) {
		return s.filterVisible(items, authenticated), nil
	}

	items, err := s.repo.ListVisible(ctx, authenticated)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "공지사항을 불러오지 못했습니다.")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, items, 0)
	}
	return s.filterVisible(items, authenticated), nil
}

// ListAll returns every announcement for the admin console.
func (s *AnnouncementService) ListAll(ctx context.Context) ([]models.Announcement, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "공지사항을 불러오지 못했습니다.")
	}
	return items, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "공지사항을 불러오지 못했습니다.")
	}
	return ann, nil
}

// Create registers a new announcement authored by createdBy.
func (s *AnnouncementService) Create(ctx context.Context, createdBy int64, req dto.UpsertAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	announcement := &models.Announcement{CreatedBy: createdBy, IsActive: true}
	s.apply(announcement, req)
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "공지사항 등록 중 오류가 발생했습니다.")
	}
	s.invalidate(ctx)
	s.logger.Info("announcement created", zap.String("announcement_id", announcement.ID), zap.Int64("created_by", createdBy))
	return announcement, nil
}

// Update modifies an existing announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req dto.UpsertAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "공지사항을 불러오지 못했습니다.")
	}
	s.apply(existing, req)
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, s.mapRepoError(err, "공지사항 수정 중 오류가 발생했습니다.")
	}
	s.invalidate(ctx)
	return existing, nil
}

// Toggle flips the active flag and returns the new state.
func (s *AnnouncementService) Toggle(ctx context.Context, id string) (bool, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, s.mapRepoError(err, "공지사항을 불러오지 못했습니다.")
	}
	active := !existing.IsActive
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return false, s.mapRepoError(err, "공지사항 상태 변경 중 오류가 발생했습니다.")
	}
	s.invalidate(ctx)
	return active, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepoError(err, "공지사항 삭제 중 오류가 발생했습니다.")
	}
	s.invalidate(ctx)
	return nil
}

func (s *AnnouncementService) validate(req *dto.UpsertAnnouncementRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "공지사항 내용을 다시 확인해주세요.")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "만료일은 현재 시각 이후여야 합니다.")
	}
	return nil
}

func (s *AnnouncementService) apply(ann *models.Announcement, req dto.UpsertAnnouncementRequest) {
	ann.Title = req.Title
	ann.Content = req.Content
	ann.Visibility = models.VisibilityAll
	if req.Visibility != "" {
		ann.Visibility = models.AnnouncementVisibility(strings.ToLower(req.Visibility))
	}
	ann.Priority = models.AnnouncementPriorityNormal
	if req.Priority != "" {
		ann.Priority = models.AnnouncementPriority(strings.ToLower(req.Priority))
	}
	if req.IsActive != nil {
		ann.IsActive = *req.IsActive
	}
	ann.ExpiresAt = req.ExpiresAt
}

func (s *AnnouncementService) filterVisible(items []models.Announcement, authenticated bool) []models.Announcement {
	now := s.now()
	visible := make([]models.Announcement, 0, len(items))
	for _, item := range items {
		if item.VisibleTo(authenticated, now) {
			visible = append(visible, item)
		}
	}
	return visible
}

func (s *AnnouncementService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKeyAnnouncementsMembers, cacheKeyAnnouncementsGuests)
	}
}

func (s *AnnouncementService) mapRepoError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "공지사항을 찾을 수 없습니다.")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
