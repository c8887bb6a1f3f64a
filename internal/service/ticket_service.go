package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/textrecord"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

const ticketIDPrefix = "ticket_"

// TicketService files support tickets as text records and appends replies to them.
type TicketService struct {
	store     recordStore
	validator *validator.Validate
	metrics   decodeRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewTicketService constructs the service and registers the ticket validations.
func NewTicketService(store recordStore, validate *validator.Validate, metrics decodeRecorder, logger *zap.Logger) *TicketService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TicketService{store: store, validator: validate, metrics: metrics, logger: logger, now: time.Now}
	registerSingleLine(svc.validator)
	svc.validator.RegisterValidation("ticketpriority", func(fl validator.FieldLevel) bool {
		switch models.TicketPriority(fl.Field().String()) {
		case models.TicketPriorityNormal, models.TicketPriorityHigh, models.TicketPriorityUrgent:
			return true
		default:
			return false
		}
	})
	return svc
}

// CreateTicket files a new open ticket. Only invalid input is reported; a failed write is logged
// and otherwise ignored, so the caller always tells the user the ticket was received.
func (s *TicketService) CreateTicket(ctx context.Context, actor models.Actor, req dto.CreateTicketRequest) error {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Priority == "" {
		req.Priority = string(models.TicketPriorityNormal)
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "문의 내용을 다시 확인해주세요.")
	}

	now := s.now()
	ticket := models.Ticket{
		ID:        ticketIDPrefix + now.Format(models.ResultTimestampLayout) + "_" + strconv.FormatInt(actor.UserID, 10),
		UserID:    actor.UserID,
		Username:  actor.Username,
		Subject:   req.Subject,
		Message:   req.Message,
		Priority:  models.TicketPriority(req.Priority),
		Status:    models.TicketStatusOpen,
		CreatedAt: models.FormatStoredTime(now),
	}

	if err := s.store.Create(ticket.ID, textrecord.EncodeTicket(ticket)); err != nil {
		if errors.Is(err, storage.ErrExists) {
			s.logger.Warn("ticket dropped: same user filed another ticket this second", zap.String("ticket_id", ticket.ID))
			return nil
		}
		s.logger.Error("save ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return nil
	}
	s.logger.Info("ticket filed", zap.String("ticket_id", ticket.ID), zap.Int64("user_id", actor.UserID))
	return nil
}

// ListForUser returns the user's tickets ordered by the stored creation time, newest first.
// The ordering compares the stored text, not parsed instants.
func (s *TicketService) ListForUser(ctx context.Context, userID int64) []models.Ticket {
	suffix := "_" + strconv.FormatInt(userID, 10)
	return s.collect(ctx, func(id string) bool {
		return strings.HasSuffix(id, suffix)
	})
}

// ListAll returns every ticket for the admin inbox, ordered like ListForUser.
func (s *TicketService) ListAll(ctx context.Context) []models.Ticket {
	return s.collect(ctx, func(id string) bool {
		return strings.HasPrefix(id, ticketIDPrefix)
	})
}

// AddReply appends a reply block to the ticket. An admin reply marks the ticket answered.
// It reports false when the ticket does not exist or the write failed.
func (s *TicketService) AddReply(ctx context.Context, ticketID, author, message string, isAdmin bool) bool {
	reply := models.Reply{
		Author:    author,
		Timestamp: s.now().Format(models.ReplyTimestampLayout),
		IsAdmin:   isAdmin,
		Message:   message,
	}
	err := s.store.Update(ticketID, func(current []byte) ([]byte, error) {
		return textrecord.AppendReply(current, reply), nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidID) {
			s.logger.Warn("reply to unknown ticket", zap.String("ticket_id", ticketID))
			return false
		}
		s.logger.Error("append reply", zap.String("ticket_id", ticketID), zap.Error(err))
		return false
	}
	return true
}

// Get returns a ticket visible to the actor: its creator or any admin.
func (s *TicketService) Get(ctx context.Context, ticketID string, actor models.Actor) (*models.Ticket, error) {
	ticket, ok := s.load(ticketID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "문의를 찾을 수 없습니다.")
	}
	if ticket.UserID != actor.UserID && !actor.IsAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return ticket, nil
}

// Reply validates access and message, then appends the actor's reply.
func (s *TicketService) Reply(ctx context.Context, ticketID string, actor models.Actor, req dto.ReplyTicketRequest) error {
	if _, err := s.Get(ctx, ticketID, actor); err != nil {
		return err
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "메시지를 입력해주세요.")
	}
	if !s.AddReply(ctx, ticketID, actor.Username, req.Message, actor.IsAdmin) {
		return appErrors.Clone(appErrors.ErrStorage, "답변 등록 중 오류가 발생했습니다.")
	}
	return nil
}

func (s *TicketService) collect(ctx context.Context, match func(id string) bool) []models.Ticket {
	ids, err := s.store.List()
	if err != nil {
		s.logger.Error("list tickets", zap.Error(err))
		return []models.Ticket{}
	}

	tickets := make([]models.Ticket, 0)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if !match(id) {
			continue
		}
		if ticket, ok := s.load(id); ok {
			tickets = append(tickets, *ticket)
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt > tickets[j].CreatedAt
	})
	return tickets
}

func (s *TicketService) load(ticketID string) (*models.Ticket, bool) {
	content, found, err := s.store.Get(ticketID)
	if err != nil {
		if !errors.Is(err, storage.ErrInvalidID) {
			s.logger.Error("load ticket", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return nil, false
	}
	if !found {
		return nil, false
	}

	ticket, report := textrecord.DecodeTicket(ticketID, content)
	if report.Partial {
		s.logger.Warn("record decoded leniently", zap.String("kind", "ticket"), zap.String("id", ticketID), zap.Strings("reasons", report.Reasons))
		if s.metrics != nil {
			s.metrics.RecordPartialDecode("ticket")
		}
	}
	return &ticket, true
}
