package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/pkg/response"
)

type ticketService interface {
	CreateTicket(ctx context.Context, actor models.Actor, req dto.CreateTicketRequest) error
	ListForUser(ctx context.Context, userID int64) []models.Ticket
	ListAll(ctx context.Context) []models.Ticket
	Get(ctx context.Context, ticketID string, actor models.Actor) (*models.Ticket, error)
	Reply(ctx context.Context, ticketID string, actor models.Actor, req dto.ReplyTicketRequest) error
}

// SupportHandler exposes the customer-support ticket endpoints.
type SupportHandler struct {
	service ticketService
}

// NewSupportHandler builds a new handler.
func NewSupportHandler(service ticketService) *SupportHandler {
	return &SupportHandler{service: service}
}

// Create godoc
// @Summary File a support ticket
// @Tags Support
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTicketRequest true "Ticket payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /support/tickets [post]
func (h *SupportHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := h.service.CreateTicket(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, nil, "문의가 접수되었습니다. 빠른 시일 내에 답변드리겠습니다.")
}

// List godoc
// @Summary List the caller's tickets
// @Tags Support
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /support/tickets [get]
func (h *SupportHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.service.ListForUser(c.Request.Context(), actor.UserID), nil)
}

// Get godoc
// @Summary Get a ticket with its replies
// @Tags Support
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /support/tickets/{id} [get]
func (h *SupportHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	ticket, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}

// Reply godoc
// @Summary Reply to a ticket
// @Description An admin reply marks the ticket answered.
// @Tags Support
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param payload body dto.ReplyTicketRequest true "Reply payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /support/tickets/{id}/reply [post]
func (h *SupportHandler) Reply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := h.service.Reply(c.Request.Context(), c.Param("id"), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "답변이 등록되었습니다.")
}

// AdminList godoc
// @Summary List every ticket
// @Tags Support Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/support [get]
func (h *SupportHandler) AdminList(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.ListAll(c.Request.Context()), nil)
}
