package dto

// CreateTicketRequest is the payload for filing a support ticket.
type CreateTicketRequest struct {
	Subject  string `json:"subject" validate:"required,singleline,min=5,max=200"`
	Message  string `json:"message" validate:"required,min=10,max=2000"`
	Priority string `json:"priority" validate:"omitempty,ticketpriority"`
}

// ReplyTicketRequest is the payload for answering a ticket.
type ReplyTicketRequest struct {
	Message string `json:"message" validate:"required,min=5,max=1000"`
}
