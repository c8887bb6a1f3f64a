package models

// TicketStatus is the localized status text stored in ticket files.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "대기중"
	TicketStatusAnswered TicketStatus = "답변완료"
)

// TicketPriority enumerates accepted ticket priorities.
type TicketPriority string

const (
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is a customer-support inquiry stored as one text file.
type Ticket struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Priority  TicketPriority `json:"priority"`
	Status    TicketStatus   `json:"status"`
	CreatedAt string         `json:"created_at"`
	Replies   []Reply        `json:"replies"`
}

// Reply is one appended answer to a ticket.
type Reply struct {
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	IsAdmin   bool   `json:"is_admin"`
	Message   string `json:"message"`
}

// ReplyTimestampLayout is the format used on reply marker lines.
const ReplyTimestampLayout = "2006-01-02 15:04:05"

// Actor identifies the caller of an access-controlled operation.
type Actor struct {
	UserID   int64
	Username string
	IsAdmin  bool
}
