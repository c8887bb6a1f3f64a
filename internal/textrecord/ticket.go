package textrecord

import (
	"strconv"
	"strings"

	"github.com/noah-isme/studyhub-api/internal/models"
)

const (
	ticketHeader      = "=== 고객 문의 ==="
	messageHeader     = "=== 문의 내용 ==="
	repliesHeader     = "=== 답변 내역 ==="
	noRepliesSentinel = "(답변 없음)"
	adminReplyMarker  = "[관리자 답변]"
	labelTicketID     = "문의 ID: "
	labelTicketUser   = "사용자: "
	labelPriority     = "우선순위: "
	labelCreatedAt    = "문의일시: "
	labelStatus       = "상태: "
	userIDOpen        = " (ID: "
	replyMarkerPrefix = "답변: "
	fileExtension     = ".txt"
)

var (
	statusOpenLine     = labelStatus + string(models.TicketStatusOpen)
	statusAnsweredLine = labelStatus + string(models.TicketStatusAnswered)

	// ticketReserved lists the line prefixes that message and reply bodies must not start with.
	ticketReserved = []string{"===", replyMarkerPrefix, adminReplyMarker, noRepliesSentinel}
)

// EncodeTicket renders a ticket. Replies are written as blocks; an empty reply list is written
// as the no-replies sentinel. Body lines that look like structure are escaped with a backslash.
func EncodeTicket(ticket models.Ticket) []byte {
	var b strings.Builder

	status := ticket.Status
	if status == "" {
		status = models.TicketStatusOpen
	}

	b.WriteString(ticketHeader + "\n")
	b.WriteString(labelTicketID + singleLine(ticket.ID) + fileExtension + "\n")
	b.WriteString(labelTicketUser + singleLine(ticket.Username) + userIDOpen + strconv.FormatInt(ticket.UserID, 10) + ")\n")
	b.WriteString(labelTitle + singleLine(ticket.Subject) + "\n")
	b.WriteString(labelPriority + singleLine(string(ticket.Priority)) + "\n")
	b.WriteString(labelCreatedAt + singleLine(ticket.CreatedAt) + "\n")
	b.WriteString(labelStatus + singleLine(string(status)) + "\n")
	b.WriteString("\n" + messageHeader + "\n")
	b.WriteString(escapeBody(ticket.Message, ticketReserved) + "\n")
	b.WriteString("\n" + repliesHeader + "\n")

	if len(ticket.Replies) == 0 {
		b.WriteString(noRepliesSentinel + "\n")
		return []byte(b.String())
	}
	for i, reply := range ticket.Replies {
		block := replyBlock(reply)
		if i == 0 {
			block = strings.TrimPrefix(block, "\n")
		}
		b.WriteString(block)
	}
	return []byte(b.String())
}

// AppendReply adds a reply block to encoded ticket content. A no-replies sentinel line inside the
// reply section is replaced when present; otherwise the block is appended. An admin reply flips
// the open status line of the preamble to answered, and a later reply never flips it back.
func AppendReply(content []byte, reply models.Reply) []byte {
	lines := strings.Split(string(content), "\n")
	messageAt, repliesAt := ticketSections(lines)
	block := replyBlock(reply)

	replaced := false
	if repliesAt >= 0 {
		for i := repliesAt + 1; i < len(lines); i++ {
			if line, ok := structuralLine(lines[i]); ok && line == noRepliesSentinel {
				lines[i] = strings.TrimSpace(block)
				replaced = true
				break
			}
		}
	}

	if reply.IsAdmin {
		end := len(lines)
		if messageAt >= 0 {
			end = messageAt
		}
		for i := 0; i < end; i++ {
			if line, ok := structuralLine(lines[i]); ok && line == statusOpenLine {
				lines[i] = statusAnsweredLine
				break
			}
		}
	}

	text := strings.Join(lines, "\n")
	if !replaced {
		text += block
	}
	return []byte(text)
}

func replyBlock(reply models.Reply) string {
	var b strings.Builder
	b.WriteString("\n" + replyMarkerPrefix + singleLine(reply.Author) + " (" + singleLine(reply.Timestamp) + ")\n")
	if reply.IsAdmin {
		b.WriteString(adminReplyMarker + "\n")
	}
	b.WriteString(escapeBody(reply.Message, ticketReserved) + "\n")
	return b.String()
}

// structuralLine returns the cleaned line and whether it may be read as structure. Escaped
// lines are always content.
func structuralLine(raw string) (string, bool) {
	if strings.HasPrefix(raw, escapePrefix) {
		return "", false
	}
	line, _ := cleanLine(raw)
	return line, true
}

// ticketSections finds the message header and the first reply header after it. Either index is
// -1 when missing.
func ticketSections(lines []string) (messageAt, repliesAt int) {
	messageAt, repliesAt = -1, -1
	for i, raw := range lines {
		line, ok := structuralLine(raw)
		if !ok {
			continue
		}
		if messageAt < 0 && line == messageHeader {
			messageAt = i
			continue
		}
		if messageAt >= 0 && line == repliesHeader {
			return messageAt, i
		}
	}
	return messageAt, repliesAt
}

// DecodeTicket parses a ticket file. Preamble fields default to an open, normal-priority ticket
// and missing sections are reported rather than failing the decode.
func DecodeTicket(id string, content []byte) (models.Ticket, Report) {
	var report Report
	ticket := models.Ticket{
		ID:       id,
		Priority: models.TicketPriorityNormal,
		Status:   models.TicketStatusOpen,
		Replies:  []models.Reply{},
	}

	lines := splitLines(content)
	messageAt, repliesAt := ticketSections(lines)

	preamble := lines
	if messageAt >= 0 {
		preamble = lines[:messageAt]
	}
	userSeen := false
	for _, raw := range preamble {
		line, _ := cleanLine(raw)
		switch {
		case strings.HasPrefix(line, labelTitle):
			ticket.Subject = strings.TrimPrefix(line, labelTitle)
		case strings.HasPrefix(line, labelPriority):
			ticket.Priority = models.TicketPriority(strings.TrimPrefix(line, labelPriority))
		case strings.HasPrefix(line, labelCreatedAt):
			ticket.CreatedAt = strings.TrimPrefix(line, labelCreatedAt)
		case strings.HasPrefix(line, labelStatus):
			ticket.Status = models.TicketStatus(strings.TrimPrefix(line, labelStatus))
		case strings.HasPrefix(line, labelTicketUser):
			userSeen = true
			info := strings.TrimPrefix(line, labelTicketUser)
			name, rest, found := strings.Cut(info, userIDOpen)
			if !found {
				ticket.Username = info
				report.addf("user line has no id")
				continue
			}
			ticket.Username = name
			userID, err := strconv.ParseInt(strings.TrimSuffix(rest, ")"), 10, 64)
			if err != nil {
				report.addf("user id %q is not a number", rest)
				continue
			}
			ticket.UserID = userID
		}
	}
	if !userSeen {
		report.addf("missing user line")
	}

	if messageAt < 0 || repliesAt < 0 {
		report.addf("message or reply section missing")
		return ticket, report
	}

	message := make([]string, 0, repliesAt-messageAt)
	for _, raw := range lines[messageAt+1 : repliesAt] {
		line, _ := unescapeLine(raw)
		message = append(message, strings.TrimRight(line, "\r"))
	}
	ticket.Message = strings.TrimSpace(strings.Join(message, "\n"))
	ticket.Replies = decodeReplies(lines[repliesAt+1:], &report)

	return ticket, report
}

func decodeReplies(lines []string, report *Report) []models.Reply {
	replies := []models.Reply{}

	var (
		current *models.Reply
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Message = strings.TrimSpace(strings.Join(body, "\n"))
		replies = append(replies, *current)
		current = nil
		body = nil
	}

	for _, raw := range lines {
		unescaped, escaped := unescapeLine(raw)
		line, _ := cleanLine(unescaped)
		structural := !escaped
		switch {
		case structural && strings.HasPrefix(line, replyMarkerPrefix):
			flush()
			author, timestamp := parseReplyMarker(strings.TrimPrefix(line, replyMarkerPrefix))
			current = &models.Reply{Author: author, Timestamp: timestamp}
		case current == nil:
			if line != "" && !(structural && line == noRepliesSentinel) {
				report.addf("text before first reply ignored")
			}
		case structural && line == adminReplyMarker && len(body) == 0 && !current.IsAdmin:
			current.IsAdmin = true
		default:
			body = append(body, line)
		}
	}
	flush()
	return replies
}

// parseReplyMarker splits "author (timestamp)" at the last opening parenthesis.
func parseReplyMarker(marker string) (author, timestamp string) {
	idx := strings.LastIndex(marker, " (")
	if idx < 0 || !strings.HasSuffix(marker, ")") {
		return marker, ""
	}
	return marker[:idx], marker[idx+2 : len(marker)-1]
}
