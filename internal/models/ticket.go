package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketValid    TicketStatus = "valid"
	TicketUsed     TicketStatus = "used"
	TicketCanceled TicketStatus = "canceled"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID             string       `bun:"id,pk" json:"id"`
	EventID        string       `bun:"event_id,notnull" json:"event_id"`
	UserID         string       `bun:"user_id,notnull" json:"user_id"`
	TicketTypeID   string       `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	TicketTypeName string       `bun:"ticket_type_name,notnull" json:"ticket_type_name"`
	Code           string       `bun:"code,unique,notnull" json:"code"`
	Status         TicketStatus `bun:"status,notnull" json:"status"`
	CheckedInAt    *time.Time   `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	CreatedAt      time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// TicketView is a ticket joined with its event and rendered QR image for
// the attendee-facing ticket wallet.
type TicketView struct {
	Ticket     Ticket `json:"ticket"`
	EventTitle string `json:"event_title"`
	EventDate  string `json:"event_date"`
	QRCodeURL  string `json:"qr_code_url"`
}

// CheckInResult is what the scanning terminal sees. Rejections carry enough
// detail for staff to distinguish a reused ticket from an invalid one.
type CheckInResult struct {
	Accepted     bool       `json:"accepted"`
	Reason       string     `json:"reason"`
	TicketID     string     `json:"ticket_id,omitempty"`
	EventID      string     `json:"event_id,omitempty"`
	AttendeeName string     `json:"attendee_name,omitempty"`
	EventTitle   string     `json:"event_title,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

// CheckedInTicket is the code-lookup projection used by check-in: the ticket
// row joined with attendee name and event title.
type CheckedInTicket struct {
	Ticket       Ticket
	AttendeeName string
	EventTitle   string
}
