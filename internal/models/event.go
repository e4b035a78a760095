package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCanceled  EventStatus = "canceled"
)

type TicketCategory string

const (
	CategoryFree TicketCategory = "free"
	CategoryPaid TicketCategory = "paid"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string      `bun:"id,pk" json:"id"`
	Title       string      `bun:"title,notnull" json:"title"`
	Description string      `bun:"description" json:"description"`
	Location    string      `bun:"location,notnull" json:"location"`
	Date        time.Time   `bun:"date,notnull" json:"date"`
	OrganizerID string      `bun:"organizer_id,notnull" json:"organizer_id"`
	Status      EventStatus `bun:"status,notnull" json:"status"`
	IsPrivate   bool        `bun:"is_private" json:"is_private"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull" json:"updated_at"`

	TicketTypes []TicketType `bun:"rel:has-many,join:id=event_id" json:"ticket_types,omitempty"`
}

// TicketType is one priced admission tier of an event. Tiers carry their own
// capacity and sold counters; tickets reference a tier by its stable ID.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types,alias:tt"`

	ID          string         `bun:"id,pk" json:"id"`
	EventID     string         `bun:"event_id,notnull" json:"event_id"`
	Name        string         `bun:"name,notnull" json:"name"`
	Description string         `bun:"description" json:"description"`
	Price       float64        `bun:"price,notnull" json:"price"`
	Capacity    int            `bun:"capacity,notnull" json:"capacity"`
	Sold        int            `bun:"sold,notnull,default:0" json:"sold"`
	Category    TicketCategory `bun:"category,notnull" json:"category"`
}

// CategoryForPrice derives the tier category the same way the event form
// does: anything priced above zero is paid admission.
func CategoryForPrice(price float64) TicketCategory {
	if price > 0 {
		return CategoryPaid
	}
	return CategoryFree
}

// EventWithCounts is the detail view of an event: its tiers plus live
// recounts of registered and checked-in tickets.
type EventWithCounts struct {
	Event           Event `json:"event"`
	TotalRegistered int   `json:"total_registered"`
	TotalCheckedIn  int   `json:"total_checked_in"`
}

type EventInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Date        string  `json:"date"`
	IsPrivate   bool    `json:"is_private"`
	Price       float64 `json:"price"`
	Capacity    int     `json:"capacity"`
}
