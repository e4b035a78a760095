package stats

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

// Service aggregates organizer-facing dashboard numbers straight off the
// events/tickets tables.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// OrganizerStats is the admin dashboard summary for one organizer.
type OrganizerStats struct {
	TotalEvents      int            `json:"total_events"`
	TotalTicketsSold int            `json:"total_tickets_sold"`
	TotalCheckedIn   int            `json:"total_checked_in"`
	RecentEvents     []models.Event `json:"recent_events"`
	RecentTickets    []TicketRow    `json:"recent_tickets"`
}

// TicketRow is a ticket joined with attendee and event display fields.
type TicketRow struct {
	TicketID    string     `bun:"ticket_id" json:"ticket_id"`
	EventID     string     `bun:"event_id" json:"event_id"`
	EventTitle  string     `bun:"event_title" json:"event_title"`
	UserName    string     `bun:"user_name" json:"user_name"`
	UserEmail   string     `bun:"user_email" json:"user_email"`
	TicketType  string     `bun:"ticket_type" json:"ticket_type"`
	Status      string     `bun:"status" json:"status"`
	Code        string     `bun:"code" json:"code"`
	CheckedInAt *time.Time `bun:"checked_in_at" json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at" json:"created_at"`
}

// Attendee is one row of the per-event attendee list.
type Attendee struct {
	TicketID    string     `bun:"ticket_id" json:"ticket_id"`
	UserName    string     `bun:"user_name" json:"user_name"`
	UserEmail   string     `bun:"user_email" json:"user_email"`
	Status      string     `bun:"status" json:"status"`
	TicketType  string     `bun:"ticket_type" json:"ticket_type"`
	Code        string     `bun:"code" json:"code"`
	CheckedInAt *time.Time `bun:"checked_in_at" json:"checked_in_at,omitempty"`
}

// GetOrganizerStats aggregates totals over the organizer's events plus the
// most recent events and tickets for the dashboard tables.
func (s *Service) GetOrganizerStats(organizerID string) (*OrganizerStats, error) {
	ctx := context.Background()

	totalEvents, err := s.db.NewSelect().
		Model((*models.Event)(nil)).
		Where("organizer_id = ?", organizerID).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	ownedEvents := s.db.NewSelect().
		Model((*models.Event)(nil)).
		Column("id").
		Where("organizer_id = ?", organizerID)

	totalSold, err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id IN (?)", ownedEvents).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	totalCheckedIn, err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id IN (?)", ownedEvents).
		Where("status = ?", models.TicketUsed).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	var recentEvents []models.Event
	if err := s.db.NewSelect().
		Model(&recentEvents).
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Limit(10).
		Scan(ctx); err != nil {
		return nil, err
	}

	var recentTickets []TicketRow
	if err := s.db.NewSelect().
		TableExpr("tickets AS t").
		ColumnExpr("t.id AS ticket_id").
		ColumnExpr("t.event_id AS event_id").
		ColumnExpr("e.title AS event_title").
		ColumnExpr("u.name AS user_name").
		ColumnExpr("u.email AS user_email").
		ColumnExpr("t.ticket_type_name AS ticket_type").
		ColumnExpr("t.status AS status").
		ColumnExpr("t.code AS code").
		ColumnExpr("t.checked_in_at AS checked_in_at").
		ColumnExpr("t.created_at AS created_at").
		Join("LEFT JOIN events AS e ON e.id = t.event_id").
		Join("LEFT JOIN users AS u ON u.id = t.user_id").
		Where("t.event_id IN (?)", ownedEvents).
		OrderExpr("t.created_at DESC").
		Limit(50).
		Scan(ctx, &recentTickets); err != nil {
		return nil, err
	}

	return &OrganizerStats{
		TotalEvents:      totalEvents,
		TotalTicketsSold: totalSold,
		TotalCheckedIn:   totalCheckedIn,
		RecentEvents:     recentEvents,
		RecentTickets:    recentTickets,
	}, nil
}

// GetEventAttendees lists every ticket holder for an event with contact
// and check-in state, for the door list.
func (s *Service) GetEventAttendees(eventID string) ([]Attendee, error) {
	var attendees []Attendee
	err := s.db.NewSelect().
		TableExpr("tickets AS t").
		ColumnExpr("t.id AS ticket_id").
		ColumnExpr("u.name AS user_name").
		ColumnExpr("u.email AS user_email").
		ColumnExpr("t.status AS status").
		ColumnExpr("t.ticket_type_name AS ticket_type").
		ColumnExpr("t.code AS code").
		ColumnExpr("t.checked_in_at AS checked_in_at").
		Join("LEFT JOIN users AS u ON u.id = t.user_id").
		Where("t.event_id = ?", eventID).
		OrderExpr("t.created_at DESC").
		Scan(context.Background(), &attendees)
	return attendees, err
}
