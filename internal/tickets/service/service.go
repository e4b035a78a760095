package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-events/internal/apperr"
	"ms-events/internal/cache"
	"ms-events/internal/models"
	ticket_db "ms-events/internal/tickets/db"
	"ms-events/internal/tickets/qr"
	"ms-events/internal/utils"
)

type TicketDBLayer interface {
	CreateTicketAndIncrementSold(ticket models.Ticket, enforceCapacity bool) error
	DeleteTicketAndDecrementSold(ticket models.Ticket) error
	GetTicketByID(id string) (*models.Ticket, error)
	GetTicketByCode(code string) (*models.Ticket, error)
	MarkUsedByCode(code string, at time.Time) (bool, error)
	GetTicketsByUser(userID string) ([]models.Ticket, error)
	GetLiveTicketForUser(eventID, userID string) (*models.Ticket, error)
	UserName(userID string) (string, error)
	GetEvent(eventID string) (*models.Event, error)
	GetTierByID(tierID string) (*models.TicketType, error)
}

type KafkaPublisher interface {
	PublishTicketIssued(issued models.TicketIssuedEvent) error
	PublishTicketCanceled(ticket models.Ticket) error
	PublishTicketCheckedIn(ticket models.Ticket) error
}

// TicketService is the ticket lifecycle engine: registration, cancellation
// and check-in, plus the bookkeeping that keeps tier sold counters in step
// with the ticket rows.
type TicketService struct {
	DB              TicketDBLayer
	Kafka           KafkaPublisher
	Views           *cache.Views
	QR              *qr.Generator
	EnforceCapacity bool
}

func NewTicketService(db TicketDBLayer, kafka KafkaPublisher, views *cache.Views, enforceCapacity bool) *TicketService {
	return &TicketService{
		DB:              db,
		Kafka:           kafka,
		Views:           views,
		QR:              qr.NewGenerator(),
		EnforceCapacity: enforceCapacity,
	}
}

// Register issues a valid ticket for (event, user, tier) under a fresh
// opaque code and increments the tier's sold counter. Ticket row and
// counter move in the same transaction.
func (s *TicketService) Register(eventID, userID, tierID string) (*models.Ticket, error) {
	event, err := s.DB.GetEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, apperr.ErrNotFound)
	}
	if event.Status == models.EventCanceled {
		return nil, fmt.Errorf("event %s is canceled: %w", eventID, apperr.ErrInvalidState)
	}

	tier, err := s.DB.GetTierByID(tierID)
	if err != nil || tier.EventID != eventID {
		return nil, fmt.Errorf("ticket type %s on event %s: %w", tierID, eventID, apperr.ErrNotFound)
	}

	now := time.Now()
	ticket := models.Ticket{
		ID:             uuid.NewString(),
		EventID:        eventID,
		UserID:         userID,
		TicketTypeID:   tier.ID,
		TicketTypeName: tier.Name,
		Code:           utils.GenerateTicketCode(),
		Status:         models.TicketValid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.DB.CreateTicketAndIncrementSold(ticket, s.EnforceCapacity); err != nil {
		switch {
		case errors.Is(err, ticket_db.ErrTierNotFound):
			return nil, fmt.Errorf("ticket type %s on event %s: %w", tierID, eventID, apperr.ErrNotFound)
		case errors.Is(err, ticket_db.ErrCapacityReached):
			return nil, fmt.Errorf("ticket type %s is sold out: %w", tier.Name, apperr.ErrInvalidState)
		default:
			return nil, fmt.Errorf("failed to register for event %s: %w", eventID, err)
		}
	}

	if s.Kafka != nil {
		issued := models.TicketIssuedEvent{
			TicketID:       ticket.ID,
			EventID:        eventID,
			UserID:         userID,
			TicketTypeID:   tier.ID,
			TicketTypeName: tier.Name,
			Price:          tier.Price,
		}
		if err := s.Kafka.PublishTicketIssued(issued); err != nil {
			fmt.Printf("Kafka publish error (ticket issued): %v\n", err)
		}
	}

	s.invalidate(eventID, userID)
	return &ticket, nil
}

// Cancel removes the requester's own ticket and decrements the tier's sold
// counter. Canceling an already-canceled (deleted) ticket is NotFound, not
// a silent no-op.
func (s *TicketService) Cancel(ticketID, requestingUserID string) error {
	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		return fmt.Errorf("ticket %s: %w", ticketID, apperr.ErrNotFound)
	}
	if ticket.UserID != requestingUserID {
		return fmt.Errorf("ticket %s does not belong to caller: %w", ticketID, apperr.ErrUnauthorized)
	}

	if err := s.DB.DeleteTicketAndDecrementSold(*ticket); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ticket %s: %w", ticketID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to cancel ticket %s: %w", ticketID, err)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketCanceled(*ticket); err != nil {
			fmt.Printf("Kafka publish error (ticket canceled): %v\n", err)
		}
	}

	s.invalidate(ticket.EventID, requestingUserID)
	return nil
}

// CheckIn consumes a scanned credential. rawScan is either the structured
// QR payload or a bare code. The valid→used transition is a conditional
// update, so a double scan admits exactly one caller; the loser gets the
// already-used report with the original stamp.
func (s *TicketService) CheckIn(rawScan string, role models.UserRole) (*models.CheckInResult, error) {
	if role != models.RoleAdmin {
		return nil, fmt.Errorf("admin role required for check-in: %w", apperr.ErrUnauthorized)
	}

	code := qr.ParseScan(rawScan).Code
	if code == "" {
		return nil, fmt.Errorf("empty scan payload: %w", apperr.ErrValidation)
	}

	now := time.Now()
	won, err := s.DB.MarkUsedByCode(code, now)
	if err != nil {
		return nil, fmt.Errorf("check-in update failed: %w", err)
	}

	ticket, err := s.DB.GetTicketByCode(code)
	if err != nil {
		return nil, fmt.Errorf("ticket code %s: %w", code, apperr.ErrNotFound)
	}

	attendee, eventTitle := s.displayContext(ticket)

	if !won {
		switch ticket.Status {
		case models.TicketUsed:
			return &models.CheckInResult{
				Accepted:     false,
				Reason:       "Ticket has already been used.",
				TicketID:     ticket.ID,
				EventID:      ticket.EventID,
				AttendeeName: attendee,
				EventTitle:   eventTitle,
				CheckedInAt:  ticket.CheckedInAt,
			}, nil
		case models.TicketCanceled:
			return &models.CheckInResult{
				Accepted: false,
				Reason:   "Ticket is canceled and invalid.",
			}, nil
		default:
			return nil, fmt.Errorf("ticket code %s in unexpected state %s: %w", code, ticket.Status, apperr.ErrInvalidState)
		}
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketCheckedIn(*ticket); err != nil {
			fmt.Printf("Kafka publish error (ticket checked in): %v\n", err)
		}
	}

	s.invalidate(ticket.EventID, ticket.UserID)

	return &models.CheckInResult{
		Accepted:     true,
		Reason:       "Check-in successful!",
		TicketID:     ticket.ID,
		EventID:      ticket.EventID,
		AttendeeName: attendee,
		EventTitle:   eventTitle,
		CheckedInAt:  ticket.CheckedInAt,
	}, nil
}

// GetForUser returns the caller's live ticket for an event with its QR
// rendered as a data URL.
func (s *TicketService) GetForUser(eventID, userID string) (*models.TicketView, error) {
	ticket, err := s.DB.GetLiveTicketForUser(eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("no ticket for event %s: %w", eventID, apperr.ErrNotFound)
	}
	return s.buildView(*ticket)
}

// ListByUser returns all of the caller's tickets, each with event context
// and QR image, newest first.
func (s *TicketService) ListByUser(userID string) ([]models.TicketView, error) {
	ticketRows, err := s.DB.GetTicketsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for user %s: %w", userID, err)
	}

	views := make([]models.TicketView, 0, len(ticketRows))
	for _, t := range ticketRows {
		view, err := s.buildView(t)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *TicketService) buildView(ticket models.Ticket) (*models.TicketView, error) {
	view := models.TicketView{Ticket: ticket}

	if event, err := s.DB.GetEvent(ticket.EventID); err == nil {
		view.EventTitle = event.Title
		view.EventDate = event.Date.Format(time.RFC3339)
	}

	url, err := s.QR.DataURL(models.QRPayload{
		TicketID: ticket.ID,
		Code:     ticket.Code,
		EventID:  ticket.EventID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR for ticket %s: %w", ticket.ID, err)
	}
	view.QRCodeURL = url
	return &view, nil
}

func (s *TicketService) displayContext(ticket *models.Ticket) (attendee, eventTitle string) {
	if name, err := s.DB.UserName(ticket.UserID); err == nil {
		attendee = name
	}
	if event, err := s.DB.GetEvent(ticket.EventID); err == nil {
		eventTitle = event.Title
	}
	return attendee, eventTitle
}

func (s *TicketService) invalidate(eventID, userID string) {
	ctx := context.Background()
	s.Views.Invalidate(ctx,
		cache.EventViewKey(eventID),
		cache.UserTicketsKey(userID),
	)
}
