package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-events/internal/apperr"
	"ms-events/internal/cache"
	"ms-events/internal/models"
)

type EventDBLayer interface {
	CreateEvent(event models.Event, tiers []models.TicketType) error
	GetEventByID(id string) (*models.Event, error)
	UpdateEvent(event models.Event) error
	UpdateTier(tier models.TicketType) error
	SetEventStatus(id string, status models.EventStatus) error
	CancelEventAndTickets(id string) error
	ListPublished(includePrivate bool) ([]models.Event, error)
	ListByOrganizer(organizerID string) ([]models.Event, error)
	CountLiveTickets(eventID string) (int, error)
	CountCheckedIn(eventID string) (int, error)
}

type KafkaPublisher interface {
	PublishEventPublished(event models.Event) error
	PublishEventCanceled(event models.Event) error
}

type EventService struct {
	DB    EventDBLayer
	Kafka KafkaPublisher
	Views *cache.Views
}

func NewEventService(db EventDBLayer, kafka KafkaPublisher, views *cache.Views) *EventService {
	return &EventService{DB: db, Kafka: kafka, Views: views}
}

const defaultTierName = "General Admission"

// Create opens a new draft event owned by the organizer, with a single
// General Admission tier derived from the submitted price and capacity.
func (s *EventService) Create(organizerID string, role models.UserRole, in models.EventInput) (*models.Event, error) {
	if role != models.RoleAdmin {
		return nil, fmt.Errorf("only admins can create events: %w", apperr.ErrUnauthorized)
	}

	date, err := validateEventInput(in)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := models.Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Date:        date,
		OrganizerID: organizerID,
		Status:      models.EventDraft,
		IsPrivate:   in.IsPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tier := models.TicketType{
		ID:       uuid.NewString(),
		EventID:  event.ID,
		Name:     defaultTierName,
		Price:    in.Price,
		Capacity: in.Capacity,
		Sold:     0,
		Category: models.CategoryForPrice(in.Price),
	}

	if err := s.DB.CreateEvent(event, []models.TicketType{tier}); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	event.TicketTypes = []models.TicketType{tier}

	s.invalidate(event.ID, organizerID)
	return &event, nil
}

// Get returns the event detail view with live registration recounts.
func (s *EventService) Get(id string) (*models.EventWithCounts, error) {
	event, err := s.DB.GetEventByID(id)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}

	registered, err := s.DB.CountLiveTickets(id)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	checkedIn, err := s.DB.CountCheckedIn(id)
	if err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}

	return &models.EventWithCounts{
		Event:           *event,
		TotalRegistered: registered,
		TotalCheckedIn:  checkedIn,
	}, nil
}

// ListPublished lists events visible to the caller. Anonymous callers never
// see private events.
func (s *EventService) ListPublished(loggedIn bool) ([]models.Event, error) {
	events, err := s.DB.ListPublished(loggedIn)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *EventService) ListByOrganizer(organizerID string) ([]models.Event, error) {
	events, err := s.DB.ListByOrganizer(organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizer events: %w", err)
	}
	return events, nil
}

// Update rewrites the event fields and its default tier's price/capacity.
func (s *EventService) Update(eventID, requesterID string, role models.UserRole, in models.EventInput) (*models.Event, error) {
	event, err := s.requireOwned(eventID, requesterID, role)
	if err != nil {
		return nil, err
	}

	date, err := validateEventInput(in)
	if err != nil {
		return nil, err
	}

	event.Title = in.Title
	event.Description = in.Description
	event.Location = in.Location
	event.Date = date
	event.IsPrivate = in.IsPrivate
	event.UpdatedAt = time.Now()

	if err := s.DB.UpdateEvent(*event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if len(event.TicketTypes) > 0 {
		tier := event.TicketTypes[0]
		tier.Price = in.Price
		tier.Capacity = in.Capacity
		tier.Category = models.CategoryForPrice(in.Price)
		if err := s.DB.UpdateTier(tier); err != nil {
			return nil, fmt.Errorf("failed to update ticket type: %w", err)
		}
		event.TicketTypes[0] = tier
	}

	s.invalidate(eventID, requesterID)
	return event, nil
}

// Publish moves a draft event to published. Canceled events stay canceled.
func (s *EventService) Publish(eventID, requesterID string, role models.UserRole) error {
	return s.setStatus(eventID, requesterID, role, models.EventPublished)
}

// Unpublish moves a published event back to draft.
func (s *EventService) Unpublish(eventID, requesterID string, role models.UserRole) error {
	return s.setStatus(eventID, requesterID, role, models.EventDraft)
}

func (s *EventService) setStatus(eventID, requesterID string, role models.UserRole, status models.EventStatus) error {
	event, err := s.requireOwned(eventID, requesterID, role)
	if err != nil {
		return err
	}
	if event.Status == models.EventCanceled {
		return fmt.Errorf("event %s is canceled: %w", eventID, apperr.ErrInvalidState)
	}

	if err := s.DB.SetEventStatus(eventID, status); err != nil {
		return fmt.Errorf("failed to set event status: %w", err)
	}

	if status == models.EventPublished && s.Kafka != nil {
		event.Status = status
		if err := s.Kafka.PublishEventPublished(*event); err != nil {
			fmt.Printf("Kafka publish error (event published): %v\n", err)
		}
	}

	s.invalidate(eventID, requesterID)
	return nil
}

// Delete soft-deletes the event: every ticket referencing it is canceled in
// place (used ones included) and the event transitions to canceled. Sold
// counters are left alone; they are meaningless once the event is gone.
func (s *EventService) Delete(eventID, requesterID string, role models.UserRole) error {
	event, err := s.requireOwned(eventID, requesterID, role)
	if err != nil {
		return err
	}

	if err := s.DB.CancelEventAndTickets(eventID); err != nil {
		return fmt.Errorf("failed to cancel event %s: %w", eventID, err)
	}

	if s.Kafka != nil {
		event.Status = models.EventCanceled
		if err := s.Kafka.PublishEventCanceled(*event); err != nil {
			fmt.Printf("Kafka publish error (event canceled): %v\n", err)
		}
	}

	s.invalidate(eventID, requesterID)
	return nil
}

// requireOwned loads the event and enforces that the requester is an admin
// who organizes it.
func (s *EventService) requireOwned(eventID, requesterID string, role models.UserRole) (*models.Event, error) {
	if role != models.RoleAdmin {
		return nil, fmt.Errorf("admin role required: %w", apperr.ErrUnauthorized)
	}
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, apperr.ErrNotFound)
	}
	if event.OrganizerID != requesterID {
		return nil, fmt.Errorf("not the organizer of event %s: %w", eventID, apperr.ErrUnauthorized)
	}
	return event, nil
}

func (s *EventService) invalidate(eventID, organizerID string) {
	ctx := context.Background()
	s.Views.Invalidate(ctx,
		cache.EventViewKey(eventID),
		cache.EventListKey(),
		cache.OrganizerKey(organizerID),
	)
}

func validateEventInput(in models.EventInput) (time.Time, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Location) == "" || strings.TrimSpace(in.Date) == "" {
		return time.Time{}, fmt.Errorf("title, location and date are required: %w", apperr.ErrValidation)
	}
	if in.Price < 0 {
		return time.Time{}, fmt.Errorf("price must not be negative: %w", apperr.ErrValidation)
	}
	if in.Capacity < 1 {
		return time.Time{}, fmt.Errorf("capacity must be at least 1: %w", apperr.ErrValidation)
	}

	date, err := parseEventDate(in.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", in.Date, apperr.ErrValidation)
	}
	return date, nil
}

func parseEventDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
