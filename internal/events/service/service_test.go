package events_test

import (
	"errors"
	"testing"
	"time"

	"ms-events/internal/apperr"
	events "ms-events/internal/events/service"
	"ms-events/internal/models"
)

// MockEventDB is an in-memory implementation of the EventDBLayer interface
type MockEventDB struct {
	events        map[string]*models.Event
	shouldFailOn  string
	errorToReturn error
	canceledIDs   []string
}

func NewMockEventDB() *MockEventDB {
	return &MockEventDB{events: make(map[string]*models.Event)}
}

func (m *MockEventDB) CreateEvent(event models.Event, tiers []models.TicketType) error {
	if m.shouldFailOn == "CreateEvent" {
		return m.errorToReturn
	}
	event.TicketTypes = tiers
	m.events[event.ID] = &event
	return nil
}

func (m *MockEventDB) GetEventByID(id string) (*models.Event, error) {
	event, ok := m.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	copied := *event
	copied.TicketTypes = append([]models.TicketType(nil), event.TicketTypes...)
	return &copied, nil
}

func (m *MockEventDB) UpdateEvent(event models.Event) error {
	stored, ok := m.events[event.ID]
	if !ok {
		return errors.New("event not found")
	}
	event.TicketTypes = stored.TicketTypes
	m.events[event.ID] = &event
	return nil
}

func (m *MockEventDB) UpdateTier(tier models.TicketType) error {
	event, ok := m.events[tier.EventID]
	if !ok {
		return errors.New("event not found")
	}
	for i := range event.TicketTypes {
		if event.TicketTypes[i].ID == tier.ID {
			sold := event.TicketTypes[i].Sold
			tier.Sold = sold
			event.TicketTypes[i] = tier
			return nil
		}
	}
	return errors.New("ticket type not found")
}

func (m *MockEventDB) SetEventStatus(id string, status models.EventStatus) error {
	event, ok := m.events[id]
	if !ok {
		return errors.New("event not found")
	}
	event.Status = status
	return nil
}

func (m *MockEventDB) CancelEventAndTickets(id string) error {
	event, ok := m.events[id]
	if !ok {
		return errors.New("event not found")
	}
	event.Status = models.EventCanceled
	m.canceledIDs = append(m.canceledIDs, id)
	return nil
}

func (m *MockEventDB) ListPublished(includePrivate bool) ([]models.Event, error) {
	var out []models.Event
	for _, event := range m.events {
		if event.Status != models.EventPublished {
			continue
		}
		if event.IsPrivate && !includePrivate {
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

func (m *MockEventDB) ListByOrganizer(organizerID string) ([]models.Event, error) {
	var out []models.Event
	for _, event := range m.events {
		if event.OrganizerID == organizerID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (m *MockEventDB) CountLiveTickets(eventID string) (int, error) { return 3, nil }
func (m *MockEventDB) CountCheckedIn(eventID string) (int, error)   { return 1, nil }

// MockEventKafka records published lifecycle events.
type MockEventKafka struct {
	published []models.Event
	canceled  []models.Event
}

func (m *MockEventKafka) PublishEventPublished(event models.Event) error {
	m.published = append(m.published, event)
	return nil
}

func (m *MockEventKafka) PublishEventCanceled(event models.Event) error {
	m.canceled = append(m.canceled, event)
	return nil
}

func validInput() models.EventInput {
	return models.EventInput{
		Title:    "Launch Night",
		Location: "Main Hall",
		Date:     time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
		Price:    25.0,
		Capacity: 100,
	}
}

func setupService() (*events.EventService, *MockEventDB, *MockEventKafka) {
	mockDB := NewMockEventDB()
	mockKafka := &MockEventKafka{}
	service := events.NewEventService(mockDB, mockKafka, nil)
	return service, mockDB, mockKafka
}

func TestCreateEvent(t *testing.T) {
	service, _, _ := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.Status != models.EventDraft {
		t.Errorf("Expected new event in draft, got %s", event.Status)
	}
	if len(event.TicketTypes) != 1 {
		t.Fatalf("Expected one default tier, got %d", len(event.TicketTypes))
	}
	tier := event.TicketTypes[0]
	if tier.Name != "General Admission" {
		t.Errorf("Expected General Admission tier, got %s", tier.Name)
	}
	if tier.Category != models.CategoryPaid {
		t.Errorf("Expected paid category for priced tier, got %s", tier.Category)
	}
	if tier.Sold != 0 {
		t.Errorf("Expected sold starting at 0, got %d", tier.Sold)
	}
}

func TestCreateEventFreeTier(t *testing.T) {
	service, _, _ := setupService()

	in := validInput()
	in.Price = 0

	event, err := service.Create("org1", models.RoleAdmin, in)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if event.TicketTypes[0].Category != models.CategoryFree {
		t.Errorf("Expected free category for zero price, got %s", event.TicketTypes[0].Category)
	}
}

func TestCreateEventRequiresAdmin(t *testing.T) {
	service, _, _ := setupService()

	_, err := service.Create("user1", models.RoleAttendee, validInput())
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestCreateEventValidation(t *testing.T) {
	service, _, _ := setupService()

	cases := []struct {
		name   string
		mutate func(*models.EventInput)
	}{
		{"missing title", func(in *models.EventInput) { in.Title = " " }},
		{"missing location", func(in *models.EventInput) { in.Location = "" }},
		{"bad date", func(in *models.EventInput) { in.Date = "next tuesday" }},
		{"negative price", func(in *models.EventInput) { in.Price = -1 }},
		{"zero capacity", func(in *models.EventInput) { in.Capacity = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := service.Create("org1", models.RoleAdmin, in); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestGetEventWithCounts(t *testing.T) {
	service, _, _ := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	view, err := service.Get(event.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if view.TotalRegistered != 3 {
		t.Errorf("Expected 3 registered, got %d", view.TotalRegistered)
	}
	if view.TotalCheckedIn != 1 {
		t.Errorf("Expected 1 checked in, got %d", view.TotalCheckedIn)
	}
}

func TestUpdateEvent(t *testing.T) {
	service, mockDB, _ := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	in := validInput()
	in.Title = "Launch Night, Round Two"
	in.Price = 0
	in.Capacity = 50

	updated, err := service.Update(event.ID, "org1", models.RoleAdmin, in)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Title != in.Title {
		t.Errorf("Expected updated title, got %q", updated.Title)
	}

	stored := mockDB.events[event.ID]
	if stored.TicketTypes[0].Price != 0 {
		t.Errorf("Expected tier price updated to 0, got %.2f", stored.TicketTypes[0].Price)
	}
	if stored.TicketTypes[0].Category != models.CategoryFree {
		t.Errorf("Expected tier recategorized as free, got %s", stored.TicketTypes[0].Category)
	}
	if stored.TicketTypes[0].Capacity != 50 {
		t.Errorf("Expected tier capacity 50, got %d", stored.TicketTypes[0].Capacity)
	}
}

func TestUpdateEventNotOrganizer(t *testing.T) {
	service, _, _ := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = service.Update(event.ID, "org2", models.RoleAdmin, validInput())
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for foreign organizer, got %v", err)
	}
}

func TestPublishAndUnpublish(t *testing.T) {
	service, mockDB, mockKafka := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.Publish(event.ID, "org1", models.RoleAdmin); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if mockDB.events[event.ID].Status != models.EventPublished {
		t.Errorf("Expected published, got %s", mockDB.events[event.ID].Status)
	}
	if len(mockKafka.published) != 1 {
		t.Errorf("Expected publish event on Kafka, got %d", len(mockKafka.published))
	}

	if err := service.Unpublish(event.ID, "org1", models.RoleAdmin); err != nil {
		t.Fatalf("Unpublish failed: %v", err)
	}
	if mockDB.events[event.ID].Status != models.EventDraft {
		t.Errorf("Expected draft after unpublish, got %s", mockDB.events[event.ID].Status)
	}
}

func TestPublishCanceledEvent(t *testing.T) {
	service, mockDB, _ := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mockDB.events[event.ID].Status = models.EventCanceled

	err = service.Publish(event.ID, "org1", models.RoleAdmin)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	service, mockDB, mockKafka := setupService()

	event, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.Delete(event.ID, "org1", models.RoleAdmin); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(mockDB.canceledIDs) != 1 || mockDB.canceledIDs[0] != event.ID {
		t.Error("Expected the ticket cascade to run for the deleted event")
	}
	if mockDB.events[event.ID].Status != models.EventCanceled {
		t.Errorf("Expected event canceled, got %s", mockDB.events[event.ID].Status)
	}
	if len(mockKafka.canceled) != 1 {
		t.Errorf("Expected cancel event on Kafka, got %d", len(mockKafka.canceled))
	}
}

func TestListPublishedVisibility(t *testing.T) {
	service, mockDB, _ := setupService()

	public, err := service.Create("org1", models.RoleAdmin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	in := validInput()
	in.IsPrivate = true
	private, err := service.Create("org1", models.RoleAdmin, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mockDB.events[public.ID].Status = models.EventPublished
	mockDB.events[private.ID].Status = models.EventPublished

	anonymous, err := service.ListPublished(false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(anonymous) != 1 {
		t.Errorf("Expected anonymous caller to see 1 event, got %d", len(anonymous))
	}

	loggedIn, err := service.ListPublished(true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(loggedIn) != 2 {
		t.Errorf("Expected logged-in caller to see 2 events, got %d", len(loggedIn))
	}
}
