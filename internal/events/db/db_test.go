package db_test

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/events/db"
	"ms-events/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.Ticket)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to reset model %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}
}

func sampleEvent(id string, status models.EventStatus, private bool) models.Event {
	now := time.Now()
	return models.Event{
		ID:          id,
		Title:       "Launch Night " + id,
		Location:    "Main Hall",
		Date:        now.AddDate(0, 1, 0),
		OrganizerID: "org1",
		Status:      status,
		IsPrivate:   private,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func sampleTier(id, eventID string) models.TicketType {
	return models.TicketType{
		ID:       id,
		EventID:  eventID,
		Name:     "General Admission",
		Price:    25.0,
		Capacity: 100,
		Category: models.CategoryPaid,
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	d := setupTestDB(t)

	event := sampleEvent("event1", models.EventDraft, false)
	tier := sampleTier("tier1", "event1")

	if err := d.CreateEvent(event, []models.TicketType{tier}); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	got, err := d.GetEventByID("event1")
	if err != nil {
		t.Fatalf("Failed to fetch event: %v", err)
	}
	if got.Title != event.Title {
		t.Errorf("Expected title %q, got %q", event.Title, got.Title)
	}
	if len(got.TicketTypes) != 1 {
		t.Fatalf("Expected one tier loaded, got %d", len(got.TicketTypes))
	}
	if got.TicketTypes[0].ID != "tier1" {
		t.Errorf("Expected tier1, got %s", got.TicketTypes[0].ID)
	}
}

func TestSetEventStatus(t *testing.T) {
	d := setupTestDB(t)

	if err := d.CreateEvent(sampleEvent("event1", models.EventDraft, false), nil); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	if err := d.SetEventStatus("event1", models.EventPublished); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	got, err := d.GetEventByID("event1")
	if err != nil {
		t.Fatalf("Failed to fetch event: %v", err)
	}
	if got.Status != models.EventPublished {
		t.Errorf("Expected published, got %s", got.Status)
	}
}

func TestCancelEventAndTickets(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	if err := d.CreateEvent(sampleEvent("event1", models.EventPublished, false), []models.TicketType{sampleTier("tier1", "event1")}); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	stamp := time.Now()
	ticketRows := []models.Ticket{
		{ID: "t1", EventID: "event1", UserID: "u1", TicketTypeID: "tier1", TicketTypeName: "General Admission", Code: "c1", Status: models.TicketValid, CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "t2", EventID: "event1", UserID: "u2", TicketTypeID: "tier1", TicketTypeName: "General Admission", Code: "c2", Status: models.TicketUsed, CheckedInAt: &stamp, CreatedAt: stamp, UpdatedAt: stamp},
	}
	if _, err := d.Bun.NewInsert().Model(&ticketRows).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert tickets: %v", err)
	}
	if _, err := d.Bun.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("sold = ?", 2).
		Where("id = ?", "tier1").
		Exec(ctx); err != nil {
		t.Fatalf("Failed to set sold counter: %v", err)
	}

	if err := d.CancelEventAndTickets("event1"); err != nil {
		t.Fatalf("Cascade failed: %v", err)
	}

	event, err := d.GetEventByID("event1")
	if err != nil {
		t.Fatalf("Failed to fetch event: %v", err)
	}
	if event.Status != models.EventCanceled {
		t.Errorf("Expected event canceled, got %s", event.Status)
	}

	// Every ticket goes to canceled, the used one included.
	var ticketsAfter []models.Ticket
	if err := d.Bun.NewSelect().Model(&ticketsAfter).Where("event_id = ?", "event1").Scan(ctx); err != nil {
		t.Fatalf("Failed to fetch tickets: %v", err)
	}
	for _, ticket := range ticketsAfter {
		if ticket.Status != models.TicketCanceled {
			t.Errorf("Expected ticket %s canceled, got %s", ticket.ID, ticket.Status)
		}
	}

	// The cascade leaves sold counters alone.
	if event.TicketTypes[0].Sold != 2 {
		t.Errorf("Expected sold untouched at 2, got %d", event.TicketTypes[0].Sold)
	}
}

func TestListPublishedHidesPrivateForAnonymous(t *testing.T) {
	d := setupTestDB(t)

	if err := d.CreateEvent(sampleEvent("public1", models.EventPublished, false), nil); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if err := d.CreateEvent(sampleEvent("private1", models.EventPublished, true), nil); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if err := d.CreateEvent(sampleEvent("draft1", models.EventDraft, false), nil); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	anonymous, err := d.ListPublished(false)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(anonymous) != 1 || anonymous[0].ID != "public1" {
		t.Errorf("Expected anonymous listing to contain only public1, got %d events", len(anonymous))
	}

	loggedIn, err := d.ListPublished(true)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(loggedIn) != 2 {
		t.Errorf("Expected logged-in listing to contain 2 published events, got %d", len(loggedIn))
	}
}

// setupMigratedDB builds the schema from the real migration DDL instead of
// the bun models, so drift between the two surfaces here and not in
// production.
func setupMigratedDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:migrated_schema?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}

	ddl, err := os.ReadFile("../../../migrations/000001_init_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	ctx := context.Background()
	for _, table := range []string{"tickets", "ticket_types", "events", "users"} {
		if _, err := sqldb.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Fatalf("Failed to drop %s: %v", table, err)
		}
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		// sqlite gives DECIMAL columns NUMERIC affinity, storing integral
		// prices as INTEGER, which bun refuses to scan into float64.
		stmt = strings.ReplaceAll(stmt, "DECIMAL(10,2)", "REAL")
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to apply migration statement %q: %v", stmt, err)
		}
	}

	return &db.DB{Bun: bun.NewDB(sqldb, sqlitedialect.New())}
}

func TestStoreAgainstMigratedSchema(t *testing.T) {
	d := setupMigratedDB(t)
	ctx := context.Background()

	event := sampleEvent("event1", models.EventDraft, false)
	tier := sampleTier("tier1", "event1")
	tier.Description = "Standing room on the main floor"

	if err := d.CreateEvent(event, []models.TicketType{tier}); err != nil {
		t.Fatalf("CreateEvent failed against the migrated schema: %v", err)
	}

	got, err := d.GetEventByID("event1")
	if err != nil {
		t.Fatalf("Failed to fetch event: %v", err)
	}
	if len(got.TicketTypes) != 1 || got.TicketTypes[0].Description != tier.Description {
		t.Error("Expected the tier description to round-trip through the migrated schema")
	}

	tier.Price = 30.0
	if err := d.UpdateTier(tier); err != nil {
		t.Fatalf("UpdateTier failed against the migrated schema: %v", err)
	}

	stamp := time.Now()
	ticket := models.Ticket{
		ID: "t1", EventID: "event1", UserID: "u1",
		TicketTypeID: "tier1", TicketTypeName: "General Admission",
		Code: "c1", Status: models.TicketValid, CreatedAt: stamp, UpdatedAt: stamp,
	}
	if _, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx); err != nil {
		t.Fatalf("Ticket insert failed against the migrated schema: %v", err)
	}

	if err := d.CancelEventAndTickets("event1"); err != nil {
		t.Fatalf("Cascade failed against the migrated schema: %v", err)
	}
}

func TestCounts(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	if err := d.CreateEvent(sampleEvent("event1", models.EventPublished, false), []models.TicketType{sampleTier("tier1", "event1")}); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	stamp := time.Now()
	ticketRows := []models.Ticket{
		{ID: "t1", EventID: "event1", UserID: "u1", TicketTypeID: "tier1", TicketTypeName: "General Admission", Code: "c1", Status: models.TicketValid, CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "t2", EventID: "event1", UserID: "u2", TicketTypeID: "tier1", TicketTypeName: "General Admission", Code: "c2", Status: models.TicketUsed, CheckedInAt: &stamp, CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "t3", EventID: "event1", UserID: "u3", TicketTypeID: "tier1", TicketTypeName: "General Admission", Code: "c3", Status: models.TicketCanceled, CreatedAt: stamp, UpdatedAt: stamp},
	}
	if _, err := d.Bun.NewInsert().Model(&ticketRows).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert tickets: %v", err)
	}

	live, err := d.CountLiveTickets("event1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if live != 2 {
		t.Errorf("Expected 2 live tickets, got %d", live)
	}

	checkedIn, err := d.CountCheckedIn("event1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if checkedIn != 1 {
		t.Errorf("Expected 1 checked-in ticket, got %d", checkedIn)
	}
}
