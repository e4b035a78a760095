package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent inserts the event together with its admission tiers.
func (d *DB) CreateEvent(event models.Event, tiers []models.TicketType) error {
	return d.Bun.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&event).Exec(ctx); err != nil {
			return err
		}
		if len(tiers) > 0 {
			if _, err := tx.NewInsert().Model(&tiers).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEventByID fetches one event with its tiers.
func (d *DB) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("TicketTypes").
		Where("e.id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("title", "description", "location", "date", "is_private", "updated_at").
		Where("id = ?", event.ID).
		Exec(context.Background())
	return err
}

// UpdateTier rewrites a tier's pricing and capacity. Sold is deliberately
// not a settable column here; only the lifecycle engine moves it.
func (d *DB) UpdateTier(tier models.TicketType) error {
	_, err := d.Bun.NewUpdate().
		Model(&tier).
		Column("name", "description", "price", "capacity", "category").
		Where("id = ?", tier.ID).
		Where("event_id = ?", tier.EventID).
		Exec(context.Background())
	return err
}

func (d *DB) SetEventStatus(id string, status models.EventStatus) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", status).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(context.Background())
	return err
}

// CancelEventAndTickets is the delete-event cascade: every ticket of the
// event flips to canceled regardless of prior state, then the event itself
// goes to canceled. One transaction, so a half-canceled event never shows.
func (d *DB) CancelEventAndTickets(id string) error {
	return d.Bun.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("status = ?", models.TicketCanceled).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("status = ?", models.EventCanceled).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

// ListPublished returns published events ordered by date. Private events
// are hidden unless the caller is logged in.
func (d *DB) ListPublished(includePrivate bool) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Relation("TicketTypes").
		Where("e.status = ?", models.EventPublished).
		Order("date ASC")
	if !includePrivate {
		q = q.Where("is_private = ?", false)
	}
	err := q.Scan(context.Background())
	return events, err
}

func (d *DB) ListByOrganizer(organizerID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("TicketTypes").
		Where("organizer_id = ?", organizerID).
		Order("date ASC").
		Scan(context.Background())
	return events, err
}

// CountLiveTickets recounts tickets that still hold a seat (anything not
// canceled), the source of truth the sold counters are checked against.
func (d *DB) CountLiveTickets(eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Where("status != ?", models.TicketCanceled).
		Count(context.Background())
}

func (d *DB) CountCheckedIn(eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.TicketUsed).
		Count(context.Background())
}
