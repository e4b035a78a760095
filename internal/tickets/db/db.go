package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

var (
	// ErrTierNotFound means the sold-counter update matched no tier row.
	// Registration treats this as a hard failure instead of silently
	// issuing a ticket against a counter that never moved.
	ErrTierNotFound = errors.New("ticket type not found for event")

	// ErrCapacityReached is returned only when capacity enforcement is on.
	ErrCapacityReached = errors.New("ticket type capacity reached")
)

type DB struct {
	Bun *bun.DB
}

// CreateTicketAndIncrementSold issues a ticket and bumps its tier's sold
// counter in one transaction, so the counter and the row never drift apart
// on a partial failure. The counter moves via an atomic delta update, not
// read-modify-write.
func (d *DB) CreateTicketAndIncrementSold(ticket models.Ticket, enforceCapacity bool) error {
	return d.Bun.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.TicketType)(nil)).
			Set("sold = sold + 1").
			Where("id = ?", ticket.TicketTypeID).
			Where("event_id = ?", ticket.EventID)
		if enforceCapacity {
			q = q.Where("sold < capacity")
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			if enforceCapacity {
				// Distinguish a missing tier from a full one.
				exists, err := tx.NewSelect().
					Model((*models.TicketType)(nil)).
					Where("id = ?", ticket.TicketTypeID).
					Where("event_id = ?", ticket.EventID).
					Exists(ctx)
				if err != nil {
					return err
				}
				if exists {
					return ErrCapacityReached
				}
			}
			return ErrTierNotFound
		}

		_, err = tx.NewInsert().Model(&ticket).Exec(ctx)
		return err
	})
}

// DeleteTicketAndDecrementSold removes the ticket row and walks the sold
// counter back down, clamped at zero so replayed cancels can't drive it
// negative.
func (d *DB) DeleteTicketAndDecrementSold(ticket models.Ticket) error {
	return d.Bun.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("id = ?", ticket.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return sql.ErrNoRows
		}

		_, err = tx.NewUpdate().
			Model((*models.TicketType)(nil)).
			Set("sold = sold - 1").
			Where("id = ?", ticket.TicketTypeID).
			Where("event_id = ?", ticket.EventID).
			Where("sold > 0").
			Exec(ctx)
		return err
	})
}

func (d *DB) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketByCode(code string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("code = ?", code).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// MarkUsedByCode is the check-in transition: a conditional update that only
// fires while the ticket is still valid. Of two simultaneous scans exactly
// one sees rows=1; the loser observes the ticket as already used.
func (d *DB) MarkUsedByCode(code string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketUsed).
		Set("checked_in_at = ?", at).
		Set("updated_at = ?", at).
		Where("code = ?", code).
		Where("status = ?", models.TicketValid).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (d *DB) GetTicketsByUser(userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	return tickets, err
}

// GetLiveTicketForUser returns the user's non-canceled ticket for an event,
// if any. One live ticket per (event, user) is the intended policy.
func (d *DB) GetLiveTicketForUser(eventID, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Where("status != ?", models.TicketCanceled).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UserName resolves an attendee's display name for the check-in terminal.
func (d *DB) UserName(userID string) (string, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Column("name").
		Where("id = ?", userID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

func (d *DB) EventTitle(eventID string) (string, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Column("title", "date").
		Where("id = ?", eventID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return "", err
	}
	return event.Title, nil
}

// GetEvent fetches the event a ticket belongs to (without tiers).
func (d *DB) GetEvent(eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetTierByID resolves an admission tier.
func (d *DB) GetTierByID(tierID string) (*models.TicketType, error) {
	var tier models.TicketType
	err := d.Bun.NewSelect().
		Model(&tier).
		Where("id = ?", tierID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &tier, nil
}
