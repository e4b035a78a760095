package storage

import (
	"database/sql"
	"fmt"

	"ms-events/internal/logger"
	"ms-events/internal/models"

	_ "github.com/lib/pq"
)

type PostgreSQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgreSQLStoreWithDB creates a charge store on an existing connection.
func NewPostgreSQLStoreWithDB(db *sql.DB, log *logger.Logger) (*PostgreSQLStore, error) {
	store := &PostgreSQLStore{
		db:  db,
		log: log,
	}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize charge tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize charge tables: %w", err)
	}

	log.Info("DATABASE", "Charge storage initialized")
	return store, nil
}

func NewPostgreSQLStore(dsn string, log *logger.Logger) (*PostgreSQLStore, error) {
	log.LogDatabase("CONNECT", "postgresql", "Connecting to PostgreSQL for charge storage")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open PostgreSQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping PostgreSQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgreSQLStoreWithDB(db, log)
}

func (s *PostgreSQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "postgresql", "Creating charges table if not exists")

	chargesQuery := `
    CREATE TABLE IF NOT EXISTS charges (
        id VARCHAR(36) PRIMARY KEY,
        ticket_id VARCHAR(36) NOT NULL,
        event_id VARCHAR(36) NOT NULL,
        user_id VARCHAR(64) NOT NULL,
        amount BIGINT NOT NULL,
        currency VARCHAR(3) NOT NULL,
        provider_ref VARCHAR(64) NOT NULL,
        status VARCHAR(50) NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `

	if _, err := s.db.Exec(chargesQuery); err != nil {
		return fmt.Errorf("failed to create charges table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_charges_ticket_id ON charges(ticket_id);",
		"CREATE INDEX IF NOT EXISTS idx_charges_event_id ON charges(event_id);",
		"CREATE INDEX IF NOT EXISTS idx_charges_created_at ON charges(created_at);",
	}

	for _, indexQuery := range indexes {
		if _, err := s.db.Exec(indexQuery); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "postgresql", "Charge tables and indexes ready")
	return nil
}

// SaveCharge writes a new charge record.
func (s *PostgreSQLStore) SaveCharge(charge *models.Charge) error {
	s.log.LogDatabase("INSERT", "postgresql", fmt.Sprintf("Saving charge %s", charge.ID))

	query := `
    INSERT INTO charges (
        id, ticket_id, event_id, user_id, amount, currency, provider_ref, status, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := s.db.Exec(query,
		charge.ID, charge.TicketID, charge.EventID, charge.UserID,
		charge.Amount, charge.Currency, charge.ProviderRef, charge.Status, charge.CreatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save charge %s: %s", charge.ID, err.Error()))
		return fmt.Errorf("failed to save charge: %w", err)
	}

	return nil
}

// GetCharge retrieves a charge by ID.
func (s *PostgreSQLStore) GetCharge(id string) (*models.Charge, error) {
	query := `
    SELECT id, ticket_id, event_id, user_id, amount, currency, provider_ref, status, created_at
    FROM charges WHERE id = $1
    `

	charge := &models.Charge{}
	err := s.db.QueryRow(query, id).Scan(
		&charge.ID, &charge.TicketID, &charge.EventID, &charge.UserID,
		&charge.Amount, &charge.Currency, &charge.ProviderRef, &charge.Status, &charge.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "postgresql", fmt.Sprintf("Charge %s not found", id))
			return nil, fmt.Errorf("charge not found")
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get charge %s: %s", id, err.Error()))
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	return charge, nil
}

// GetChargeByTicketID retrieves the charge recorded for a ticket.
func (s *PostgreSQLStore) GetChargeByTicketID(ticketID string) (*models.Charge, error) {
	query := `
    SELECT id, ticket_id, event_id, user_id, amount, currency, provider_ref, status, created_at
    FROM charges WHERE ticket_id = $1
    `

	charge := &models.Charge{}
	err := s.db.QueryRow(query, ticketID).Scan(
		&charge.ID, &charge.TicketID, &charge.EventID, &charge.UserID,
		&charge.Amount, &charge.Currency, &charge.ProviderRef, &charge.Status, &charge.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("charge not found")
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get charge for ticket %s: %s", ticketID, err.Error()))
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	return charge, nil
}

// ListCharges retrieves charges for an event, newest first.
func (s *PostgreSQLStore) ListCharges(eventID string, limit, offset int) ([]*models.Charge, error) {
	query := `
    SELECT id, ticket_id, event_id, user_id, amount, currency, provider_ref, status, created_at
    FROM charges
    WHERE event_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
    `

	rows, err := s.db.Query(query, eventID, limit, offset)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list charges: %s", err.Error()))
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	defer rows.Close()

	var charges []*models.Charge
	for rows.Next() {
		charge := &models.Charge{}
		err := rows.Scan(
			&charge.ID, &charge.TicketID, &charge.EventID, &charge.UserID,
			&charge.Amount, &charge.Currency, &charge.ProviderRef, &charge.Status, &charge.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, charge)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return charges, nil
}

func (s *PostgreSQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "postgresql", "Closing PostgreSQL connection")
	return s.db.Close()
}

func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}
