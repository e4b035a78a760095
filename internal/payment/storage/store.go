package storage

import (
	"ms-events/internal/models"
)

type Store interface {
	// Charge operations
	SaveCharge(charge *models.Charge) error
	GetCharge(id string) (*models.Charge, error)
	GetChargeByTicketID(ticketID string) (*models.Charge, error)
	ListCharges(eventID string, limit, offset int) ([]*models.Charge, error)

	// Health and maintenance
	Close() error
	HealthCheck() error
}
