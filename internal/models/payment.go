package models

import "time"

// Charge is the mock payment record written by the payment service when a
// paid-tier ticket is issued. ProviderRef mimics a gateway intent ID but no
// settlement ever happens.
type Charge struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Amount      int64     `json:"amount"` // minor units
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketIssuedEvent is the Kafka message published on registration and
// consumed by the payment service.
type TicketIssuedEvent struct {
	TicketID       string  `json:"ticket_id"`
	EventID        string  `json:"event_id"`
	UserID         string  `json:"user_id"`
	TicketTypeID   string  `json:"ticket_type_id"`
	TicketTypeName string  `json:"ticket_type_name"`
	Price          float64 `json:"price"`
}
