package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

var ErrInvalidAmount = errors.New("invalid charge amount")

// MockGateway fabricates gateway results in the shape a Stripe payment
// intent would have. Nothing ever leaves the process and no card data is
// touched; free tiers short-circuit to a zero-amount success.
type MockGateway struct {
	currency string
	log      *logger.Logger
}

func NewMockGateway(currency string, log *logger.Logger) *MockGateway {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &MockGateway{
		currency: currency,
		log:      log,
	}
}

// Charge records a fabricated successful charge for an issued ticket.
// price is in major units and is converted to minor units for storage.
func (g *MockGateway) Charge(issued models.TicketIssuedEvent) (*models.Charge, error) {
	if issued.Price < 0 {
		g.log.Error("GATEWAY", fmt.Sprintf("Invalid price %.2f for ticket %s", issued.Price, issued.TicketID))
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidAmount, issued.Price)
	}

	amountInCents := int64(issued.Price * 100)

	status := string(stripe.PaymentIntentStatusSucceeded)
	if amountInCents == 0 {
		g.log.Info("GATEWAY", fmt.Sprintf("Free tier %q, recording zero-amount charge for ticket %s",
			issued.TicketTypeName, issued.TicketID))
	}

	charge := &models.Charge{
		ID:          uuid.NewString(),
		TicketID:    issued.TicketID,
		EventID:     issued.EventID,
		UserID:      issued.UserID,
		Amount:      amountInCents,
		Currency:    g.currency,
		ProviderRef: fmt.Sprintf("pi_mock_%s", uuid.NewString()[:8]),
		Status:      status,
		CreatedAt:   time.Now(),
	}

	g.log.Info("GATEWAY", fmt.Sprintf("Charge %s recorded for ticket %s: %d %s",
		charge.ID, charge.TicketID, charge.Amount, charge.Currency))
	return charge, nil
}
