// Package payments defines the port to the card payment processor used for
// wallet top-ups. The ledger is the source of truth; the processor only
// confirms that money arrived.
package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrChargeFailed = errors.New("payment charge failed")

// ChargeRequest asks the processor to capture a card payment.
type ChargeRequest struct {
	OwnerID  uuid.UUID
	Amount   decimal.Decimal
	Currency string
	// Method is the processor-side payment method token.
	Method string
}

// ChargeResult is the processor's acknowledgement.
type ChargeResult struct {
	// ProviderRef is the processor's charge id, used as the idempotency
	// reference on the ledger credit.
	ProviderRef string
	Status      string
}

// Gateway is the interface every payment processor adapter implements.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Name() string
}
