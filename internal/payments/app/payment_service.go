package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/payments"
)

// Ledger is the slice of the wallet service top-ups need.
type Ledger interface {
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
	HasReference(ctx context.Context, ownerID uuid.UUID, reference string) (bool, error)
}

// Reactivator lifts a billing suspension after money arrives. Satisfied by
// the billing cycle runner.
type Reactivator interface {
	Reactivate(ctx context.Context, ownerID uuid.UUID) error
}

// PaymentService turns processor charges into wallet credits. The
// processor's charge id is the ledger reference, so a replayed confirmation
// can never credit twice.
type PaymentService struct {
	gateway     payments.Gateway
	ledger      Ledger
	reactivator Reactivator
	logger      *slog.Logger
}

func NewPaymentService(gateway payments.Gateway, ledger Ledger, reactivator Reactivator, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		gateway:     gateway,
		ledger:      ledger,
		reactivator: reactivator,
		logger:      logger.With("service", "payments"),
	}
}

// AddFunds charges the processor synchronously and credits the wallet.
func (s *PaymentService) AddFunds(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, method string) (*ledgerdomain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	result, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		OwnerID: ownerID,
		Amount:  amount,
		Method:  method,
	})
	if err != nil {
		return nil, fmt.Errorf("payment charge: %w", err)
	}

	tx, err := s.credit(ctx, ownerID, amount, result.ProviderRef)
	if err != nil {
		// Charge captured but credit failed: the webhook retry path will
		// reconcile via the same reference.
		s.logger.ErrorContext(ctx, "credit after successful charge failed",
			"error", err, "user_id", ownerID, "provider_ref", result.ProviderRef)
		return nil, err
	}
	return tx, nil
}

// HandleWebhook applies an asynchronous payment confirmation. Replays are
// acknowledged without a second credit.
func (s *PaymentService) HandleWebhook(ctx context.Context, ownerID uuid.UUID, providerRef string, amount decimal.Decimal) error {
	reference := "payment:" + providerRef
	seen, err := s.ledger.HasReference(ctx, ownerID, reference)
	if err != nil {
		return err
	}
	if seen {
		s.logger.InfoContext(ctx, "replayed payment confirmation acknowledged",
			"user_id", ownerID, "provider_ref", providerRef)
		return nil
	}

	_, err = s.credit(ctx, ownerID, amount, providerRef)
	return err
}

func (s *PaymentService) credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, providerRef string) (*ledgerdomain.Transaction, error) {
	tx, err := s.ledger.Credit(ctx, ownerID, amount, "wallet top-up", "payment:"+providerRef)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "wallet topped up",
		"user_id", ownerID, "amount", amount, "provider_ref", providerRef)

	if s.reactivator != nil {
		if err := s.reactivator.Reactivate(ctx, ownerID); err != nil {
			// Not fatal: the next billing cycle retries the charge.
			s.logger.WarnContext(ctx, "post-top-up reactivation did not complete",
				"error", err, "user_id", ownerID)
		}
	}
	return tx, nil
}
