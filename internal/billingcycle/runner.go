// Package billingcycle charges recurring number rental fees. Each cycle
// walks every owner holding numbers, debits the period's rental total, and
// suspends service for owners whose wallet cannot cover it. Suspension is
// reversible: the next successful charge (or an explicit reactivation)
// clears it.
package billingcycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// Ledger is the slice of the wallet service the runner needs.
type Ledger interface {
	Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
	SetSuspended(ctx context.Context, ownerID uuid.UUID, suspended bool) error
}

// CycleResult summarizes one billing pass.
type CycleResult struct {
	Charged   int
	Suspended int
	Errors    int
}

type Runner struct {
	numberRepo numberingrepo.NumberRepository
	ledger     Ledger
	db         database.Querier
	interval   time.Duration
	logger     *slog.Logger
}

func NewRunner(
	numberRepo numberingrepo.NumberRepository,
	ledger Ledger,
	db database.Querier,
	interval time.Duration,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		numberRepo: numberRepo,
		ledger:     ledger,
		db:         db,
		interval:   interval,
		logger:     logger.With("service", "billingcycle"),
	}
}

// Start runs cycles on the configured interval until the context ends. The
// first cycle fires after one full interval, not at startup, so a restart
// does not double-charge.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "billing cycle started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("billing cycle stopped")
			return
		case <-ticker.C:
			result, err := r.RunCycle(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "billing cycle failed", "error", err)
				continue
			}
			r.logger.InfoContext(ctx, "billing cycle complete",
				"charged", result.Charged, "suspended", result.Suspended, "errors", result.Errors)
		}
	}
}

// RunCycle charges every owner once. A failed charge suspends the owner but
// never aborts the pass: the remaining owners are still billed.
func (r *Runner) RunCycle(ctx context.Context) (CycleResult, error) {
	cyclesTotal.Inc()

	rentals, err := r.numberRepo.ListOwnerRentals(ctx, r.db)
	if err != nil {
		return CycleResult{}, fmt.Errorf("listing rentals: %w", err)
	}

	var result CycleResult
	reference := "rental:" + time.Now().UTC().Format("2006-01-02T15:04")
	for _, rental := range rentals {
		if err := r.chargeOwner(ctx, rental, reference); err != nil {
			if errors.Is(err, ledgerdomain.ErrInsufficientBalance) || errors.Is(err, ledgerdomain.ErrWalletNotFound) {
				result.Suspended++
				continue
			}
			result.Errors++
			r.logger.ErrorContext(ctx, "rental charge errored",
				"error", err, "user_id", rental.UserID)
			continue
		}
		result.Charged++
	}
	return result, nil
}

func (r *Runner) chargeOwner(ctx context.Context, rental numberingrepo.OwnerRental, reference string) error {
	description := fmt.Sprintf("monthly number rental (%d numbers)", rental.NumberCount)
	_, err := r.ledger.Debit(ctx, rental.UserID, rental.Total, description, reference)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrInsufficientBalance) || errors.Is(err, ledgerdomain.ErrWalletNotFound) {
			chargesTotal.WithLabelValues("suspended").Inc()
			r.logger.WarnContext(ctx, "rental charge unpayable, suspending service",
				"user_id", rental.UserID, "amount", rental.Total)
			if susErr := r.ledger.SetSuspended(ctx, rental.UserID, true); susErr != nil {
				return susErr
			}
		} else {
			chargesTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	chargesTotal.WithLabelValues("charged").Inc()
	// A paying owner is never left suspended from an earlier cycle.
	return r.ledger.SetSuspended(ctx, rental.UserID, false)
}

// Reactivate charges the owner's outstanding rental immediately and lifts
// the suspension on success. Called after a top-up instead of waiting for
// the next cycle.
func (r *Runner) Reactivate(ctx context.Context, ownerID uuid.UUID) error {
	numbers, err := r.numberRepo.ListActiveByOwner(ctx, r.db, ownerID)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, n := range numbers {
		total = total.Add(n.Price)
	}
	if total.IsZero() {
		return r.ledger.SetSuspended(ctx, ownerID, false)
	}

	reference := "rental-reactivation:" + time.Now().UTC().Format("2006-01-02T15:04")
	description := fmt.Sprintf("monthly number rental (%d numbers)", len(numbers))
	if _, err := r.ledger.Debit(ctx, ownerID, total, description, reference); err != nil {
		return err
	}
	return r.ledger.SetSuspended(ctx, ownerID, false)
}
