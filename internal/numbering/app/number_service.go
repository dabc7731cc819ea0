package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
	"github.com/textlane/textlane/internal/smsprovider"
)

// Biller is the slice of the ledger the number service needs: purchases are
// debited, failed provider calls refunded.
type Biller interface {
	Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
}

// NumberService manages the phone number inventory for admin tenants.
type NumberService struct {
	numberRepo repository.NumberRepository
	provider   smsprovider.Adapter
	biller     Biller
	db         database.Querier
	txr        database.TxRunner
	logger     *slog.Logger
}

func NewNumberService(
	numberRepo repository.NumberRepository,
	provider smsprovider.Adapter,
	biller Biller,
	db database.Querier,
	txr database.TxRunner,
	logger *slog.Logger,
) *NumberService {
	return &NumberService{
		numberRepo: numberRepo,
		provider:   provider,
		biller:     biller,
		db:         db,
		txr:        txr,
		logger:     logger.With("service", "numbering"),
	}
}

// List returns every number the admin owns, released ones included.
func (s *NumberService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.PhoneNumber, error) {
	return s.numberRepo.ListByOwner(ctx, s.db, ownerID)
}

// SearchAvailable asks the provider for purchasable numbers.
func (s *NumberService) SearchAvailable(ctx context.Context, areaCode string) ([]smsprovider.AvailableNumber, error) {
	return s.provider.SearchAvailable(ctx, areaCode)
}

// Activate selects one number for sending. The clear-all-then-set-one pair
// runs in a single transaction so concurrent activations cannot leave two
// numbers flagged; a conditional-update miss is retried once.
func (s *NumberService) Activate(ctx context.Context, ownerID, numberID uuid.UUID) (*domain.PhoneNumber, error) {
	activate := func() error {
		return s.txr.InTx(ctx, func(q database.Querier) error {
			number, err := s.numberRepo.GetByID(ctx, q, numberID)
			if err != nil {
				return err
			}
			if number.UserID != ownerID {
				return domain.ErrNotOwner
			}
			if number.Status != domain.NumberStatusActive {
				return domain.ErrNumberInactive
			}

			if err := s.numberRepo.ClearActive(ctx, q, ownerID); err != nil {
				return err
			}
			rows, err := s.numberRepo.SetActive(ctx, q, ownerID, numberID)
			if err != nil {
				return err
			}
			if rows == 0 {
				return domain.ErrActivationConflict
			}
			return nil
		})
	}

	err := activate()
	if errors.Is(err, domain.ErrActivationConflict) {
		s.logger.WarnContext(ctx, "activation conflict, retrying once", "number_id", numberID)
		err = activate()
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "number activated", "user_id", ownerID, "number_id", numberID)
	return s.numberRepo.GetByID(ctx, s.db, numberID)
}

// Purchase buys a number from the provider, charges the wallet, and records
// the local row. The first number an admin owns is activated for sending.
func (s *NumberService) Purchase(ctx context.Context, ownerID uuid.UUID, number string) (*domain.PhoneNumber, error) {
	if existing, err := s.numberRepo.GetByNumber(ctx, s.db, number); err == nil && existing != nil {
		return nil, domain.ErrDuplicateNumber
	} else if err != nil && !errors.Is(err, domain.ErrNumberNotFound) {
		return nil, err
	}

	purchased, err := s.provider.Purchase(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("provider purchase failed: %w", err)
	}

	reference := "number:" + number
	if _, err := s.biller.Debit(ctx, ownerID, purchased.MonthlyPrice, "phone number purchase "+number, reference); err != nil {
		// Roll the provider purchase back so the tenant is not holding a
		// number it never paid for.
		if relErr := s.provider.Release(ctx, number); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release number after debit failure",
				"error", relErr, "number", number)
		}
		return nil, err
	}

	owned, err := s.numberRepo.ListActiveByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	numberType := domain.NumberTypeLocal
	if purchased.Type == string(domain.NumberTypeTollFree) {
		numberType = domain.NumberTypeTollFree
	}
	record := &domain.PhoneNumber{
		ID:          uuid.New(),
		UserID:      ownerID,
		Number:      number,
		Status:      domain.NumberStatusActive,
		IsActive:    len(owned) == 0, // first number becomes the sending number
		Type:        numberType,
		Price:       purchased.MonthlyPrice,
		PurchasedAt: time.Now().UTC(),
	}
	if err := s.numberRepo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "number purchased", "user_id", ownerID, "number", number)
	return record, nil
}

// Release returns the number to the provider and marks it inactive locally.
// The row is retained for message history; sub-account grants referencing it
// go dead at the scope resolver, not here.
func (s *NumberService) Release(ctx context.Context, ownerID, numberID uuid.UUID) error {
	number, err := s.numberRepo.GetByID(ctx, s.db, numberID)
	if err != nil {
		return err
	}
	if number.UserID != ownerID {
		return domain.ErrNotOwner
	}

	if err := s.provider.Release(ctx, number.Number); err != nil {
		return fmt.Errorf("provider release failed: %w", err)
	}
	if err := s.numberRepo.Release(ctx, s.db, ownerID, numberID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "number released", "user_id", ownerID, "number", number.Number)
	return nil
}
