package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	"github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/ledger/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// ActorDirectory resolves actors for transfer authorization.
type ActorDirectory interface {
	GetActor(ctx context.Context, id uuid.UUID) (*identitydomain.User, error)
}

// WalletStats summarizes wallet activity for the stats endpoint.
type WalletStats struct {
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
	TotalCredited  decimal.Decimal `json:"total_credited"`
	TotalDebited   decimal.Decimal `json:"total_debited"`
	SpentThisMonth decimal.Decimal `json:"spent_this_month"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
}

// LedgerService owns all wallet balance movements. Every movement appends a
// transaction and updates the cached balance inside one database transaction.
type LedgerService struct {
	walletRepo repository.WalletRepository
	txRepo     repository.TransactionRepository
	actors     ActorDirectory
	db         database.Querier
	txr        database.TxRunner
	currency   string
	logger     *slog.Logger
}

func NewLedgerService(
	walletRepo repository.WalletRepository,
	txRepo repository.TransactionRepository,
	actors ActorDirectory,
	db database.Querier,
	txr database.TxRunner,
	currency string,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		actors:     actors,
		db:         db,
		txr:        txr,
		currency:   currency,
		logger:     logger.With("service", "ledger"),
	}
}

// GetOrCreateWallet returns the owner's wallet, creating a zero-balance one
// on first use.
func (s *LedgerService) GetOrCreateWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet := domain.NewWallet(ownerID, s.currency)
	created, err := s.walletRepo.CreateIfAbsent(ctx, s.db, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "wallet created", "user_id", ownerID)
		return wallet, nil
	}
	return s.walletRepo.GetByUserID(ctx, s.db, ownerID)
}

// HasSufficientBalance fails closed: a missing or inactive wallet counts as
// insufficient.
func (s *LedgerService) HasSufficientBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) bool {
	wallet, err := s.walletRepo.GetByUserID(ctx, s.db, ownerID)
	if err != nil {
		return false
	}
	return wallet.IsActive && wallet.Balance.GreaterThanOrEqual(amount)
}

// Credit appends a credit transaction and raises the balance. The wallet is
// created if absent. Idempotency is the caller's concern via reference.
func (s *LedgerService) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.GetOrCreateWallet(ctx, ownerID); err != nil {
		return nil, err
	}

	var tx *domain.Transaction
	err := s.txr.InTx(ctx, func(q database.Querier) error {
		wallet, err := s.walletRepo.ApplyCredit(ctx, q, ownerID, amount)
		if err != nil {
			return err
		}
		tx = &domain.Transaction{
			WalletID:     wallet.ID,
			Type:         domain.TransactionTypeCredit,
			Amount:       amount,
			Description:  description,
			Reference:    reference,
			Status:       domain.TransactionStatusCompleted,
			BalanceAfter: wallet.Balance,
		}
		return s.txRepo.Append(ctx, q, tx)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "credit failed", "error", err, "user_id", ownerID, "amount", amount)
		return nil, err
	}
	s.logger.InfoContext(ctx, "wallet credited", "user_id", ownerID, "amount", amount, "reference", reference)
	return tx, nil
}

// Debit appends a debit transaction and lowers the balance. The conditional
// update in the repository serializes concurrent debits per wallet: at most
// one of two competing debits can pass the balance guard.
func (s *LedgerService) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	var tx *domain.Transaction
	err := s.txr.InTx(ctx, func(q database.Querier) error {
		wallet, err := s.walletRepo.ApplyDebit(ctx, q, ownerID, amount)
		if err != nil {
			return err
		}
		tx = &domain.Transaction{
			WalletID:     wallet.ID,
			Type:         domain.TransactionTypeDebit,
			Amount:       amount,
			Description:  description,
			Reference:    reference,
			Status:       domain.TransactionStatusCompleted,
			BalanceAfter: wallet.Balance,
		}
		return s.txRepo.Append(ctx, q, tx)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientBalance) && !errors.Is(err, domain.ErrWalletNotFound) {
			s.logger.ErrorContext(ctx, "debit failed", "error", err, "user_id", ownerID, "amount", amount)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "wallet debited", "user_id", ownerID, "amount", amount, "reference", reference)
	return tx, nil
}

// Transfer moves funds from an admin to one of its sub-accounts. Debit and
// credit run in one database transaction: both apply or neither.
func (s *LedgerService) Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}

	target, err := s.actors.GetActor(ctx, toOwnerID)
	if err != nil {
		return domain.ErrUnauthorizedTransferTarget
	}
	if target.Role != identitydomain.RoleSubAccount || target.AdminID == nil || *target.AdminID != fromOwnerID {
		return domain.ErrUnauthorizedTransferTarget
	}

	reference := "transfer:" + uuid.NewString()
	err = s.txr.InTx(ctx, func(q database.Querier) error {
		destWallet := domain.NewWallet(toOwnerID, s.currency)
		if _, err := s.walletRepo.CreateIfAbsent(ctx, q, destWallet); err != nil {
			return err
		}

		source, err := s.walletRepo.ApplyDebit(ctx, q, fromOwnerID, amount)
		if err != nil {
			return err
		}
		if err := s.txRepo.Append(ctx, q, &domain.Transaction{
			WalletID:     source.ID,
			Type:         domain.TransactionTypeDebit,
			Amount:       amount,
			Description:  "transfer to sub-account " + toOwnerID.String(),
			Reference:    reference,
			Status:       domain.TransactionStatusCompleted,
			BalanceAfter: source.Balance,
		}); err != nil {
			return err
		}

		dest, err := s.walletRepo.ApplyCredit(ctx, q, toOwnerID, amount)
		if err != nil {
			return err
		}
		return s.txRepo.Append(ctx, q, &domain.Transaction{
			WalletID:     dest.ID,
			Type:         domain.TransactionTypeCredit,
			Amount:       amount,
			Description:  "transfer from admin " + fromOwnerID.String(),
			Reference:    reference,
			Status:       domain.TransactionStatusCompleted,
			BalanceAfter: dest.Balance,
		})
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "funds transferred", "from", fromOwnerID, "to", toOwnerID, "amount", amount)
	return nil
}

// Transactions returns a page of the owner's wallet log, newest first.
func (s *LedgerService) Transactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.txRepo.ListByWallet(ctx, s.db, wallet.ID, limit, offset)
}

// Stats computes credited/debited totals and month-to-date spend. The monthly
// limit is advisory: surfaced here, not enforced on debit.
func (s *LedgerService) Stats(ctx context.Context, ownerID uuid.UUID) (*WalletStats, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	var epoch time.Time
	credited, err := s.txRepo.SumByTypeSince(ctx, s.db, wallet.ID, domain.TransactionTypeCredit, epoch)
	if err != nil {
		return nil, err
	}
	debited, err := s.txRepo.SumByTypeSince(ctx, s.db, wallet.ID, domain.TransactionTypeDebit, epoch)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	spentThisMonth, err := s.txRepo.SumByTypeSince(ctx, s.db, wallet.ID, domain.TransactionTypeDebit, monthStart)
	if err != nil {
		return nil, err
	}

	return &WalletStats{
		Balance:        wallet.Balance,
		Currency:       wallet.Currency,
		TotalCredited:  credited,
		TotalDebited:   debited,
		SpentThisMonth: spentThisMonth,
		MonthlyLimit:   wallet.MonthlyLimit,
	}, nil
}

// SetMonthlyLimit updates the advisory monthly spend limit.
func (s *LedgerService) SetMonthlyLimit(ctx context.Context, ownerID uuid.UUID, limit decimal.Decimal) error {
	if limit.LessThan(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	return s.walletRepo.SetMonthlyLimit(ctx, s.db, ownerID, limit)
}

// SetSuspended flips the billing suspension flag on the owner's wallet.
func (s *LedgerService) SetSuspended(ctx context.Context, ownerID uuid.UUID, suspended bool) error {
	return s.walletRepo.SetSuspended(ctx, s.db, ownerID, suspended)
}

// HasReference reports whether a transaction with the given reference already
// exists on the owner's wallet. Used by webhook handlers for dedup.
func (s *LedgerService) HasReference(ctx context.Context, ownerID uuid.UUID, reference string) (bool, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, s.db, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.txRepo.ExistsByReference(ctx, s.db, wallet.ID, reference)
}
