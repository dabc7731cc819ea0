package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/platform/database"
)

// WalletRepository persists wallets. The balance mutations are conditional
// updates: the WHERE clause, not the caller, decides whether a debit is
// allowed, so concurrent debits cannot both pass the check.
type WalletRepository interface {
	CreateIfAbsent(ctx context.Context, q database.Querier, wallet *domain.Wallet) (created bool, err error)
	GetByUserID(ctx context.Context, q database.Querier, userID uuid.UUID) (*domain.Wallet, error)
	// ApplyDebit subtracts amount where the wallet is active and balance >= amount.
	// Returns ErrInsufficientBalance when the condition fails, ErrWalletNotFound
	// when no wallet exists.
	ApplyDebit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	// ApplyCredit adds amount unconditionally to an existing wallet.
	ApplyCredit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	SetMonthlyLimit(ctx context.Context, q database.Querier, userID uuid.UUID, limit decimal.Decimal) error
	SetSuspended(ctx context.Context, q database.Querier, userID uuid.UUID, suspended bool) error
}

// TransactionRepository persists the append-only wallet log.
type TransactionRepository interface {
	Append(ctx context.Context, q database.Querier, tx *domain.Transaction) error
	ListByWallet(ctx context.Context, q database.Querier, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	SumByTypeSince(ctx context.Context, q database.Querier, walletID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error)
	ExistsByReference(ctx context.Context, q database.Querier, walletID uuid.UUID, reference string) (bool, error)
}
