package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/ledger/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

type pgWalletRepository struct{}

// NewPgWalletRepository creates a PostgreSQL-backed WalletRepository.
func NewPgWalletRepository() repository.WalletRepository {
	return &pgWalletRepository{}
}

const walletColumns = `id, user_id, balance, currency, monthly_limit, is_active, service_suspended, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.MonthlyLimit,
		&w.IsActive, &w.ServiceSuspended, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *pgWalletRepository) CreateIfAbsent(ctx context.Context, q database.Querier, wallet *domain.Wallet) (bool, error) {
	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := q.Exec(ctx, query,
		wallet.ID, wallet.UserID, wallet.Balance, wallet.Currency, wallet.MonthlyLimit,
		wallet.IsActive, wallet.ServiceSuspended, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgWalletRepository) GetByUserID(ctx context.Context, q database.Querier, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(q.QueryRow(ctx, query, userID))
}

// ApplyDebit is the arbiter for overdraft protection: the balance guard sits
// in the WHERE clause so two concurrent debits cannot both succeed.
func (r *pgWalletRepository) ApplyDebit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = $3
		WHERE user_id = $1 AND is_active AND balance >= $2
		RETURNING ` + walletColumns
	w, err := scanWallet(q.QueryRow(ctx, query, userID, amount, time.Now().UTC()))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	// Distinguish "no wallet" from "condition failed".
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrWalletNotFound
	}
	return nil, domain.ErrInsufficientBalance
}

func (r *pgWalletRepository) ApplyCredit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $2, updated_at = $3
		WHERE user_id = $1
		RETURNING ` + walletColumns
	return scanWallet(q.QueryRow(ctx, query, userID, amount, time.Now().UTC()))
}

func (r *pgWalletRepository) SetMonthlyLimit(ctx context.Context, q database.Querier, userID uuid.UUID, limit decimal.Decimal) error {
	query := `UPDATE wallets SET monthly_limit = $2, updated_at = $3 WHERE user_id = $1`
	tag, err := q.Exec(ctx, query, userID, limit, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

func (r *pgWalletRepository) SetSuspended(ctx context.Context, q database.Querier, userID uuid.UUID, suspended bool) error {
	query := `UPDATE wallets SET service_suspended = $2, updated_at = $3 WHERE user_id = $1`
	tag, err := q.Exec(ctx, query, userID, suspended, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
