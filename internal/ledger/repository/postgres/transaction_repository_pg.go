package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/ledger/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

type pgTransactionRepository struct{}

// NewPgTransactionRepository creates a PostgreSQL-backed TransactionRepository.
func NewPgTransactionRepository() repository.TransactionRepository {
	return &pgTransactionRepository{}
}

func (r *pgTransactionRepository) Append(ctx context.Context, q database.Querier, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO wallet_transactions (id, wallet_id, type, amount, description, reference, status, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query,
		tx.ID, tx.WalletID, tx.Type, tx.Amount, tx.Description,
		tx.Reference, tx.Status, tx.BalanceAfter, tx.CreatedAt,
	)
	return err
}

func (r *pgTransactionRepository) ListByWallet(ctx context.Context, q database.Querier, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, description, reference, status, balance_after, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		err := rows.Scan(
			&tx.ID, &tx.WalletID, &tx.Type, &tx.Amount, &tx.Description,
			&tx.Reference, &tx.Status, &tx.BalanceAfter, &tx.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (r *pgTransactionRepository) SumByTypeSince(ctx context.Context, q database.Querier, walletID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND type = $2 AND created_at >= $3
	`
	var sum decimal.Decimal
	if err := q.QueryRow(ctx, query, walletID, txType, since).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *pgTransactionRepository) ExistsByReference(ctx context.Context, q database.Querier, walletID uuid.UUID, reference string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wallet_transactions WHERE wallet_id = $1 AND reference = $2)`
	var exists bool
	if err := q.QueryRow(ctx, query, walletID, reference).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
