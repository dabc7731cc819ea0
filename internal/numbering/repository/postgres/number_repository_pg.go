package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

const uniqueViolationCode = "23505"

type pgNumberRepository struct{}

// NewPgNumberRepository creates a PostgreSQL-backed NumberRepository.
func NewPgNumberRepository() repository.NumberRepository {
	return &pgNumberRepository{}
}

const numberColumns = `id, user_id, number, status, is_active, type, price, purchased_at, created_at, updated_at`

func scanNumber(row pgx.Row) (*domain.PhoneNumber, error) {
	n := &domain.PhoneNumber{}
	err := row.Scan(
		&n.ID, &n.UserID, &n.Number, &n.Status, &n.IsActive,
		&n.Type, &n.Price, &n.PurchasedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNumberNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *pgNumberRepository) Create(ctx context.Context, q database.Querier, number *domain.PhoneNumber) error {
	now := time.Now().UTC()
	number.CreatedAt = now
	number.UpdatedAt = now

	query := `
		INSERT INTO phone_numbers (` + numberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		number.ID, number.UserID, number.Number, number.Status, number.IsActive,
		number.Type, number.Price, number.PurchasedAt, number.CreatedAt, number.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateNumber
		}
		return err
	}
	return nil
}

func (r *pgNumberRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.PhoneNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM phone_numbers WHERE id = $1`
	return scanNumber(q.QueryRow(ctx, query, id))
}

func (r *pgNumberRepository) GetByNumber(ctx context.Context, q database.Querier, number string) (*domain.PhoneNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM phone_numbers WHERE number = $1`
	return scanNumber(q.QueryRow(ctx, query, number))
}

func (r *pgNumberRepository) listByOwner(ctx context.Context, q database.Querier, query string, userID uuid.UUID) ([]*domain.PhoneNumber, error) {
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []*domain.PhoneNumber
	for rows.Next() {
		n := &domain.PhoneNumber{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Number, &n.Status, &n.IsActive,
			&n.Type, &n.Price, &n.PurchasedAt, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *pgNumberRepository) ListByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM phone_numbers WHERE user_id = $1 ORDER BY purchased_at ASC`
	return r.listByOwner(ctx, q, query, userID)
}

func (r *pgNumberRepository) ListActiveByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error) {
	query := `SELECT ` + numberColumns + ` FROM phone_numbers WHERE user_id = $1 AND status = 'active' ORDER BY purchased_at ASC`
	return r.listByOwner(ctx, q, query, userID)
}

func (r *pgNumberRepository) ClearActive(ctx context.Context, q database.Querier, userID uuid.UUID) error {
	query := `UPDATE phone_numbers SET is_active = FALSE, updated_at = $2 WHERE user_id = $1 AND is_active`
	_, err := q.Exec(ctx, query, userID, time.Now().UTC())
	return err
}

func (r *pgNumberRepository) SetActive(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) (int64, error) {
	query := `
		UPDATE phone_numbers SET is_active = TRUE, updated_at = $3
		WHERE id = $2 AND user_id = $1 AND status = 'active'
	`
	tag, err := q.Exec(ctx, query, userID, numberID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgNumberRepository) Release(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) error {
	query := `
		UPDATE phone_numbers SET status = 'inactive', is_active = FALSE, updated_at = $3
		WHERE id = $2 AND user_id = $1
	`
	tag, err := q.Exec(ctx, query, userID, numberID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNumberNotFound
	}
	return nil
}

func (r *pgNumberRepository) ListOwnerRentals(ctx context.Context, q database.Querier) ([]repository.OwnerRental, error) {
	query := `
		SELECT user_id, COUNT(*), COALESCE(SUM(price), 0)
		FROM phone_numbers
		WHERE status = 'active'
		GROUP BY user_id
		ORDER BY user_id
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []repository.OwnerRental
	for rows.Next() {
		var rental repository.OwnerRental
		if err := rows.Scan(&rental.UserID, &rental.NumberCount, &rental.Total); err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}
