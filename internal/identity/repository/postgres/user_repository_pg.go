package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/textlane/textlane/internal/identity/domain"
	"github.com/textlane/textlane/internal/identity/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

const uniqueViolationCode = "23505"

type pgUserRepository struct{}

// NewPgUserRepository creates a PostgreSQL-backed UserRepository.
func NewPgUserRepository() repository.UserRepository {
	return &pgUserRepository{}
}

const userColumns = `id, email, name, hashed_password, role, admin_id, assigned_numbers, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.HashedPassword, &u.Role,
		&u.AdminID, &u.AssignedNumbers, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *pgUserRepository) Create(ctx context.Context, q database.Querier, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.AssignedNumbers == nil {
		user.AssignedNumbers = []string{}
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.HashedPassword, user.Role,
		user.AdminID, user.AssignedNumbers, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.QueryRow(ctx, query, id))
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.QueryRow(ctx, query, email))
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, q database.Querier, id uuid.UUID, name string) error {
	query := `UPDATE users SET name = $2, updated_at = $3 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *pgUserRepository) ListSubAccounts(ctx context.Context, q database.Querier, adminID uuid.UUID) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND admin_id = $2
		ORDER BY created_at ASC
	`
	rows, err := q.Query(ctx, query, domain.RoleSubAccount, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.HashedPassword, &u.Role,
			&u.AdminID, &u.AssignedNumbers, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) SetActive(ctx context.Context, q database.Querier, id uuid.UUID, active bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *pgUserRepository) SetAssignedNumbers(ctx context.Context, q database.Querier, id uuid.UUID, numbers []string) error {
	if numbers == nil {
		numbers = []string{}
	}
	query := `UPDATE users SET assigned_numbers = $2, updated_at = $3 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, numbers, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
