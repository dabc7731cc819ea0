package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/textlane/textlane/internal/contacts/domain"
	"github.com/textlane/textlane/internal/contacts/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

const uniqueViolationCode = "23505"

type pgContactRepository struct{}

// NewPgContactRepository creates a PostgreSQL-backed ContactRepository.
func NewPgContactRepository() repository.ContactRepository {
	return &pgContactRepository{}
}

const contactColumns = `id, user_id, phone_number, name, avatar, unread_count, created_at, updated_at`

func scanContact(row pgx.Row) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.PhoneNumber, &c.Name, &c.Avatar,
		&c.UnreadCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *pgContactRepository) Create(ctx context.Context, q database.Querier, contact *domain.Contact) error {
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		contact.ID, contact.UserID, contact.PhoneNumber, contact.Name, contact.Avatar,
		contact.UnreadCount, contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateContact
		}
		return err
	}
	return nil
}

func (r *pgContactRepository) GetByID(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 AND id = $2`
	return scanContact(q.QueryRow(ctx, query, userID, id))
}

func (r *pgContactRepository) GetByPhoneNumber(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 AND phone_number = $2`
	return scanContact(q.QueryRow(ctx, query, userID, phoneNumber))
}

func (r *pgContactRepository) UpsertOnInbound(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*domain.Contact, error) {
	// ON CONFLICT DO UPDATE with a no-op assignment so RETURNING yields the
	// row in both the insert and the already-exists case.
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, phone_number) DO UPDATE SET updated_at = contacts.updated_at
		RETURNING ` + contactColumns
	fresh := domain.NewContact(userID, phoneNumber, "")
	return scanContact(q.QueryRow(ctx, query,
		fresh.ID, fresh.UserID, fresh.PhoneNumber, fresh.Name, fresh.Avatar,
		fresh.UnreadCount, fresh.CreatedAt, fresh.UpdatedAt,
	))
}

func (r *pgContactRepository) List(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c := &domain.Contact{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.PhoneNumber, &c.Name, &c.Avatar,
			&c.UnreadCount, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *pgContactRepository) Update(ctx context.Context, q database.Querier, contact *domain.Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE contacts
		SET name = $3, avatar = $4, updated_at = $5
		WHERE user_id = $1 AND id = $2
	`
	tag, err := q.Exec(ctx, query,
		contact.UserID, contact.ID, contact.Name, contact.Avatar, contact.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

func (r *pgContactRepository) Delete(ctx context.Context, q database.Querier, userID, id uuid.UUID) error {
	query := `DELETE FROM contacts WHERE user_id = $1 AND id = $2`
	tag, err := q.Exec(ctx, query, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

func (r *pgContactRepository) IncrementUnread(ctx context.Context, q database.Querier, contactID uuid.UUID) error {
	query := `UPDATE contacts SET unread_count = unread_count + 1, updated_at = $2 WHERE id = $1`
	tag, err := q.Exec(ctx, query, contactID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

func (r *pgContactRepository) ResetUnread(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) error {
	query := `UPDATE contacts SET unread_count = 0, updated_at = $3 WHERE user_id = $1 AND id = $2`
	tag, err := q.Exec(ctx, query, userID, contactID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}
