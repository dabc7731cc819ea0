package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/textlane/textlane/internal/messaging/domain"
	"github.com/textlane/textlane/internal/messaging/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

const uniqueViolationCode = "23505"

type pgMessageRepository struct{}

// NewPgMessageRepository creates a PostgreSQL-backed MessageRepository.
func NewPgMessageRepository() repository.MessageRepository {
	return &pgMessageRepository{}
}

const messageColumns = `id, user_id, contact_id, sender_id, content, is_outgoing, from_number, to_number, status, provider_message_id, created_at, updated_at`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.ID, &m.UserID, &m.ContactID, &m.SenderID, &m.Content, &m.IsOutgoing,
		&m.FromNumber, &m.ToNumber, &m.Status, &m.ProviderMessageID,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *pgMessageRepository) Insert(ctx context.Context, q database.Querier, message *domain.Message) error {
	now := time.Now().UTC()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = now
	message.UpdatedAt = now

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := q.Exec(ctx, query,
		message.ID, message.UserID, message.ContactID, message.SenderID, message.Content,
		message.IsOutgoing, message.FromNumber, message.ToNumber, message.Status,
		message.ProviderMessageID, message.CreatedAt, message.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// (user_id, provider_message_id) already recorded: replayed
			// webhook.
			return domain.ErrDuplicateMessage
		}
		return err
	}
	return nil
}

func (r *pgMessageRepository) ListByContact(ctx context.Context, q database.Querier, userID, contactID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE user_id = $1 AND contact_id = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := q.Query(ctx, query, userID, contactID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		err := rows.Scan(
			&m.ID, &m.UserID, &m.ContactID, &m.SenderID, &m.Content, &m.IsOutgoing,
			&m.FromNumber, &m.ToNumber, &m.Status, &m.ProviderMessageID,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// statusPriors lists the statuses a target status may overwrite.
func statusPriors(target domain.MessageStatus) []domain.MessageStatus {
	var priors []domain.MessageStatus
	for _, s := range []domain.MessageStatus{domain.StatusSent, domain.StatusDelivered} {
		if s.Rank() < target.Rank() {
			priors = append(priors, s)
		}
	}
	return priors
}

func (r *pgMessageRepository) UpdateStatusByProviderID(ctx context.Context, q database.Querier, providerMessageID string, status domain.MessageStatus) (*domain.Message, error) {
	priors := statusPriors(status)
	if len(priors) == 0 {
		return nil, domain.ErrMessageNotFound
	}

	query := `
		UPDATE messages
		SET status = $2, updated_at = $3
		WHERE provider_message_id = $1 AND status = ANY($4)
		RETURNING ` + messageColumns
	return scanMessage(q.QueryRow(ctx, query, providerMessageID, status, time.Now().UTC(), priors))
}

func (r *pgMessageRepository) MarkConversationRead(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET status = $3, updated_at = $4
		WHERE user_id = $1 AND contact_id = $2 AND is_outgoing = FALSE AND status <> $3
	`
	tag, err := q.Exec(ctx, query, userID, contactID, domain.StatusRead, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
