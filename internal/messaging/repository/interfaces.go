package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/textlane/textlane/internal/messaging/domain"
	"github.com/textlane/textlane/internal/platform/database"
)

// MessageRepository persists the message history. Methods take a Querier so
// inbound writes can share a transaction with contact upserts and unread
// bookkeeping.
type MessageRepository interface {
	Insert(ctx context.Context, q database.Querier, message *domain.Message) error
	ListByContact(ctx context.Context, q database.Querier, userID, contactID uuid.UUID, limit, offset int) ([]domain.Message, error)
	// UpdateStatusByProviderID applies a carrier status callback. The update
	// is monotonic: rows already at or past the target status are left
	// alone, and the method returns nil, ErrMessageNotFound for them so the
	// caller skips the event.
	UpdateStatusByProviderID(ctx context.Context, q database.Querier, providerMessageID string, status domain.MessageStatus) (*domain.Message, error)
	// MarkConversationRead upgrades all inbound messages of one conversation
	// to read, returning how many rows changed.
	MarkConversationRead(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) (int64, error)
}
