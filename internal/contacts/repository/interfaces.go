package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/textlane/textlane/internal/contacts/domain"
	"github.com/textlane/textlane/internal/platform/database"
)

// ContactRepository persists tenant-scoped contacts. Every method takes a
// Querier so unread-count maintenance can share a transaction with message
// writes.
type ContactRepository interface {
	Create(ctx context.Context, q database.Querier, contact *domain.Contact) error
	GetByID(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*domain.Contact, error)
	GetByPhoneNumber(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*domain.Contact, error)
	// UpsertOnInbound returns the contact for an inbound sender, creating it
	// with the phone number as display name when unseen.
	UpsertOnInbound(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*domain.Contact, error)
	List(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.Contact, error)
	Update(ctx context.Context, q database.Querier, contact *domain.Contact) error
	// Delete removes the contact; message history cascades at the schema
	// level.
	Delete(ctx context.Context, q database.Querier, userID, id uuid.UUID) error
	IncrementUnread(ctx context.Context, q database.Querier, contactID uuid.UUID) error
	ResetUnread(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) error
}
