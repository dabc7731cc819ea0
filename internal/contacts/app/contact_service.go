package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/textlane/textlane/internal/contacts/domain"
	"github.com/textlane/textlane/internal/contacts/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// ContactService is the tenant-scoped contact book. Contacts belong to the
// tenant, so an admin and its sub-accounts see the same conversations.
// Read-marking lives in the messaging gateway because it touches message
// rows too.
type ContactService struct {
	contactRepo repository.ContactRepository
	db          database.Querier
	logger      *slog.Logger
}

func NewContactService(contactRepo repository.ContactRepository, db database.Querier, logger *slog.Logger) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		db:          db,
		logger:      logger.With("service", "contacts"),
	}
}

func (s *ContactService) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.Contact, error) {
	return s.contactRepo.List(ctx, s.db, tenantID)
}

func (s *ContactService) Get(ctx context.Context, tenantID, contactID uuid.UUID) (*domain.Contact, error) {
	return s.contactRepo.GetByID(ctx, s.db, tenantID, contactID)
}

func (s *ContactService) Create(ctx context.Context, tenantID uuid.UUID, phoneNumber, name, avatar string) (*domain.Contact, error) {
	contact := domain.NewContact(tenantID, phoneNumber, name)
	contact.Avatar = avatar
	if err := s.contactRepo.Create(ctx, s.db, contact); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "contact created", "user_id", tenantID, "contact_id", contact.ID)
	return contact, nil
}

func (s *ContactService) Update(ctx context.Context, tenantID, contactID uuid.UUID, name, avatar string) (*domain.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, s.db, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		contact.Name = name
	}
	if avatar != "" {
		contact.Avatar = avatar
	}
	if err := s.contactRepo.Update(ctx, s.db, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, tenantID, contactID uuid.UUID) error {
	if err := s.contactRepo.Delete(ctx, s.db, tenantID, contactID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "contact deleted", "user_id", tenantID, "contact_id", contactID)
	return nil
}
