package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/textlane/textlane/internal/identity/domain"
	"github.com/textlane/textlane/internal/platform/database"
)

// UserRepository defines persistence for users. Methods take a Querier so
// callers can compose them inside transactions.
type UserRepository interface {
	Create(ctx context.Context, q database.Querier, user *domain.User) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, q database.Querier, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, q database.Querier, id uuid.UUID, name string) error
	ListSubAccounts(ctx context.Context, q database.Querier, adminID uuid.UUID) ([]*domain.User, error)
	SetActive(ctx context.Context, q database.Querier, id uuid.UUID, active bool) error
	SetAssignedNumbers(ctx context.Context, q database.Querier, id uuid.UUID, numbers []string) error
}
