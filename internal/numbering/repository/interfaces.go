package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/platform/database"
)

// OwnerRental aggregates the recurring cost of one admin's active numbers,
// consumed by the billing cycle.
type OwnerRental struct {
	UserID      uuid.UUID
	NumberCount int
	Total       decimal.Decimal
}

// NumberRepository persists the phone number inventory.
type NumberRepository interface {
	Create(ctx context.Context, q database.Querier, number *domain.PhoneNumber) error
	GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.PhoneNumber, error)
	GetByNumber(ctx context.Context, q database.Querier, number string) (*domain.PhoneNumber, error)
	ListByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error)
	ListActiveByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error)
	// ClearActive unsets is_active on every number of the owner.
	ClearActive(ctx context.Context, q database.Querier, userID uuid.UUID) error
	// SetActive sets is_active on one number, conditional on ownership and
	// status=active. Returns the number of rows updated.
	SetActive(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) (int64, error)
	// Release marks the number inactive and clears the sending flag.
	Release(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) error
	// ListOwnerRentals sums the monthly price of active numbers per owner.
	ListOwnerRentals(ctx context.Context, q database.Querier) ([]OwnerRental, error)
}
