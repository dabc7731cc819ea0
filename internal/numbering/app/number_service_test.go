package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
	"github.com/textlane/textlane/internal/smsprovider"
)

// --- Mocks ---

type MockNumberRepository struct {
	mock.Mock
}

func (m *MockNumberRepository) Create(ctx context.Context, q database.Querier, n *domain.PhoneNumber) error {
	return m.Called(ctx, q, n).Error(0)
}

func (m *MockNumberRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) GetByNumber(ctx context.Context, q database.Querier, number string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, q, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) ListByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) ListActiveByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*domain.PhoneNumber, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) ClearActive(ctx context.Context, q database.Querier, userID uuid.UUID) error {
	return m.Called(ctx, q, userID).Error(0)
}

func (m *MockNumberRepository) SetActive(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, userID, numberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNumberRepository) Release(ctx context.Context, q database.Querier, userID, numberID uuid.UUID) error {
	return m.Called(ctx, q, userID, numberID).Error(0)
}

func (m *MockNumberRepository) ListOwnerRentals(ctx context.Context, q database.Querier) ([]repository.OwnerRental, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.OwnerRental), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Send(ctx context.Context, req smsprovider.SendRequest) (*smsprovider.SendResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*smsprovider.SendResult), args.Error(1)
}

func (m *MockProvider) SearchAvailable(ctx context.Context, areaCode string) ([]smsprovider.AvailableNumber, error) {
	args := m.Called(ctx, areaCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]smsprovider.AvailableNumber), args.Error(1)
}

func (m *MockProvider) Purchase(ctx context.Context, number string) (*smsprovider.AvailableNumber, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*smsprovider.AvailableNumber), args.Error(1)
}

func (m *MockProvider) Release(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}

func (m *MockProvider) Name() string { return "mock" }

type MockBiller struct {
	mock.Mock
}

func (m *MockBiller) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error) {
	args := m.Called(ctx, ownerID, amount, description, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Transaction), args.Error(1)
}

func (m *MockBiller) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error) {
	args := m.Called(ctx, ownerID, amount, description, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Transaction), args.Error(1)
}

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

// --- Setup ---

type serviceFixture struct {
	service    *NumberService
	numberRepo *MockNumberRepository
	provider   *MockProvider
	biller     *MockBiller
}

func setupNumberServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		numberRepo: new(MockNumberRepository),
		provider:   new(MockProvider),
		biller:     new(MockBiller),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewNumberService(f.numberRepo, f.provider, f.biller, nil, fakeTxRunner{}, logger)
	return f
}

func ownedNumber(ownerID uuid.UUID, number string) *domain.PhoneNumber {
	return &domain.PhoneNumber{
		ID:     uuid.New(),
		UserID: ownerID,
		Number: number,
		Status: domain.NumberStatusActive,
		Type:   domain.NumberTypeLocal,
		Price:  decimal.NewFromFloat(1.15),
	}
}

// --- Activate ---

func TestNumberService_Activate_SwitchesSendingNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	number := ownedNumber(ownerID, "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)
	f.numberRepo.On("ClearActive", mock.Anything, mock.Anything, ownerID).Return(nil).Once()
	f.numberRepo.On("SetActive", mock.Anything, mock.Anything, ownerID, number.ID).Return(int64(1), nil).Once()

	activated, err := f.service.Activate(context.Background(), ownerID, number.ID)

	require.NoError(t, err)
	assert.Equal(t, number.ID, activated.ID)
	f.numberRepo.AssertExpectations(t)
}

func TestNumberService_Activate_RejectsForeignNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	number := ownedNumber(uuid.New(), "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)

	_, err := f.service.Activate(context.Background(), uuid.New(), number.ID)

	assert.ErrorIs(t, err, domain.ErrNotOwner)
	f.numberRepo.AssertNotCalled(t, "ClearActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestNumberService_Activate_RejectsReleasedNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	number := ownedNumber(ownerID, "+15551230001")
	number.Status = domain.NumberStatusInactive

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)

	_, err := f.service.Activate(context.Background(), ownerID, number.ID)

	assert.ErrorIs(t, err, domain.ErrNumberInactive)
}

func TestNumberService_Activate_RetriesOnceOnConflict(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	number := ownedNumber(ownerID, "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)
	f.numberRepo.On("ClearActive", mock.Anything, mock.Anything, ownerID).Return(nil).Twice()
	f.numberRepo.On("SetActive", mock.Anything, mock.Anything, ownerID, number.ID).Return(int64(0), nil).Once()
	f.numberRepo.On("SetActive", mock.Anything, mock.Anything, ownerID, number.ID).Return(int64(1), nil).Once()

	_, err := f.service.Activate(context.Background(), ownerID, number.ID)

	require.NoError(t, err)
	f.numberRepo.AssertExpectations(t)
}

// --- Purchase ---

func TestNumberService_Purchase_FirstNumberBecomesSendingNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	price := decimal.NewFromFloat(1.15)

	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551230001").
		Return(nil, domain.ErrNumberNotFound)
	f.provider.On("Purchase", mock.Anything, "+15551230001").
		Return(&smsprovider.AvailableNumber{Number: "+15551230001", Type: "local", MonthlyPrice: price}, nil)
	f.biller.On("Debit", mock.Anything, ownerID, price, mock.Anything, "number:+15551230001").
		Return(&ledgerdomain.Transaction{}, nil)
	f.numberRepo.On("ListActiveByOwner", mock.Anything, mock.Anything, ownerID).
		Return([]*domain.PhoneNumber{}, nil)
	f.numberRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(n *domain.PhoneNumber) bool {
		return n.IsActive && n.Number == "+15551230001" && n.UserID == ownerID
	})).Return(nil)

	purchased, err := f.service.Purchase(context.Background(), ownerID, "+15551230001")

	require.NoError(t, err)
	assert.True(t, purchased.IsActive)
	f.numberRepo.AssertExpectations(t)
	f.biller.AssertExpectations(t)
}

func TestNumberService_Purchase_SecondNumberIsNotSendingNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	price := decimal.NewFromFloat(2.00)

	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551230002").
		Return(nil, domain.ErrNumberNotFound)
	f.provider.On("Purchase", mock.Anything, "+15551230002").
		Return(&smsprovider.AvailableNumber{Number: "+15551230002", Type: "toll_free", MonthlyPrice: price}, nil)
	f.biller.On("Debit", mock.Anything, ownerID, price, mock.Anything, mock.Anything).
		Return(&ledgerdomain.Transaction{}, nil)
	f.numberRepo.On("ListActiveByOwner", mock.Anything, mock.Anything, ownerID).
		Return([]*domain.PhoneNumber{ownedNumber(ownerID, "+15551230001")}, nil)
	f.numberRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(n *domain.PhoneNumber) bool {
		return !n.IsActive && n.Type == domain.NumberTypeTollFree
	})).Return(nil)

	purchased, err := f.service.Purchase(context.Background(), ownerID, "+15551230002")

	require.NoError(t, err)
	assert.False(t, purchased.IsActive)
}

func TestNumberService_Purchase_DuplicateNumberRejected(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()

	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551230001").
		Return(ownedNumber(ownerID, "+15551230001"), nil)

	_, err := f.service.Purchase(context.Background(), ownerID, "+15551230001")

	assert.ErrorIs(t, err, domain.ErrDuplicateNumber)
	f.provider.AssertNotCalled(t, "Purchase", mock.Anything, mock.Anything)
}

func TestNumberService_Purchase_DebitFailureReleasesNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	price := decimal.NewFromFloat(1.15)

	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551230001").
		Return(nil, domain.ErrNumberNotFound)
	f.provider.On("Purchase", mock.Anything, "+15551230001").
		Return(&smsprovider.AvailableNumber{Number: "+15551230001", Type: "local", MonthlyPrice: price}, nil)
	f.biller.On("Debit", mock.Anything, ownerID, price, mock.Anything, mock.Anything).
		Return(nil, ledgerdomain.ErrInsufficientBalance)
	f.provider.On("Release", mock.Anything, "+15551230001").Return(nil).Once()

	_, err := f.service.Purchase(context.Background(), ownerID, "+15551230001")

	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientBalance)
	f.numberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.provider.AssertExpectations(t)
}

// --- Release ---

func TestNumberService_Release_RejectsForeignNumber(t *testing.T) {
	f := setupNumberServiceTest(t)
	number := ownedNumber(uuid.New(), "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)

	err := f.service.Release(context.Background(), uuid.New(), number.ID)

	assert.ErrorIs(t, err, domain.ErrNotOwner)
	f.provider.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestNumberService_Release_MarksInactiveAfterProviderRelease(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	number := ownedNumber(ownerID, "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)
	f.provider.On("Release", mock.Anything, "+15551230001").Return(nil)
	f.numberRepo.On("Release", mock.Anything, mock.Anything, ownerID, number.ID).Return(nil)

	err := f.service.Release(context.Background(), ownerID, number.ID)

	require.NoError(t, err)
	f.numberRepo.AssertExpectations(t)
}

func TestNumberService_Release_ProviderFailureKeepsRow(t *testing.T) {
	f := setupNumberServiceTest(t)
	ownerID := uuid.New()
	number := ownedNumber(ownerID, "+15551230001")

	f.numberRepo.On("GetByID", mock.Anything, mock.Anything, number.ID).Return(number, nil)
	f.provider.On("Release", mock.Anything, "+15551230001").Return(errors.New("provider down"))

	err := f.service.Release(context.Background(), ownerID, number.ID)

	require.Error(t, err)
	f.numberRepo.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
