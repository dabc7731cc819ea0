package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// --- Mocks ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, q database.Querier, user *identitydomain.User) error {
	return m.Called(ctx, q, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*identitydomain.User, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*identitydomain.User, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, q database.Querier, id uuid.UUID, name string) error {
	return m.Called(ctx, q, id, name).Error(0)
}

func (m *MockUserRepository) ListSubAccounts(ctx context.Context, q database.Querier, adminID uuid.UUID) ([]*identitydomain.User, error) {
	args := m.Called(ctx, q, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identitydomain.User), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, q database.Querier, id uuid.UUID, active bool) error {
	return m.Called(ctx, q, id, active).Error(0)
}

func (m *MockUserRepository) SetAssignedNumbers(ctx context.Context, q database.Querier, id uuid.UUID, numbers []string) error {
	return m.Called(ctx, q, id, numbers).Error(0)
}

type MockNumberRepository struct {
	mock.Mock
}

func (m *MockNumberRepository) Create(ctx context.Context, q database.Querier, n *numberingdomain.PhoneNumber) error {
	return m.Called(ctx, q, n).Error(0)
}

func (m *MockNumberRepository) GetByID(ctx context.Context, q database.Querier, id uuid.UUID) (*numberingdomain.PhoneNumber, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*numberingdomain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) GetByNumber(ctx context.Context, q database.Querier, number string) (*numberingdomain.PhoneNumber, error) {
	args := m.Called(ctx, q, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*numberingdomain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) ListByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*numberingdomain.PhoneNumber, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*numberingdomain.PhoneNumber), args.Error(1)
}

func (m *MockNumberRepository) ListActiveByOwner(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*numberingdomain.PhoneNumber, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*numberingdomain.PhoneNumber), args.Error(1)
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

func (m *MockNumberRepository) ListOwnerRentals(ctx context.Context, q database.Querier) ([]numberingrepo.OwnerRental, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]numberingrepo.OwnerRental), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateIfAbsent(ctx context.Context, q database.Querier, wallet *ledgerdomain.Wallet) (bool, error) {
	args := m.Called(ctx, q, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, q database.Querier, userID uuid.UUID) (*ledgerdomain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyDebit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*ledgerdomain.Wallet, error) {
	args := m.Called(ctx, q, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyCredit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) (*ledgerdomain.Wallet, error) {
	args := m.Called(ctx, q, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdomain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) SetMonthlyLimit(ctx context.Context, q database.Querier, userID uuid.UUID, limit decimal.Decimal) error {
	return m.Called(ctx, q, userID, limit).Error(0)
}

func (m *MockWalletRepository) SetSuspended(ctx context.Context, q database.Querier, userID uuid.UUID, suspended bool) error {
	return m.Called(ctx, q, userID, suspended).Error(0)
}

type MockFundsLedger struct {
	mock.Mock
}

func (m *MockFundsLedger) Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal) error {
	return m.Called(ctx, fromOwnerID, toOwnerID, amount).Error(0)
}

// --- Setup ---

type managerFixture struct {
	manager    *Manager
	userRepo   *MockUserRepository
	numberRepo *MockNumberRepository
	walletRepo *MockWalletRepository
	ledger     *MockFundsLedger
}

func setupManagerTest(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		userRepo:   new(MockUserRepository),
		numberRepo: new(MockNumberRepository),
		walletRepo: new(MockWalletRepository),
		ledger:     new(MockFundsLedger),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.manager = NewManager(f.userRepo, f.numberRepo, f.walletRepo, f.ledger, nil, logger)
	return f
}

func subAccountOf(adminID uuid.UUID, numbers ...string) *identitydomain.User {
	if numbers == nil {
		numbers = []string{}
	}
	return &identitydomain.User{
		ID: uuid.New(), Email: "sub@example.com", Role: identitydomain.RoleSubAccount,
		AdminID: &adminID, AssignedNumbers: numbers, IsActive: true,
	}
}

func adminNumber(adminID uuid.UUID, value string) *numberingdomain.PhoneNumber {
	return &numberingdomain.PhoneNumber{
		ID: uuid.New(), UserID: adminID, Number: value,
		Status: numberingdomain.NumberStatusActive, Type: numberingdomain.NumberTypeLocal,
		PurchasedAt: time.Now().UTC(),
	}
}

// --- Tests ---

func TestCreate_HashesPasswordAndSetsParent(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	f.userRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(u *identitydomain.User) bool {
		return u.Role == identitydomain.RoleSubAccount && u.AdminID != nil && *u.AdminID == adminID && u.IsActive
	})).Return(nil)

	sub, err := f.manager.Create(context.Background(), adminID, "sub@example.com", "Sam", "s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(sub.HashedPassword), []byte("s3cret-pass")))
	assert.Empty(t, sub.AssignedNumbers)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f := setupManagerTest(t)
	f.userRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(identitydomain.ErrDuplicateEmail)

	_, err := f.manager.Create(context.Background(), uuid.New(), "dup@example.com", "Sam", "s3cret-pass")
	assert.ErrorIs(t, err, identitydomain.ErrDuplicateEmail)
}

func TestAssignNumber_AddsGrant(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID, "+15550000001")

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15550000002").
		Return(adminNumber(adminID, "+15550000002"), nil)
	f.userRepo.On("SetAssignedNumbers", mock.Anything, mock.Anything, sub.ID,
		[]string{"+15550000001", "+15550000002"}).Return(nil)

	err := f.manager.AssignNumber(context.Background(), adminID, sub.ID, "+15550000002")
	require.NoError(t, err)
	f.userRepo.AssertExpectations(t)
}

func TestAssignNumber_RejectsForeignNumber(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID)

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15559999999").
		Return(adminNumber(uuid.New(), "+15559999999"), nil)

	err := f.manager.AssignNumber(context.Background(), adminID, sub.ID, "+15559999999")
	assert.ErrorIs(t, err, numberingdomain.ErrNotOwner)
	f.userRepo.AssertNotCalled(t, "SetAssignedNumbers")
}

func TestAssignNumber_RejectsReleasedNumber(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID)
	released := adminNumber(adminID, "+15550000003")
	released.Status = numberingdomain.NumberStatusInactive

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15550000003").Return(released, nil)

	err := f.manager.AssignNumber(context.Background(), adminID, sub.ID, "+15550000003")
	assert.ErrorIs(t, err, numberingdomain.ErrNumberInactive)
}

func TestAssignNumber_AlreadyGrantedIsNoop(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID, "+15550000001")

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15550000001").
		Return(adminNumber(adminID, "+15550000001"), nil)

	require.NoError(t, f.manager.AssignNumber(context.Background(), adminID, sub.ID, "+15550000001"))
	f.userRepo.AssertNotCalled(t, "SetAssignedNumbers")
}

func TestRevokeNumber_RemovesGrant(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID, "+15550000001", "+15550000002")

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.userRepo.On("SetAssignedNumbers", mock.Anything, mock.Anything, sub.ID,
		[]string{"+15550000002"}).Return(nil)

	require.NoError(t, f.manager.RevokeNumber(context.Background(), adminID, sub.ID, "+15550000001"))
	f.userRepo.AssertExpectations(t)
}

func TestSetActive_ForeignSubAccountRejected(t *testing.T) {
	f := setupManagerTest(t)
	sub := subAccountOf(uuid.New())
	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)

	err := f.manager.SetActive(context.Background(), uuid.New(), sub.ID, false)
	assert.ErrorIs(t, err, ErrNotSubAccount)
	f.userRepo.AssertNotCalled(t, "SetActive")
}

func TestTransferFunds_DelegatesAfterParentageCheck(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	sub := subAccountOf(adminID)
	amount := decimal.NewFromInt(25)

	f.userRepo.On("GetByID", mock.Anything, mock.Anything, sub.ID).Return(sub, nil)
	f.ledger.On("Transfer", mock.Anything, adminID, sub.ID, amount).Return(nil)

	require.NoError(t, f.manager.TransferFunds(context.Background(), adminID, sub.ID, amount))
	f.ledger.AssertExpectations(t)
}

func TestList_JoinsWalletBalances(t *testing.T) {
	f := setupManagerTest(t)
	adminID := uuid.New()
	withWallet := subAccountOf(adminID)
	withoutWallet := subAccountOf(adminID)

	f.userRepo.On("ListSubAccounts", mock.Anything, mock.Anything, adminID).
		Return([]*identitydomain.User{withWallet, withoutWallet}, nil)
	funded := ledgerdomain.NewWallet(withWallet.ID, "USD")
	funded.Balance = decimal.NewFromInt(10)
	f.walletRepo.On("GetByUserID", mock.Anything, mock.Anything, withWallet.ID).Return(funded, nil)
	f.walletRepo.On("GetByUserID", mock.Anything, mock.Anything, withoutWallet.ID).
		Return(nil, ledgerdomain.ErrWalletNotFound)

	views, err := f.manager.List(context.Background(), adminID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Balance.Equal(decimal.NewFromInt(10)))
	assert.True(t, views[1].Balance.IsZero())
}
