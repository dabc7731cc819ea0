package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	contactsdomain "github.com/textlane/textlane/internal/contacts/domain"
	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/messaging/domain"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
	"github.com/textlane/textlane/internal/realtime"
	"github.com/textlane/textlane/internal/scope"
	"github.com/textlane/textlane/internal/smsprovider"
)

// --- Mocks ---

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Insert(ctx context.Context, q database.Querier, message *domain.Message) error {
	return m.Called(ctx, q, message).Error(0)
}

func (m *MockMessageRepository) ListByContact(ctx context.Context, q database.Querier, userID, contactID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	args := m.Called(ctx, q, userID, contactID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateStatusByProviderID(ctx context.Context, q database.Querier, providerMessageID string, status domain.MessageStatus) (*domain.Message, error) {
	args := m.Called(ctx, q, providerMessageID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkConversationRead(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, userID, contactID)
	return args.Get(0).(int64), args.Error(1)
}

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, q database.Querier, contact *contactsdomain.Contact) error {
	return m.Called(ctx, q, contact).Error(0)
}

func (m *MockContactRepository) GetByID(ctx context.Context, q database.Querier, userID, id uuid.UUID) (*contactsdomain.Contact, error) {
	args := m.Called(ctx, q, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contactsdomain.Contact), args.Error(1)
}

func (m *MockContactRepository) GetByPhoneNumber(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*contactsdomain.Contact, error) {
	args := m.Called(ctx, q, userID, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contactsdomain.Contact), args.Error(1)
}

func (m *MockContactRepository) UpsertOnInbound(ctx context.Context, q database.Querier, userID uuid.UUID, phoneNumber string) (*contactsdomain.Contact, error) {
	args := m.Called(ctx, q, userID, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contactsdomain.Contact), args.Error(1)
}

func (m *MockContactRepository) List(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*contactsdomain.Contact, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contactsdomain.Contact), args.Error(1)
}

func (m *MockContactRepository) Update(ctx context.Context, q database.Querier, contact *contactsdomain.Contact) error {
	return m.Called(ctx, q, contact).Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, q database.Querier, userID, id uuid.UUID) error {
	return m.Called(ctx, q, userID, id).Error(0)
}

func (m *MockContactRepository) IncrementUnread(ctx context.Context, q database.Querier, contactID uuid.UUID) error {
	return m.Called(ctx, q, contactID).Error(0)
}

func (m *MockContactRepository) ResetUnread(ctx context.Context, q database.Querier, userID, contactID uuid.UUID) error {
	return m.Called(ctx, q, userID, contactID).Error(0)
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

type allowAllAuthorizer struct{ err error }

func (a allowAllAuthorizer) AuthorizeSend(ctx context.Context, actor scope.Actor, number string) error {
	return a.err
}

type captureNotifier struct {
	events []realtime.Event
}

func (n *captureNotifier) Publish(tenantID uuid.UUID, event realtime.Event) {
	n.events = append(n.events, event)
}

func (n *captureNotifier) PublishRoom(tenantID uuid.UUID, room string, event realtime.Event) {
	n.events = append(n.events, event)
}

func (n *captureNotifier) typesSeen() []string {
	var types []string
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

// --- Setup ---

type gatewayFixture struct {
	gateway     *Gateway
	messageRepo *MockMessageRepository
	contactRepo *MockContactRepository
	numberRepo  *MockNumberRepository
	biller      *MockBiller
	provider    *MockProvider
	notifier    *captureNotifier
}

func setupGatewayTest(t *testing.T, authErr error) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{
		messageRepo: new(MockMessageRepository),
		contactRepo: new(MockContactRepository),
		numberRepo:  new(MockNumberRepository),
		biller:      new(MockBiller),
		provider:    new(MockProvider),
		notifier:    &captureNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.gateway = NewGateway(
		f.messageRepo, f.contactRepo, f.numberRepo,
		allowAllAuthorizer{err: authErr}, f.biller, f.provider, f.notifier,
		nil, fakeTxRunner{}, decimal.NewFromFloat(0.05), logger,
	)
	return f
}

func testAdminActor() scope.Actor {
	return scope.FromUser(&identitydomain.User{
		ID: uuid.New(), Role: identitydomain.RoleAdmin, IsActive: true,
	})
}

func testContact(tenantID uuid.UUID) *contactsdomain.Contact {
	return contactsdomain.NewContact(tenantID, "+15557654321", "Dana")
}

// --- Outbound ---

func TestSend_HappyPath(t *testing.T) {
	f := setupGatewayTest(t, nil)
	actor := testAdminActor()
	contact := testContact(actor.TenantID())

	f.contactRepo.On("GetByID", mock.Anything, mock.Anything, actor.TenantID(), contact.ID).Return(contact, nil)
	f.biller.On("Debit", mock.Anything, actor.WalletOwnerID(), decimal.NewFromFloat(0.05), mock.Anything, mock.Anything).
		Return(&ledgerdomain.Transaction{}, nil)
	f.provider.On("Send", mock.Anything, smsprovider.SendRequest{
		From: "+15551234567", To: contact.PhoneNumber, Body: "hello",
	}).Return(&smsprovider.SendResult{ProviderMessageID: "SM123", Segments: 1}, nil)
	f.messageRepo.On("Insert", mock.Anything, mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.IsOutgoing && m.Status == domain.StatusSent && m.ProviderMessageID == "SM123"
	})).Return(nil)

	message, err := f.gateway.Send(context.Background(), actor, contact.ID, "hello", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, actor.TenantID(), message.UserID)
	assert.Equal(t, contact.PhoneNumber, message.ToNumber)
	assert.Contains(t, f.notifier.typesSeen(), realtime.EventMessageNew)
	f.biller.AssertNumberOfCalls(t, "Credit", 0)
}

func TestSend_AuthorizationFailureSkipsDebitAndPersist(t *testing.T) {
	f := setupGatewayTest(t, scope.ErrNoAssignedNumber)
	actor := testAdminActor()
	contact := testContact(actor.TenantID())
	f.contactRepo.On("GetByID", mock.Anything, mock.Anything, actor.TenantID(), contact.ID).Return(contact, nil)

	_, err := f.gateway.Send(context.Background(), actor, contact.ID, "hello", "+15551234567")
	assert.ErrorIs(t, err, scope.ErrNoAssignedNumber)
	f.biller.AssertNotCalled(t, "Debit")
	f.messageRepo.AssertNotCalled(t, "Insert")
	f.provider.AssertNotCalled(t, "Send")
}

func TestSend_InsufficientBalanceStopsBeforeProvider(t *testing.T) {
	f := setupGatewayTest(t, nil)
	actor := testAdminActor()
	contact := testContact(actor.TenantID())
	f.contactRepo.On("GetByID", mock.Anything, mock.Anything, actor.TenantID(), contact.ID).Return(contact, nil)
	f.biller.On("Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ledgerdomain.ErrInsufficientBalance)

	_, err := f.gateway.Send(context.Background(), actor, contact.ID, "hello", "+15551234567")
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientBalance)
	f.provider.AssertNotCalled(t, "Send")
	f.messageRepo.AssertNotCalled(t, "Insert")
}

func TestSend_ProviderFailureRefundsDebit(t *testing.T) {
	f := setupGatewayTest(t, nil)
	actor := testAdminActor()
	contact := testContact(actor.TenantID())
	f.contactRepo.On("GetByID", mock.Anything, mock.Anything, actor.TenantID(), contact.ID).Return(contact, nil)
	f.biller.On("Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&ledgerdomain.Transaction{}, nil)
	f.provider.On("Send", mock.Anything, mock.Anything).Return(nil, smsprovider.ErrSendFailed)
	f.biller.On("Credit", mock.Anything, actor.WalletOwnerID(), decimal.NewFromFloat(0.05), mock.Anything, mock.Anything).
		Return(&ledgerdomain.Transaction{}, nil)

	_, err := f.gateway.Send(context.Background(), actor, contact.ID, "hello", "+15551234567")
	assert.ErrorIs(t, err, smsprovider.ErrSendFailed)
	f.biller.AssertCalled(t, "Credit", mock.Anything, actor.WalletOwnerID(), decimal.NewFromFloat(0.05), mock.Anything, mock.Anything)
	f.messageRepo.AssertNotCalled(t, "Insert")
}

func TestSend_EmptyContent(t *testing.T) {
	f := setupGatewayTest(t, nil)
	_, err := f.gateway.Send(context.Background(), testAdminActor(), uuid.New(), "", "+15551234567")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
	f.contactRepo.AssertNotCalled(t, "GetByID")
}

// --- Inbound ---

func activeNumber(ownerID uuid.UUID, value string) *numberingdomain.PhoneNumber {
	return &numberingdomain.PhoneNumber{
		ID:          uuid.New(),
		UserID:      ownerID,
		Number:      value,
		Status:      numberingdomain.NumberStatusActive,
		Type:        numberingdomain.NumberTypeLocal,
		PurchasedAt: time.Now().UTC(),
	}
}

func TestInbound_RecordsMessageAndBumpsUnread(t *testing.T) {
	f := setupGatewayTest(t, nil)
	ownerID := uuid.New()
	contact := testContact(ownerID)

	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551234567").
		Return(activeNumber(ownerID, "+15551234567"), nil)
	f.contactRepo.On("UpsertOnInbound", mock.Anything, mock.Anything, ownerID, "+15557654321").Return(contact, nil)
	f.messageRepo.On("Insert", mock.Anything, mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return !m.IsOutgoing && m.Status == domain.StatusDelivered && m.ProviderMessageID == "SM900"
	})).Return(nil)
	f.contactRepo.On("IncrementUnread", mock.Anything, mock.Anything, contact.ID).Return(nil)

	err := f.gateway.Inbound(context.Background(), "+15557654321", "+15551234567", "hi there", "SM900")
	require.NoError(t, err)
	assert.Contains(t, f.notifier.typesSeen(), realtime.EventMessageNew)
	assert.Contains(t, f.notifier.typesSeen(), realtime.EventContactsUpdated)
}

func TestInbound_UnknownDestinationIsAcked(t *testing.T) {
	f := setupGatewayTest(t, nil)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15550000000").
		Return(nil, numberingdomain.ErrNumberNotFound)

	err := f.gateway.Inbound(context.Background(), "+15557654321", "+15550000000", "hi", "SM901")
	assert.NoError(t, err)
	f.contactRepo.AssertNotCalled(t, "UpsertOnInbound")
	f.messageRepo.AssertNotCalled(t, "Insert")
}

func TestInbound_ReleasedDestinationIsAcked(t *testing.T) {
	f := setupGatewayTest(t, nil)
	ownerID := uuid.New()
	released := activeNumber(ownerID, "+15551234567")
	released.Status = numberingdomain.NumberStatusInactive
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551234567").Return(released, nil)

	err := f.gateway.Inbound(context.Background(), "+15557654321", "+15551234567", "hi", "SM902")
	assert.NoError(t, err)
	f.messageRepo.AssertNotCalled(t, "Insert")
}

func TestInbound_DuplicateWebhookIsAcked(t *testing.T) {
	f := setupGatewayTest(t, nil)
	ownerID := uuid.New()
	contact := testContact(ownerID)
	f.numberRepo.On("GetByNumber", mock.Anything, mock.Anything, "+15551234567").
		Return(activeNumber(ownerID, "+15551234567"), nil)
	f.contactRepo.On("UpsertOnInbound", mock.Anything, mock.Anything, ownerID, "+15557654321").Return(contact, nil)
	f.messageRepo.On("Insert", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrDuplicateMessage)

	err := f.gateway.Inbound(context.Background(), "+15557654321", "+15551234567", "hi", "SM903")
	assert.NoError(t, err)
	assert.Empty(t, f.notifier.events)
}

// --- Status callbacks ---

func TestApplyStatusCallback_PublishesUpgrade(t *testing.T) {
	f := setupGatewayTest(t, nil)
	updated := &domain.Message{ID: uuid.New(), UserID: uuid.New(), ToNumber: "+15557654321", Status: domain.StatusDelivered}
	f.messageRepo.On("UpdateStatusByProviderID", mock.Anything, mock.Anything, "SM123", domain.StatusDelivered).
		Return(updated, nil)

	err := f.gateway.ApplyStatusCallback(context.Background(), "SM123", domain.StatusDelivered)
	require.NoError(t, err)
	assert.Contains(t, f.notifier.typesSeen(), realtime.EventMessageStatus)
}

func TestApplyStatusCallback_UnknownProviderIDIsAcked(t *testing.T) {
	f := setupGatewayTest(t, nil)
	f.messageRepo.On("UpdateStatusByProviderID", mock.Anything, mock.Anything, "SM404", domain.StatusDelivered).
		Return(nil, domain.ErrMessageNotFound)

	err := f.gateway.ApplyStatusCallback(context.Background(), "SM404", domain.StatusDelivered)
	assert.NoError(t, err)
	assert.Empty(t, f.notifier.events)
}

// --- Read marking ---

func TestMarkConversationRead(t *testing.T) {
	f := setupGatewayTest(t, nil)
	tenantID := uuid.New()
	contact := testContact(tenantID)

	f.messageRepo.On("MarkConversationRead", mock.Anything, mock.Anything, tenantID, contact.ID).
		Return(int64(3), nil)
	f.contactRepo.On("ResetUnread", mock.Anything, mock.Anything, tenantID, contact.ID).Return(nil)
	f.contactRepo.On("GetByID", mock.Anything, mock.Anything, tenantID, contact.ID).Return(contact, nil)

	err := f.gateway.MarkConversationRead(context.Background(), tenantID, contact.ID)
	require.NoError(t, err)
	assert.Contains(t, f.notifier.typesSeen(), realtime.EventContactsUpdated)
}

func TestMarkConversationRead_TxFailureSkipsEvent(t *testing.T) {
	f := setupGatewayTest(t, nil)
	tenantID := uuid.New()
	contactID := uuid.New()
	f.messageRepo.On("MarkConversationRead", mock.Anything, mock.Anything, tenantID, contactID).
		Return(int64(0), errors.New("db down"))

	err := f.gateway.MarkConversationRead(context.Background(), tenantID, contactID)
	assert.Error(t, err)
	assert.Empty(t, f.notifier.events)
}
