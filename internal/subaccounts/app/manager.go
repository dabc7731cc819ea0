// Package app implements sub-account administration: an admin creates
// restricted logins under its tenant, grants them numbers it owns, and
// funds their wallets by transfer.
package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	identityapp "github.com/textlane/textlane/internal/identity/app"
	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	identityrepo "github.com/textlane/textlane/internal/identity/repository"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	ledgerrepo "github.com/textlane/textlane/internal/ledger/repository"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// ErrNotSubAccount is returned when the target user is not a sub-account of
// the calling admin. Foreign sub-accounts are indistinguishable from
// missing ones on purpose.
var ErrNotSubAccount = errors.New("sub-account not found")

// FundsLedger is the slice of the ledger the manager needs.
type FundsLedger interface {
	Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal) error
}

// SubAccountView is a sub-account joined with its wallet balance for the
// admin dashboard.
type SubAccountView struct {
	User    *identitydomain.User `json:"user"`
	Balance decimal.Decimal      `json:"balance"`
}

type Manager struct {
	userRepo   identityrepo.UserRepository
	numberRepo numberingrepo.NumberRepository
	walletRepo ledgerrepo.WalletRepository
	ledger     FundsLedger
	db         database.Querier
	logger     *slog.Logger
}

func NewManager(
	userRepo identityrepo.UserRepository,
	numberRepo numberingrepo.NumberRepository,
	walletRepo ledgerrepo.WalletRepository,
	ledger FundsLedger,
	db database.Querier,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		userRepo:   userRepo,
		numberRepo: numberRepo,
		walletRepo: walletRepo,
		ledger:     ledger,
		db:         db,
		logger:     logger.With("service", "subaccounts"),
	}
}

// owned fetches the target and verifies it is a sub-account of adminID.
func (m *Manager) owned(ctx context.Context, adminID, subID uuid.UUID) (*identitydomain.User, error) {
	sub, err := m.userRepo.GetByID(ctx, m.db, subID)
	if err != nil {
		if errors.Is(err, identitydomain.ErrUserNotFound) {
			return nil, ErrNotSubAccount
		}
		return nil, err
	}
	if sub.Role != identitydomain.RoleSubAccount || sub.AdminID == nil || *sub.AdminID != adminID {
		return nil, ErrNotSubAccount
	}
	return sub, nil
}

// Create registers a new sub-account login under the admin's tenant. The
// sub-account starts with no number grants and no wallet; both come later
// from the admin.
func (m *Manager) Create(ctx context.Context, adminID uuid.UUID, email, name, password string) (*identitydomain.User, error) {
	hashed, err := identityapp.HashPassword(password)
	if err != nil {
		return nil, err
	}

	sub := &identitydomain.User{
		ID:              uuid.New(),
		Email:           email,
		Name:            name,
		HashedPassword:  hashed,
		Role:            identitydomain.RoleSubAccount,
		AdminID:         &adminID,
		AssignedNumbers: []string{},
		IsActive:        true,
	}
	if err := m.userRepo.Create(ctx, m.db, sub); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "sub-account created", "admin_id", adminID, "sub_account_id", sub.ID)
	return sub, nil
}

// List returns the admin's sub-accounts with their wallet balances.
func (m *Manager) List(ctx context.Context, adminID uuid.UUID) ([]SubAccountView, error) {
	subs, err := m.userRepo.ListSubAccounts(ctx, m.db, adminID)
	if err != nil {
		return nil, err
	}

	views := make([]SubAccountView, 0, len(subs))
	for _, sub := range subs {
		balance := decimal.Zero
		wallet, err := m.walletRepo.GetByUserID(ctx, m.db, sub.ID)
		if err != nil && !errors.Is(err, ledgerdomain.ErrWalletNotFound) {
			return nil, err
		}
		if wallet != nil {
			balance = wallet.Balance
		}
		views = append(views, SubAccountView{User: sub, Balance: balance})
	}
	return views, nil
}

func (m *Manager) Get(ctx context.Context, adminID, subID uuid.UUID) (*identitydomain.User, error) {
	return m.owned(ctx, adminID, subID)
}

// SetActive toggles the sub-account. Deactivation is a flag, not a delete:
// history and the wallet survive, and reactivation restores prior grants.
// The scope resolver and token validation both consult the flag, so a
// deactivated sub-account loses access on its next request.
func (m *Manager) SetActive(ctx context.Context, adminID, subID uuid.UUID, active bool) error {
	sub, err := m.owned(ctx, adminID, subID)
	if err != nil {
		return err
	}
	if err := m.userRepo.SetActive(ctx, m.db, sub.ID, active); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "sub-account active flag changed",
		"admin_id", adminID, "sub_account_id", subID, "active", active)
	return nil
}

// AssignNumber grants a sub-account the right to send from one of the
// admin's numbers. The number must be owned by the admin and not released.
func (m *Manager) AssignNumber(ctx context.Context, adminID, subID uuid.UUID, number string) error {
	sub, err := m.owned(ctx, adminID, subID)
	if err != nil {
		return err
	}

	owned, err := m.numberRepo.GetByNumber(ctx, m.db, number)
	if err != nil {
		if errors.Is(err, numberingdomain.ErrNumberNotFound) {
			return numberingdomain.ErrNotOwner
		}
		return err
	}
	if owned.UserID != adminID {
		return numberingdomain.ErrNotOwner
	}
	if owned.Status != numberingdomain.NumberStatusActive {
		return numberingdomain.ErrNumberInactive
	}

	if slices.Contains(sub.AssignedNumbers, number) {
		return nil
	}
	grants := append(slices.Clone(sub.AssignedNumbers), number)
	if err := m.userRepo.SetAssignedNumbers(ctx, m.db, sub.ID, grants); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "number assigned",
		"admin_id", adminID, "sub_account_id", subID, "number", number)
	return nil
}

// RevokeNumber removes a grant. Revoking a number the sub-account never had
// is a no-op.
func (m *Manager) RevokeNumber(ctx context.Context, adminID, subID uuid.UUID, number string) error {
	sub, err := m.owned(ctx, adminID, subID)
	if err != nil {
		return err
	}

	grants := slices.DeleteFunc(slices.Clone(sub.AssignedNumbers), func(n string) bool {
		return n == number
	})
	if len(grants) == len(sub.AssignedNumbers) {
		return nil
	}
	if err := m.userRepo.SetAssignedNumbers(ctx, m.db, sub.ID, grants); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "number revoked",
		"admin_id", adminID, "sub_account_id", subID, "number", number)
	return nil
}

// TransferFunds moves money from the admin's wallet into the sub-account's.
// The ledger enforces parentage and atomicity.
func (m *Manager) TransferFunds(ctx context.Context, adminID, subID uuid.UUID, amount decimal.Decimal) error {
	if _, err := m.owned(ctx, adminID, subID); err != nil {
		return err
	}
	return m.ledger.Transfer(ctx, adminID, subID, amount)
}
