package scope

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	ledgerrepo "github.com/textlane/textlane/internal/ledger/repository"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
)

// Resolver answers authorization questions for send operations. Nothing is
// cached beyond the request: revoking a grant or releasing a number takes
// effect on the next call.
type Resolver struct {
	numberRepo numberingrepo.NumberRepository
	walletRepo ledgerrepo.WalletRepository
	db         database.Querier
	logger     *slog.Logger
}

func NewResolver(
	numberRepo numberingrepo.NumberRepository,
	walletRepo ledgerrepo.WalletRepository,
	db database.Querier,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		numberRepo: numberRepo,
		walletRepo: walletRepo,
		db:         db,
		logger:     logger.With("service", "scope"),
	}
}

func (r *Resolver) tenantSuspended(ctx context.Context, actor Actor) (bool, error) {
	wallet, err := r.walletRepo.GetByUserID(ctx, r.db, actor.TenantID())
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrWalletNotFound) {
			return false, nil
		}
		return false, err
	}
	return wallet.ServiceSuspended, nil
}

// SendableNumbers resolves the set of numbers the actor may send from: for
// admins the owned active set, for sub-accounts the intersection of the
// grant with the admin's owned active set. A suspended tenant resolves to
// an empty set.
func (r *Resolver) SendableNumbers(ctx context.Context, actor Actor) ([]*numberingdomain.PhoneNumber, error) {
	suspended, err := r.tenantSuspended(ctx, actor)
	if err != nil {
		return nil, err
	}
	if suspended {
		return nil, nil
	}

	owned, err := r.numberRepo.ListActiveByOwner(ctx, r.db, actor.TenantID())
	if err != nil {
		return nil, err
	}

	user := actor.User()
	if user.Role != identitydomain.RoleSubAccount {
		return owned, nil
	}
	if !user.IsActive {
		return nil, nil
	}

	granted := make([]*numberingdomain.PhoneNumber, 0, len(owned))
	for _, n := range owned {
		if slices.Contains(user.AssignedNumbers, n.Number) {
			granted = append(granted, n)
		}
	}
	return granted, nil
}

// AuthorizeSend checks whether the actor may send from the given number.
// Rejections are typed: admins get ErrNoPhoneNumber / ErrInvalidNumber so
// the client can distinguish "buy a number" from "pick another number";
// sub-accounts always get ErrNoAssignedNumber regardless of why the grant
// is unusable.
func (r *Resolver) AuthorizeSend(ctx context.Context, actor Actor, number string) error {
	suspended, err := r.tenantSuspended(ctx, actor)
	if err != nil {
		return err
	}
	if suspended {
		return ErrServiceSuspended
	}

	owned, err := r.numberRepo.ListActiveByOwner(ctx, r.db, actor.TenantID())
	if err != nil {
		return err
	}

	ownsRequested := false
	for _, n := range owned {
		if n.Number == number {
			ownsRequested = true
			break
		}
	}

	user := actor.User()
	if user.Role == identitydomain.RoleSubAccount {
		if !user.IsActive || !ownsRequested || !slices.Contains(user.AssignedNumbers, number) {
			return ErrNoAssignedNumber
		}
		return nil
	}

	if len(owned) == 0 {
		return ErrNoPhoneNumber
	}
	if !ownsRequested {
		return ErrInvalidNumber
	}
	return nil
}

// CanUseNumber is the boolean form of AuthorizeSend.
func (r *Resolver) CanUseNumber(ctx context.Context, actor Actor, number string) bool {
	return r.AuthorizeSend(ctx, actor, number) == nil
}

// CanAccessWallet reports whether the actor may operate on wallets directly.
func (r *Resolver) CanAccessWallet(actor Actor) bool {
	return actor.CanAccessWallet()
}
