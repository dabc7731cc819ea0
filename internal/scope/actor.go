// Package scope centralizes authorization: which numbers an actor may send
// from and whose wallet pays. Role checks live here instead of being
// scattered across handlers.
package scope

import (
	"github.com/google/uuid"

	identitydomain "github.com/textlane/textlane/internal/identity/domain"
)

// Actor is the capability view of an authenticated user.
type Actor interface {
	// ActorID is the authenticated user's own id.
	ActorID() uuid.UUID
	// TenantID is the admin identity owning the data the actor operates on.
	TenantID() uuid.UUID
	// WalletOwnerID is whose wallet pays for this actor's sends.
	WalletOwnerID() uuid.UUID
	// CanAccessWallet reports whether the actor may inspect, top up, or
	// transfer from wallets. Only admins can; sub-account wallets are spent
	// by the gateway on their behalf.
	CanAccessWallet() bool
	// User returns the underlying identity.
	User() *identitydomain.User
}

// AdminActor is a tenant owner.
type AdminActor struct {
	user *identitydomain.User
}

func (a AdminActor) ActorID() uuid.UUID         { return a.user.ID }
func (a AdminActor) TenantID() uuid.UUID        { return a.user.ID }
func (a AdminActor) WalletOwnerID() uuid.UUID   { return a.user.ID }
func (a AdminActor) CanAccessWallet() bool      { return true }
func (a AdminActor) User() *identitydomain.User { return a.user }

// SubAccountActor is a restricted actor operating under its admin's tenant,
// spending from its own transfer-funded wallet.
type SubAccountActor struct {
	user *identitydomain.User
}

func (a SubAccountActor) ActorID() uuid.UUID       { return a.user.ID }
func (a SubAccountActor) TenantID() uuid.UUID      { return a.user.TenantID() }
func (a SubAccountActor) WalletOwnerID() uuid.UUID { return a.user.ID }
func (a SubAccountActor) CanAccessWallet() bool      { return false }
func (a SubAccountActor) User() *identitydomain.User { return a.user }

// FromUser wraps an identity in its role's capability type.
func FromUser(u *identitydomain.User) Actor {
	if u.Role == identitydomain.RoleSubAccount {
		return SubAccountActor{user: u}
	}
	return AdminActor{user: u}
}
