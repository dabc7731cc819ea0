package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes full tenant owners from restricted sub-accounts.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSubAccount Role = "sub_account"
)

// User is an authenticated identity. Admin users own phone numbers and a
// wallet; sub-accounts reference their owning admin and carry a grant of
// numbers they may send from. Sub-accounts are deactivated, never deleted.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	HashedPassword  string     `json:"-"`
	Role            Role       `json:"role"`
	AdminID         *uuid.UUID `json:"admin_id,omitempty"`
	AssignedNumbers []string   `json:"assigned_numbers,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user is a tenant owner.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// TenantID returns the admin identity that owns this user's data: the user
// itself for admins, the parent admin for sub-accounts.
func (u *User) TenantID() uuid.UUID {
	if u.Role == RoleSubAccount && u.AdminID != nil {
		return *u.AdminID
	}
	return u.ID
}
