package scope

import "errors"

// Send-authorization rejections. The HTTP layer maps each to a
// machine-readable code so clients can branch without string matching.
var (
	// ErrNoPhoneNumber: the admin owns no active numbers at all.
	ErrNoPhoneNumber = errors.New("no phone number owned")
	// ErrInvalidNumber: the admin owns numbers, but not this one (or it is
	// released).
	ErrInvalidNumber = errors.New("phone number not owned or not active")
	// ErrNoAssignedNumber: the sub-account has no usable grant for this
	// number.
	ErrNoAssignedNumber = errors.New("no assigned phone number")
	// ErrServiceSuspended: the tenant's service is suspended for unpaid
	// recurring charges.
	ErrServiceSuspended = errors.New("service suspended")
)
