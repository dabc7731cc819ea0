package domain

import "errors"

var (
	// ErrWalletNotFound indicates no wallet exists for the owner.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInsufficientBalance indicates the debit would overdraw the wallet,
	// or the wallet is inactive.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrUnauthorizedTransferTarget indicates the transfer destination is not
	// a sub-account of the source admin.
	ErrUnauthorizedTransferTarget = errors.New("transfer target is not a sub-account of this admin")
)
