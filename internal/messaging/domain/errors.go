package domain

import "errors"

var (
	ErrMessageNotFound = errors.New("message not found")
	// ErrDuplicateMessage signals a replayed provider webhook; the caller
	// acknowledges without writing anything.
	ErrDuplicateMessage = errors.New("message already recorded")
	ErrEmptyContent     = errors.New("message content is empty")
)
