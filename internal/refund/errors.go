package refund

import "errors"

var (
	ErrNotFound          = errors.New("refund not found")
	ErrInvalidInput      = errors.New("invalid refund request")
	ErrForbidden         = errors.New("refund belongs to another user")
	ErrConflict          = errors.New("an open refund already exists for this booking")
	ErrInvalidTransition = errors.New("refund cannot move to that status")
	ErrInProgress        = errors.New("refund is already being processed")
)
