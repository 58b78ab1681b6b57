package user

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicate    = errors.New("email or phone already in use")
	ErrInvalidInput = errors.New("invalid input")
)
