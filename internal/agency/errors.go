package agency

import "errors"

var (
	ErrNotFound         = errors.New("agency not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidInput     = errors.New("invalid input")
)
