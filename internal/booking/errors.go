package booking

import "errors"

var (
	ErrNotFound  = errors.New("booking not found")
	ErrForbidden = errors.New("booking belongs to another user")
	ErrVoucher   = errors.New("invalid voucher")
)
