package promotion

import "errors"

var (
	ErrNotFound        = errors.New("promotion not found")
	ErrInvalidInput    = errors.New("invalid promotion")
	ErrDuplicateCode   = errors.New("promotion code already exists")
	ErrLimitReached    = errors.New("promotion has no uses remaining")
	ErrAlreadyRedeemed = errors.New("promotion already redeemed by user")
)

// Customer-facing rejection messages.
const (
	MsgNotFound       = "Mã khuyến mãi không tồn tại"
	MsgUnavailable    = "Mã khuyến mãi không khả dụng"
	MsgOutsideWindow  = "Mã khuyến mãi đã hết hạn hoặc chưa có hiệu lực"
	MsgLimitReached   = "Mã khuyến mãi đã hết lượt sử dụng"
	MsgAlreadyUsed    = "Bạn đã sử dụng mã khuyến mãi này"
	msgMinOrderFormat = "Đơn hàng tối thiểu %sđ để sử dụng mã này"
	MsgValid          = "Áp dụng mã khuyến mãi thành công"
)
