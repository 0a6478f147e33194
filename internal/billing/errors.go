package billing

import "errors"

var (
	ErrInvalidLineItem = errors.New("invalid_line_item")
	ErrInvalidDiscount = errors.New("invalid_discount")
	ErrOverpayment     = errors.New("overpayment")
)
