package services

import "errors"

// Business-rule rejections. These are expected outcomes, reported to the
// caller as 4xx and never logged as faults.
var (
	ErrInsufficientBalance     = errors.New("insufficient credit balance")
	ErrReceiptAlreadyProcessed = errors.New("purchase receipt already processed")
	ErrTransferNotFound        = errors.New("credit transfer not found")
	ErrTransferAlreadyUsed     = errors.New("credit transfer already redeemed")
	ErrTransferExpired         = errors.New("credit transfer expired")
	ErrOrderNotFound           = errors.New("order not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrTerminalStatus          = errors.New("order is in a terminal status")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrEmptyOrder              = errors.New("order has no items")
)
