package apperr

import "errors"

// Sentinel errors shared across store, service, and api layers.
// Handlers map these to HTTP statuses; wrap with %w so errors.Is
// works through layers.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found for order")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrDuplicateOrder     = errors.New("active order already exists for user and product")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDuplicatePayment   = errors.New("payment already recorded for order")
	ErrAmountMismatch     = errors.New("callback amount does not match order total")
	ErrOrderNotPayable    = errors.New("order is not awaiting payment")
	ErrNotOwner           = errors.New("order does not belong to user")
	ErrNotRefundable      = errors.New("order is not in a refundable state")
	ErrWindowExpired      = errors.New("refund window has expired")
	ErrGatewayDeclined    = errors.New("gateway declined checkout request")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
)
