package domain

import "errors"

var (
	// Wallet errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrSameUser          = errors.New("cannot transfer to same user")

	// Ticket errors
	ErrNotFound       = errors.New("not found")
	ErrTicketNotFound = wrapNotFound("ticket not found")
	ErrNotOwner       = errors.New("caller does not own the ticket")
	ErrInvalidState   = errors.New("invalid state for this operation")
	ErrAlreadyUsed    = errors.New("ticket already used")

	// Purchase errors
	ErrInvalidQuantity  = errors.New("invalid ticket quantity")
	ErrMissingAttendee  = errors.New("attendee name is required for every ticket")
	ErrPurchaseNotFound = wrapNotFound("purchase not found")

	// Payment errors
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownOrder     = errors.New("unknown order")
	ErrUpstream         = errors.New("payment processor error")
	ErrInvoiceNotFound  = wrapNotFound("invoice not found")

	// User errors
	ErrUserNotFound = wrapNotFound("user not found")
)

type notFoundError struct {
	msg string
}

func wrapNotFound(msg string) error {
	return &notFoundError{msg: msg}
}

func (e *notFoundError) Error() string { return e.msg }

// Is makes every specific not-found error match ErrNotFound.
func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}
