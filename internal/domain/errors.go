package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these, so callers can
// classify with errors.Is without matching on the specific condition.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrPaymentMismatch  = errors.New("payment amount mismatch")
	ErrPaymentFailed    = errors.New("payment failed")
)

var (
	ErrEventNameRequired = fmt.Errorf("%w: event name required", ErrInvalidInput)
	ErrDateNotFuture     = fmt.Errorf("%w: event date must be in the future", ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	ErrInvalidTotal      = fmt.Errorf("%w: total ticket count must be positive", ErrInvalidInput)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	ErrInvalidIdentity   = fmt.Errorf("%w: identity must not be empty", ErrInvalidInput)
	ErrSelfTransfer      = fmt.Errorf("%w: cannot transfer a ticket to yourself", ErrInvalidInput)

	ErrEventNotFound  = fmt.Errorf("event %w", ErrNotFound)
	ErrTicketNotFound = fmt.Errorf("ticket %w", ErrNotFound)

	ErrNotOrganizer   = fmt.Errorf("%w: caller is not the event organizer", ErrUnauthorized)
	ErrNotTicketOwner = fmt.Errorf("%w: caller does not own the ticket", ErrUnauthorized)

	ErrEventInactive = fmt.Errorf("%w: event is cancelled", ErrInvalidState)
	ErrEventStarted  = fmt.Errorf("%w: event date has passed", ErrInvalidState)
	ErrTicketUsed    = fmt.Errorf("%w: ticket already used", ErrInvalidState)

	ErrSoldOut    = fmt.Errorf("%w: not enough tickets available", ErrCapacityExceeded)
	ErrPerUserCap = fmt.Errorf("%w: per-user ticket limit reached", ErrCapacityExceeded)
)
