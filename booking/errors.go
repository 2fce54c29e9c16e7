package booking

import "errors"

// Advisory failures. The remote API stays the final authority on every booking.
var (
	ErrInvalidRange     = errors.New("check-out must be after check-in")
	ErrCapacityExceeded = errors.New("guest count exceeds unit capacity")
	ErrNoAvailability   = errors.New("no unit available for the requested dates")
	ErrServerConflict   = errors.New("booking rejected by server")

	ErrUnknownUnit     = errors.New("unknown unit")
	ErrUnknownClient   = errors.New("unknown client")
	ErrUnknownService  = errors.New("unknown service")
	ErrUnknownPromo    = errors.New("unknown promo code")
	ErrInvalidDiscount = errors.New("discount percent out of range")
	ErrIncomplete      = errors.New("booking form is incomplete")
)
