package orders

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/revuetix/internal/domain"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrSeatsUnavailable    = errors.New("seats no longer available")
	ErrNoCheckoutSession   = errors.New("order has no checkout session")
	ErrNoPaymentIntent     = errors.New("payment intent not found for this session")
	ErrPaymentProviderDown = errors.New("payment provider unavailable")
)

// InvalidSeatsError carries the seats that failed verification.
type InvalidSeatsError struct {
	Seats []domain.SeatRef
}

func (e *InvalidSeatsError) Error() string {
	return fmt.Sprintf("%d seat(s) no longer available", len(e.Seats))
}

func (e *InvalidSeatsError) Unwrap() error {
	return ErrSeatsUnavailable
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
}
