package seats

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/revuetix/internal/domain"
)

var (
	ErrPerformanceNotFound = errors.New("performance not found")
	ErrNoSeats             = errors.New("no seats selected")
	ErrTooManySeats        = errors.New("too many seats selected")
	ErrDuplicateSeat       = errors.New("seat selected more than once")
	ErrSeatsUnavailable    = errors.New("seats no longer available")
	ErrRateLimited         = errors.New("too many requests")
)

// UnavailableError lists the seats that cannot be booked by the caller.
type UnavailableError struct {
	Seats []domain.SeatRef
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%d seat(s) no longer available", len(e.Seats))
}

func (e *UnavailableError) Unwrap() error {
	return ErrSeatsUnavailable
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
