package tickets

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidQRData    = errors.New("invalid qr code format")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidSeat      = errors.New("invalid seat number format")
	ErrInvalidDate      = errors.New("invalid date")
	ErrSeatBooked       = errors.New("seat already booked")
)
