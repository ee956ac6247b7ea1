package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/pricing"
	"github.com/kirinyoku/revuetix/internal/repository"
	"github.com/kirinyoku/revuetix/internal/ticket"
)

type OrderReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SeatOrderIDs(ctx context.Context, date string, seat domain.SeatRef, includeUnpaid bool) ([]uuid.UUID, error)
}

// Show is the venue information printed on a scanned ticket.
type Show struct {
	ShowTime  string
	DoorsOpen string
	Location  string
}

type Service struct {
	orders OrderReader
	signer *ticket.Signer
	show   Show
}

func New(orders OrderReader, signer *ticket.Signer, show Show) *Service {
	return &Service{
		orders: orders,
		signer: signer,
		show:   show,
	}
}

// OrderInfo is what the door staff see after scanning a ticket.
type OrderInfo struct {
	OrderID      uuid.UUID          `json:"orderId"`
	CustomerName string             `json:"customerName"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	ShowDate     string             `json:"showDate"`
	ShowTime     string             `json:"showTime"`
	DoorsOpen    string             `json:"doorsOpen"`
	Location     string             `json:"location"`
	Seats        string             `json:"seats"`
	TotalPrice   string             `json:"totalPrice"`
	IsStudent    bool               `json:"isStudent"`
	StudentCount int                `json:"studentCount"`
	Paid         bool               `json:"paid"`
	SeatDetails  []domain.OrderSeat `json:"seatDetails"`
}

func (s *Service) order(ctx context.Context, rawID string) (*domain.Order, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return o, nil
}

// OrderQR renders the ticket QR of an order linked from its confirmation
// email. The signature must match the order id.
func (s *Service) OrderQR(ctx context.Context, orderID, signature string) ([]byte, error) {
	const op = "service.tickets.OrderQR"

	if !s.signer.Verify(orderID, signature) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	png, err := ticket.PNG(s.signer.Payload(o.ID.String()), ticket.DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return png, nil
}

// Scan resolves a scanned "orderId.signature" payload to the order it names.
func (s *Service) Scan(ctx context.Context, data string) (*OrderInfo, error) {
	const op = "service.tickets.Scan"

	msg, err := s.signer.Open(data)
	switch {
	case errors.Is(err, ticket.ErrBadSignature):
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQRData)
	}

	o, err := s.order(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &OrderInfo{
		OrderID:      o.ID,
		CustomerName: o.CustomerName(),
		Email:        o.Email,
		Phone:        o.Phone,
		ShowDate:     o.SelectedDate,
		ShowTime:     s.show.ShowTime,
		DoorsOpen:    s.show.DoorsOpen,
		Location:     s.show.Location,
		Seats:        o.SeatList(),
		TotalPrice:   pricing.Format(o.TotalCents),
		IsStudent:    o.IsStudent,
		StudentCount: o.StudentCount,
		Paid:         o.Paid,
		SeatDetails:  o.SelectedSeats,
	}, nil
}

// SeatPayload returns the signed payload of a walk-in ticket for one seat.
// Seats held by any order, paid or not, are refused.
//
// Parameters:
//   - ctx: request-scoped context.
//   - date: performance date (YYYY-MM-DD).
//   - seatNumber: compact seat reference such as "A12".
//
// Returns:
//   - string: "A12:<date>.<signature>".
//   - error: ErrInvalidSeat, ErrInvalidDate or ErrSeatBooked.
func (s *Service) SeatPayload(ctx context.Context, date, seatNumber string) (string, error) {
	const op = "service.tickets.SeatPayload"

	date = strings.TrimSpace(date)
	if _, err := time.Parse(domain.ShowDateLayout, date); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidDate)
	}

	seat, err := domain.ParseSeatRef(seatNumber)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidSeat)
	}

	ids, err := s.orders.SeatOrderIDs(ctx, date, seat, true)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) > 0 {
		return "", fmt.Errorf("%s: %w", op, ErrSeatBooked)
	}

	return s.signer.Payload(ticket.SeatMessage(date, seat)), nil
}

func (s *Service) SeatDataURL(ctx context.Context, date, seatNumber string) (string, error) {
	payload, err := s.SeatPayload(ctx, date, seatNumber)
	if err != nil {
		return "", err
	}
	return ticket.DataURL(payload, ticket.DefaultSize)
}

func (s *Service) SeatPNG(ctx context.Context, date, seatNumber string) ([]byte, error) {
	payload, err := s.SeatPayload(ctx, date, seatNumber)
	if err != nil {
		return nil, err
	}
	return ticket.PNG(payload, ticket.DefaultSize)
}
