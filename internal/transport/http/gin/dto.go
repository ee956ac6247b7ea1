package httpgin

import (
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/pricing"
	"github.com/kirinyoku/revuetix/internal/service/tickets"
	"github.com/shopspring/decimal"
)

type SeatInput struct {
	RowLabel string          `json:"rowLabel" binding:"required,alpha"`
	Number   int             `json:"number" binding:"required,gt=0"`
	SeatType domain.SeatType `json:"seatType" binding:"required,oneof=Standard VIP"`
}

type CreateOrderRequest struct {
	FirstName     string           `json:"firstName" binding:"required"`
	LastName      string           `json:"lastName" binding:"required"`
	Email         string           `json:"email" binding:"required,email"`
	Phone         string           `json:"phone" binding:"required"`
	IsStudent     *bool            `json:"isStudent" binding:"required"`
	StudentCount  int              `json:"studentCount" binding:"gte=0"`
	SelectedDate  string           `json:"selectedDate" binding:"required,showdate"`
	SelectedSeats []SeatInput      `json:"selectedSeats" binding:"required,min=1,dive"`
	TotalPrice    *decimal.Decimal `json:"totalPrice"`
}

func (r *CreateOrderRequest) seats() []domain.OrderSeat {
	return toOrderSeats(r.SelectedSeats)
}

func toOrderSeats(in []SeatInput) []domain.OrderSeat {
	out := make([]domain.OrderSeat, len(in))
	for i, s := range in {
		out[i] = domain.OrderSeat{RowLabel: s.RowLabel, Number: s.Number, SeatType: s.SeatType}
	}
	return out
}

type UpdateOrderRequest struct {
	FirstName     string           `json:"firstName" binding:"required"`
	LastName      string           `json:"lastName" binding:"required"`
	Email         string           `json:"email" binding:"required,email"`
	Phone         string           `json:"phone" binding:"required"`
	IsStudent     bool             `json:"isStudent"`
	StudentCount  int              `json:"studentCount" binding:"gte=0"`
	SelectedDate  string           `json:"selectedDate" binding:"required,showdate"`
	SelectedSeats []SeatInput      `json:"selectedSeats" binding:"omitempty,dive"`
	TotalPrice    *decimal.Decimal `json:"totalPrice" binding:"required"`
	Paid          bool             `json:"paid"`
}

func (r *UpdateOrderRequest) patch() domain.OrderPatch {
	p := domain.OrderPatch{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		IsStudent:    r.IsStudent,
		StudentCount: r.StudentCount,
		SelectedDate: r.SelectedDate,
		TotalCents:   pricing.Cents(*r.TotalPrice),
		Paid:         r.Paid,
	}
	if r.SelectedSeats != nil {
		p.SelectedSeats = toOrderSeats(r.SelectedSeats)
	}
	return p
}

type SeatsRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,required"`
}

func (r *SeatsRequest) refs() ([]domain.SeatRef, error) {
	out := make([]domain.SeatRef, len(r.Seats))
	for i, s := range r.Seats {
		ref, err := domain.ParseSeatRef(s)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

type ScanRequest struct {
	QRData string `json:"qrData" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreatePerformanceRequest struct {
	Date  string             `json:"date" binding:"required,showdate"`
	Title string             `json:"title" binding:"required"`
	Rows  []domain.RowLayout `json:"rows" binding:"required,min=1"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SeatsUnavailableResponse struct {
	Error        string           `json:"error"`
	InvalidSeats []domain.SeatRef `json:"invalidSeats"`
}

type OrderResponse struct {
	Order *domain.Order `json:"order"`
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type PaymentStatusResponse struct {
	PaymentStatus string `json:"paymentStatus"`
}

type LockSeatsResponse struct {
	Seats     []string  `json:"seats"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ReleaseSeatsResponse struct {
	Released int `json:"released"`
}

type ScanResponse struct {
	Success bool               `json:"success"`
	Order   *tickets.OrderInfo `json:"order"`
}

type SeatQRResponse struct {
	QRCode string `json:"qrCode"`
}

type CreatePerformanceResponse struct {
	Performance *domain.Performance `json:"performance"`
	Seats       int                 `json:"seats"`
}

type PerformancesResponse struct {
	Performances []domain.PerformanceAvailability `json:"performances"`
}

type SeatMapResponse struct {
	Date  string            `json:"date"`
	Seats []domain.SeatView `json:"seats"`
}

func parseOrderID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	return id, err == nil
}
