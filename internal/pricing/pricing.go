// Package pricing computes order totals from the seats being bought.
package pricing

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	VIPPrice      = decimal.RequireFromString("45.00")
	StandardPrice = decimal.RequireFromString("35.00")
	StudentPrice  = decimal.RequireFromString("25.00")

	// FeeRate is the booking fee applied to the ticket subtotal.
	FeeRate = decimal.RequireFromString("0.03")
)

var ErrUnknownSeatType = errors.New("unknown seat type")

type LineItem struct {
	Seat       domain.OrderSeat
	Name       string
	UnitAmount decimal.Decimal
	Student    bool
}

type Quote struct {
	Items    []LineItem
	Subtotal decimal.Decimal
	Fee      decimal.Decimal
	Total    decimal.Decimal
}

func (q Quote) TotalCents() int64 {
	return Cents(q.Total)
}

func (q Quote) FeeCents() int64 {
	return Cents(q.Fee)
}

// Price prices the seats in order. The student price applies to at most
// studentCount Standard seats; VIP seats are never discounted.
func Price(seats []domain.OrderSeat, isStudent bool, studentCount int) (Quote, error) {
	const op = "pricing.Price"

	q := Quote{
		Items:    make([]LineItem, 0, len(seats)),
		Subtotal: decimal.Zero,
	}

	remaining := 0
	if isStudent {
		remaining = studentCount
	}

	for _, s := range seats {
		item := LineItem{Seat: s}

		switch s.SeatType {
		case domain.SeatVIP:
			item.UnitAmount = VIPPrice
			item.Name = fmt.Sprintf("VIP Seat %s", s.Ref())
		case domain.SeatStandard:
			if remaining > 0 {
				item.UnitAmount = StudentPrice
				item.Student = true
				item.Name = fmt.Sprintf("Standard Seat %s (Student)", s.Ref())
				remaining--
			} else {
				item.UnitAmount = StandardPrice
				item.Name = fmt.Sprintf("Standard Seat %s", s.Ref())
			}
		default:
			return Quote{}, fmt.Errorf("%s: %q: %w", op, s.SeatType, ErrUnknownSeatType)
		}

		q.Items = append(q.Items, item)
		q.Subtotal = q.Subtotal.Add(item.UnitAmount)
	}

	q.Fee = q.Subtotal.Mul(FeeRate).Round(2)
	q.Total = q.Subtotal.Add(q.Fee)

	return q, nil
}

// Cents converts a dollar amount to integer cents, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts integer cents to a dollar amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Format renders cents as "$12.34".
func Format(c int64) string {
	return "$" + FromCents(c).StringFixed(2)
}
