package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SeatType string

const (
	SeatStandard SeatType = "Standard"
	SeatVIP      SeatType = "VIP"
)

func (t SeatType) Valid() bool {
	return t == SeatStandard || t == SeatVIP
}

// ShowDateLayout is the format of a performance date ("selected date").
const ShowDateLayout = "2006-01-02"

var ErrInvalidSeatRef = errors.New("invalid seat number format")

var (
	seatRefPattern  = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)
	rowLabelPattern = regexp.MustCompile(`^[A-Za-z]+$`)
)

// ValidRowLabel reports whether label can name a row, i.e. letters only.
func ValidRowLabel(label string) bool {
	return rowLabelPattern.MatchString(label)
}

// SeatRef identifies a seat within a performance.
type SeatRef struct {
	RowLabel string `json:"rowLabel"`
	Number   int    `json:"number"`
}

func (r SeatRef) String() string {
	return r.RowLabel + strconv.Itoa(r.Number)
}

// ParseSeatRef parses the compact "A12" form.
func ParseSeatRef(s string) (SeatRef, error) {
	m := seatRefPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return SeatRef{}, fmt.Errorf("%q: %w", s, ErrInvalidSeatRef)
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return SeatRef{}, fmt.Errorf("%q: %w", s, ErrInvalidSeatRef)
	}

	return SeatRef{RowLabel: m[1], Number: n}, nil
}

// OrderSeat is a seat as it was purchased.
type OrderSeat struct {
	RowLabel string   `json:"rowLabel"`
	Number   int      `json:"number"`
	SeatType SeatType `json:"seatType"`
}

func (s OrderSeat) Ref() SeatRef {
	return SeatRef{RowLabel: s.RowLabel, Number: s.Number}
}

type Seat struct {
	ShowDate  string   `json:"date"`
	RowLabel  string   `json:"rowLabel"`
	Number    int      `json:"number"`
	SeatType  SeatType `json:"seatType"`
	Available bool     `json:"available"`
}

func (s Seat) Ref() SeatRef {
	return SeatRef{RowLabel: s.RowLabel, Number: s.Number}
}

// SeatView is a seat with the live hold overlay for one browser session.
type SeatView struct {
	Seat
	Locked bool `json:"locked"`
	Mine   bool `json:"mine"`
}

type Performance struct {
	ShowDate  string    `json:"date"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// RowLayout describes a contiguous run of seats in one row.
type RowLayout struct {
	Label     string   `json:"label"`
	StartSeat int      `json:"startSeat"`
	EndSeat   int      `json:"endSeat"`
	SeatType  SeatType `json:"seatType"`
}

type SeatCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Sold      int64 `json:"sold"`
}

type PerformanceAvailability struct {
	Performance
	Seats SeatCounts `json:"seats"`
}

type Order struct {
	ID                uuid.UUID   `json:"id"`
	FirstName         string      `json:"firstName"`
	LastName          string      `json:"lastName"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	IsStudent         bool        `json:"isStudent"`
	StudentCount      int         `json:"studentCount"`
	SelectedDate      string      `json:"selectedDate"`
	SelectedSeats     []OrderSeat `json:"selectedSeats"`
	TotalCents        int64       `json:"totalCents"`
	CheckoutSessionID string      `json:"checkoutSessionId,omitempty"`
	HoldOwner         string      `json:"-"`
	Paid              bool        `json:"paid"`
	PaidAt            *time.Time  `json:"paidAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (o *Order) CustomerName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

func (o *Order) SeatRefs() []SeatRef {
	out := make([]SeatRef, 0, len(o.SelectedSeats))
	for _, s := range o.SelectedSeats {
		out = append(out, s.Ref())
	}
	return out
}

// SeatList renders the seats as "A1, A2".
func (o *Order) SeatList() string {
	parts := make([]string, 0, len(o.SelectedSeats))
	for _, s := range o.SelectedSeats {
		parts = append(parts, s.Ref().String())
	}
	return strings.Join(parts, ", ")
}

// OrderPatch carries the admin-editable order fields. The checkout session
// is never editable.
type OrderPatch struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	IsStudent     bool
	StudentCount  int
	SelectedDate  string
	SelectedSeats []OrderSeat
	TotalCents    int64
	Paid          bool
}

type OrderTotals struct {
	TotalSoldCents    int64   `json:"totalSoldCents"`
	TotalSoldPrice    float64 `json:"totalSoldPrice"`
	TotalOrders       int64   `json:"totalOrders"`
	TotalSeatsOrdered int64   `json:"totalSeatsOrdered"`
}

type DateSeatStats struct {
	SeatCounts
	SeatTypes map[SeatType]SeatCounts `json:"seatTypes"`
}

type DateStats struct {
	Date   string        `json:"date"`
	Orders OrderTotals   `json:"orders"`
	Seats  DateSeatStats `json:"seats"`
}

type OrderStats struct {
	Overall OrderTotals `json:"overall"`
	ByDate  []DateStats `json:"byDate"`
}

type DuplicateOrderDetail struct {
	OrderID      uuid.UUID `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Email        string    `json:"email,omitempty"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"createdAt"`
}

type DuplicateSeat struct {
	Date         string                 `json:"date"`
	RowLabel     string                 `json:"rowLabel"`
	Number       int                    `json:"number"`
	SeatType     SeatType               `json:"seatType"`
	OrderIDs     []uuid.UUID            `json:"orderIds"`
	OrderDetails []DuplicateOrderDetail `json:"orderDetails"`
}

type DuplicateOrderGroup struct {
	OrderIDs      []uuid.UUID            `json:"orderIds"`
	SelectedDate  string                 `json:"selectedDate"`
	SelectedSeats []OrderSeat            `json:"selectedSeats"`
	OrderDetails  []DuplicateOrderDetail `json:"orderDetails"`
}

type DuplicateCustomer struct {
	CustomerEmail        string                `json:"customerEmail"`
	DuplicateOrderGroups []DuplicateOrderGroup `json:"duplicateOrderGroups"`
}

type DuplicateSummary struct {
	TotalDuplicateSeats  int `json:"totalDuplicateSeats"`
	TotalDuplicateOrders int `json:"totalDuplicateOrders"`
	AffectedCustomers    int `json:"affectedCustomers"`
}

type DuplicateReport struct {
	DuplicateSeats  []DuplicateSeat     `json:"duplicateSeats"`
	DuplicateOrders []DuplicateCustomer `json:"duplicateOrders"`
	Summary         DuplicateSummary    `json:"summary"`
}

// Summarize fills in the report summary from its groups.
func (r *DuplicateReport) Summarize() {
	r.Summary.TotalDuplicateSeats = len(r.DuplicateSeats)
	r.Summary.AffectedCustomers = len(r.DuplicateOrders)

	total := 0
	for _, c := range r.DuplicateOrders {
		for _, g := range c.DuplicateOrderGroups {
			total += len(g.OrderIDs)
		}
	}
	r.Summary.TotalDuplicateOrders = total
}

type DuplicateFilter struct {
	Date          string
	IncludeUnpaid bool
}
