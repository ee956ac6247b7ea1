package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/pricing"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidSeat = errors.New("invalid seat")
)

type ReportStore interface {
	Stats(ctx context.Context) (*domain.OrderStats, error)
	DuplicateSeats(ctx context.Context, f domain.DuplicateFilter) ([]domain.DuplicateSeat, error)
	DuplicateOrders(ctx context.Context, f domain.DuplicateFilter) ([]domain.DuplicateCustomer, error)
}

type SeatOrders interface {
	SeatOrderIDs(ctx context.Context, date string, seat domain.SeatRef, includeUnpaid bool) ([]uuid.UUID, error)
}

type Service struct {
	reports ReportStore
	orders  SeatOrders
}

func New(reports ReportStore, orders SeatOrders) *Service {
	return &Service{
		reports: reports,
		orders:  orders,
	}
}

// Stats returns sales totals over paid orders, overall and per date, with
// seat availability per date.
func (s *Service) Stats(ctx context.Context) (*domain.OrderStats, error) {
	const op = "service.reports.Stats"

	st, err := s.reports.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fillPrice(&st.Overall)
	for i := range st.ByDate {
		fillPrice(&st.ByDate[i].Orders)
	}

	return st, nil
}

func fillPrice(t *domain.OrderTotals) {
	t.TotalSoldPrice = pricing.FromCents(t.TotalSoldCents).InexactFloat64()
}

func checkDate(date string) error {
	if _, err := time.Parse(domain.ShowDateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// Duplicates reports seats sold more than once and customers who placed the
// same order more than once.
//
// Parameters:
//   - ctx: request-scoped context.
//   - f: optional date and whether unpaid orders count.
//
// Returns:
//   - *domain.DuplicateReport: both groupings plus their summary.
//   - error: reports.ErrInvalidDate on a malformed date filter.
func (s *Service) Duplicates(ctx context.Context, f domain.DuplicateFilter) (*domain.DuplicateReport, error) {
	const op = "service.reports.Duplicates"

	f.Date = strings.TrimSpace(f.Date)
	if f.Date != "" {
		if err := checkDate(f.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var report domain.DuplicateReport

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		seats, err := s.reports.DuplicateSeats(gctx, f)
		report.DuplicateSeats = seats
		return err
	})

	g.Go(func() error {
		orders, err := s.reports.DuplicateOrders(gctx, f)
		report.DuplicateOrders = orders
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report.Summarize()

	return &report, nil
}

type SeatCheck struct {
	Seat        SeatKey     `json:"seat"`
	OrderIDs    []uuid.UUID `json:"orderIds"`
	IsDuplicate bool        `json:"isDuplicate"`
	OrderCount  int         `json:"orderCount"`
}

type SeatKey struct {
	Date     string `json:"date"`
	RowLabel string `json:"rowLabel"`
	Number   int    `json:"number"`
}

// CheckSeat lists the orders holding one seat.
func (s *Service) CheckSeat(
	ctx context.Context,
	date string,
	seat domain.SeatRef,
	includeUnpaid bool,
) (*SeatCheck, error) {
	const op = "service.reports.CheckSeat"

	if err := checkDate(date); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if seat.RowLabel == "" || seat.Number <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSeat)
	}

	ids, err := s.orders.SeatOrderIDs(ctx, date, seat, includeUnpaid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SeatCheck{
		Seat:        SeatKey{Date: date, RowLabel: seat.RowLabel, Number: seat.Number},
		OrderIDs:    ids,
		IsDuplicate: len(ids) > 1,
		OrderCount:  len(ids),
	}, nil
}
