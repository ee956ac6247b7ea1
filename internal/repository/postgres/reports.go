package postgres

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/revuetix/internal/domain"
)

type ReportRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReportRepo) With(db DB) *ReportRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReportRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Stats aggregates paid orders overall and per date, together with the seat
// availability of every performance.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//
// Returns:
//   - *domain.OrderStats: totals in cents; callers fill the decimal prices.
//   - error: if any query fails.
func (r *ReportRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	const op = "postgres.ReportRepo.Stats"

	db := r.handle()

	stats := &domain.OrderStats{ByDate: []domain.DateStats{}}

	if err := db.QueryRow(ctx,
		`SELECT COALESCE(SUM(o.total_cents), 0)::bigint,
		        COUNT(*),
		        COALESCE(SUM(sc.n), 0)::bigint
		 FROM orders o
		 LEFT JOIN LATERAL (SELECT COUNT(*) AS n FROM order_seats WHERE order_id = o.id) sc ON true
		 WHERE o.paid`,
	).Scan(&stats.Overall.TotalSoldCents, &stats.Overall.TotalOrders, &stats.Overall.TotalSeatsOrdered); err != nil {
		return nil, wrapDBErr(op, err)
	}

	byDate := map[string]*domain.DateStats{}
	get := func(date string) *domain.DateStats {
		ds, ok := byDate[date]
		if !ok {
			ds = &domain.DateStats{
				Date:  date,
				Seats: domain.DateSeatStats{SeatTypes: map[domain.SeatType]domain.SeatCounts{}},
			}
			byDate[date] = ds
		}
		return ds
	}

	rows, err := db.Query(ctx,
		`SELECT o.selected_date,
		        COALESCE(SUM(o.total_cents), 0)::bigint,
		        COUNT(*),
		        COALESCE(SUM(sc.n), 0)::bigint
		 FROM orders o
		 LEFT JOIN LATERAL (SELECT COUNT(*) AS n FROM order_seats WHERE order_id = o.id) sc ON true
		 WHERE o.paid
		 GROUP BY o.selected_date`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	for rows.Next() {
		var (
			date string
			t    domain.OrderTotals
		)
		if err := rows.Scan(&date, &t.TotalSoldCents, &t.TotalOrders, &t.TotalSeatsOrdered); err != nil {
			rows.Close()
			return nil, wrapDBErr(op, err)
		}
		get(date).Orders = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err = db.Query(ctx,
		`SELECT show_date, seat_type, COUNT(*), COUNT(*) FILTER (WHERE available)
		 FROM seats
		 GROUP BY show_date, seat_type`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var (
			date string
			t    string
			c    domain.SeatCounts
		)
		if err := rows.Scan(&date, &t, &c.Total, &c.Available); err != nil {
			return nil, wrapDBErr(op, err)
		}
		c.Sold = c.Total - c.Available

		ds := get(date)
		ds.Seats.SeatTypes[domain.SeatType(t)] = c
		ds.Seats.Total += c.Total
		ds.Seats.Available += c.Available
		ds.Seats.Sold += c.Sold
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	for _, ds := range byDate {
		stats.ByDate = append(stats.ByDate, *ds)
	}
	sort.Slice(stats.ByDate, func(i, j int) bool {
		return stats.ByDate[i].Date < stats.ByDate[j].Date
	})

	return stats, nil
}

// DuplicateSeats returns every seat that appears in more than one order
// matching the filter, with the orders that claim it.
func (r *ReportRepo) DuplicateSeats(ctx context.Context, f domain.DuplicateFilter) ([]domain.DuplicateSeat, error) {
	const op = "postgres.ReportRepo.DuplicateSeats"

	db := r.handle()

	rows, err := db.Query(ctx,
		`WITH claimed AS (
			SELECT o.selected_date, os.row_label, os.number, os.seat_type,
			       o.id, o.first_name, o.last_name, o.email, o.paid, o.created_at,
			       COUNT(*) OVER (
			           PARTITION BY o.selected_date, os.row_label, os.number, os.seat_type
			       ) AS n
			FROM orders o
			JOIN order_seats os ON os.order_id = o.id
			WHERE ($1::text = '' OR o.selected_date = $1) AND ($2::bool OR o.paid)
		 )
		 SELECT selected_date, row_label, number, seat_type,
		        id, first_name, last_name, email, paid, created_at
		 FROM claimed
		 WHERE n > 1
		 ORDER BY selected_date, row_label, number, seat_type, created_at`,
		f.Date, f.IncludeUnpaid,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.DuplicateSeat{}
	for rows.Next() {
		var (
			s      domain.DuplicateSeat
			t      string
			d      domain.DuplicateOrderDetail
			fn, ln string
		)
		if err := rows.Scan(
			&s.Date, &s.RowLabel, &s.Number, &t,
			&d.OrderID, &fn, &ln, &d.Email, &d.Paid, &d.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.SeatType = domain.SeatType(t)
		d.CustomerName = strings.TrimSpace(fn + " " + ln)

		if n := len(out); n > 0 && sameSeat(out[n-1], s) {
			out[n-1].OrderIDs = append(out[n-1].OrderIDs, d.OrderID)
			out[n-1].OrderDetails = append(out[n-1].OrderDetails, d)
			continue
		}

		s.OrderIDs = []uuid.UUID{d.OrderID}
		s.OrderDetails = []domain.DuplicateOrderDetail{d}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func sameSeat(a, b domain.DuplicateSeat) bool {
	return a.Date == b.Date && a.RowLabel == b.RowLabel && a.Number == b.Number && a.SeatType == b.SeatType
}

// DuplicateOrders finds orders placed with the same email for the same date
// and the same set of seats, grouped per customer.
func (r *ReportRepo) DuplicateOrders(ctx context.Context, f domain.DuplicateFilter) ([]domain.DuplicateCustomer, error) {
	const op = "postgres.ReportRepo.DuplicateOrders"

	db := r.handle()

	rows, err := db.Query(ctx,
		`WITH signed AS (
			SELECT o.id, lower(o.email) AS email, o.selected_date, o.first_name, o.last_name,
			       o.paid, o.created_at,
			       string_agg(os.row_label || os.number::text || ':' || os.seat_type, ','
			                  ORDER BY os.row_label, os.number) AS seats
			FROM orders o
			JOIN order_seats os ON os.order_id = o.id
			WHERE ($1::text = '' OR o.selected_date = $1) AND ($2::bool OR o.paid)
			GROUP BY o.id
		 ), counted AS (
			SELECT *, COUNT(*) OVER (PARTITION BY email, selected_date, seats) AS n
			FROM signed
		 )
		 SELECT id, email, selected_date, first_name, last_name, paid, created_at, seats
		 FROM counted
		 WHERE n > 1
		 ORDER BY email, selected_date, seats, created_at`,
		f.Date, f.IncludeUnpaid,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var (
		out     = []domain.DuplicateCustomer{}
		lastSig string
	)
	for rows.Next() {
		var (
			d            domain.DuplicateOrderDetail
			email, date  string
			fn, ln, sigs string
		)
		if err := rows.Scan(&d.OrderID, &email, &date, &fn, &ln, &d.Paid, &d.CreatedAt, &sigs); err != nil {
			return nil, wrapDBErr(op, err)
		}
		d.CustomerName = strings.TrimSpace(fn + " " + ln)

		if n := len(out); n == 0 || out[n-1].CustomerEmail != email {
			out = append(out, domain.DuplicateCustomer{CustomerEmail: email})
			lastSig = ""
		}
		c := &out[len(out)-1]

		sig := date + "|" + sigs
		if sig != lastSig {
			c.DuplicateOrderGroups = append(c.DuplicateOrderGroups, domain.DuplicateOrderGroup{
				SelectedDate:  date,
				SelectedSeats: parseSeatSignature(sigs),
			})
			lastSig = sig
		}

		g := &c.DuplicateOrderGroups[len(c.DuplicateOrderGroups)-1]
		g.OrderIDs = append(g.OrderIDs, d.OrderID)
		g.OrderDetails = append(g.OrderDetails, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// parseSeatSignature decodes the "A1:VIP,A2:Standard" aggregate.
func parseSeatSignature(sig string) []domain.OrderSeat {
	out := []domain.OrderSeat{}
	for _, part := range strings.Split(sig, ",") {
		ref, typ, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		sr, err := domain.ParseSeatRef(ref)
		if err != nil {
			continue
		}
		out = append(out, domain.OrderSeat{RowLabel: sr.RowLabel, Number: sr.Number, SeatType: domain.SeatType(typ)})
	}
	return out
}
