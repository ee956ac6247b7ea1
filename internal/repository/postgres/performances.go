package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/revuetix/internal/domain"
)

type PerformanceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PerformanceRepo) With(db DB) *PerformanceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PerformanceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *PerformanceRepo) Create(ctx context.Context, p *domain.Performance) error {
	const op = "postgres.PerformanceRepo.Create"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO performances(show_date, title)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		p.ShowDate, p.Title,
	).Scan(&p.CreatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// BatchCreateSeats inserts the seat plan. Existing seats are left untouched.
func (r *PerformanceRepo) BatchCreateSeats(ctx context.Context, date string, seats []domain.Seat) error {
	const op = "postgres.PerformanceRepo.BatchCreateSeats"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO seats(show_date, row_label, number, seat_type, available)
			 VALUES ($1, $2, $3, $4, true)
			 ON CONFLICT (show_date, row_label, number) DO NOTHING`,
			date, s.RowLabel, s.Number, string(s.SeatType),
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// List returns every performance with its seat counts, by date.
func (r *PerformanceRepo) List(ctx context.Context) ([]domain.PerformanceAvailability, error) {
	const op = "postgres.PerformanceRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT p.show_date, p.title, p.created_at,
		        COUNT(s.number),
		        COUNT(s.number) FILTER (WHERE s.available)
		 FROM performances p
		 LEFT JOIN seats s ON s.show_date = p.show_date
		 GROUP BY p.show_date, p.title, p.created_at
		 ORDER BY p.show_date`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.PerformanceAvailability{}
	for rows.Next() {
		var p domain.PerformanceAvailability
		if err := rows.Scan(&p.ShowDate, &p.Title, &p.CreatedAt, &p.Seats.Total, &p.Seats.Available); err != nil {
			return nil, wrapDBErr(op, err)
		}
		p.Seats.Sold = p.Seats.Total - p.Seats.Available
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *PerformanceRepo) Exists(ctx context.Context, date string) (bool, error) {
	const op = "postgres.PerformanceRepo.Exists"

	var ok bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM performances WHERE show_date = $1)`, date,
	).Scan(&ok); err != nil {
		return false, wrapDBErr(op, err)
	}

	return ok, nil
}
