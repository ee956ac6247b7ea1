package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/revuetix/internal/domain"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ListByDate returns the seat plan of a performance ordered by row and number.
func (r *SeatRepo) ListByDate(ctx context.Context, date string) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.ListByDate"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT show_date, row_label, number, seat_type, available
		 FROM seats
		 WHERE show_date = $1
		 ORDER BY length(row_label), row_label, number`,
		date,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Seat{}
	for rows.Next() {
		var (
			s domain.Seat
			t string
		)
		if err := rows.Scan(&s.ShowDate, &s.RowLabel, &s.Number, &t, &s.Available); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.SeatType = domain.SeatType(t)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Find returns the stored seats among refs. Unknown seats are absent from the
// result.
func (r *SeatRepo) Find(ctx context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.Find"

	if len(refs) == 0 {
		return []domain.Seat{}, nil
	}

	db := r.handle()

	labels, numbers := splitRefs(refs)

	rows, err := db.Query(ctx,
		`SELECT s.show_date, s.row_label, s.number, s.seat_type, s.available
		 FROM seats s
		 JOIN unnest($2::text[], $3::int[]) AS want(row_label, number)
		   ON want.row_label = s.row_label AND want.number = s.number
		 WHERE s.show_date = $1`,
		date, labels, numbers,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Seat, 0, len(refs))
	for rows.Next() {
		var (
			s domain.Seat
			t string
		)
		if err := rows.Scan(&s.ShowDate, &s.RowLabel, &s.Number, &t, &s.Available); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.SeatType = domain.SeatType(t)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// SetAvailable flips the availability of the given seats.
func (r *SeatRepo) SetAvailable(ctx context.Context, date string, refs []domain.SeatRef, available bool) (int64, error) {
	const op = "postgres.SeatRepo.SetAvailable"

	n, err := setAvailable(ctx, r.handle(), date, refs, available)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func setAvailable(ctx context.Context, db DB, date string, refs []domain.SeatRef, available bool) (int64, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	labels, numbers := splitRefs(refs)

	tag, err := db.Exec(ctx,
		`UPDATE seats s SET available = $4
		 FROM unnest($2::text[], $3::int[]) AS want(row_label, number)
		 WHERE s.show_date = $1 AND s.row_label = want.row_label AND s.number = want.number`,
		date, labels, numbers, available,
	)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func splitRefs(refs []domain.SeatRef) ([]string, []int32) {
	labels := make([]string, len(refs))
	numbers := make([]int32, len(refs))
	for i, ref := range refs {
		labels[i] = ref.RowLabel
		numbers[i] = int32(ref.Number)
	}
	return labels, numbers
}
