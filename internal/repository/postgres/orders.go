package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/repository"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const orderColumns = `id, first_name, last_name, email, phone, is_student, student_count,
	selected_date, total_cents, checkout_session_id, hold_owner, paid, paid_at, created_at, updated_at`

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(
		&o.ID, &o.FirstName, &o.LastName, &o.Email, &o.Phone, &o.IsStudent, &o.StudentCount,
		&o.SelectedDate, &o.TotalCents, &o.CheckoutSessionID, &o.HoldOwner, &o.Paid, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
}

// Create inserts the order together with its seats. The order ID must be set
// by the caller.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - o: the order to persist; CreatedAt and UpdatedAt are filled in.
//
// Returns:
//   - error: repository.ErrConflict if an order with the same ID exists.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.Create"

	if r.db != nil {
		return wrapDBErr(op, r.createCore(ctx, r.db, o))
	}

	err := runTx(ctx, r.pool, nil, func(ctx context.Context, tx DB) error {
		return r.createCore(ctx, tx, o)
	})

	return wrapDBErr(op, err)
}

func (r *OrderRepo) createCore(ctx context.Context, db DB, o *domain.Order) error {
	if err := db.QueryRow(ctx,
		`INSERT INTO orders(id, first_name, last_name, email, phone, is_student, student_count,
			selected_date, total_cents, checkout_session_id, hold_owner, paid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		o.ID, o.FirstName, o.LastName, o.Email, o.Phone, o.IsStudent, o.StudentCount,
		o.SelectedDate, o.TotalCents, o.CheckoutSessionID, o.HoldOwner, o.Paid,
	).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}

	return insertOrderSeats(ctx, db, o.ID, o.SelectedSeats)
}

func insertOrderSeats(ctx context.Context, db DB, orderID uuid.UUID, seats []domain.OrderSeat) error {
	if len(seats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, s := range seats {
		batch.Queue(
			`INSERT INTO order_seats(order_id, position, row_label, number, seat_type)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, i, s.RowLabel, s.Number, string(s.SeatType),
		)
	}

	return db.SendBatch(ctx, batch).Close()
}

// Get returns a single order with its seats.
func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	db := r.handle()

	var o domain.Order
	if err := scanOrder(db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	), &o); err != nil {
		return nil, wrapDBErr(op, err)
	}

	orders := []domain.Order{o}
	if err := loadSeats(ctx, db, orders); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &orders[0], nil
}

// List returns all orders, newest first.
func (r *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.List"

	out, err := r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetByEmail returns all orders placed with the given email, newest first.
func (r *OrderRepo) GetByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.GetByEmail"

	out, err := r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE lower(email) = lower($1) ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListUnpaidSince returns unpaid orders that have a checkout session and
// were created after the given instant.
func (r *OrderRepo) ListUnpaidSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.ListUnpaidSince"

	out, err := r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE paid = false AND checkout_session_id <> '' AND created_at >= $1
		 ORDER BY created_at`,
		since,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// SeatOrderIDs returns the IDs of the orders that include the seat on the
// given date, oldest first. Unpaid orders are skipped unless includeUnpaid.
func (r *OrderRepo) SeatOrderIDs(
	ctx context.Context,
	date string,
	seat domain.SeatRef,
	includeUnpaid bool,
) ([]uuid.UUID, error) {
	const op = "postgres.OrderRepo.SeatOrderIDs"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT DISTINCT o.id, o.created_at
		 FROM orders o
		 JOIN order_seats os ON os.order_id = o.id
		 WHERE o.selected_date = $1 AND os.row_label = $2 AND os.number = $3 AND ($4 OR o.paid)
		 ORDER BY o.created_at`,
		date, seat.RowLabel, seat.Number, includeUnpaid,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []uuid.UUID{}
	for rows.Next() {
		var (
			id uuid.UUID
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OrderRepo) queryOrders(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	out := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadSeats(ctx, db, out); err != nil {
		return nil, err
	}

	return out, nil
}

// loadSeats fills SelectedSeats for every order in place.
func loadSeats(ctx context.Context, db DB, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	idx := make(map[uuid.UUID]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		idx[orders[i].ID] = i
		orders[i].SelectedSeats = []domain.OrderSeat{}
	}

	rows, err := db.Query(ctx,
		`SELECT order_id, row_label, number, seat_type
		 FROM order_seats
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var (
			id uuid.UUID
			s  domain.OrderSeat
			t  string
		)
		if err := rows.Scan(&id, &s.RowLabel, &s.Number, &t); err != nil {
			return err
		}
		s.SeatType = domain.SeatType(t)

		i := idx[id]
		orders[i].SelectedSeats = append(orders[i].SelectedSeats, s)
	}

	return rows.Err()
}

// Update replaces the editable fields and the seat list of an order.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: the order to update.
//   - p: the new field values.
//
// Returns:
//   - *domain.Order: the updated order.
//   - error: repository.ErrNotFound if the order does not exist.
func (r *OrderRepo) Update(ctx context.Context, id uuid.UUID, p domain.OrderPatch) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Update"

	if r.db != nil {
		if err := updateCore(ctx, r.db, id, p); err != nil {
			return nil, wrapDBErr(op, err)
		}
		return r.Get(ctx, id)
	}

	var out *domain.Order
	err := runTx(ctx, r.pool, nil, func(ctx context.Context, tx DB) error {
		if err := updateCore(ctx, tx, id, p); err != nil {
			return err
		}

		var err error
		out, err = r.With(tx).Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func updateCore(ctx context.Context, db DB, id uuid.UUID, p domain.OrderPatch) error {
	tag, err := db.Exec(ctx,
		`UPDATE orders
		 SET first_name = $2, last_name = $3, email = $4, phone = $5, is_student = $6,
		     student_count = $7, selected_date = $8, total_cents = $9, paid = $10,
		     paid_at = CASE WHEN $10 THEN COALESCE(paid_at, now()) ELSE NULL END,
		     updated_at = now()
		 WHERE id = $1`,
		id, p.FirstName, p.LastName, p.Email, p.Phone, p.IsStudent,
		p.StudentCount, p.SelectedDate, p.TotalCents, p.Paid,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if p.SelectedSeats == nil {
		return nil
	}

	if _, err := db.Exec(ctx, `DELETE FROM order_seats WHERE order_id = $1`, id); err != nil {
		return err
	}

	return insertOrderSeats(ctx, db, id, p.SelectedSeats)
}

// Delete removes an order and its seats. Seat availability is not touched.
func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.OrderRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// MarkPaid flips the order to paid and marks its seats sold in one
// transaction. Only the first caller succeeds; later callers get
// repository.ErrAlreadyPaid and must not repeat the side effects.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: the order to mark as paid.
//
// Returns:
//   - *domain.Order: the paid order.
//   - error: repository.ErrAlreadyPaid if the order was already paid.
//   - error: repository.ErrNotFound if the order does not exist.
func (r *OrderRepo) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.MarkPaid"

	if r.db != nil {
		o, err := r.markPaidCore(ctx, r.db, id)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		return o, nil
	}

	var out *domain.Order
	err := runTx(ctx, r.pool, nil, func(ctx context.Context, tx DB) error {
		var err error
		out, err = r.markPaidCore(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OrderRepo) markPaidCore(ctx context.Context, db DB, id uuid.UUID) (*domain.Order, error) {
	tag, err := db.Exec(ctx,
		`UPDATE orders SET paid = true, paid_at = now(), updated_at = now()
		 WHERE id = $1 AND paid = false`,
		id,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrAlreadyPaid
	}

	o, err := r.With(db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := setAvailable(ctx, db, o.SelectedDate, o.SeatRefs(), false); err != nil {
		return nil, err
	}

	return o, nil
}
