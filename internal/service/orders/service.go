package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/metrics"
	"github.com/kirinyoku/revuetix/internal/payment"
	"github.com/kirinyoku/revuetix/internal/pricing"
	"github.com/kirinyoku/revuetix/internal/repository"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/shopspring/decimal"
)

type Config struct {
	CheckoutTTL    time.Duration
	EmailDedupeTTL time.Duration
	PollInterval   time.Duration
}

type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	GetByEmail(ctx context.Context, email string) ([]domain.Order, error)
	Update(ctx context.Context, id uuid.UUID, p domain.OrderPatch) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SeatOrderIDs(ctx context.Context, date string, seat domain.SeatRef, includeUnpaid bool) ([]uuid.UUID, error)
}

type SeatBooking interface {
	VerifySeats(ctx context.Context, date, session string, refs []domain.SeatRef) ([]domain.Seat, []domain.SeatRef, error)
	ExtendHolds(ctx context.Context, date, session string, refs []domain.SeatRef, ttl time.Duration) error
	ReleaseSeats(ctx context.Context, date, session string, refs []domain.SeatRef) (int, error)
	SeatsSold(ctx context.Context, date string, refs []domain.SeatRef) error
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (string, error)
	PaymentStatus(ctx context.Context, sessionID string) (payment.Status, error)
}

type Notifier interface {
	SendConfirmation(ctx context.Context, o *domain.Order) error
}

type Service struct {
	orders   OrderStore
	seats    SeatBooking
	gateway  Gateway
	notifier Notifier
	guard    *redisrepo.IdempotencyStore
	queue    *redisrepo.PaymentQueue
	log      *slog.Logger
	cfg      Config
	now      func() time.Time
}

func New(
	orders OrderStore,
	seats SeatBooking,
	gateway Gateway,
	notifier Notifier,
	guard *redisrepo.IdempotencyStore,
	queue *redisrepo.PaymentQueue,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = 30 * time.Minute
	}

	if cfg.EmailDedupeTTL <= 0 {
		cfg.EmailDedupeTTL = 10 * time.Minute
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}

	return &Service{
		orders:   orders,
		seats:    seats,
		gateway:  gateway,
		notifier: notifier,
		guard:    guard,
		queue:    queue,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

type CreateInput struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	IsStudent     bool
	StudentCount  int
	SelectedDate  string
	SelectedSeats []domain.OrderSeat

	// ClientTotal is the price the browser showed, if any. It is only
	// compared against the computed total.
	ClientTotal *decimal.Decimal
}

type CreateResult struct {
	SessionID string    `json:"sessionId"`
	OrderID   uuid.UUID `json:"orderId"`
}

func (in *CreateInput) validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	switch {
	case in.FirstName == "":
		return invalid("missing first name")
	case in.LastName == "":
		return invalid("missing last name")
	case in.Email == "":
		return invalid("missing email")
	case in.Phone == "":
		return invalid("missing phone")
	case in.SelectedDate == "":
		return invalid("missing selected date")
	case len(in.SelectedSeats) == 0:
		return invalid("missing selected seats")
	case in.StudentCount < 0:
		return invalid("student count must not be negative")
	}

	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("invalid email")
	}

	if _, err := time.Parse(domain.ShowDateLayout, in.SelectedDate); err != nil {
		return invalid("invalid selected date")
	}

	for _, s := range in.SelectedSeats {
		if s.RowLabel == "" || s.Number <= 0 || !s.SeatType.Valid() {
			return invalid("invalid seat format")
		}
	}

	if !in.IsStudent {
		in.StudentCount = 0
	}

	return nil
}

// Create verifies the seats are still held for session, prices them, opens a
// checkout session and stores the unpaid order.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: customer details and selected seats.
//   - session: browser session holding the seats.
//
// Returns:
//   - *CreateResult: checkout session and order IDs.
//   - error: orders.ErrInvalidOrder on bad input; *orders.InvalidSeatsError
//     when some seats can no longer be bought.
func (s *Service) Create(ctx context.Context, in CreateInput, session string) (*CreateResult, error) {
	const op = "service.orders.Create"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refs := make([]domain.SeatRef, len(in.SelectedSeats))
	for i, seat := range in.SelectedSeats {
		refs[i] = seat.Ref()
	}

	stored, bad, err := s.seats.VerifySeats(ctx, in.SelectedDate, session, refs)
	if err != nil {
		if errors.Is(err, seats.ErrNoSeats) ||
			errors.Is(err, seats.ErrDuplicateSeat) ||
			errors.Is(err, seats.ErrTooManySeats) {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidOrder, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%s: %w", op, &InvalidSeatsError{Seats: bad})
	}

	if err := s.seats.ExtendHolds(ctx, in.SelectedDate, session, refs, s.cfg.CheckoutTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// the stored seat type is authoritative.
	purchased := make([]domain.OrderSeat, len(stored))
	for i, seat := range stored {
		purchased[i] = domain.OrderSeat{RowLabel: seat.RowLabel, Number: seat.Number, SeatType: seat.SeatType}
		if seat.SeatType != in.SelectedSeats[i].SeatType {
			s.log.Warn("seat type mismatch, using stored type",
				slog.String("seat", seat.Ref().String()),
				slog.String("client", string(in.SelectedSeats[i].SeatType)),
				slog.String("stored", string(seat.SeatType)),
			)
		}
	}

	quote, err := pricing.Price(purchased, in.IsStudent, in.StudentCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.ClientTotal != nil && !in.ClientTotal.Round(2).Equal(quote.Total) {
		s.log.Warn("client total differs from computed total",
			slog.String("client", in.ClientTotal.StringFixed(2)),
			slog.String("computed", quote.Total.StringFixed(2)),
		)
	}

	o := &domain.Order{
		ID:            uuid.New(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Phone:         in.Phone,
		IsStudent:     in.IsStudent,
		StudentCount:  in.StudentCount,
		SelectedDate:  in.SelectedDate,
		SelectedSeats: purchased,
		TotalCents:    quote.TotalCents(),
		HoldOwner:     session,
	}

	sessionID, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID: o.ID.String(),
		Email:   o.Email,
		Quote:   quote,
		TTL:     s.cfg.CheckoutTTL,
	})
	if err != nil {
		if errors.Is(err, payment.ErrUnavailable) {
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentProviderDown)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	o.CheckoutSessionID = sessionID

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.OrdersCreated.Inc()

	if s.queue != nil {
		if err := s.queue.Schedule(ctx, o.ID.String(), s.now().Add(s.cfg.PollInterval)); err != nil {
			s.log.Error("schedule payment check", slog.String("order_id", o.ID.String()), slog.Any("err", err))
		}
	}

	s.log.Info("order created",
		slog.String("order_id", o.ID.String()),
		slog.String("date", o.SelectedDate),
		slog.Int("seats", len(o.SelectedSeats)),
		slog.Int64("total_cents", o.TotalCents),
	)

	return &CreateResult{SessionID: sessionID, OrderID: o.ID}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Get"

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	return o, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	const op = "service.orders.List"

	out, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	const op = "service.orders.GetByEmail"

	out, err := s.orders.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Update replaces the editable fields of an order. The checkout session is
// kept as is.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p domain.OrderPatch) (*domain.Order, error) {
	const op = "service.orders.Update"

	for _, seat := range p.SelectedSeats {
		if seat.RowLabel == "" || seat.Number <= 0 || !seat.SeatType.Valid() {
			return nil, fmt.Errorf("%s: %w", op, invalid("invalid seat format"))
		}
	}

	o, err := s.orders.Update(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	return o, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.orders.Delete"

	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	return nil
}

type PaymentResult struct {
	OrderID       uuid.UUID `json:"orderId"`
	PaymentStatus string    `json:"paymentStatus"`
	SessionStatus string    `json:"sessionStatus,omitempty"`
	Paid          bool      `json:"paid"`
}

// CheckPaymentStatus asks the payment provider about the order's checkout
// and settles the order when the payment succeeded.
//
// Settling is guarded twice. Only the caller that flips paid from false to
// true releases the holds, refreshes the seat cache and emails the ticket;
// the email additionally needs the per-order email key, which is released
// again when sending fails.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: order ID.
//
// Returns:
//   - *PaymentResult: the payment intent status and whether the order is paid.
//   - error: orders.ErrOrderNotFound, orders.ErrNoCheckoutSession or
//     orders.ErrNoPaymentIntent (the result still carries the session status).
func (s *Service) CheckPaymentStatus(ctx context.Context, id uuid.UUID) (*PaymentResult, error) {
	const op = "service.orders.CheckPaymentStatus"

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	if o.CheckoutSessionID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoCheckoutSession)
	}

	res := &PaymentResult{OrderID: o.ID, Paid: o.Paid}

	st, err := s.gateway.PaymentStatus(ctx, o.CheckoutSessionID)
	res.SessionStatus = st.SessionStatus
	res.PaymentStatus = st.IntentStatus
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNoPaymentIntent):
			metrics.PaymentChecks.WithLabelValues(payment.StatusNoIntent).Inc()
			return res, fmt.Errorf("%s: %w", op, ErrNoPaymentIntent)
		case errors.Is(err, payment.ErrUnavailable):
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentProviderDown)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PaymentChecks.WithLabelValues(st.IntentStatus).Inc()

	if !st.Succeeded() || o.Paid {
		return res, nil
	}

	paid, err := s.orders.MarkPaid(ctx, o.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyPaid) {
			res.Paid = true
			return res, nil
		}
		return nil, fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	res.Paid = true
	metrics.OrdersPaid.Inc()
	s.log.Info("order paid", slog.String("order_id", paid.ID.String()))

	s.afterPaid(ctx, paid)

	return res, nil
}

// afterPaid runs the side effects of a fresh payment. Failures are logged;
// the order stays paid.
func (s *Service) afterPaid(ctx context.Context, o *domain.Order) {
	if err := s.seats.SeatsSold(ctx, o.SelectedDate, o.SeatRefs()); err != nil {
		s.log.Error("release sold seats", slog.String("order_id", o.ID.String()), slog.Any("err", err))
	}

	if s.queue != nil {
		if err := s.queue.Remove(ctx, o.ID.String()); err != nil {
			s.log.Warn("remove payment check", slog.String("order_id", o.ID.String()), slog.Any("err", err))
		}
	}

	if err := s.sendOnce(ctx, o); err != nil {
		s.log.Error("send confirmation email", slog.String("order_id", o.ID.String()), slog.Any("err", err))
	}
}

func (s *Service) sendOnce(ctx context.Context, o *domain.Order) error {
	key := redisrepo.KeyEmailSent(o.ID.String())

	ok, err := s.guard.AcquireLock(ctx, key, s.cfg.EmailDedupeTTL)
	if err != nil {
		return err
	}
	if !ok {
		metrics.EmailsSent.WithLabelValues("duplicate").Inc()
		s.log.Info("email already sent recently, skipping", slog.String("order_id", o.ID.String()))
		return nil
	}

	if err := s.notifier.SendConfirmation(ctx, o); err != nil {
		if rerr := s.guard.Release(ctx, key); rerr != nil {
			s.log.Warn("release email key", slog.String("order_id", o.ID.String()), slog.Any("err", rerr))
		}
		return err
	}

	return nil
}

// ResendEmail sends the confirmation email again regardless of the
// duplicate guard.
func (s *Service) ResendEmail(ctx context.Context, id uuid.UUID) error {
	const op = "service.orders.ResendEmail"

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	if err := s.notifier.SendConfirmation(ctx, o); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ExpireUnpaid drops the seat holds of an order whose checkout window has
// passed without payment. Holds taken since by other sessions are kept, and
// so are seats a later unpaid order from the same session still needs.
func (s *Service) ExpireUnpaid(ctx context.Context, id uuid.UUID) error {
	const op = "service.orders.ExpireUnpaid"

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapNotFound(err))
	}

	if o.Paid {
		return nil
	}

	if o.HoldOwner == "" {
		return nil
	}

	var refs []domain.SeatRef
	for _, ref := range o.SeatRefs() {
		claimed, err := s.claimedLater(ctx, o, ref)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !claimed {
			refs = append(refs, ref)
		}
	}

	n, err := s.seats.ReleaseSeats(ctx, o.SelectedDate, o.HoldOwner, refs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("checkout expired, seats released",
		slog.String("order_id", o.ID.String()),
		slog.Int("released", n),
		slog.Int("kept", len(o.SelectedSeats)-len(refs)),
	)

	return nil
}

// claimedLater reports whether an order placed after o by the same session
// still waits for payment on ref.
func (s *Service) claimedLater(ctx context.Context, o *domain.Order, ref domain.SeatRef) (bool, error) {
	ids, err := s.orders.SeatOrderIDs(ctx, o.SelectedDate, ref, true)
	if err != nil {
		return false, err
	}

	// ids are oldest first.
	later := false
	for _, id := range ids {
		if id == o.ID {
			later = true
			continue
		}
		if !later {
			continue
		}

		other, err := s.orders.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if !other.Paid && other.HoldOwner == o.HoldOwner {
			return true, nil
		}
	}

	return false, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
