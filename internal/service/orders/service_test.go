package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/payment"
	"github.com/kirinyoku/revuetix/internal/repository"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const showDate = "2025-08-07"

type fakeOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	seq    []uuid.UUID
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[uuid.UUID]domain.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = *o
	f.seq = append(f.seq, o.ID)
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) List(context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Order{}
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) GetByEmail(_ context.Context, email string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Order{}
	for _, o := range f.orders {
		if o.Email == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Update(_ context.Context, id uuid.UUID, p domain.OrderPatch) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.FirstName, o.LastName, o.Email, o.Phone = p.FirstName, p.LastName, p.Email, p.Phone
	o.Paid = p.Paid
	if p.SelectedSeats != nil {
		o.SelectedSeats = p.SelectedSeats
	}
	f.orders[id] = o
	return &o, nil
}

func (f *fakeOrders) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Paid {
		return nil, repository.ErrAlreadyPaid
	}
	o.Paid = true
	f.orders[id] = o
	return &o, nil
}

func (f *fakeOrders) SeatOrderIDs(_ context.Context, date string, seat domain.SeatRef, includeUnpaid bool) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []uuid.UUID{}
	for _, id := range f.seq {
		o, ok := f.orders[id]
		if !ok || o.SelectedDate != date || (!o.Paid && !includeUnpaid) {
			continue
		}
		for _, s := range o.SelectedSeats {
			if s.Ref() == seat {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

type fakeSeats struct {
	stored   map[domain.SeatRef]domain.Seat
	bad      []domain.SeatRef
	extended time.Duration
	sold     atomic.Int32
	released []domain.SeatRef
	owner    string
}

func (f *fakeSeats) VerifySeats(
	_ context.Context,
	date, session string,
	refs []domain.SeatRef,
) ([]domain.Seat, []domain.SeatRef, error) {
	if len(f.bad) > 0 {
		return nil, f.bad, nil
	}
	out := make([]domain.Seat, len(refs))
	for i, r := range refs {
		out[i] = f.stored[r]
	}
	return out, nil, nil
}

func (f *fakeSeats) ExtendHolds(_ context.Context, _, _ string, _ []domain.SeatRef, ttl time.Duration) error {
	f.extended = ttl
	return nil
}

func (f *fakeSeats) ReleaseSeats(_ context.Context, _, session string, refs []domain.SeatRef) (int, error) {
	f.owner = session
	f.released = refs
	return len(refs), nil
}

func (f *fakeSeats) SeatsSold(context.Context, string, []domain.SeatRef) error {
	f.sold.Add(1)
	return nil
}

type fakeGateway struct {
	status  payment.Status
	err     error
	created []payment.CheckoutRequest
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	f.created = append(f.created, req)
	return "cs_test_" + req.OrderID, nil
}

func (f *fakeGateway) PaymentStatus(context.Context, string) (payment.Status, error) {
	return f.status, f.err
}

type fakeNotifier struct {
	sent atomic.Int32
	fail atomic.Bool
}

func (f *fakeNotifier) SendConfirmation(context.Context, *domain.Order) error {
	if f.fail.Load() {
		return errors.New("smtp down")
	}
	f.sent.Add(1)
	return nil
}

type fixture struct {
	svc      *Service
	mr       *miniredis.Miniredis
	orders   *fakeOrders
	seats    *fakeSeats
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		mr:     mr,
		orders: newFakeOrders(),
		seats: &fakeSeats{stored: map[domain.SeatRef]domain.Seat{
			{RowLabel: "A", Number: 1}: {ShowDate: showDate, RowLabel: "A", Number: 1, SeatType: domain.SeatVIP, Available: true},
			{RowLabel: "C", Number: 4}: {ShowDate: showDate, RowLabel: "C", Number: 4, SeatType: domain.SeatStandard, Available: true},
		}},
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
	}

	f.svc = New(
		f.orders,
		f.seats,
		f.gateway,
		f.notifier,
		redisrepo.NewIdempotencyStore(rdb, time.Hour),
		redisrepo.NewPaymentQueue(rdb),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{CheckoutTTL: 30 * time.Minute, EmailDedupeTTL: 10 * time.Minute, PollInterval: 15 * time.Second},
	)

	return f
}

func validInput() CreateInput {
	return CreateInput{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		Phone:        "021 555 0101",
		IsStudent:    true,
		StudentCount: 1,
		SelectedDate: showDate,
		SelectedSeats: []domain.OrderSeat{
			{RowLabel: "A", Number: 1, SeatType: domain.SeatVIP},
			// client claims the wrong type; the stored one wins.
			{RowLabel: "C", Number: 4, SeatType: domain.SeatVIP},
		},
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	total := decimal.RequireFromString("100")
	in := validInput()
	in.ClientTotal = &total

	res, err := f.svc.Create(ctx, in, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "cs_test_"+res.OrderID.String(), res.SessionID)

	o, err := f.svc.Get(ctx, res.OrderID)
	require.NoError(t, err)
	// 45 VIP + 25 student standard + 3% fee.
	require.Equal(t, int64(7210), o.TotalCents)
	require.Equal(t, domain.SeatStandard, o.SelectedSeats[1].SeatType)
	require.Equal(t, res.SessionID, o.CheckoutSessionID)
	require.Equal(t, "sess-1", o.HoldOwner)
	require.False(t, o.Paid)

	require.Equal(t, 30*time.Minute, f.seats.extended)
	require.Len(t, f.gateway.created, 1)

	members, err := f.mr.ZMembers(redisrepo.KeyPaymentQueue())
	require.NoError(t, err)
	require.Equal(t, []string{res.OrderID.String()}, members)
}

func TestCreateSeatsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seats.bad = []domain.SeatRef{{RowLabel: "A", Number: 1}}

	_, err := f.svc.Create(context.Background(), validInput(), "sess-1")
	require.ErrorIs(t, err, ErrSeatsUnavailable)

	var invalidSeats *InvalidSeatsError
	require.True(t, errors.As(err, &invalidSeats))
	require.Equal(t, f.seats.bad, invalidSeats.Seats)
	require.Empty(t, f.gateway.created)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateInput)
	}{
		{"first name", func(in *CreateInput) { in.FirstName = " " }},
		{"email", func(in *CreateInput) { in.Email = "not-an-email" }},
		{"phone", func(in *CreateInput) { in.Phone = "" }},
		{"date", func(in *CreateInput) { in.SelectedDate = "07/08/2025" }},
		{"no seats", func(in *CreateInput) { in.SelectedSeats = nil }},
		{"seat type", func(in *CreateInput) { in.SelectedSeats[0].SeatType = "Balcony" }},
		{"seat number", func(in *CreateInput) { in.SelectedSeats[0].Number = 0 }},
		{"student count", func(in *CreateInput) { in.StudentCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), in, "sess-1")
			require.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func seedOrder(t *testing.T, f *fixture) uuid.UUID {
	t.Helper()

	res, err := f.svc.Create(context.Background(), validInput(), "sess-1")
	require.NoError(t, err)
	return res.OrderID
}

func TestCheckPaymentStatusSettlesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := seedOrder(t, f)

	f.gateway.status = payment.Status{SessionStatus: "complete", IntentStatus: payment.StatusSucceeded}

	var (
		wg      sync.WaitGroup
		results = make([]*PaymentResult, 8)
		errs    = make([]error, 8)
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.svc.CheckPaymentStatus(ctx, id)
		}()
	}
	wg.Wait()

	for i := range 8 {
		require.NoError(t, errs[i])
		require.True(t, results[i].Paid)
		require.Equal(t, payment.StatusSucceeded, results[i].PaymentStatus)
	}

	require.Equal(t, int32(1), f.seats.sold.Load())
	require.Equal(t, int32(1), f.notifier.sent.Load())
	require.True(t, f.mr.Exists(redisrepo.KeyEmailSent(id.String())))

	n, err := redisrepo.NewPaymentQueue(redis.NewClient(&redis.Options{Addr: f.mr.Addr()})).Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCheckPaymentStatusPending(t *testing.T) {
	f := newFixture(t)
	id := seedOrder(t, f)

	f.gateway.status = payment.Status{SessionStatus: "open", IntentStatus: "requires_payment_method"}

	res, err := f.svc.CheckPaymentStatus(context.Background(), id)
	require.NoError(t, err)
	require.False(t, res.Paid)
	require.Equal(t, "requires_payment_method", res.PaymentStatus)
	require.Zero(t, f.notifier.sent.Load())
}

func TestCheckPaymentStatusNoIntent(t *testing.T) {
	f := newFixture(t)
	id := seedOrder(t, f)

	f.gateway.status = payment.Status{SessionStatus: "open", IntentStatus: payment.StatusNoIntent}
	f.gateway.err = payment.ErrNoPaymentIntent

	res, err := f.svc.CheckPaymentStatus(context.Background(), id)
	require.ErrorIs(t, err, ErrNoPaymentIntent)
	require.Equal(t, "open", res.SessionStatus)
}

func TestCheckPaymentStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckPaymentStatus(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestEmailGuardReleasedOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := seedOrder(t, f)

	o, err := f.svc.Get(ctx, id)
	require.NoError(t, err)

	f.notifier.fail.Store(true)
	require.Error(t, f.svc.sendOnce(ctx, o))
	require.False(t, f.mr.Exists(redisrepo.KeyEmailSent(id.String())))

	f.notifier.fail.Store(false)
	require.NoError(t, f.svc.sendOnce(ctx, o))
	require.NoError(t, f.svc.sendOnce(ctx, o))
	require.Equal(t, int32(1), f.notifier.sent.Load())

	ttl := f.mr.TTL(redisrepo.KeyEmailSent(id.String()))
	require.Equal(t, 10*time.Minute, ttl)

	// admin resend ignores the guard.
	require.NoError(t, f.svc.ResendEmail(ctx, id))
	require.Equal(t, int32(2), f.notifier.sent.Load())
}

func TestExpireUnpaid(t *testing.T) {
	f := newFixture(t)
	id := seedOrder(t, f)

	require.NoError(t, f.svc.ExpireUnpaid(context.Background(), id))
	require.Equal(t, "sess-1", f.seats.owner)
	require.Len(t, f.seats.released, 2)
}

type seatTable []domain.Seat

func (st seatTable) ListByDate(_ context.Context, date string) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, s := range st {
		if s.ShowDate == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (st seatTable) Find(_ context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, r := range refs {
		for _, s := range st {
			if s.ShowDate == date && s.Ref() == r {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type noPerformances struct{}

func (noPerformances) List(context.Context) ([]domain.PerformanceAvailability, error) {
	return nil, nil
}

func TestExpireUnpaidKeepsLaterCheckoutHold(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := redisrepo.NewSeatLocker(rdb)
	seatSvc := seats.New(
		seatTable{
			{ShowDate: showDate, RowLabel: "A", Number: 1, SeatType: domain.SeatVIP, Available: true},
			{ShowDate: showDate, RowLabel: "A", Number: 2, SeatType: domain.SeatVIP, Available: true},
		},
		noPerformances{},
		redisrepo.New(rdb),
		locker,
		nil,
		nil,
		log,
		seats.Config{LockTTL: 10 * time.Minute, CacheTTL: time.Minute},
	)

	store := newFakeOrders()
	svc := New(
		store,
		seatSvc,
		&fakeGateway{},
		&fakeNotifier{},
		redisrepo.NewIdempotencyStore(rdb, time.Hour),
		nil,
		log,
		Config{CheckoutTTL: 30 * time.Minute},
	)

	a1 := domain.SeatRef{RowLabel: "A", Number: 1}
	a2 := domain.SeatRef{RowLabel: "A", Number: 2}

	in := validInput()
	in.IsStudent, in.StudentCount = false, 0
	in.SelectedSeats = []domain.OrderSeat{
		{RowLabel: "A", Number: 1, SeatType: domain.SeatVIP},
		{RowLabel: "A", Number: 2, SeatType: domain.SeatVIP},
	}
	first, err := svc.Create(ctx, in, "sess-1")
	require.NoError(t, err)

	// the same browser comes back for A1 only.
	in.SelectedSeats = in.SelectedSeats[:1]
	_, err = svc.Create(ctx, in, "sess-1")
	require.NoError(t, err)

	require.NoError(t, svc.ExpireUnpaid(ctx, first.OrderID))

	owners, err := locker.Owners(ctx, showDate, []domain.SeatRef{a1, a2})
	require.NoError(t, err)
	require.Equal(t, []string{"sess-1", ""}, owners)

	err = locker.Acquire(ctx, showDate, []domain.SeatRef{a1}, "sess-2", time.Minute)
	require.ErrorIs(t, err, redisrepo.ErrSeatsLocked)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := seedOrder(t, f)

	o, err := f.svc.Update(ctx, id, domain.OrderPatch{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Phone:     "1",
	})
	require.NoError(t, err)
	require.Equal(t, "Grace", o.FirstName)
	require.NotEmpty(t, o.CheckoutSessionID)

	_, err = f.svc.Update(ctx, id, domain.OrderPatch{SelectedSeats: []domain.OrderSeat{{RowLabel: "A"}}})
	require.ErrorIs(t, err, ErrInvalidOrder)

	list, err := f.svc.GetByEmail(ctx, " grace@example.com ")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.Delete(ctx, id))
	require.ErrorIs(t, f.svc.Delete(ctx, id), ErrOrderNotFound)

	_, err = f.svc.Get(ctx, id)
	require.ErrorIs(t, err, ErrOrderNotFound)
}
