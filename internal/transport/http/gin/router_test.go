package httpgin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/payment"
	"github.com/kirinyoku/revuetix/internal/repository"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service"
	"github.com/kirinyoku/revuetix/internal/service/admin"
	"github.com/kirinyoku/revuetix/internal/service/orders"
	"github.com/kirinyoku/revuetix/internal/service/reports"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/kirinyoku/revuetix/internal/service/tickets"
	"github.com/kirinyoku/revuetix/internal/ticket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	showDate      = "2025-08-07"
	internalToken = "internal-secret"
	sessionA      = "3f1c7a52-8a53-4a43-9a4e-2f7d1c0b1a01"
	sessionB      = "6b2e0d4c-1f0a-4c7e-8d8b-5a9e3c2f4b02"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes ---

type fakeSeatDB struct {
	seats []domain.Seat
}

func (f *fakeSeatDB) ListByDate(_ context.Context, date string) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, s := range f.seats {
		if s.ShowDate == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeatDB) Find(_ context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, r := range refs {
		for _, s := range f.seats {
			if s.ShowDate == date && s.Ref() == r {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakePerformanceDB struct{}

func (fakePerformanceDB) List(context.Context) ([]domain.PerformanceAvailability, error) {
	return []domain.PerformanceAvailability{{
		Performance: domain.Performance{ShowDate: showDate, Title: "Back to the Suture"},
		Seats:       domain.SeatCounts{Total: 3, Available: 3},
	}}, nil
}

type fakeOrderDB struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
}

func (f *fakeOrderDB) Create(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeOrderDB) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrderDB) List(context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderDB) GetByEmail(_ context.Context, email string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if strings.EqualFold(o.Email, email) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderDB) Update(_ context.Context, id uuid.UUID, p domain.OrderPatch) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.FirstName, o.LastName, o.Email, o.Phone = p.FirstName, p.LastName, p.Email, p.Phone
	o.TotalCents, o.Paid = p.TotalCents, p.Paid
	f.orders[id] = o
	return &o, nil
}

func (f *fakeOrderDB) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderDB) MarkPaid(_ context.Context, id uuid.UUID) (*domain.Order, error) {
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

func (f *fakeOrderDB) SeatOrderIDs(_ context.Context, date string, seat domain.SeatRef, includeUnpaid bool) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, o := range f.orders {
		if o.SelectedDate != date || (!o.Paid && !includeUnpaid) {
			continue
		}
		for _, s := range o.SelectedSeats {
			if s.Ref() == seat {
				out = append(out, o.ID)
			}
		}
	}
	return out, nil
}

type fakeReportDB struct{}

func (fakeReportDB) Stats(context.Context) (*domain.OrderStats, error) {
	return &domain.OrderStats{Overall: domain.OrderTotals{TotalSoldCents: 9270, TotalOrders: 1, TotalSeatsOrdered: 2}}, nil
}

func (fakeReportDB) DuplicateSeats(context.Context, domain.DuplicateFilter) ([]domain.DuplicateSeat, error) {
	return nil, nil
}

func (fakeReportDB) DuplicateOrders(context.Context, domain.DuplicateFilter) ([]domain.DuplicateCustomer, error) {
	return nil, nil
}

type fakeGateway struct {
	sessions atomic.Int32
	status   payment.Status
	err      error
}

func (f *fakeGateway) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (string, error) {
	n := f.sessions.Add(1)
	return fmt.Sprintf("cs_test_%d", n), nil
}

func (f *fakeGateway) PaymentStatus(context.Context, string) (payment.Status, error) {
	return f.status, f.err
}

type fakeNotifier struct {
	sent atomic.Int32
}

func (f *fakeNotifier) SendConfirmation(context.Context, *domain.Order) error {
	f.sent.Add(1)
	return nil
}

// --- fixture ---

type fixture struct {
	router  *gin.Engine
	svcs    *service.Services
	orders  *fakeOrderDB
	gateway *fakeGateway
	signer  *ticket.Signer
	tokens  *auth.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	seatDB := &fakeSeatDB{seats: []domain.Seat{
		{ShowDate: showDate, RowLabel: "A", Number: 1, SeatType: domain.SeatVIP, Available: true},
		{ShowDate: showDate, RowLabel: "C", Number: 1, SeatType: domain.SeatStandard, Available: true},
		{ShowDate: showDate, RowLabel: "C", Number: 2, SeatType: domain.SeatStandard, Available: true},
	}}
	orderDB := &fakeOrderDB{orders: map[uuid.UUID]domain.Order{}}
	gateway := &fakeGateway{}
	signer := ticket.NewSigner("qr-secret")
	tokens := auth.NewManager("jwt-secret", time.Hour)

	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	seatSvc := seats.New(
		seatDB,
		fakePerformanceDB{},
		redisrepo.New(rdb),
		redisrepo.NewSeatLocker(rdb),
		nil,
		redisrepo.NewSlidingWindowLimiter(rdb, "locks", 100, time.Minute),
		log,
		seats.Config{LockTTL: 10 * time.Minute, CacheTTL: time.Minute, MaxPerHold: 10},
	)

	svcs := &service.Services{
		Seats: seatSvc,
		Orders: orders.New(
			orderDB,
			seatSvc,
			gateway,
			&fakeNotifier{},
			redisrepo.NewIdempotencyStore(rdb, time.Hour),
			redisrepo.NewPaymentQueue(rdb),
			log,
			orders.Config{},
		),
		Reports: reports.New(fakeReportDB{}, orderDB),
		Tickets: tickets.New(orderDB, signer, tickets.Show{Location: "SkyCity Theatre"}),
		Admin:   admin.New(nil, nil, nil, tokens, admin.Credentials{Email: "admin@example.com", PasswordHash: hash}, log),
	}

	r := NewRouter(
		svcs,
		redisrepo.NewIdempotencyStore(rdb, time.Hour),
		Options{Tokens: tokens, InternalToken: internalToken},
		log,
	)

	return &fixture{
		router:  r,
		svcs:    svcs,
		orders:  orderDB,
		gateway: gateway,
		signer:  signer,
		tokens:  tokens,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func asSession(sid string) map[string]string {
	return map[string]string{"Cookie": SessionCookie + "=" + sid}
}

func asAdmin() map[string]string {
	return map[string]string{headerInternalToken: internalToken}
}

func (f *fixture) seedOrder(t *testing.T, paid bool) domain.Order {
	t.Helper()

	o := domain.Order{
		ID:                uuid.New(),
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "ada@example.com",
		Phone:             "021000000",
		SelectedDate:      showDate,
		SelectedSeats:     []domain.OrderSeat{{RowLabel: "A", Number: 1, SeatType: domain.SeatVIP}},
		TotalCents:        4635,
		CheckoutSessionID: "cs_seeded",
		Paid:              paid,
	}
	require.NoError(t, f.orders.Create(context.Background(), &o))
	return o
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var orderBody = map[string]any{
	"firstName":    "Ada",
	"lastName":     "Lovelace",
	"email":        "ada@example.com",
	"phone":        "021000000",
	"isStudent":    true,
	"studentCount": 1,
	"selectedDate": showDate,
	"selectedSeats": []map[string]any{
		{"rowLabel": "C", "number": 1, "seatType": "Standard"},
		{"rowLabel": "C", "number": 2, "seatType": "Standard"},
	},
	"totalPrice": 61.80,
}

// --- tests ---

func TestHealthAndHello(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/hello", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Hello, World!"}`, w.Body.String())
	require.Contains(t, w.Header().Get("Set-Cookie"), SessionCookie+"=")

	w = f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "revuetix_http_request_duration_seconds")
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders", nil, map[string]string{headerInternalToken: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[OrdersResponse](t, w).Orders, 1)

	w = f.do(t, http.MethodGet, "/api/v1/orders?email=nobody@example.com", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"orders":[]}`, w.Body.String())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/admin/login", LoginRequest{Email: "admin@example.com", Password: "nope"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/admin/login", LoginRequest{Email: "admin@example.com", Password: "hunter2"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[admin.Token](t, w)
	require.NotEmpty(t, tok.Token)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == AdminCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	w = f.do(t, http.MethodGet, "/api/v1/orders", nil, map[string]string{"Authorization": "Bearer " + tok.Token})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders", nil, map[string]string{"Cookie": AdminCookie + "=" + tok.Token})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSeatLocks(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/seats/"+showDate+"/locks", SeatsRequest{Seats: []string{"C1", "C2"}}, asSession(sessionA))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"C1", "C2"}, decode[LockSeatsResponse](t, w).Seats)

	w = f.do(t, http.MethodPost, "/api/v1/seats/"+showDate+"/locks", SeatsRequest{Seats: []string{"C2", "A1"}}, asSession(sessionB))
	require.Equal(t, http.StatusConflict, w.Code)
	conflict := decode[SeatsUnavailableResponse](t, w)
	require.Equal(t, "Seats no longer available", conflict.Error)
	require.Equal(t, []domain.SeatRef{{RowLabel: "C", Number: 2}}, conflict.InvalidSeats)

	w = f.do(t, http.MethodGet, "/api/v1/seats/"+showDate, nil, asSession(sessionB))
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[SeatMapResponse](t, w)
	require.Len(t, view.Seats, 3)
	for _, s := range view.Seats {
		require.Equal(t, s.RowLabel == "C", s.Locked, s.Ref())
		require.False(t, s.Mine)
	}

	w = f.do(t, http.MethodDelete, "/api/v1/seats/"+showDate+"/locks", SeatsRequest{Seats: []string{"C1", "C2"}}, asSession(sessionA))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, decode[ReleaseSeatsResponse](t, w).Released)

	w = f.do(t, http.MethodPost, "/api/v1/seats/"+showDate+"/locks", SeatsRequest{Seats: []string{"12C"}}, asSession(sessionA))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/seats/2031-01-01", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	headers := asSession(sessionA)
	headers["Idempotency-Key"] = "checkout-1"

	w := f.do(t, http.MethodPost, "/api/v1/orders", orderBody, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[orders.CreateResult](t, w)
	require.NotEmpty(t, res.SessionID)

	stored, err := f.orders.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.EqualValues(t, 6180, stored.TotalCents)

	// replay returns the stored result without a second checkout session.
	w = f.do(t, http.MethodPost, "/api/v1/orders", orderBody, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, res, decode[orders.CreateResult](t, w))
	require.EqualValues(t, 1, f.gateway.sessions.Load())

	// the seats are now held by session A.
	w = f.do(t, http.MethodPost, "/api/v1/orders", orderBody, asSession(sessionB))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Len(t, decode[SeatsUnavailableResponse](t, w).InvalidSeats, 2)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		patch func(m map[string]any)
	}{
		{"missing email", func(m map[string]any) { delete(m, "email") }},
		{"bad email", func(m map[string]any) { m["email"] = "not-an-email" }},
		{"bad date", func(m map[string]any) { m["selectedDate"] = "07/08/2025" }},
		{"no seats", func(m map[string]any) { m["selectedSeats"] = []any{} }},
		{"missing isStudent", func(m map[string]any) { delete(m, "isStudent") }},
		{"bad seat type", func(m map[string]any) {
			m["selectedSeats"] = []map[string]any{{"rowLabel": "C", "number": 1, "seatType": "Box"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := make(map[string]any, len(orderBody))
			for k, v := range orderBody {
				body[k] = v
			}
			tt.patch(body)

			w := f.do(t, http.MethodPost, "/api/v1/orders", body, asSession(sessionA))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestGetUpdateDeleteOrder(t *testing.T) {
	f := newFixture(t)
	o := f.seedOrder(t, false)
	path := "/api/v1/orders/" + o.ID.String()

	w := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, o.ID, decode[OrderResponse](t, w).Order.ID)

	update := map[string]any{
		"firstName":    "Grace",
		"lastName":     "Hopper",
		"email":        "grace@example.com",
		"phone":        "021111111",
		"selectedDate": showDate,
		"totalPrice":   46.35,
		"paid":         true,
	}
	w = f.do(t, http.MethodPut, path, update, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPut, path, update, asAdmin())
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "Grace", got.FirstName)
	require.True(t, got.Paid)
	require.Equal(t, "cs_seeded", got.CheckoutSessionID)

	w = f.do(t, http.MethodPut, "/api/v1/orders/"+uuid.NewString(), update, asAdmin())
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, path, nil, asAdmin())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderStatus(t *testing.T) {
	f := newFixture(t)
	o := f.seedOrder(t, false)
	path := "/api/v1/orders/order-status/" + o.ID.String()

	f.gateway.status = payment.Status{SessionStatus: "open"}
	f.gateway.err = payment.ErrNoPaymentIntent

	w := f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "Payment intent not found for this session")

	f.gateway.status = payment.Status{SessionStatus: "complete", PaymentIntentID: "pi_1", IntentStatus: payment.StatusSucceeded}
	f.gateway.err = nil

	w = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"paymentStatus":"succeeded"}`, w.Body.String())

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, got.Paid)

	f.gateway.err = payment.ErrUnavailable
	w = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSendEmail(t *testing.T) {
	f := newFixture(t)
	o := f.seedOrder(t, true)

	w := f.do(t, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/send-email", nil, asAdmin())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/send-email", nil, asAdmin())
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	a := f.seedOrder(t, true)
	b := f.seedOrder(t, false)

	w := f.do(t, http.MethodGet, "/api/v1/orders/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[domain.OrderStats](t, w)
	require.InDelta(t, 92.70, st.Overall.TotalSoldPrice, 1e-9)

	w = f.do(t, http.MethodGet, "/api/v1/orders/duplicates?date=bad", nil, asAdmin())
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders/duplicates", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/orders/duplicates/seat/"+showDate+"/A/1", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	check := decode[reports.SeatCheck](t, w)
	require.Equal(t, []uuid.UUID{a.ID}, check.OrderIDs)
	require.False(t, check.IsDuplicate)

	w = f.do(t, http.MethodGet, "/api/v1/orders/duplicates/seat/"+showDate+"/A/1?includeUnpaid=true", nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	check = decode[reports.SeatCheck](t, w)
	require.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, check.OrderIDs)
	require.True(t, check.IsDuplicate)
	require.Equal(t, 2, check.OrderCount)

	w = f.do(t, http.MethodGet, "/api/v1/orders/duplicates/seat/"+showDate+"/A/x", nil, asAdmin())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQRCodes(t *testing.T) {
	f := newFixture(t)
	o := f.seedOrder(t, true)
	sig := f.signer.Sign(o.ID.String())

	w := f.do(t, http.MethodGet, "/api/v1/qrcode/order/"+o.ID.String()+"/"+sig, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = f.do(t, http.MethodGet, "/api/v1/qrcode/order/"+o.ID.String()+"/"+strings.Repeat("0", 64), nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/qrcode/scan", ScanRequest{QRData: f.signer.Payload(o.ID.String())}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	scan := decode[ScanResponse](t, w)
	require.True(t, scan.Success)
	require.Equal(t, "A1", scan.Order.Seats)
	require.Equal(t, "$46.35", scan.Order.TotalPrice)

	w = f.do(t, http.MethodPost, "/api/v1/qrcode/scan", ScanRequest{QRData: o.ID.String() + "." + strings.Repeat("0", 64)}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/qrcode/scan", ScanRequest{QRData: "garbage"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/qrcode?seatNumber=C1&date="+showDate, nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/qrcode?seatNumber=C1&date="+showDate, nil, asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(decode[SeatQRResponse](t, w).QRCode, "data:image/png;base64,"))

	w = f.do(t, http.MethodGet, "/api/v1/qrcode/image?seatNumber=A1&date="+showDate, nil, asAdmin())
	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":"Seat already booked"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/qrcode?date="+showDate, nil, asAdmin())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPerformancesETag(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/performances", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	require.Len(t, decode[PerformancesResponse](t, w).Performances, 1)

	w = f.do(t, http.MethodGet, "/api/v1/performances", nil, map[string]string{"If-None-Match": tag})
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestSeatEventsStream(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/seats/"+showDate+"/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	rd := bufio.NewReader(resp.Body)
	readUntil := func(want string) {
		t.Helper()
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			if strings.Contains(line, want) {
				return
			}
		}
	}

	readUntil("ready")
	f.svcs.Seats.Events().Publish(showDate)
	readUntil("seats_changed")
}

func TestEtagMatch(t *testing.T) {
	require.True(t, etagMatch(`W/"abc"`, `W/"abc"`))
	require.True(t, etagMatch(`"abc"`, `W/"abc"`))
	require.True(t, etagMatch(`"x", W/"abc"`, `W/"abc"`))
	require.True(t, etagMatch(`*`, `"abc"`))
	require.False(t, etagMatch(``, `"abc"`))
	require.False(t, etagMatch(`"abd"`, `"abc"`))
}

func TestLastCause(t *testing.T) {
	require.Equal(t, "invalid order", lastCause(orders.ErrInvalidOrder))

	err := fmt.Errorf("service.orders.Create: %w", fmt.Errorf("%w: missing email", orders.ErrInvalidOrder))
	require.Equal(t, "invalid order: missing email", lastCause(err))
}
