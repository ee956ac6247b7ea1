package seats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/revuetix/internal/domain"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const showDate = "2025-08-07"

var (
	seatA1 = domain.SeatRef{RowLabel: "A", Number: 1}
	seatA2 = domain.SeatRef{RowLabel: "A", Number: 2}
	seatB1 = domain.SeatRef{RowLabel: "B", Number: 1}
	seatZ9 = domain.SeatRef{RowLabel: "Z", Number: 9}
)

type fakeSeats struct {
	seats []domain.Seat
	lists atomic.Int32
}

func (f *fakeSeats) ListByDate(_ context.Context, date string) ([]domain.Seat, error) {
	f.lists.Add(1)
	var out []domain.Seat
	for _, s := range f.seats {
		if s.ShowDate == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeats) Find(_ context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, s := range f.seats {
		for _, r := range refs {
			if s.ShowDate == date && s.Ref() == r {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakePerformances struct {
	perfs []domain.PerformanceAvailability
}

func (f *fakePerformances) List(context.Context) ([]domain.PerformanceAvailability, error) {
	return f.perfs, nil
}

type fixture struct {
	svc   *Service
	mr    *miniredis.Miniredis
	seats *fakeSeats
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	seats := &fakeSeats{seats: []domain.Seat{
		{ShowDate: showDate, RowLabel: "A", Number: 1, SeatType: domain.SeatVIP, Available: true},
		{ShowDate: showDate, RowLabel: "A", Number: 2, SeatType: domain.SeatVIP, Available: true},
		{ShowDate: showDate, RowLabel: "B", Number: 1, SeatType: domain.SeatStandard, Available: false},
	}}

	svc := New(
		seats,
		&fakePerformances{perfs: []domain.PerformanceAvailability{{Performance: domain.Performance{ShowDate: showDate}}}},
		redisrepo.New(rdb),
		redisrepo.NewSeatLocker(rdb),
		nil,
		redisrepo.NewSlidingWindowLimiter(rdb, "locks", limit, time.Minute),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{LockTTL: time.Minute, CacheTTL: time.Minute, MaxPerHold: 3},
	)

	return &fixture{svc: svc, mr: mr, seats: seats}
}

func TestLockSeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "10.0.0.1", []domain.SeatRef{seatA1, seatA2})
	require.NoError(t, err)
	require.True(t, f.mr.Exists(redisrepo.KeySeatLock(showDate, seatA1)))

	_, err = f.svc.LockSeats(ctx, showDate, "bob", "10.0.0.2", []domain.SeatRef{seatA2})
	require.ErrorIs(t, err, ErrSeatsUnavailable)

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, []domain.SeatRef{seatA2}, unavailable.Seats)
}

func TestLockSeatsRejectsSoldAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1, seatB1, seatZ9})

	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, []domain.SeatRef{seatB1, seatZ9}, unavailable.Seats)
	require.False(t, f.mr.Exists(redisrepo.KeySeatLock(showDate, seatA1)))
}

func TestLockSeatsSelectionRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "ip", nil)
	require.ErrorIs(t, err, ErrNoSeats)

	_, err = f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1, seatA1})
	require.ErrorIs(t, err, ErrDuplicateSeat)

	_, err = f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1, seatA2, seatB1, seatZ9})
	require.ErrorIs(t, err, ErrTooManySeats)
}

func TestLockSeatsRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1})
	require.NoError(t, err)

	_, err = f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1})
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestSeatMapOverlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1})
	require.NoError(t, err)

	views, err := f.svc.SeatMap(ctx, showDate, "alice")
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.True(t, views[0].Mine)
	require.False(t, views[0].Locked)

	views, err = f.svc.SeatMap(ctx, showDate, "bob")
	require.NoError(t, err)
	require.True(t, views[0].Locked)
	require.False(t, views[0].Mine)
	require.False(t, views[1].Locked)

	// second read served from cache.
	require.Equal(t, int32(1), f.seats.lists.Load())
}

func TestSeatMapUnknownDate(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.svc.SeatMap(context.Background(), "2030-01-01", "alice")
	require.ErrorIs(t, err, ErrPerformanceNotFound)
}

func TestVerifySeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "bob", "ip", []domain.SeatRef{seatA2})
	require.NoError(t, err)

	_, bad, err := f.svc.VerifySeats(ctx, showDate, "alice", []domain.SeatRef{seatA1, seatA2})
	require.NoError(t, err)
	require.Equal(t, []domain.SeatRef{seatA2}, bad)
	// a failed verification holds nothing.
	require.False(t, f.mr.Exists(redisrepo.KeySeatLock(showDate, seatA1)))

	ok, bad, err := f.svc.VerifySeats(ctx, showDate, "alice", []domain.SeatRef{seatA1})
	require.NoError(t, err)
	require.Empty(t, bad)
	require.Len(t, ok, 1)
	require.Equal(t, domain.SeatVIP, ok[0].SeatType)

	owner, err := f.mr.Get(redisrepo.KeySeatLock(showDate, seatA1))
	require.NoError(t, err)
	require.Equal(t, "alice", owner)

	_, bad, err = f.svc.VerifySeats(ctx, showDate, "alice", []domain.SeatRef{seatB1})
	require.NoError(t, err)
	require.Equal(t, []domain.SeatRef{seatB1}, bad)
}

func TestReleaseAndSeatsSold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.svc.LockSeats(ctx, showDate, "alice", "ip", []domain.SeatRef{seatA1, seatA2})
	require.NoError(t, err)

	n, err := f.svc.ReleaseSeats(ctx, showDate, "bob", []domain.SeatRef{seatA1})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = f.svc.ReleaseSeats(ctx, showDate, "alice", []domain.SeatRef{seatA1})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, f.svc.ExtendHolds(ctx, showDate, "alice", []domain.SeatRef{seatA2}, time.Hour))
	require.Greater(t, f.mr.TTL(redisrepo.KeySeatLock(showDate, seatA2)), 30*time.Minute)

	_, err = f.svc.SeatMap(ctx, showDate, "")
	require.NoError(t, err)

	f.seats.seats[1].Available = false
	require.NoError(t, f.svc.SeatsSold(ctx, showDate, []domain.SeatRef{seatA2}))
	require.False(t, f.mr.Exists(redisrepo.KeySeatLock(showDate, seatA2)))

	views, err := f.svc.SeatMap(ctx, showDate, "")
	require.NoError(t, err)
	require.False(t, views[1].Available)
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()

	a, cancelA := h.Subscribe(showDate)
	b, cancelB := h.Subscribe(showDate)
	other, cancelOther := h.Subscribe("2030-01-01")
	defer cancelOther()

	h.Publish(showDate)
	h.Publish(showDate)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Len(t, other, 0)

	cancelA()
	cancelA()
	require.Equal(t, 1, h.Len(showDate))
	cancelB()
	require.Equal(t, 0, h.Len(showDate))
}

func TestPerformancesCached(t *testing.T) {
	f := newFixture(t, 100)

	perfs, err := f.svc.Performances(context.Background())
	require.NoError(t, err)
	require.Len(t, perfs, 1)
	require.True(t, f.mr.Exists(redisrepo.KeyPerformances()))
}
