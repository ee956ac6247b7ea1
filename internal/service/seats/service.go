package seats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/metrics"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
)

type Config struct {
	LockTTL    time.Duration
	CacheTTL   time.Duration
	MaxPerHold int
}

type SeatStore interface {
	ListByDate(ctx context.Context, date string) ([]domain.Seat, error)
	Find(ctx context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, error)
}

type PerformanceStore interface {
	List(ctx context.Context) ([]domain.PerformanceAvailability, error)
}

type Service struct {
	seats   SeatStore
	perfs   PerformanceStore
	cache   *redisrepo.Cache
	locker  *redisrepo.SeatLocker
	pubsub  *redisrepo.SeatsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	events  *Hub
	log     *slog.Logger
	cfg     Config
}

func New(
	seats SeatStore,
	perfs PerformanceStore,
	cache *redisrepo.Cache,
	locker *redisrepo.SeatLocker,
	pubsub *redisrepo.SeatsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	if cfg.MaxPerHold <= 0 {
		cfg.MaxPerHold = 20
	}

	return &Service{
		seats:   seats,
		perfs:   perfs,
		cache:   cache,
		locker:  locker,
		pubsub:  pubsub,
		limiter: limiter,
		events:  NewHub(),
		log:     log,
		cfg:     cfg,
	}
}

// Events is the in-process fan-out of seat changes for streaming clients.
func (s *Service) Events() *Hub {
	return s.events
}

// HandleSeatsChanged is the pub/sub handler for seat change notifications
// from any instance.
func (s *Service) HandleSeatsChanged(_ context.Context, date string) {
	s.events.Publish(date)
}

func (s *Service) loadSeats(ctx context.Context, date string) ([]domain.Seat, error) {
	hit := true

	seats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySeatMap(date),
		s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Seat, error) {
			hit = false

			seats, err := s.seats.ListByDate(ctx, date)
			if err != nil {
				return nil, err
			}

			if len(seats) == 0 {
				return nil, ErrPerformanceNotFound
			}

			return seats, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if hit {
		metrics.SeatCacheRequests.WithLabelValues("hit").Inc()
	} else {
		metrics.SeatCacheRequests.WithLabelValues("miss").Inc()
	}

	return seats, nil
}

// SeatMap returns the seats of a performance overlaid with live holds. A
// seat held by session is reported as mine, one held by anyone else as
// locked.
//
// Parameters:
//   - ctx: request-scoped context.
//   - date: performance date.
//   - session: browser session of the caller; may be empty.
//
// Returns:
//   - []domain.SeatView: the seat plan.
//   - error: seats.ErrPerformanceNotFound if the date has no seats.
func (s *Service) SeatMap(ctx context.Context, date, session string) ([]domain.SeatView, error) {
	const op = "service.seats.SeatMap"

	seats, err := s.loadSeats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refs := make([]domain.SeatRef, len(seats))
	for i, seat := range seats {
		refs[i] = seat.Ref()
	}

	owners, err := s.locker.Owners(ctx, date, refs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.SeatView, len(seats))
	for i, seat := range seats {
		out[i] = domain.SeatView{Seat: seat}

		switch owner := owners[i]; {
		case owner == "":
		case session != "" && owner == session:
			out[i].Mine = true
		default:
			out[i].Locked = true
		}
	}

	return out, nil
}

// Performances lists the show dates with their seat counts.
func (s *Service) Performances(ctx context.Context) ([]domain.PerformanceAvailability, error) {
	const op = "service.seats.Performances"

	perfs, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyPerformances(),
		s.cfg.CacheTTL,
		s.perfs.List,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return perfs, nil
}

func (s *Service) checkSelection(refs []domain.SeatRef) error {
	if len(refs) == 0 {
		return ErrNoSeats
	}

	if len(refs) > s.cfg.MaxPerHold {
		return ErrTooManySeats
	}

	seen := make(map[domain.SeatRef]struct{}, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSeat, r)
		}
		seen[r] = struct{}{}
	}

	return nil
}

// unsold returns the stored seats for refs in the order of refs, and the refs
// that are unknown or already sold.
func (s *Service) unsold(ctx context.Context, date string, refs []domain.SeatRef) ([]domain.Seat, []domain.SeatRef, error) {
	found, err := s.seats.Find(ctx, date, refs)
	if err != nil {
		return nil, nil, err
	}

	byRef := make(map[domain.SeatRef]domain.Seat, len(found))
	for _, seat := range found {
		byRef[seat.Ref()] = seat
	}

	var (
		ok  []domain.Seat
		bad []domain.SeatRef
	)
	for _, r := range refs {
		seat, exists := byRef[r]
		if !exists || !seat.Available {
			bad = append(bad, r)
			continue
		}
		ok = append(ok, seat)
	}

	return ok, bad, nil
}

// LockSeats places a hold on every seat for the session, or on none.
//
// Parameters:
//   - ctx: request-scoped context.
//   - date: performance date.
//   - session: browser session that will own the holds.
//   - clientID: rate limiting identity, usually the client IP.
//   - refs: seats to hold.
//
// Returns:
//   - time.Time: when the holds expire.
//   - error: *seats.UnavailableError if a seat is sold, unknown or held by
//     someone else; *seats.RateLimitedError when the client is throttled.
func (s *Service) LockSeats(
	ctx context.Context,
	date, session, clientID string,
	refs []domain.SeatRef,
) (time.Time, error) {
	const op = "service.seats.LockSeats"

	if s.limiter != nil && clientID != "" {
		allowed, _, retryAfter, err := s.limiter.Allow(ctx, clientID)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
		if !allowed {
			return time.Time{}, fmt.Errorf("%s: %w", op, &RateLimitedError{RetryAfter: retryAfter})
		}
	}

	if err := s.checkSelection(refs); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	_, bad, err := s.unsold(ctx, date, refs)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(bad) > 0 {
		metrics.SeatLockAttempts.WithLabelValues("conflict").Inc()
		return time.Time{}, fmt.Errorf("%s: %w", op, &UnavailableError{Seats: bad})
	}

	expires := time.Now().Add(s.cfg.LockTTL)
	if err := s.locker.Acquire(ctx, date, refs, session, s.cfg.LockTTL); err != nil {
		var locked *redisrepo.SeatsLockedError
		if errors.As(err, &locked) {
			metrics.SeatLockAttempts.WithLabelValues("conflict").Inc()
			return time.Time{}, fmt.Errorf("%s: %w", op, &UnavailableError{Seats: locked.Seats})
		}

		metrics.SeatLockAttempts.WithLabelValues("error").Inc()
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SeatLockAttempts.WithLabelValues("acquired").Inc()
	s.notify(ctx, date)

	return expires, nil
}

// ReleaseSeats drops the holds the session owns among refs.
func (s *Service) ReleaseSeats(ctx context.Context, date, session string, refs []domain.SeatRef) (int, error) {
	const op = "service.seats.ReleaseSeats"

	n, err := s.locker.Release(ctx, date, refs, session)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if n > 0 {
		s.notify(ctx, date)
	}

	return n, nil
}

// VerifySeats checks that every seat can be bought by session. It returns the
// stored seats and the refs that cannot be bought: sold, unknown, or held by
// another session. Free seats are held for the session as a side effect.
func (s *Service) VerifySeats(
	ctx context.Context,
	date, session string,
	refs []domain.SeatRef,
) ([]domain.Seat, []domain.SeatRef, error) {
	const op = "service.seats.VerifySeats"

	if err := s.checkSelection(refs); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, bad, err := s.unsold(ctx, date, refs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(bad) > 0 {
		return nil, bad, nil
	}

	owners, err := s.locker.Owners(ctx, date, refs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	var free []domain.SeatRef
	for i, owner := range owners {
		switch owner {
		case "":
			free = append(free, refs[i])
		case session:
		default:
			bad = append(bad, refs[i])
		}
	}
	if len(bad) > 0 {
		return nil, bad, nil
	}

	if len(free) > 0 {
		if err := s.locker.Acquire(ctx, date, free, session, s.cfg.LockTTL); err != nil {
			var locked *redisrepo.SeatsLockedError
			if errors.As(err, &locked) {
				return nil, locked.Seats, nil
			}
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		s.notify(ctx, date)
	}

	return ok, nil, nil
}

// ExtendHolds sets the expiry of the session's holds, e.g. for the length of
// a checkout.
func (s *Service) ExtendHolds(
	ctx context.Context,
	date, session string,
	refs []domain.SeatRef,
	ttl time.Duration,
) error {
	const op = "service.seats.ExtendHolds"

	n, err := s.locker.Extend(ctx, date, refs, session, ttl)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n != len(refs) {
		s.log.Warn("some seat holds were gone before checkout",
			slog.String("date", date),
			slog.Int("extended", n),
			slog.Int("seats", len(refs)),
		)
	}

	return nil
}

// SeatsSold runs after seats were marked sold: holds are dropped, the cached
// seat map is rebuilt and other instances are notified.
func (s *Service) SeatsSold(ctx context.Context, date string, refs []domain.SeatRef) error {
	const op = "service.seats.SeatsSold"

	if err := s.locker.ForceRelease(ctx, date, refs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.RefreshCache(ctx, date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, date)

	return nil
}

// RefreshCache drops and reloads the cached seat map of a performance.
func (s *Service) RefreshCache(ctx context.Context, date string) error {
	const op = "service.seats.RefreshCache"

	if err := s.cache.InvalidateSeats(ctx, date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.loadSeats(ctx, date); err != nil && !errors.Is(err, ErrPerformanceNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) notify(ctx context.Context, date string) {
	if s.pubsub == nil {
		s.events.Publish(date)
		return
	}

	if err := s.pubsub.PublishSeatsChanged(ctx, date); err != nil {
		s.log.Warn("publish seats changed", slog.String("date", date), slog.Any("err", err))
	}
}
