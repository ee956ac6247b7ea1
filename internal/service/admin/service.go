package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/repository"
	postgresrepo "github.com/kirinyoku/revuetix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/uow"
)

// maxSeatsPerRow bounds a single row layout entry.
const maxSeatsPerRow = 500

type Credentials struct {
	Email        string
	PasswordHash string
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.SeatsPubSub
	uow    *uow.UoW
	tokens *auth.Manager
	admin  Credentials
	log    *slog.Logger
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SeatsPubSub,
	tokens *auth.Manager,
	admin Credentials,
	log *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		tokens: tokens,
		admin:  admin,
		log:    log,
	}
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login checks the admin account and issues a session token.
func (s *Service) Login(email, password string) (*Token, error) {
	const op = "service.admin.Login"

	if err := auth.CheckCredentials(s.admin.Email, s.admin.PasswordHash, email, password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, exp, err := s.tokens.Issue(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Token{Token: token, ExpiresAt: exp}, nil
}

// CreatePerformance creates a performance together with its seat plan
// within a transactional Unit of Work.
//
// Parameters:
//   - ctx: request-scoped context.
//   - date: performance date (YYYY-MM-DD).
//   - title: performance title.
//   - rows: seat runs making up the plan.
//
// Returns:
//   - *domain.Performance: the created performance.
//   - int: number of seats in the plan.
//   - error: admin.ErrInvalidPerformance on a bad date or layout,
//     admin.ErrPerformanceConflict if the date already has a performance.
func (s *Service) CreatePerformance(
	ctx context.Context,
	date, title string,
	rows []domain.RowLayout,
) (*domain.Performance, int, error) {
	const op = "service.admin.CreatePerformance"

	date = strings.TrimSpace(date)
	if _, err := time.Parse(domain.ShowDateLayout, date); err != nil {
		return nil, 0, fmt.Errorf("%s: %w: date %q", op, ErrInvalidPerformance, date)
	}

	seats, err := ExpandLayout(date, rows)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	p := &domain.Performance{ShowDate: date, Title: strings.TrimSpace(title)}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Performances().With(tx).Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrPerformanceConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Performances().With(tx).BatchCreateSeats(ctx, date, seats); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if err := s.cache.InvalidateSeats(ctx, date); err != nil {
				s.log.Warn("invalidate seat cache", slog.String("date", date), slog.Any("err", err))
			}
			if err := s.pubsub.PublishSeatsChanged(ctx, date); err != nil {
				s.log.Warn("publish seats changed", slog.String("date", date), slog.Any("err", err))
			}
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return p, len(seats), nil
}

// ExpandLayout turns row runs into individual seats. Overlapping runs are
// rejected.
func ExpandLayout(date string, rows []domain.RowLayout) ([]domain.Seat, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrInvalidPerformance)
	}

	seen := make(map[domain.SeatRef]struct{})
	var seats []domain.Seat

	for _, r := range rows {
		label := strings.TrimSpace(r.Label)
		if !domain.ValidRowLabel(label) {
			return nil, fmt.Errorf("%w: row label %q", ErrInvalidPerformance, r.Label)
		}
		if !r.SeatType.Valid() {
			return nil, fmt.Errorf("%w: seat type %q", ErrInvalidPerformance, r.SeatType)
		}
		if r.StartSeat < 1 || r.EndSeat < r.StartSeat || r.EndSeat-r.StartSeat >= maxSeatsPerRow {
			return nil, fmt.Errorf("%w: row %s seats %d-%d", ErrInvalidPerformance, label, r.StartSeat, r.EndSeat)
		}

		for n := r.StartSeat; n <= r.EndSeat; n++ {
			ref := domain.SeatRef{RowLabel: label, Number: n}
			if _, dup := seen[ref]; dup {
				return nil, fmt.Errorf("%w: seat %s listed twice", ErrInvalidPerformance, ref)
			}
			seen[ref] = struct{}{}

			seats = append(seats, domain.Seat{
				ShowDate:  date,
				RowLabel:  label,
				Number:    n,
				SeatType:  r.SeatType,
				Available: true,
			})
		}
	}

	return seats, nil
}
