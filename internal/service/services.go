package service

import (
	"log/slog"

	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/mailer"
	"github.com/kirinyoku/revuetix/internal/payment"
	postgres "github.com/kirinyoku/revuetix/internal/repository/postgres"
	redis "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service/admin"
	"github.com/kirinyoku/revuetix/internal/service/orders"
	"github.com/kirinyoku/revuetix/internal/service/reports"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/kirinyoku/revuetix/internal/service/tickets"
	"github.com/kirinyoku/revuetix/internal/ticket"
)

type Services struct {
	Seats   *seats.Service
	Orders  *orders.Service
	Reports *reports.Service
	Tickets *tickets.Service
	Admin   *admin.Service
}

type Config struct {
	Seats   seats.Config
	Orders  orders.Config
	Show    tickets.Show
	Account admin.Credentials
}

// Infra groups the adapters the services are built on.
type Infra struct {
	Store       *postgres.Store
	Cache       *redis.Cache
	Locker      *redis.SeatLocker
	PubSub      *redis.SeatsPubSub
	Limiter     *redis.SlidingWindowLimiter
	Idempotency *redis.IdempotencyStore
	Queue       *redis.PaymentQueue
	Gateway     *payment.Gateway
	Mailer      *mailer.Mailer
	Signer      *ticket.Signer
	Tokens      *auth.Manager
}

func NewServices(in Infra, log *slog.Logger, cfg Config) *Services {
	seatSvc := seats.New(
		in.Store.Seats(),
		in.Store.Performances(),
		in.Cache,
		in.Locker,
		in.PubSub,
		in.Limiter,
		log.With(slog.String("service", "seats")),
		cfg.Seats,
	)

	return &Services{
		Seats: seatSvc,
		Orders: orders.New(
			in.Store.Orders(),
			seatSvc,
			in.Gateway,
			in.Mailer,
			in.Idempotency,
			in.Queue,
			log.With(slog.String("service", "orders")),
			cfg.Orders,
		),
		Reports: reports.New(in.Store.Reports(), in.Store.Orders()),
		Tickets: tickets.New(in.Store.Orders(), in.Signer, cfg.Show),
		Admin: admin.New(
			in.Store,
			in.Cache,
			in.PubSub,
			in.Tokens,
			cfg.Account,
			log.With(slog.String("service", "admin")),
		),
	}
}
