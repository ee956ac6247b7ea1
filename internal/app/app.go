package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/config"
	"github.com/kirinyoku/revuetix/internal/mailer"
	"github.com/kirinyoku/revuetix/internal/payment"
	"github.com/kirinyoku/revuetix/internal/postgres"
	"github.com/kirinyoku/revuetix/internal/redis"
	postgresrepo "github.com/kirinyoku/revuetix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service"
	"github.com/kirinyoku/revuetix/internal/service/admin"
	"github.com/kirinyoku/revuetix/internal/service/orders"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/kirinyoku/revuetix/internal/service/tickets"
	"github.com/kirinyoku/revuetix/internal/ticket"
	httpgin "github.com/kirinyoku/revuetix/internal/transport/http/gin"
	"github.com/kirinyoku/revuetix/internal/worker"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisrepo.SeatsPubSub
	poller     *worker.PaymentPoller
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxConns:        cfg.Postgres.MaxConns,
		ConnectAttempts: cfg.Postgres.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	frontend := strings.TrimRight(cfg.FrontendURL, "/")
	signer := ticket.NewSigner(cfg.QRCodeSecret)

	gateway := payment.NewGateway(payment.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		Currency:   cfg.Stripe.Currency,
		SuccessURL: frontend + "/success",
		CancelURL:  frontend + "/cancel",
	})

	show := mailer.Show{
		Title:     cfg.Show.Title,
		Subtitle:  cfg.Show.Subtitle,
		Location:  cfg.Show.Location,
		ShowTime:  cfg.Show.ShowTime,
		DoorsOpen: cfg.Show.DoorsOpen,
	}

	mail, err := mailer.New(mailer.Config{
		APIKey:      cfg.Mail.BrevoAPIKey,
		URL:         cfg.Mail.BrevoURL,
		SenderName:  cfg.Mail.SenderName,
		SenderEmail: cfg.Mail.SenderEmail,
		FrontendURL: frontend,
	}, show, signer, logger.With(slog.String("component", "mailer")))
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b := cfg.Booking
	store := postgresrepo.NewStore(pool)
	pubsub := redisrepo.NewSeatsPubSub(rdb)
	queue := redisrepo.NewPaymentQueue(rdb)
	tokens := auth.NewManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)

	services := service.NewServices(service.Infra{
		Store:       store,
		Cache:       redisrepo.New(rdb),
		Locker:      redisrepo.NewSeatLocker(rdb),
		PubSub:      pubsub,
		Limiter:     redisrepo.NewSlidingWindowLimiter(rdb, "locks", b.RateLimit, b.RateLimitWindow),
		Idempotency: redisrepo.NewIdempotencyStore(rdb, b.IdempotencyTTL),
		Queue:       queue,
		Gateway:     gateway,
		Mailer:      mail,
		Signer:      signer,
		Tokens:      tokens,
	}, logger, service.Config{
		Seats: seats.Config{
			LockTTL:    b.SeatLockTTL,
			CacheTTL:   b.SeatCacheTTL,
			MaxPerHold: b.MaxSeatsPerOrder,
		},
		Orders: orders.Config{
			CheckoutTTL:    b.CheckoutTTL,
			EmailDedupeTTL: b.EmailDedupeTTL,
			PollInterval:   b.PollInterval,
		},
		Show: tickets.Show{
			ShowTime:  cfg.Show.ShowTime,
			DoorsOpen: cfg.Show.DoorsOpen,
			Location:  cfg.Show.Location,
		},
		Account: admin.Credentials{
			Email:        cfg.Admin.Email,
			PasswordHash: cfg.Admin.PasswordHash,
		},
	})

	poller := worker.NewPaymentPoller(
		services.Orders,
		store.Orders(),
		queue,
		logger.With(slog.String("component", "payment-poller")),
		worker.Config{
			Tick:        b.PollInterval,
			Retry:       b.CheckInterval,
			CheckoutTTL: b.CheckoutTTL,
		},
	)

	var origins []string
	if frontend != "" {
		origins = []string{frontend}
	}

	router := httpgin.NewRouter(
		services,
		redisrepo.NewIdempotencyStore(rdb, b.IdempotencyTTL),
		httpgin.Options{
			Tokens:        tokens,
			InternalToken: cfg.Admin.InternalToken,
			AllowOrigins:  origins,
			SecureCookies: strings.HasPrefix(frontend, "https://"),
		},
		logger,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		rdb:      rdb,
		services: services,
		pubsub:   pubsub,
		poller:   poller,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves HTTP, polls pending payments and relays seat changes until ctx
// is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// open event streams end with the run context, not at the shutdown deadline.
	a.httpServer.BaseContext = func(net.Listener) context.Context { return gCtx }

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.poller.Run(gCtx)
	})

	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.services.Seats.HandleSeatsChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("seats pub/sub: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("close redis", slog.Any("err", err))
	}
	a.pool.Close()
}
