// Package worker runs the background payment status poller.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/metrics"
	"github.com/kirinyoku/revuetix/internal/payment"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service/orders"
)

type Config struct {
	// Tick is how often due orders are claimed.
	Tick time.Duration
	// Retry is the delay before an order is checked again.
	Retry       time.Duration
	Lease       time.Duration
	Batch       int
	CheckoutTTL time.Duration
	// Grace is added to CheckoutTTL before an unpaid order is given up on.
	Grace time.Duration
}

type PaymentChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	CheckPaymentStatus(ctx context.Context, id uuid.UUID) (*orders.PaymentResult, error)
	ExpireUnpaid(ctx context.Context, id uuid.UUID) error
}

type Backlog interface {
	ListUnpaidSince(ctx context.Context, since time.Time) ([]domain.Order, error)
}

// PaymentPoller settles orders whose customers never returned from
// checkout. Orders are claimed from the payment queue, checked against the
// payment provider and rescheduled until they are paid or given up on.
type PaymentPoller struct {
	orders  PaymentChecker
	backlog Backlog
	queue   *redisrepo.PaymentQueue
	log     *slog.Logger
	cfg     Config
	now     func() time.Time
}

func NewPaymentPoller(
	checker PaymentChecker,
	backlog Backlog,
	queue *redisrepo.PaymentQueue,
	log *slog.Logger,
	cfg Config,
) *PaymentPoller {
	if cfg.Tick <= 0 {
		cfg.Tick = 15 * time.Second
	}

	if cfg.Retry <= 0 {
		cfg.Retry = time.Minute
	}

	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}

	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}

	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = 30 * time.Minute
	}

	if cfg.Grace <= 0 {
		cfg.Grace = 5 * time.Minute
	}

	return &PaymentPoller{
		orders:  checker,
		backlog: backlog,
		queue:   queue,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run polls until ctx is cancelled.
func (p *PaymentPoller) Run(ctx context.Context) error {
	if err := p.Recover(ctx); err != nil {
		p.log.Warn("recover payment queue", slog.Any("err", err))
	}

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("payment poll", slog.Any("err", err))
			}
		}
	}
}

// Recover re-queues unpaid orders still inside their checkout window, so a
// flushed or replaced Redis does not strand them.
func (p *PaymentPoller) Recover(ctx context.Context) error {
	if p.backlog == nil {
		return nil
	}

	now := p.now()

	pending, err := p.backlog.ListUnpaidSince(ctx, now.Add(-p.cfg.CheckoutTTL-p.cfg.Grace))
	if err != nil {
		return err
	}

	for _, o := range pending {
		if err := p.queue.Schedule(ctx, o.ID.String(), now); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		p.log.Info("payment checks recovered", slog.Int("orders", len(pending)))
	}

	return nil
}

// Tick processes the orders that are due and returns how many it claimed.
func (p *PaymentPoller) Tick(ctx context.Context) (int, error) {
	ids, err := p.queue.Claim(ctx, p.now(), p.cfg.Lease, p.cfg.Batch)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		p.process(ctx, id)
	}

	if n, err := p.queue.Len(ctx); err == nil {
		metrics.PaymentQueueDepth.Set(float64(n))
	}

	return len(ids), nil
}

func (p *PaymentPoller) process(ctx context.Context, raw string) {
	log := p.log.With(slog.String("order_id", raw))

	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("dropping malformed payment check")
		p.done(ctx, raw)
		return
	}

	res, err := p.orders.CheckPaymentStatus(ctx, id)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrNoCheckoutSession):
		p.done(ctx, raw)
		return
	case err == nil && res.Paid:
		p.done(ctx, raw)
		return
	case res != nil && (res.PaymentStatus == payment.StatusCanceled || res.SessionStatus == payment.StatusSessionExpired):
		p.expire(ctx, log, id, raw)
		return
	case err != nil && !errors.Is(err, orders.ErrNoPaymentIntent):
		log.Warn("payment check failed", slog.Any("err", err))
	}

	o, err := p.orders.Get(ctx, id)
	if err != nil {
		log.Warn("load order for payment check", slog.Any("err", err))
		p.retry(ctx, log, raw)
		return
	}

	if p.now().After(o.CreatedAt.Add(p.cfg.CheckoutTTL + p.cfg.Grace)) {
		p.expire(ctx, log, id, raw)
		return
	}

	p.retry(ctx, log, raw)
}

func (p *PaymentPoller) expire(ctx context.Context, log *slog.Logger, id uuid.UUID, raw string) {
	if err := p.orders.ExpireUnpaid(ctx, id); err != nil {
		log.Error("expire unpaid order", slog.Any("err", err))
		p.retry(ctx, log, raw)
		return
	}
	p.done(ctx, raw)
}

func (p *PaymentPoller) retry(ctx context.Context, log *slog.Logger, raw string) {
	if err := p.queue.Schedule(ctx, raw, p.now().Add(p.cfg.Retry)); err != nil {
		log.Error("reschedule payment check", slog.Any("err", err))
	}
}

func (p *PaymentPoller) done(ctx context.Context, raw string) {
	if err := p.queue.Remove(ctx, raw); err != nil {
		p.log.Warn("remove payment check", slog.String("order_id", raw), slog.Any("err", err))
	}
}
