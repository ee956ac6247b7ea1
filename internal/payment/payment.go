// Package payment creates hosted checkout sessions and reads their payment
// status from Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/revuetix/internal/pricing"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v83"
)

// Payment intent statuses the booking flow cares about.
const (
	StatusSucceeded      = "succeeded"
	StatusCanceled       = "canceled"
	StatusProcessing     = "processing"
	StatusNoIntent       = "no_payment_intent"
	StatusSessionExpired = "expired"
)

// minCheckoutTTL is the shortest session lifetime Stripe accepts.
const minCheckoutTTL = 30 * time.Minute

var (
	ErrNoPaymentIntent = errors.New("checkout session has no payment intent")
	ErrUnavailable     = errors.New("payment provider unavailable")
)

type Config struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string

	// Breaker settings; zero values fall back to defaults.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type CheckoutRequest struct {
	OrderID string
	Email   string
	Quote   pricing.Quote
	TTL     time.Duration
}

// Status is the payment state of one checkout session.
type Status struct {
	SessionStatus   string
	PaymentIntentID string
	IntentStatus    string
}

func (s Status) Succeeded() bool {
	return s.IntentStatus == StatusSucceeded
}

// Terminal reports whether polling can stop.
func (s Status) Terminal() bool {
	return s.IntentStatus == StatusSucceeded ||
		s.IntentStatus == StatusCanceled ||
		s.SessionStatus == StatusSessionExpired
}

// stripeAPI is the subset of the Stripe client the gateway calls.
type stripeAPI interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type clientAPI struct {
	sc *stripe.Client
}

func (c clientAPI) CreateCheckoutSession(
	ctx context.Context,
	params *stripe.CheckoutSessionCreateParams,
) (*stripe.CheckoutSession, error) {
	return c.sc.V1CheckoutSessions.Create(ctx, params)
}

func (c clientAPI) RetrieveCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return c.sc.V1CheckoutSessions.Retrieve(ctx, id, nil)
}

func (c clientAPI) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return c.sc.V1PaymentIntents.Retrieve(ctx, id, nil)
}

type Gateway struct {
	api stripeAPI
	cb  *gobreaker.CircuitBreaker[any]
	cfg Config
	now func() time.Time
}

func NewGateway(cfg Config) *Gateway {
	return newGateway(clientAPI{sc: stripe.NewClient(cfg.SecretKey)}, cfg)
}

func newGateway(api stripeAPI, cfg Config) *Gateway {
	if cfg.Currency == "" {
		cfg.Currency = "nzd"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})

	return &Gateway{
		api: api,
		cb:  cb,
		cfg: cfg,
		now: time.Now,
	}
}

func (g *Gateway) BreakerState() string {
	return g.cb.State().String()
}

func (g *Gateway) execute(fn func() (any, error)) (any, error) {
	v, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, err
}

// CreateCheckoutSession opens a hosted card checkout with one line per seat
// plus the booking fee, and returns the session ID.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	const op = "payment.Gateway.CreateCheckoutSession"

	params := g.checkoutParams(req)

	v, err := g.execute(func() (any, error) {
		return g.api.CreateCheckoutSession(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v.(*stripe.CheckoutSession).ID, nil
}

func (g *Gateway) checkoutParams(req CheckoutRequest) *stripe.CheckoutSessionCreateParams {
	ttl := req.TTL
	if ttl < minCheckoutTTL {
		ttl = minCheckoutTTL
	}

	items := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(req.Quote.Items)+1)
	for _, it := range req.Quote.Items {
		items = append(items, g.lineItem(it.Name, pricing.Cents(it.UnitAmount)))
	}
	if fee := req.Quote.FeeCents(); fee > 0 {
		items = append(items, g.lineItem("Booking Fee", fee))
	}

	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(g.cfg.SuccessURL),
		CancelURL:          stripe.String(g.cfg.CancelURL),
		ExpiresAt:          stripe.Int64(g.now().Add(ttl).Unix()),
		ClientReferenceID:  stripe.String(req.OrderID),
		Metadata:           map[string]string{"orderId": req.OrderID},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	return params
}

func (g *Gateway) lineItem(name string, cents int64) *stripe.CheckoutSessionCreateLineItemParams {
	return &stripe.CheckoutSessionCreateLineItemParams{
		PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
			Currency: stripe.String(g.cfg.Currency),
			ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(cents),
		},
		Quantity: stripe.Int64(1),
	}
}

// PaymentStatus retrieves the session and its payment intent.
//
// Returns ErrNoPaymentIntent, together with the session status, when the
// customer has not reached the payment step yet.
func (g *Gateway) PaymentStatus(ctx context.Context, sessionID string) (Status, error) {
	const op = "payment.Gateway.PaymentStatus"

	v, err := g.execute(func() (any, error) {
		return g.api.RetrieveCheckoutSession(ctx, sessionID)
	})
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	sess := v.(*stripe.CheckoutSession)
	st := Status{SessionStatus: string(sess.Status)}

	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		st.IntentStatus = StatusNoIntent
		return st, fmt.Errorf("%s: %w", op, ErrNoPaymentIntent)
	}
	st.PaymentIntentID = sess.PaymentIntent.ID

	v, err = g.execute(func() (any, error) {
		return g.api.RetrievePaymentIntent(ctx, st.PaymentIntentID)
	})
	if err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}

	st.IntentStatus = string(v.(*stripe.PaymentIntent).Status)

	return st, nil
}
