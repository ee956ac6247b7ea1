package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Mail     MailConfig
	Admin    AdminConfig
	Show     ShowConfig
	Booking  BookingConfig

	QRCodeSecret string `env:"QRCODE_SECRET"`
	FrontendURL  string `env:"FRONTEND_URL" envDefault:"https://www.medrevue.co.nz"`
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6380"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE"`
}

type PostgresConfig struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB"`
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`

	// ConnectAttempts covers a database that starts after the service.
	ConnectAttempts int `env:"POSTGRES_CONNECT_ATTEMPTS" envDefault:"5"`
}

// DSN builds the pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSLMode,
	)
}

type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY"`
	Currency  string `env:"STRIPE_CURRENCY" envDefault:"nzd"`
}

type MailConfig struct {
	BrevoAPIKey string `env:"BREVO_API_KEY"`
	BrevoURL    string `env:"BREVO_URL" envDefault:"https://api.brevo.com/v3/smtp/email"`
	SenderName  string `env:"MAIL_SENDER_NAME" envDefault:"Auckland Medical Revue"`
	SenderEmail string `env:"MAIL_SENDER_EMAIL" envDefault:"aucklandmedicalrevue@gmail.com"`
}

type AdminConfig struct {
	Email         string        `env:"ADMIN_EMAIL"`
	PasswordHash  string        `env:"ADMIN_PASSWORD_HASH"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	InternalToken string        `env:"INTERNAL_API_TOKEN"`
}

type ShowConfig struct {
	Title     string `env:"SHOW_TITLE" envDefault:"Auckland Medical Revue 2025"`
	Subtitle  string `env:"SHOW_SUBTITLE" envDefault:"Back to the Suture"`
	Location  string `env:"SHOW_LOCATION" envDefault:"SkyCity Theatre"`
	ShowTime  string `env:"SHOW_TIME" envDefault:"7:30 PM - 10:00 PM"`
	DoorsOpen string `env:"SHOW_DOORS_OPEN" envDefault:"6:45 PM"`
}

type BookingConfig struct {
	SeatLockTTL      time.Duration `env:"SEAT_LOCK_TTL" envDefault:"10m"`
	CheckoutTTL      time.Duration `env:"CHECKOUT_TTL" envDefault:"30m"`
	EmailDedupeTTL   time.Duration `env:"EMAIL_DEDUPE_TTL" envDefault:"10m"`
	PollInterval     time.Duration `env:"PAYMENT_POLL_INTERVAL" envDefault:"15s"`
	CheckInterval    time.Duration `env:"PAYMENT_CHECK_INTERVAL" envDefault:"1m"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"2h"`
	RateLimit        int           `env:"RATE_LIMIT" envDefault:"20"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	SeatCacheTTL     time.Duration `env:"SEAT_CACHE_TTL" envDefault:"30s"`
	MaxSeatsPerOrder int           `env:"MAX_SEATS_PER_ORDER" envDefault:"20"`
}

var (
	errMissingPostgresUser     = errors.New("missing POSTGRES_USER")
	errMissingPostgresPassword = errors.New("missing POSTGRES_PASSWORD")
	errMissingPostgresDB       = errors.New("missing POSTGRES_DB")
	errMissingQRCodeSecret     = errors.New("missing QRCODE_SECRET")
	errMissingJWTSecret        = errors.New("missing JWT_SECRET")
)

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Postgres.User == "":
		return errMissingPostgresUser
	case c.Postgres.Password == "":
		return errMissingPostgresPassword
	case c.Postgres.Name == "":
		return errMissingPostgresDB
	case c.QRCodeSecret == "":
		return errMissingQRCodeSecret
	case c.Admin.JWTSecret == "":
		return errMissingJWTSecret
	}

	if c.Booking.CheckoutTTL < c.Booking.SeatLockTTL {
		c.Booking.CheckoutTTL = c.Booking.SeatLockTTL
	}

	return nil
}
