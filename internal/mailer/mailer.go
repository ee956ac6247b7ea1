// Package mailer sends booking confirmation emails through the Brevo
// transactional email API.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/metrics"
	"github.com/kirinyoku/revuetix/internal/pricing"
	"github.com/kirinyoku/revuetix/internal/ticket"
	gobreaker "github.com/sony/gobreaker/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrSendFailed = errors.New("email delivery failed")

type Config struct {
	APIKey      string
	URL         string
	SenderName  string
	SenderEmail string
	FrontendURL string
}

// Show holds the event details printed on the ticket.
type Show struct {
	Title     string
	Subtitle  string
	Location  string
	ShowTime  string
	DoorsOpen string
}

type Mailer struct {
	cfg    Config
	show   Show
	signer *ticket.Signer
	client *http.Client
	tmpl   *template.Template
	cb     *gobreaker.CircuitBreaker[struct{}]
	log    *slog.Logger
}

func New(cfg Config, show Show, signer *ticket.Signer, log *slog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/confirmation.html")
	if err != nil {
		return nil, fmt.Errorf("mailer.New: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "brevo",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Mailer{
		cfg:    cfg,
		show:   show,
		signer: signer,
		client: &http.Client{Timeout: 15 * time.Second},
		tmpl:   tmpl,
		cb:     cb,
		log:    log,
	}, nil
}

type confirmationData struct {
	OrderID       string
	CustomerName  string
	ShowTitle     string
	ShowSubtitle  string
	ShowDate      string
	ShowTime      string
	DoorsOpen     string
	Location      string
	Seats         string
	IsStudent     bool
	StudentCount  int
	TotalPrice    string
	QRCodeDataURL template.URL
	BackupURL     string
}

type contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type sendRequest struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

// BackupURL is the web fallback for the emailed QR code.
func (m *Mailer) BackupURL(orderID, signature string) string {
	return strings.TrimRight(m.cfg.FrontendURL, "/") + "/qrcode/" + orderID + "/" + signature
}

func (m *Mailer) render(o *domain.Order) (string, error) {
	id := o.ID.String()
	sig := m.signer.Sign(id)

	qr, err := ticket.DataURL(id+"."+sig, ticket.DefaultSize)
	if err != nil {
		return "", err
	}

	data := confirmationData{
		OrderID:       id,
		CustomerName:  o.CustomerName(),
		ShowTitle:     m.show.Title,
		ShowSubtitle:  m.show.Subtitle,
		ShowDate:      o.SelectedDate,
		ShowTime:      m.show.ShowTime,
		DoorsOpen:     m.show.DoorsOpen,
		Location:      m.show.Location,
		Seats:         o.SeatList(),
		IsStudent:     o.IsStudent,
		StudentCount:  o.StudentCount,
		TotalPrice:    pricing.Format(o.TotalCents),
		QRCodeDataURL: template.URL(qr),
		BackupURL:     m.BackupURL(id, sig),
	}

	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// SendConfirmation emails the ticket for a paid order. Without an API key
// the email is skipped.
func (m *Mailer) SendConfirmation(ctx context.Context, o *domain.Order) error {
	const op = "mailer.Mailer.SendConfirmation"

	if m.cfg.APIKey == "" {
		m.log.Warn("BREVO_API_KEY not set, skipping email", slog.String("order_id", o.ID.String()))
		metrics.EmailsSent.WithLabelValues("skipped").Inc()
		return nil
	}

	html, err := m.render(o)
	if err != nil {
		return fmt.Errorf("%s: render: %w", op, err)
	}

	body, err := json.Marshal(sendRequest{
		Sender:      contact{Name: m.cfg.SenderName, Email: m.cfg.SenderEmail},
		To:          []contact{{Name: o.CustomerName(), Email: o.Email}},
		Subject:     fmt.Sprintf("%s Ticket Confirmation - Order #%s", m.show.Title, o.ID),
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.post(ctx, body)
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	m.log.Info("confirmation email sent", slog.String("order_id", o.ID.String()))

	return nil
}

func (m *Mailer) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}
