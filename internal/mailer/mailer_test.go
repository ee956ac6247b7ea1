package mailer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/ticket"
	"github.com/stretchr/testify/require"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           uuid.MustParse("5b1f0e4a-6f0e-4c52-a7a6-0d1f3c1c2b10"),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		SelectedDate: "2025-06-12",
		SelectedSeats: []domain.OrderSeat{
			{RowLabel: "A", Number: 1, SeatType: domain.SeatVIP},
			{RowLabel: "A", Number: 2, SeatType: domain.SeatVIP},
		},
		TotalCents: 9270,
		Paid:       true,
	}
}

func newTestMailer(t *testing.T, url, apiKey string) *Mailer {
	t.Helper()

	m, err := New(Config{
		APIKey:      apiKey,
		URL:         url,
		SenderName:  "Revue",
		SenderEmail: "tickets@example.com",
		FrontendURL: "https://tickets.example.com/",
	}, Show{
		Title:     "Revue 2025",
		Location:  "SkyCity Theatre",
		ShowTime:  "7:30 PM - 10:00 PM",
		DoorsOpen: "6:45 PM",
	}, ticket.NewSigner("secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return m
}

func TestSendConfirmation(t *testing.T) {
	var (
		gotKey string
		got    sendRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<1@smtp>"}`))
	}))
	defer srv.Close()

	m := newTestMailer(t, srv.URL, "brevo-key")
	o := testOrder()

	require.NoError(t, m.SendConfirmation(context.Background(), o))

	require.Equal(t, "brevo-key", gotKey)
	require.Equal(t, "tickets@example.com", got.Sender.Email)
	require.Equal(t, []contact{{Name: "Ada Lovelace", Email: "ada@example.com"}}, got.To)
	require.Contains(t, got.Subject, o.ID.String())

	sig := ticket.NewSigner("secret").Sign(o.ID.String())
	require.Contains(t, got.HTMLContent, "A1, A2")
	require.Contains(t, got.HTMLContent, "$92.70")
	require.Contains(t, got.HTMLContent, `src="data:image/png;base64,`)
	require.Contains(t, got.HTMLContent, "https://tickets.example.com/qrcode/"+o.ID.String()+"/"+sig)
}

func TestSendConfirmationErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := newTestMailer(t, srv.URL, "bad-key")

	err := m.SendConfirmation(context.Background(), testOrder())
	require.ErrorIs(t, err, ErrSendFailed)
	require.True(t, strings.Contains(err.Error(), "401"))
}

func TestSendConfirmationWithoutKeySkips(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	m := newTestMailer(t, srv.URL, "")

	require.NoError(t, m.SendConfirmation(context.Background(), testOrder()))
	require.False(t, called)
}
