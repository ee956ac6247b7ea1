package admin

import (
	"testing"
	"time"

	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	tokens := auth.NewManager("jwt-secret", time.Hour)
	svc := New(nil, nil, nil, tokens, Credentials{Email: "admin@example.com", PasswordHash: hash}, nil)

	tok, err := svc.Login(" Admin@Example.com ", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	claims, err := tokens.Parse(tok.Token)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", claims.Subject)

	_, err = svc.Login("admin@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("someone@example.com", "hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpandLayout(t *testing.T) {
	seats, err := ExpandLayout("2025-08-07", []domain.RowLayout{
		{Label: "A", StartSeat: 1, EndSeat: 3, SeatType: domain.SeatVIP},
		{Label: "B", StartSeat: 5, EndSeat: 6, SeatType: domain.SeatStandard},
	})
	require.NoError(t, err)
	require.Len(t, seats, 5)
	require.Equal(t, domain.Seat{
		ShowDate:  "2025-08-07",
		RowLabel:  "B",
		Number:    6,
		SeatType:  domain.SeatStandard,
		Available: true,
	}, seats[4])
}

func TestExpandLayoutRejects(t *testing.T) {
	tests := []struct {
		name string
		rows []domain.RowLayout
	}{
		{"empty", nil},
		{"bad label", []domain.RowLayout{{Label: "A1", StartSeat: 1, EndSeat: 2, SeatType: domain.SeatVIP}}},
		{"bad type", []domain.RowLayout{{Label: "A", StartSeat: 1, EndSeat: 2, SeatType: "Box"}}},
		{"reversed", []domain.RowLayout{{Label: "A", StartSeat: 5, EndSeat: 2, SeatType: domain.SeatVIP}}},
		{"zero start", []domain.RowLayout{{Label: "A", StartSeat: 0, EndSeat: 2, SeatType: domain.SeatVIP}}},
		{"overlap", []domain.RowLayout{
			{Label: "A", StartSeat: 1, EndSeat: 4, SeatType: domain.SeatVIP},
			{Label: "A", StartSeat: 4, EndSeat: 8, SeatType: domain.SeatStandard},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandLayout("2025-08-07", tt.rows)
			require.ErrorIs(t, err, ErrInvalidPerformance)
		})
	}
}
