// Package ticket signs ticket payloads and renders them as QR codes.
package ticket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/revuetix/internal/domain"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of rendered QR codes.
const DefaultSize = 300

var (
	ErrMalformedPayload = errors.New("malformed qr payload")
	ErrBadSignature     = errors.New("invalid signature")
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 of msg.
func (s *Signer) Sign(msg string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(msg, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(msg))
	return hmac.Equal(mac.Sum(nil), want)
}

// Payload returns "msg.signature".
func (s *Signer) Payload(msg string) string {
	return msg + "." + s.Sign(msg)
}

// Open splits a payload produced by Payload and checks its signature.
func (s *Signer) Open(payload string) (string, error) {
	const op = "ticket.Signer.Open"

	msg, sig, ok := cutLast(strings.TrimSpace(payload), ".")
	if !ok || msg == "" || sig == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMalformedPayload)
	}

	if !s.Verify(msg, sig) {
		return "", fmt.Errorf("%s: %w", op, ErrBadSignature)
	}

	return msg, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// SeatMessage is the signed message of an admin-issued seat ticket.
func SeatMessage(date string, seat domain.SeatRef) string {
	return seat.String() + ":" + date
}

// ParseSeatMessage reverses SeatMessage.
func ParseSeatMessage(msg string) (string, domain.SeatRef, error) {
	ref, date, ok := strings.Cut(msg, ":")
	if !ok {
		return "", domain.SeatRef{}, ErrMalformedPayload
	}

	seat, err := domain.ParseSeatRef(ref)
	if err != nil {
		return "", domain.SeatRef{}, err
	}

	return date, seat, nil
}

// PNG encodes content as a QR code image.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("ticket.PNG: %w", err)
	}

	return png, nil
}

// DataURL renders content as a base64 PNG data URL.
func DataURL(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
