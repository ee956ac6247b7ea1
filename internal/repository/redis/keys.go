package redis

import (
	"fmt"

	"github.com/kirinyoku/revuetix/internal/domain"
)

const ns = "revuetix:v1"

// KeySeatLock is hash-tagged on the date so one script can touch every seat
// of a performance.
func KeySeatLock(date string, seat domain.SeatRef) string {
	return fmt.Sprintf("%s:seatlock:{%s}:%s-%d", ns, date, seat.RowLabel, seat.Number)
}

func KeySeatMap(date string) string {
	return fmt.Sprintf("%s:seats:%s", ns, date)
}

func KeyPerformances() string {
	return ns + ":performances"
}

func KeyEmailSent(orderID string) string {
	return fmt.Sprintf("%s:email_sent:%s", ns, orderID)
}

func KeyIdemOrder(idemKey string) string {
	return fmt.Sprintf("%s:idem:orders:%s", ns, idemKey)
}

func KeyPaymentQueue() string {
	return ns + ":payments:pending"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelSeatsChanged() string {
	return ns + ":seats:changed"
}
