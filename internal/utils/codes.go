package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode returns prefix followed by n upper-case alphanumerics.
func RandomCode(prefix string, n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return prefix + string(buf), nil
}

// TicketNumber formats a support ticket number as TICKET-<unix ms>-<5 chars>.
func TicketNumber(now time.Time) (string, error) {
	suffix, err := RandomCode("", 5)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TICKET-%d-%s", now.UnixMilli(), suffix), nil
}

// OfflineTransactionID returns a BOOK-XXXXXXXX id for bookings settled
// without a card processor.
func OfflineTransactionID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BOOK-" + strings.ToUpper(id[:8])
}
