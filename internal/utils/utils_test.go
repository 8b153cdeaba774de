package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentalHours(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, RentalHours(from, from.Add(2*time.Hour)))
	assert.Equal(t, 3, RentalHours(from, from.Add(2*time.Hour+time.Minute)))
	assert.Equal(t, 0, RentalHours(from, from))
	assert.Equal(t, 0, RentalHours(from, from.Add(-time.Hour)))
}

func TestRentalAmount(t *testing.T) {
	assert.Equal(t, 100.0, RentalAmount(2, 50, false))
	assert.Equal(t, 160.0, RentalAmount(2, 50, true))
	assert.Equal(t, 37.5, RentalAmount(3, 12.5, false))
	assert.True(t, SameAmount(0.1+0.2, 0.3))
	assert.Equal(t, int64(1999), ToCents(19.99))
}

func TestCodes(t *testing.T) {
	code, err := RandomCode("REF", 9)
	require.NoError(t, err)
	assert.Regexp(t, `^REF[A-Z0-9]{9}$`, code)

	now := time.UnixMilli(1700000000123)
	ticket, err := TicketNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^TICKET-1700000000123-[A-Z0-9]{5}$`, ticket)

	assert.Regexp(t, `^BOOK-[0-9A-F]{8}$`, OfflineTransactionID())
}
