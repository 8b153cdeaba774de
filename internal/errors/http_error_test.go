package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"http error", ErrUnauthorizedHTTP("missing token"), http.StatusUnauthorized},
		{"invalid interval", ErrInvalidInterval, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: bad", ErrValidation), http.StatusBadRequest},
		{"insufficient points", ErrInsufficientPoints, http.StatusBadRequest},
		{"not cancellable", ErrBookingNotCancellable, http.StatusBadRequest},
		{"slot conflict", fmt.Errorf("confirm: %w", ErrSlotConflict), http.StatusConflict},
		{"concurrent", ErrConcurrentModification, http.StatusConflict},
		{"username taken", ErrUsernameTaken, http.StatusConflict},
		{"not found", fmt.Errorf("car: %w", ErrNotFound), http.StatusNotFound},
		{"account not found", ErrAccountNotFound, http.StatusNotFound},
		{"payment", ErrPaymentFailed, http.StatusPaymentRequired},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromError(t *testing.T) {
	t.Run("keeps http errors", func(t *testing.T) {
		src := ErrBadRequestHTTP("invalid body")
		assert.Same(t, src, FromError(fmt.Errorf("decode: %w", src)))
	})

	t.Run("domain errors keep their message", func(t *testing.T) {
		err := FromError(fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation))
		assert.Equal(t, http.StatusBadRequest, err.Code)
		assert.Equal(t, "validation failed: rating must be between 1 and 5", err.Message)
	})

	t.Run("internal errors are masked", func(t *testing.T) {
		err := FromError(errors.New("pq: password authentication failed"))
		assert.Equal(t, http.StatusInternalServerError, err.Code)
		assert.Equal(t, "internal server error", err.Message)
	})
}
