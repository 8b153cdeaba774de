package errors

import (
	"errors"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Helper for common errors
var (
	ErrUnauthorizedHTTP = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
	ErrBadRequestHTTP   = func(msg string) *HTTPError { return NewHTTPError(http.StatusBadRequest, msg) }
)

// Domain error kinds. Callers wrap them with fmt.Errorf("...: %w", err) and
// match with errors.Is.
var (
	ErrInvalidInterval        = errors.New("invalid interval: from must be before to")
	ErrSlotConflict           = errors.New("car is not available for the selected time slot")
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrAccountNotFound        = errors.New("loyalty account not found")
	ErrConcurrentModification = errors.New("concurrent modification detected, please retry")

	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrPaymentFailed          = errors.New("payment processing failed")
	ErrInvalidReferral        = errors.New("invalid referral code")
	ErrReferralAlreadyApplied = errors.New("referral already applied for this user")
	ErrBookingNotCancellable  = errors.New("booking cannot be cancelled")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrUsernameTaken          = errors.New("username already taken")
)

// StatusFor maps an error to the HTTP status code the API answers with.
func StatusFor(err error) int {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrInvalidReferral),
		errors.Is(err, ErrReferralAlreadyApplied),
		errors.Is(err, ErrBookingNotCancellable):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts any error into an HTTPError. Internal failures are
// reported with a generic message so driver details never reach the client.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		return NewHTTPError(code, "internal server error")
	}
	return NewHTTPError(code, err.Error())
}
