package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"carrental/internal/auth"
	"carrental/internal/availability"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
	"carrental/internal/loyalty"
	"carrental/internal/ratelimit"
)

type mockBookings struct{ mock.Mock }

func (m *mockBookings) Book(ctx context.Context, req entities.BookingRequest) (*entities.BookingResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*entities.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookings) Cancel(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error) {
	args := m.Called(ctx, bookingID, userID, isAdmin)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) CancelRefunded(ctx context.Context, transactionID string) (*db.Booking, error) {
	args := m.Called(ctx, transactionID)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error) {
	args := m.Called(ctx, bookingID, userID, isAdmin)
	b, _ := args.Get(0).(*db.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) List(ctx context.Context, f entities.BookingFilter, userID string, isAdmin bool) (*entities.BookingsList, error) {
	args := m.Called(ctx, f, userID, isAdmin)
	l, _ := args.Get(0).(*entities.BookingsList)
	return l, args.Error(1)
}

type mockCarService struct {
	mock.Mock
	CarService
}

func (m *mockCarService) Availability(ctx context.Context, carID string, iv availability.Interval, driverRequired bool) (*entities.AvailabilityResponse, error) {
	args := m.Called(ctx, carID, iv, driverRequired)
	resp, _ := args.Get(0).(*entities.AvailabilityResponse)
	return resp, args.Error(1)
}

type stubLoyalty struct{ LoyaltyService }

func (stubLoyalty) Rewards() []loyalty.Reward { return loyalty.Rewards() }

type stubUsers struct{ UserService }

type stubSupport struct{ SupportService }

type stubTrips struct{ TripService }

func (stubTrips) Create(_ context.Context, userID string, req entities.TripPlanRequest) (*db.TripPlan, error) {
	if req.TripName == "" {
		return nil, fmt.Errorf("%w: trip_name is required", apperrors.ErrValidation)
	}
	return &db.TripPlan{ID: "trip-1", UserID: userID, TripName: req.TripName}, nil
}

func (stubTrips) Share(_ context.Context, id, userID string, _ entities.ShareTripRequest) (*db.TripPlan, error) {
	if userID != "user-1" {
		return nil, fmt.Errorf("trip plan %s: %w", id, apperrors.ErrNotFound)
	}
	return &db.TripPlan{ID: id, UserID: userID}, nil
}

type testServer struct {
	router   *mux.Router
	tokens   *auth.TokenManager
	bookings *mockBookings
	cars     *mockCarService
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	ts := &testServer{
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		bookings: &mockBookings{},
		cars:     &mockCarService{},
	}
	ts.router = NewRouter(RouterConfig{
		Tokens:   ts.tokens,
		Limiter:  limiter,
		Logger:   &logger,
		Health:   map[string]HealthCheck{"postgres": func(context.Context) error { return nil }},
		Cars:     NewCarHandler(ts.cars, &logger),
		Bookings: NewBookingHandler(ts.bookings, &logger),
		Loyalty:  NewLoyaltyHandler(stubLoyalty{}, &logger),
		Users:    NewUserHandler(stubUsers{}, &logger),
		Support:  NewSupportHandler(stubSupport{}, &logger),
		Trips:    NewTripHandler(stubTrips{}, &logger),
		Webhook:  NewStripeWebhookHandler("whsec_test", ts.bookings, &logger),
	})
	return ts
}

func (ts *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, _, err := ts.tokens.Issue(userID, userID, role)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateBooking_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"slot conflict", apperrors.ErrSlotConflict, http.StatusConflict, apperrors.ErrSlotConflict.Error()},
		{"invalid interval", apperrors.ErrInvalidInterval, http.StatusBadRequest, apperrors.ErrInvalidInterval.Error()},
		{"payment failed", apperrors.ErrPaymentFailed, http.StatusPaymentRequired, apperrors.ErrPaymentFailed.Error()},
		{"concurrent modification", apperrors.ErrConcurrentModification, http.StatusConflict, apperrors.ErrConcurrentModification.Error()},
		{"car not found", apperrors.ErrNotFound, http.StatusNotFound, apperrors.ErrNotFound.Error()},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.bookings.On("Book", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := ts.do("POST", "/api/bookings", ts.token(t, "user-1", db.RoleUser), map[string]string{"car_id": "car-1"})
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, errorBody(t, rec))
		})
	}
}

func TestCreateBooking_Created(t *testing.T) {
	ts := newTestServer(t, nil)
	from := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ts.bookings.On("Book", mock.Anything, mock.MatchedBy(func(r entities.BookingRequest) bool {
		return r.UserID == "user-1" && r.CarID == "car-1" && r.TimeFrom.Equal(from)
	})).Return(&entities.BookingResponse{
		Booking: db.Booking{ID: "b-1", CarID: "car-1", UserID: "user-1", Amount: 150},
		Loyalty: &entities.BookingLoyaltySummary{PointsEarned: 150, TotalPoints: 150, Tier: loyalty.TierBronze},
		Message: "Your booking is successful",
	}, nil)

	rec := ts.do("POST", "/api/bookings", ts.token(t, "user-1", db.RoleUser), map[string]interface{}{
		"car_id":    "car-1",
		"time_from": from,
		"time_to":   from.Add(3 * time.Hour),
		"user_id":   "someone-else",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp entities.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b-1", resp.Booking.ID)
	assert.Equal(t, int64(150), resp.Loyalty.PointsEarned)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	ts.bookings.AssertExpectations(t)
}

func TestCreateBooking_BadBody(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("POST", "/api/bookings", ts.token(t, "user-1", db.RoleUser), "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.bookings.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("POST", "/api/bookings", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do("GET", "/api/loyalty/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("POST", "/api/cars", ts.token(t, "user-1", db.RoleUser), map[string]string{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do("GET", "/api/admin/support/tickets", ts.token(t, "user-1", db.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelBooking_PassesCaller(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.bookings.On("Cancel", mock.Anything, "b-1", "admin-1", true).
		Return(&db.Booking{ID: "b-1", Status: db.BookingStatusCancelled}, nil)
	ts.bookings.On("Cancel", mock.Anything, "b-2", "user-1", false).
		Return(nil, apperrors.ErrBookingNotCancellable)

	rec := ts.do("PUT", "/api/bookings/b-1/cancel", ts.token(t, "admin-1", db.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("PUT", "/api/bookings/b-2/cancel", ts.token(t, "user-1", db.RoleUser), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAvailability(t *testing.T) {
	ts := newTestServer(t, nil)
	from := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)
	ts.cars.On("Availability", mock.Anything, "car-1", availability.Interval{From: from, To: to}, true).
		Return(&entities.AvailabilityResponse{CarID: "car-1", IsAvailable: true, TotalHours: 2, EstimatedAmount: 160}, nil)

	rec := ts.do("GET", "/api/cars/car-1/availability?from=2026-08-01T10:00:00Z&to=2026-08-01T12:00:00Z&driver_required=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp entities.AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsAvailable)
	assert.Equal(t, 160.0, resp.EstimatedAmount)

	rec = ts.do("GET", "/api/cars/car-1/availability?from=yesterday&to=2026-08-01T12:00:00Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRewardsArePublic(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/loyalty/rewards", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rewards []loyalty.Reward
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rewards))
	assert.Len(t, rewards, 8)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, ratelimit.NewLocalLimiter(2, time.Minute))

	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/health", "", nil).Code)
	rec := ts.do("GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTripRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("POST", "/api/trips", "", map[string]string{"trip_name": "Coast"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do("POST", "/api/trips", ts.token(t, "user-1", db.RoleUser), map[string]string{"trip_name": "Coast"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var got db.TripPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "Coast", got.TripName)

	rec = ts.do("POST", "/api/trips", ts.token(t, "user-1", db.RoleUser), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("POST", "/api/trips/trip-1/share", ts.token(t, "user-2", db.RoleUser), map[string][]string{"user_ids": {"x"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?page=3", 20, 40},
		{"?limit=10&page=2", 10, 10},
		{"?limit=1000&page=2", 100, 100},
		{"?limit=0&page=2", 20, 20},
		{"?limit=-5&page=0", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			limit, offset, err := pageParams(httptest.NewRequest("GET", "/api/cars"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}

	_, _, err := pageParams(httptest.NewRequest("GET", "/api/cars?limit=abc", nil))
	assert.Error(t, err)
}

func TestRateLimit_SpoofedForwardedFor(t *testing.T) {
	ts := newTestServer(t, ratelimit.NewLocalLimiter(2, time.Minute))

	codes := make([]int, 0, 4)
	for _, fwd := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3", "198.51.100.4"} {
		req := httptest.NewRequest("GET", "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.bookings.AssertNotCalled(t, "CancelRefunded", mock.Anything, mock.Anything)
}

func TestWebhook_ChargeRefundedCancelsBooking(t *testing.T) {
	logger := zerolog.Nop()
	bookings := &mockBookings{}
	h := NewStripeWebhookHandler("whsec_test", bookings, &logger)
	bookings.On("CancelRefunded", mock.Anything, "pi_123").
		Return(&db.Booking{ID: "b-1", Status: db.BookingStatusCancelled}, nil).Once()

	event := stripe.Event{
		ID:   "evt_1",
		Type: "charge.refunded",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"ch_1","object":"charge","payment_intent":"pi_123"}`)},
	}
	require.NoError(t, h.handleEvent(context.Background(), event))
	bookings.AssertExpectations(t)

	other := stripe.Event{ID: "evt_2", Type: "payment_intent.created", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}
	require.NoError(t, h.handleEvent(context.Background(), other))
	bookings.AssertNumberOfCalls(t, "CancelRefunded", 1)
}
