package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/auth"
	"carrental/internal/db"
	"carrental/internal/metrics"
	"carrental/internal/ratelimit"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Tokens         *auth.TokenManager
	Limiter        ratelimit.Limiter
	TrustedProxies ratelimit.TrustedProxies
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         *zerolog.Logger
	Health         map[string]HealthCheck

	Cars     *CarHandler
	Bookings *BookingHandler
	Loyalty  *LoyaltyHandler
	Users    *UserHandler
	Support  *SupportHandler
	Trips    *TripHandler
	Webhook  *StripeWebhookHandler
}

func NewRouter(c RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(c.Logger, c.Metrics))

	if c.MetricsHandler != nil {
		r.Handle("/metrics", c.MetricsHandler).Methods("GET")
	}
	// Stripe retries deliveries and signs them, so the webhook sits outside
	// the client rate limit.
	if c.Webhook != nil {
		r.HandleFunc("/api/webhooks/stripe", c.Webhook.HandleWebhook).Methods("POST")
	}

	api := r.PathPrefix("/api").Subrouter()
	if c.Limiter != nil {
		api.Use(ratelimit.Middleware(c.Limiter, c.TrustedProxies, c.Logger))
	}

	authed := auth.Middleware(c.Tokens)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(auth.RequireRole(db.RoleAdmin)(h))
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	api.HandleFunc("/health", healthHandler(c.Health)).Methods("GET")

	// Public endpoints
	api.HandleFunc("/users/register", c.Users.Register).Methods("POST")
	api.HandleFunc("/users/login", c.Users.Login).Methods("POST")
	api.Handle("/users/me", user(c.Users.Me)).Methods("GET")

	api.HandleFunc("/cars", c.Cars.ListCars).Methods("GET")
	api.HandleFunc("/cars/featured", c.Cars.FeaturedCars).Methods("GET")
	api.HandleFunc("/cars/{id}", c.Cars.GetCar).Methods("GET")
	api.HandleFunc("/cars/{id}/availability", c.Cars.CheckAvailability).Methods("GET")
	api.HandleFunc("/cars/{id}/reviews", c.Cars.ListReviews).Methods("GET")
	api.Handle("/cars/{id}/reviews", user(c.Cars.AddReview)).Methods("POST")
	api.Handle("/cars", admin(c.Cars.CreateCar)).Methods("POST")
	api.Handle("/cars/{id}", admin(c.Cars.UpdateCar)).Methods("PUT")
	api.Handle("/cars/{id}", admin(c.Cars.DeleteCar)).Methods("DELETE")

	api.Handle("/bookings", user(c.Bookings.CreateBooking)).Methods("POST")
	api.Handle("/bookings", user(c.Bookings.ListBookings)).Methods("GET")
	api.Handle("/bookings/{id}", user(c.Bookings.GetBooking)).Methods("GET")
	api.Handle("/bookings/{id}/cancel", user(c.Bookings.CancelBooking)).Methods("PUT")

	api.HandleFunc("/loyalty/rewards", c.Loyalty.Rewards).Methods("GET")
	api.Handle("/loyalty/me", user(c.Loyalty.Dashboard)).Methods("GET")
	api.Handle("/loyalty/redeem", user(c.Loyalty.Redeem)).Methods("POST")
	api.Handle("/loyalty/referral", user(c.Loyalty.ApplyReferral)).Methods("POST")
	api.Handle("/loyalty/subscribe", user(c.Loyalty.Subscribe)).Methods("POST")

	api.Handle("/support/tickets", user(c.Support.CreateTicket)).Methods("POST")
	api.Handle("/support/tickets", user(c.Support.ListTickets)).Methods("GET")
	api.Handle("/support/tickets/number/{number}", user(c.Support.GetTicketByNumber)).Methods("GET")
	api.Handle("/support/tickets/{id}", user(c.Support.GetTicket)).Methods("GET")
	api.Handle("/support/tickets/{id}/messages", user(c.Support.AddMessage)).Methods("POST")
	api.Handle("/support/tickets/{id}/rating", user(c.Support.RateTicket)).Methods("POST")
	api.Handle("/support/tickets/{id}/status", admin(c.Support.UpdateStatus)).Methods("PUT")

	api.Handle("/trips", user(c.Trips.CreateTrip)).Methods("POST")
	api.Handle("/trips", user(c.Trips.ListTrips)).Methods("GET")
	api.Handle("/trips/{id}", user(c.Trips.GetTrip)).Methods("GET")
	api.Handle("/trips/{id}", user(c.Trips.UpdateTrip)).Methods("PUT")
	api.Handle("/trips/{id}/waypoints", user(c.Trips.AddWaypoint)).Methods("POST")
	api.Handle("/trips/{id}/share", user(c.Trips.ShareTrip)).Methods("POST")

	// Admin endpoints (protected)
	api.Handle("/admin/support/tickets", admin(c.Support.ListTickets)).Methods("GET")

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": http.StatusText(code),
			"checks": status,
			"time":   time.Now().UTC(),
		})
	}
}
