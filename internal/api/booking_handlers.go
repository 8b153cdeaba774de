package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
)

type BookingService interface {
	Book(ctx context.Context, req entities.BookingRequest) (*entities.BookingResponse, error)
	Cancel(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error)
	CancelRefunded(ctx context.Context, transactionID string) (*db.Booking, error)
	Get(ctx context.Context, bookingID, userID string, isAdmin bool) (*db.Booking, error)
	List(ctx context.Context, f entities.BookingFilter, userID string, isAdmin bool) (*entities.BookingsList, error)
}

type BookingHandler struct {
	Service BookingService
	logger  *zerolog.Logger
}

func NewBookingHandler(svc BookingService, logger *zerolog.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, logger: logger}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req entities.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.UserID, _ = caller(r)
	resp, err := h.Service.Book(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entities.BookingFilter{UserID: q.Get("user_id"), CarID: q.Get("car_id"), Status: q.Get("status")}
	var err error
	if f.Limit, f.Offset, err = pageParams(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, isAdmin := caller(r)
	list, err := h.Service.List(r.Context(), f, userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := caller(r)
	b, err := h.Service.Get(r.Context(), mux.Vars(r)["id"], userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := caller(r)
	b, err := h.Service.Cancel(r.Context(), mux.Vars(r)["id"], userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Booking cancelled",
		"booking": b,
	})
}
