package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
)

type TripService interface {
	Create(ctx context.Context, userID string, req entities.TripPlanRequest) (*db.TripPlan, error)
	Get(ctx context.Context, id, userID string, isAdmin bool) (*db.TripPlan, error)
	List(ctx context.Context, f entities.TripFilter, userID string, isAdmin bool) (*entities.TripPlansList, error)
	Update(ctx context.Context, id, userID string, req entities.TripPlanUpdate) (*db.TripPlan, error)
	AddWaypoint(ctx context.Context, id, userID string, req entities.WaypointRequest) (*db.TripPlan, error)
	Share(ctx context.Context, id, userID string, req entities.ShareTripRequest) (*db.TripPlan, error)
}

type TripHandler struct {
	Service TripService
	logger  *zerolog.Logger
}

func NewTripHandler(svc TripService, logger *zerolog.Logger) *TripHandler {
	return &TripHandler{Service: svc, logger: logger}
}

func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req entities.TripPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	p, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entities.TripFilter{UserID: q.Get("user_id"), Status: q.Get("status")}
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

func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := caller(r)
	p, err := h.Service.Get(r.Context(), mux.Vars(r)["id"], userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req entities.TripPlanUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	p, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TripHandler) AddWaypoint(w http.ResponseWriter, r *http.Request) {
	var req entities.WaypointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	p, err := h.Service.AddWaypoint(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TripHandler) ShareTrip(w http.ResponseWriter, r *http.Request) {
	var req entities.ShareTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	p, err := h.Service.Share(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
