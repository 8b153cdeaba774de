package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
)

type SupportService interface {
	Create(ctx context.Context, userID string, req entities.TicketRequest) (*db.SupportTicket, error)
	Get(ctx context.Context, id, userID string, isAdmin bool) (*db.SupportTicket, error)
	GetByNumber(ctx context.Context, number, userID string, isAdmin bool) (*db.SupportTicket, error)
	List(ctx context.Context, f entities.TicketFilter, userID string, isAdmin bool) ([]db.SupportTicket, int64, error)
	AddMessage(ctx context.Context, id, userID string, isAdmin bool, req entities.TicketMessageRequest) (*db.SupportTicket, error)
	UpdateStatus(ctx context.Context, id string, req entities.TicketStatusRequest) (*db.SupportTicket, error)
	Rate(ctx context.Context, id, userID string, req entities.TicketRatingRequest) (*db.SupportTicket, error)
}

type SupportHandler struct {
	Service SupportService
	logger  *zerolog.Logger
}

func NewSupportHandler(svc SupportService, logger *zerolog.Logger) *SupportHandler {
	return &SupportHandler{Service: svc, logger: logger}
}

func (h *SupportHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req entities.TicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	t, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTickets serves both the customer's own list and the admin view; the
// service scopes non-admin callers to their tickets.
func (h *SupportHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entities.TicketFilter{
		UserID:   q.Get("user_id"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Priority: q.Get("priority"),
	}
	var err error
	if f.Limit, f.Offset, err = pageParams(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, isAdmin := caller(r)
	tickets, total, err := h.Service.List(r.Context(), f, userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"total": total, "tickets": tickets})
}

func (h *SupportHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := caller(r)
	t, err := h.Service.Get(r.Context(), mux.Vars(r)["id"], userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *SupportHandler) GetTicketByNumber(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin := caller(r)
	t, err := h.Service.GetByNumber(r.Context(), mux.Vars(r)["number"], userID, isAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *SupportHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	var req entities.TicketMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, isAdmin := caller(r)
	t, err := h.Service.AddMessage(r.Context(), mux.Vars(r)["id"], userID, isAdmin, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *SupportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req entities.TicketStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	t, err := h.Service.UpdateStatus(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *SupportHandler) RateTicket(w http.ResponseWriter, r *http.Request) {
	var req entities.TicketRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	t, err := h.Service.Rate(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
