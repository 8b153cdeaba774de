package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"carrental/internal/entities"
	"carrental/internal/loyalty"
)

type LoyaltyService interface {
	Dashboard(ctx context.Context, userID string) (*entities.LoyaltyDashboard, error)
	Rewards() []loyalty.Reward
	Redeem(ctx context.Context, userID string, req entities.RedeemRequest) (*entities.RedeemResponse, error)
	ApplyReferral(ctx context.Context, userID string, req entities.ReferralRequest) (*entities.ReferralResponse, error)
	Subscribe(ctx context.Context, userID string, req entities.SubscribeRequest) (*loyalty.Subscription, error)
}

type LoyaltyHandler struct {
	Service LoyaltyService
	logger  *zerolog.Logger
}

func NewLoyaltyHandler(svc LoyaltyService, logger *zerolog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{Service: svc, logger: logger}
}

func (h *LoyaltyHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := caller(r)
	d, err := h.Service.Dashboard(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *LoyaltyHandler) Rewards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Rewards())
}

func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req entities.RedeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	resp, err := h.Service.Redeem(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LoyaltyHandler) ApplyReferral(w http.ResponseWriter, r *http.Request) {
	var req entities.ReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	resp, err := h.Service.ApplyReferral(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LoyaltyHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req entities.SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	sub, err := h.Service.Subscribe(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
