package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"carrental/internal/db"
	"carrental/internal/entities"
)

type UserService interface {
	Register(ctx context.Context, req entities.RegisterRequest) (*db.User, error)
	Login(ctx context.Context, req entities.LoginRequest) (*entities.LoginResponse, error)
	Get(ctx context.Context, id string) (*db.User, error)
}

type UserHandler struct {
	Service UserService
	logger  *zerolog.Logger
}

func NewUserHandler(svc UserService, logger *zerolog.Logger) *UserHandler {
	return &UserHandler{Service: svc, logger: logger}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.Service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := caller(r)
	u, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
