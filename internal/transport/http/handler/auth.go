package handler

import (
	"net/http"

	"github.com/go-shop-nosql/internal/application/auth"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req domain.RegisterRequest
	if err := rc.Decode(&req); err != nil {
		return respondError(w, err)
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req domain.LoginRequest
	if err := rc.Decode(&req); err != nil {
		return respondError(w, err)
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}
