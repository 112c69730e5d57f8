package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-shop-nosql/internal/application/cart"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// CartHandler exposes the caller's cart. All routes require authentication.
type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler { return &CartHandler{svc: svc} }

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	c, err := h.svc.Get(r.Context(), rc.UserID())
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req domain.AddCartItemRequest
	if err := rc.Decode(&req); err != nil {
		return respondError(w, err)
	}
	line, err := h.svc.Add(r.Context(), rc.UserID(), req)
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusCreated, line)
	return nil
}

func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	var req domain.UpdateCartItemRequest
	if err := rc.Decode(&req); err != nil {
		return respondError(w, err)
	}
	res, err := h.svc.Update(r.Context(), rc.UserID(), chi.URLParam(r, "productId"), req)
	if err != nil {
		return respondError(w, err)
	}
	if res.Deleted {
		writeJSON(w, http.StatusOK, DeletedEnvelope{Deleted: true})
		return nil
	}
	writeJSON(w, http.StatusOK, res.Line)
	return nil
}

// Remove succeeds whether or not the line existed.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	if err := h.svc.Remove(r.Context(), rc.UserID(), chi.URLParam(r, "productId")); err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, OKEnvelope{OK: true})
	return nil
}
