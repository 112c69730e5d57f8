package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-shop-nosql/internal/application/order"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// OrderHandler handles checkout and order history.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler { return &OrderHandler{svc: svc} }

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	o, err := h.svc.Checkout(r.Context(), *rc.Identity)
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusCreated, CheckoutEnvelope{
		OrderID:   o.OrderID,
		Total:     o.Total,
		Items:     o.Items,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	pageSize := 0
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(w, domain.NewValidationError("invalid query parameters",
				domain.FieldIssue{Field: "pageSize", Rule: "int"}))
		}
		pageSize = n
	}
	page, err := h.svc.ListOrders(r.Context(), rc.UserID(), pageSize, r.URL.Query().Get("cursor"))
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request, rc *middleware.RequestContext) error {
	o, err := h.svc.GetOrder(r.Context(), rc.UserID(), chi.URLParam(r, "orderId"))
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, o)
	return nil
}
