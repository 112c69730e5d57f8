package handler

import (
	"errors"
	"net/http"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// OKEnvelope acknowledges a mutation with no other payload.
type OKEnvelope struct {
	OK bool `json:"ok"`
}

// DeletedEnvelope is returned when a quantity update removed the line.
type DeletedEnvelope struct {
	Deleted bool `json:"deleted"`
}

// CheckoutEnvelope is the checkout response.
type CheckoutEnvelope struct {
	OrderID   string             `json:"orderId"`
	Total     float64            `json:"total"`
	Items     []domain.OrderItem `json:"items"`
	CreatedAt string             `json:"createdAt"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string, details interface{}) {
	middleware.WriteJSON(w, status, middleware.ErrorBody{Message: msg, Details: details})
}

// respondError writes the response for expected failures and returns nil.
// Anything else is handed back as a fault for the pipeline to log and hide.
func respondError(w http.ResponseWriter, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		var details interface{}
		if len(verr.Fields) > 0 {
			details = verr.Fields
		}
		writeError(w, http.StatusBadRequest, verr.Message, details)
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad request", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "already exists", nil)
	default:
		return err
	}
	return nil
}
