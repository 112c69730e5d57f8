package handler

import (
	"net/http"
	"time"

	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// HealthHandler answers liveness checks.
type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{now: time.Now} }

type healthEnvelope struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request, _ *middleware.RequestContext) error {
	writeJSON(w, http.StatusOK, healthEnvelope{OK: true, TS: h.now().UnixMilli()})
	return nil
}
