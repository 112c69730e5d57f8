package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-shop-nosql/internal/application/catalog"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/transport/http/middleware"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	svc catalog.Service
}

func NewProductHandler(svc catalog.Service) *ProductHandler { return &ProductHandler{svc: svc} }

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request, _ *middleware.RequestContext) error {
	q, err := parseProductQuery(r)
	if err != nil {
		return respondError(w, err)
	}
	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request, _ *middleware.RequestContext) error {
	p, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return respondError(w, err)
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

func parseProductQuery(r *http.Request) (domain.ProductQuery, error) {
	v := r.URL.Query()
	q := domain.ProductQuery{
		Search:   strings.TrimSpace(v.Get("search")),
		Category: v.Get("category"),
		Sort:     v.Get("sort"),
		Cursor:   v.Get("cursor"),
	}
	var issues []domain.FieldIssue
	intParam := func(name string) *int {
		raw := v.Get(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			issues = append(issues, domain.FieldIssue{Field: name, Rule: "int"})
			return nil
		}
		return &n
	}
	q.Min = intParam("min")
	q.Max = intParam("max")
	if size := intParam("pageSize"); size != nil {
		q.PageSize = *size
		if q.PageSize == 0 {
			issues = append(issues, domain.FieldIssue{Field: "pageSize", Rule: "min", Param: "1"})
		}
	}
	if len(issues) > 0 {
		return q, domain.NewValidationError("invalid query parameters", issues...)
	}
	return q, nil
}
