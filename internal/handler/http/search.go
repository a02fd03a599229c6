package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/search"
	"github.com/openshopco/searchcore/pkg/httputil"
	"github.com/openshopco/searchcore/pkg/validator"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *search.Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// InvalidateCacheRequest is the JSON request body for tenant cache
// invalidation.
type InvalidateCacheRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSearchRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SearchCount handles GET /api/v1/search/count
func (h *SearchHandler) SearchCount(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	tenantID := r.URL.Query().Get("tenant_id")

	count, err := h.service.SearchCount(r.Context(), query, tenantID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"count": count}})
}

// BestOptimizations handles GET /api/v1/search/optimizations
func (h *SearchHandler) BestOptimizations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.BestOptimizations(limit)})
}

// ZeroResultQueries handles GET /api/v1/search/zero-results
func (h *SearchHandler) ZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.ZeroResultQueries()})
}

// InvalidateCache handles POST /api/v1/search/cache/invalidate
func (h *SearchHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req InvalidateCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	removed := h.service.InvalidateTenantSearchCache(req.TenantID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"tenant_id": req.TenantID,
		"removed":   removed,
	}})
}

// parseSearchRequest builds a domain.SearchRequest from query parameters.
// Malformed numeric parameters are rejected; semantic validation (tenant,
// empty query with no filters) is the orchestrator's job.
func (h *SearchHandler) parseSearchRequest(w http.ResponseWriter, r *http.Request) (domain.SearchRequest, bool) {
	params := r.URL.Query()

	req := domain.SearchRequest{
		Query:    strings.TrimSpace(params.Get("q")),
		TenantID: params.Get("tenant_id"),
		Page:     1,
		Limit:    20,
	}

	if v := params.Get("category_id"); v != "" {
		req.Filters.CategoryID = &v
	}
	if v := params.Get("price_min"); v != "" {
		price, ok := parsePrice(w, "price_min", v)
		if !ok {
			return req, false
		}
		req.Filters.PriceMin = &price
	}
	if v := params.Get("price_max"); v != "" {
		price, ok := parsePrice(w, "price_max", v)
		if !ok {
			return req, false
		}
		req.Filters.PriceMax = &price
	}
	if req.Filters.PriceMin != nil && req.Filters.PriceMax != nil && *req.Filters.PriceMin > *req.Filters.PriceMax {
		writeInvalidParam(w, "price_min must not exceed price_max")
		return req, false
	}
	if v := params.Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			writeInvalidParam(w, "in_stock must be a boolean")
			return req, false
		}
		req.Filters.InStock = &inStock
	}
	if v := params.Get("tags"); v != "" {
		req.Filters.Tags = splitCSV(v)
	}

	req.Sort.Field = params.Get("sort")
	req.Sort.Direction = params.Get("direction")

	if v := params.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			req.Page = page
		}
	}
	if v := params.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 100 {
			req.Limit = limit
		}
	}

	if v := params.Get("facets"); v != "" {
		req.Facets = splitCSV(v)
	}

	return req, true
}

func parsePrice(w http.ResponseWriter, name, raw string) (int64, bool) {
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeInvalidParam(w, name+" must be a valid number")
		return 0, false
	}
	if price < 0 {
		writeInvalidParam(w, name+" must not be negative")
		return 0, false
	}
	return price, true
}

func writeInvalidParam(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
