package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/trending"
	"github.com/openshopco/searchcore/pkg/httputil"
	"github.com/openshopco/searchcore/pkg/validator"
)

// TrendingHandler handles HTTP requests for trending endpoints.
type TrendingHandler struct {
	tracker *trending.Tracker
	logger  *slog.Logger
}

// NewTrendingHandler creates a new trending HTTP handler.
func NewTrendingHandler(tracker *trending.Tracker, logger *slog.Logger) *TrendingHandler {
	return &TrendingHandler{
		tracker: tracker,
		logger:  logger,
	}
}

// RecordInteractionRequest is the JSON request body for recording an
// interaction.
type RecordInteractionRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	MetricType string `json:"metric_type" validate:"required"`
	Value      int64  `json:"value"`
}

// RecordInteraction handles POST /api/v1/interactions
func (h *TrendingHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RecordInteractionRequest
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

	if !domain.IsValidMetricType(req.MetricType) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "metric_type must be one of: view, search, add_to_cart, purchase, share",
			},
		})
		return
	}

	value := req.Value
	if value <= 0 {
		value = 1
	}
	h.tracker.RecordMetric(req.ProductID, domain.MetricType(req.MetricType), value)

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "recorded"}})
}

// GetTrending handles GET /api/v1/trending
func (h *TrendingHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(domain.PeriodDay)
	}
	if !domain.IsValidPeriod(period) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "period must be one of: hour, day, week, month",
			},
		})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	products := h.tracker.CalculateTrending(domain.TrendingPeriod(period))
	if len(products) > limit {
		products = products[:limit]
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// GetHotItems handles GET /api/v1/trending/hot
func (h *TrendingHandler) GetHotItems(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.tracker.GetHotItems(limit)})
}
