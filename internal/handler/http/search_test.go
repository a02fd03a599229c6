package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshopco/searchcore/internal/cache"
	"github.com/openshopco/searchcore/internal/catalog/memory"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/normalize"
	"github.com/openshopco/searchcore/internal/queryopt"
	"github.com/openshopco/searchcore/internal/relevance"
	"github.com/openshopco/searchcore/internal/search"
	"github.com/openshopco/searchcore/internal/trending"
	"github.com/openshopco/searchcore/pkg/health"
	"github.com/openshopco/searchcore/pkg/httputil"
)

func int64Ptr(n int64) *int64 { return &n }

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	store.Put(domain.Product{
		ID: "p1", TenantID: "t1", Name: "Red Running Shoes",
		Description: "Lightweight shoes for daily runs", CategoryID: "shoes", CategoryName: "Shoes",
		BasePrice: 5999, Stock: 4, AvgRating: 4.5, Tags: []string{"running"},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	store.Put(domain.Product{
		ID: "p2", TenantID: "t1", Name: "Leather Wallet",
		Description: "Slim leather wallet", CategoryID: "accessories", CategoryName: "Accessories",
		BasePrice: 2999, SalePrice: int64Ptr(1999), Stock: 10, AvgRating: 4.8,
		CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	})

	normalizer := normalize.New()
	svc := search.NewService(
		store,
		normalizer,
		relevance.NewScorer(relevance.DefaultWeights()),
		cache.New[domain.SearchResult]("handler_test_results", logger),
		cache.New[int]("handler_test_counts", logger),
		queryopt.NewAdvisor(normalizer, logger),
		logger,
	)

	tracker := trending.NewTracker(trending.DefaultConfig(), logger)

	return NewRouter(svc, tracker, health.NewHandler(), logger)
}

func doRequest(t *testing.T, router http.Handler, method, target string, body string) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp httputil.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

func TestSearchEndpoint(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=running&tenant_id=t1", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Contains(t, result.Products[0].Highlights["name"], "<mark>Running</mark>")
}

func TestSearchEndpoint_MissingTenant(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=running", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestSearchEndpoint_InvalidPrice(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=shoes&tenant_id=t1&price_min=abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestSearchEndpoint_PriceRangeInverted(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=shoes&tenant_id=t1&price_min=500&price_max=100", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestSearchEndpoint_WithFacets(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet,
		"/api/v1/search/?tenant_id=t1&in_stock=true&facets=categories,price_ranges", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var result domain.SearchResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotNil(t, result.Facets)
	assert.Len(t, result.Facets.Categories, 2)
	assert.Empty(t, result.Facets.Tags)
}

func TestSearchCountEndpoint(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/count?q=running&tenant_id=t1", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var counted map[string]int
	require.NoError(t, json.Unmarshal(data, &counted))
	assert.Equal(t, 1, counted["count"])
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	router := newTestRouter()

	// Prime the cache.
	w, _ := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=running&tenant_id=t1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/search/cache/invalidate", `{"tenant_id":"t1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var payload struct {
		TenantID string `json:"tenant_id"`
		Removed  int    `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "t1", payload.TenantID)
	assert.Equal(t, 1, payload.Removed)
}

func TestInvalidateCacheEndpoint_MissingTenant(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/search/cache/invalidate", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestInvalidateCacheEndpoint_RejectsNonJSON(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/cache/invalidate", strings.NewReader("tenant_id=t1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestZeroResultsEndpoint(t *testing.T) {
	router := newTestRouter()

	for i := 0; i < 2; i++ {
		w, _ := doRequest(t, router, http.MethodGet, "/api/v1/search/?q=xyzzy123&tenant_id=t1", "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/search/zero-results", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var zeroes []queryopt.ZeroResultQuery
	require.NoError(t, json.Unmarshal(data, &zeroes))
	require.Len(t, zeroes, 1)
	assert.Equal(t, "xyzzy123", zeroes[0].Query)
	assert.Equal(t, 2, zeroes[0].Count)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
