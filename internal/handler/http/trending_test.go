package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshopco/searchcore/internal/domain"
)

func TestRecordInteractionEndpoint(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"product_id":"p1","metric_type":"purchase","value":2}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Nil(t, resp.Error)
}

func TestRecordInteractionEndpoint_UnknownMetric(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"product_id":"p1","metric_type":"teleport"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestRecordInteractionEndpoint_MissingProduct(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"metric_type":"view"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestGetTrendingEndpoint(t *testing.T) {
	router := newTestRouter()

	// Two purchases beat five views.
	w, _ := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"product_id":"popular","metric_type":"purchase","value":2}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	w, _ = doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"product_id":"seen","metric_type":"view","value":5}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/trending/?period=day", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var products []domain.TrendingProduct
	require.NoError(t, json.Unmarshal(data, &products))
	require.Len(t, products, 2)
	assert.Equal(t, "popular", products[0].ProductID)
	assert.Equal(t, 1, products[0].Rank)
	assert.Equal(t, domain.PeriodDay, products[0].Period)
}

func TestGetTrendingEndpoint_InvalidPeriod(t *testing.T) {
	router := newTestRouter()

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/trending/?period=fortnight", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestGetHotItemsEndpoint(t *testing.T) {
	router := newTestRouter()

	w, _ := doRequest(t, router, http.MethodPost, "/api/v1/interactions",
		`{"product_id":"hot","metric_type":"purchase","value":5}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	// Hot detection runs as a side effect of a trending calculation.
	w, _ = doRequest(t, router, http.MethodGet, "/api/v1/trending/?period=day", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/trending/hot", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var items []domain.HotItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "hot", items[0].ProductID)
}
