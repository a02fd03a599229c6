package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/pkg/httpclient"
)

const defaultCandidateLimit = 1000

// Store implements catalog.Store against the product service's HTTP API.
// Requests go through a circuit breaker so a failing product service cannot
// absorb the search latency budget.
type Store struct {
	baseURL string
	client  *httpclient.BreakerClient
	logger  *slog.Logger
}

// listResponse mirrors the product service's list envelope.
type listResponse struct {
	Data struct {
		Products []domain.Product `json:"products"`
	} `json:"data"`
}

// New creates an HTTP-backed catalog store talking to the product service at
// baseURL.
func New(baseURL string, client *httpclient.BreakerClient, logger *slog.Logger) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// FindProducts lists candidate products from the product service, encoding
// the filter as query parameters.
func (s *Store) FindProducts(ctx context.Context, tenantID string, filter catalog.ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	params := url.Values{}
	params.Set("tenant_id", tenantID)
	params.Set("limit", strconv.Itoa(limit))

	if filter.CategoryID != nil {
		params.Set("category_id", *filter.CategoryID)
	}
	if filter.PriceMin != nil {
		params.Set("price_min", strconv.FormatInt(*filter.PriceMin, 10))
	}
	if filter.PriceMax != nil {
		params.Set("price_max", strconv.FormatInt(*filter.PriceMax, 10))
	}
	if filter.InStock != nil && *filter.InStock {
		params.Set("in_stock", "true")
	}
	if len(filter.Tags) > 0 {
		params.Set("tags", strings.Join(filter.Tags, ","))
	}
	// The list endpoint's q parameter narrows by a single phrase. With
	// synonym alternatives in play that would drop candidates matching only
	// an alternative, so the hint is sent solely for single-term queries and
	// local scoring prunes the rest.
	if len(filter.Terms) == 1 {
		params.Set("q", filter.Terms[0])
	}

	reqURL := s.baseURL + "/api/v1/products?" + params.Encode()

	resp, err := s.client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list products: unexpected status %s", resp.Status)
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("list products: decode response: %w", err)
	}

	products := decoded.Data.Products
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}
