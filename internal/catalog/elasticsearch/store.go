package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/domain"
)

// DefaultIndexName is the products index queried when no index is configured.
const DefaultIndexName = "openshop_products"

const defaultCandidateLimit = 1000

// Store implements catalog.Store against an Elasticsearch products index.
// It only reads; indexing is owned by the catalog pipeline.
type Store struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esDocument mirrors the product document shape in the index.
type esDocument struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	BasePrice    int64     `json:"base_price"`
	SalePrice    *int64    `json:"sale_price,omitempty"`
	Stock        int       `json:"stock"`
	AvgRating    float64   `json:"avg_rating"`
	ReviewCount  int       `json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
	Images       []string  `json:"images,omitempty"`
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source esDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch-backed catalog store connected to the given URL.
// If indexName is empty, DefaultIndexName is used.
func New(esURL string, indexName string, logger *slog.Logger) (*Store, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Store{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// FindProducts runs a filtered query against the index and returns candidate
// products. Each free-text term becomes a multi_match should clause so any
// one of them qualifies a document; relevance is still recomputed locally so
// ES ordering only shapes the candidate set.
func (s *Store) FindProducts(ctx context.Context, tenantID string, filter catalog.ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	esQuery := buildQuery(tenantID, filter, limit)

	data, err := json.Marshal(esQuery)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(data)),
		s.client.Search.WithContext(ctx),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return nil, fmt.Errorf("elasticsearch search: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return nil, fmt.Errorf("elasticsearch search: unexpected status %s", res.Status())
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	products := make([]domain.Product, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		products = append(products, toDomain(hit.Source))
	}
	return products, nil
}

// buildQuery constructs the Elasticsearch query DSL as a map.
func buildQuery(tenantID string, filter catalog.ProductFilter, limit int) map[string]any {
	var mustClause any
	if len(filter.Terms) > 0 {
		// One multi_match per term under a should clause, so a document
		// matching only a synonym alternative still qualifies.
		should := make([]map[string]any, 0, len(filter.Terms))
		for _, term := range filter.Terms {
			should = append(should, map[string]any{
				"multi_match": map[string]any{
					"query":         term,
					"fields":        []string{"name^3", "description", "tags^2", "category_name"},
					"type":          "best_fields",
					"fuzziness":     "AUTO",
					"prefix_length": 1,
				},
			})
		}
		mustClause = map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		}
	} else {
		mustClause = map[string]any{
			"match_all": map[string]any{},
		}
	}

	filters := []map[string]any{
		{"term": map[string]any{"tenant_id": tenantID}},
	}

	if filter.CategoryID != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"category_id": *filter.CategoryID},
		})
	}

	if filter.PriceMin != nil || filter.PriceMax != nil {
		priceRange := map[string]any{}
		if filter.PriceMin != nil {
			priceRange["gte"] = *filter.PriceMin
		}
		if filter.PriceMax != nil {
			priceRange["lte"] = *filter.PriceMax
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"effective_price": priceRange},
		})
	}

	if filter.InStock != nil && *filter.InStock {
		filters = append(filters, map[string]any{
			"range": map[string]any{"stock": map[string]any{"gt": 0}},
		})
	}

	// Every requested tag must be present, so each gets its own term filter.
	for _, tag := range filter.Tags {
		filters = append(filters, map[string]any{
			"term": map[string]any{"tags": tag},
		})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   mustClause,
				"filter": filters,
			},
		},
		"size": limit,
		"sort": []map[string]any{
			{"created_at": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "asc"}},
		},
	}
}

func toDomain(doc esDocument) domain.Product {
	return domain.Product{
		ID:           doc.ID,
		TenantID:     doc.TenantID,
		Name:         doc.Name,
		Description:  doc.Description,
		Tags:         doc.Tags,
		CategoryID:   doc.CategoryID,
		CategoryName: doc.CategoryName,
		BasePrice:    doc.BasePrice,
		SalePrice:    doc.SalePrice,
		Stock:        doc.Stock,
		AvgRating:    doc.AvgRating,
		ReviewCount:  doc.ReviewCount,
		CreatedAt:    doc.CreatedAt,
		Images:       doc.Images,
	}
}
