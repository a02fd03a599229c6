package catalog

import (
	"context"

	"github.com/openshopco/searchcore/internal/domain"
)

// ProductFilter carries the predicates pushed down to the catalog store so
// the store does as much filtering as possible before candidates reach the
// relevance scorer.
type ProductFilter struct {
	CategoryID *string
	PriceMin   *int64
	PriceMax   *int64
	InStock    *bool
	Tags       []string

	// Terms are optional free-text alternatives for store-side narrowing.
	// A candidate matching any one term is kept, so synonym-expanded
	// queries widen the candidate set instead of narrowing it. The store
	// is not expected to rank; relevance is always recomputed locally.
	Terms []string

	// Limit bounds the candidate set. Zero means the store default.
	Limit int
}

// Store is the read-only catalog collaborator. The search engine never
// mutates catalog data.
type Store interface {
	// FindProducts returns candidate products for the tenant matching the
	// filter. Order is store-defined but must be deterministic for a static
	// catalog.
	FindProducts(ctx context.Context, tenantID string, filter ProductFilter) ([]domain.Product, error)
}
