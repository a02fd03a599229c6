package domain

import (
	"time"
)

// Product represents a catalog product as seen by the search engine. The
// catalog store owns this data; search never mutates it.
type Product struct {
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

// EffectivePrice returns the sale price when set, otherwise the base price.
// All prices are in minor currency units.
func (p *Product) EffectivePrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.BasePrice
}

// Sort field options for search results.
const (
	SortRelevance = "relevance"
	SortPrice     = "price"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// Sort directions.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// ValidSortFields returns the list of valid sort fields.
func ValidSortFields() []string {
	return []string{SortRelevance, SortPrice, SortNewest, SortRating}
}

// IsValidSortField checks whether the given field is a valid sort field.
func IsValidSortField(field string) bool {
	for _, f := range ValidSortFields() {
		if f == field {
			return true
		}
	}
	return false
}

// Facet names a caller may request.
const (
	FacetCategories  = "categories"
	FacetTags        = "tags"
	FacetPriceRanges = "price_ranges"
)

// SearchFilters holds the structured filters of a search request.
type SearchFilters struct {
	CategoryID *string  `json:"category_id,omitempty"`
	PriceMin   *int64   `json:"price_min,omitempty"`
	PriceMax   *int64   `json:"price_max,omitempty"`
	InStock    *bool    `json:"in_stock,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// HasAny reports whether at least one filter is set. A request with an empty
// query must carry at least one filter.
func (f *SearchFilters) HasAny() bool {
	return f.CategoryID != nil || f.PriceMin != nil || f.PriceMax != nil ||
		f.InStock != nil || len(f.Tags) > 0
}

// SortSpec holds the requested sort field and direction.
type SortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// SearchRequest holds all parameters for a search request.
type SearchRequest struct {
	Query    string        `json:"query"`
	TenantID string        `json:"tenant_id"`
	Filters  SearchFilters `json:"filters"`
	Sort     SortSpec      `json:"sort"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Facets   []string      `json:"facets,omitempty"`
}

// ScoredProduct wraps a product with its relevance score and highlight
// snippets. It is derived per request and never persisted.
type ScoredProduct struct {
	Product
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// CategoryFacet is an aggregated count of candidates in one category.
type CategoryFacet struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TagFacet is an aggregated count of candidates carrying one tag.
type TagFacet struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// PriceRangeFacet is an aggregated count of candidates in one price bucket.
// Max == 0 marks an open-ended bucket.
type PriceRangeFacet struct {
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	Count int   `json:"count"`
}

// Facets holds the aggregations computed over the full filtered candidate
// set before pagination.
type Facets struct {
	Categories  []CategoryFacet   `json:"categories,omitempty"`
	Tags        []TagFacet        `json:"tags,omitempty"`
	PriceRanges []PriceRangeFacet `json:"price_ranges,omitempty"`
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Products []ScoredProduct `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	TookMs   int64           `json:"took_ms"`
	Cached   bool            `json:"cached"`
	Facets   *Facets         `json:"facets,omitempty"`
}
