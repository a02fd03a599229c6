package search

import (
	"sort"

	"github.com/openshopco/searchcore/internal/domain"
)

// sortProducts orders the scored candidates by the requested field. Ties fall
// through to product ID so pagination over a static catalog never duplicates
// or drops a product across pages.
func sortProducts(products []domain.ScoredProduct, spec domain.SortSpec) {
	field := spec.Field
	if field == "" {
		field = domain.SortRelevance
	}

	asc := spec.Direction == domain.DirectionAsc
	if spec.Direction == "" {
		// Price defaults ascending; everything else descending.
		asc = field == domain.SortPrice
	}

	less := lessFunc(field)
	sort.SliceStable(products, func(i, j int) bool {
		a, b := &products[i], &products[j]
		if less(a, b) {
			return asc
		}
		if less(b, a) {
			return !asc
		}
		return a.ID < b.ID
	})
}

// lessFunc returns the ascending comparison for the sort field.
func lessFunc(field string) func(a, b *domain.ScoredProduct) bool {
	switch field {
	case domain.SortPrice:
		return func(a, b *domain.ScoredProduct) bool {
			return a.EffectivePrice() < b.EffectivePrice()
		}
	case domain.SortNewest:
		return func(a, b *domain.ScoredProduct) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case domain.SortRating:
		return func(a, b *domain.ScoredProduct) bool {
			return a.AvgRating < b.AvgRating
		}
	default:
		return func(a, b *domain.ScoredProduct) bool {
			return a.Score < b.Score
		}
	}
}
