package search

import (
	"sort"

	"github.com/openshopco/searchcore/internal/domain"
)

// priceBuckets are the facet buckets in minor currency units. Max == 0 marks
// the open-ended top bucket.
var priceBuckets = []domain.PriceRangeFacet{
	{Min: 0, Max: 2499},
	{Min: 2500, Max: 4999},
	{Min: 5000, Max: 9999},
	{Min: 10000, Max: 24999},
	{Min: 25000, Max: 0},
}

// buildFacets aggregates the requested facets over the full filtered
// candidate set. It must run before pagination so counts reflect every match,
// not just the current page.
func buildFacets(products []domain.ScoredProduct, requested []string) *domain.Facets {
	facets := &domain.Facets{}

	for _, name := range requested {
		switch name {
		case domain.FacetCategories:
			facets.Categories = categoryFacets(products)
		case domain.FacetTags:
			facets.Tags = tagFacets(products)
		case domain.FacetPriceRanges:
			facets.PriceRanges = priceRangeFacets(products)
		}
	}
	return facets
}

func categoryFacets(products []domain.ScoredProduct) []domain.CategoryFacet {
	counts := make(map[string]*domain.CategoryFacet)
	for i := range products {
		p := &products[i]
		if p.CategoryID == "" {
			continue
		}
		if f, ok := counts[p.CategoryID]; ok {
			f.Count++
			continue
		}
		counts[p.CategoryID] = &domain.CategoryFacet{
			ID:    p.CategoryID,
			Name:  p.CategoryName,
			Count: 1,
		}
	}

	facets := make([]domain.CategoryFacet, 0, len(counts))
	for _, f := range counts {
		facets = append(facets, *f)
	}
	sort.Slice(facets, func(i, j int) bool {
		if facets[i].Count != facets[j].Count {
			return facets[i].Count > facets[j].Count
		}
		return facets[i].ID < facets[j].ID
	})
	return facets
}

func tagFacets(products []domain.ScoredProduct) []domain.TagFacet {
	counts := make(map[string]int)
	for i := range products {
		for _, tag := range products[i].Tags {
			counts[tag]++
		}
	}

	facets := make([]domain.TagFacet, 0, len(counts))
	for tag, count := range counts {
		facets = append(facets, domain.TagFacet{Tag: tag, Count: count})
	}
	sort.Slice(facets, func(i, j int) bool {
		if facets[i].Count != facets[j].Count {
			return facets[i].Count > facets[j].Count
		}
		return facets[i].Tag < facets[j].Tag
	})
	return facets
}

func priceRangeFacets(products []domain.ScoredProduct) []domain.PriceRangeFacet {
	facets := make([]domain.PriceRangeFacet, len(priceBuckets))
	copy(facets, priceBuckets)

	for i := range products {
		price := products[i].EffectivePrice()
		for b := range facets {
			if price < facets[b].Min {
				continue
			}
			if facets[b].Max != 0 && price > facets[b].Max {
				continue
			}
			facets[b].Count++
			break
		}
	}
	return facets
}
