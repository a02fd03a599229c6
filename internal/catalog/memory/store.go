package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/domain"
)

// Store is an in-memory catalog used for development and tests. Thread-safe
// via sync.RWMutex.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// New creates an empty in-memory catalog store.
func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
	}
}

// Put adds or replaces a product.
func (s *Store) Put(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

// Delete removes a product by ID.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// FindProducts returns candidates for the tenant matching the filter,
// ordered newest first with ID as tie-breaker so pagination over a static
// catalog is stable.
func (s *Store) FindProducts(_ context.Context, tenantID string, filter catalog.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.TenantID != tenantID {
			continue
		}
		if !matches(&p, filter) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matches(p *domain.Product, filter catalog.ProductFilter) bool {
	if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
		return false
	}
	if filter.PriceMin != nil && p.EffectivePrice() < *filter.PriceMin {
		return false
	}
	if filter.PriceMax != nil && p.EffectivePrice() > *filter.PriceMax {
		return false
	}
	if filter.InStock != nil && *filter.InStock && p.Stock <= 0 {
		return false
	}

	for _, want := range filter.Tags {
		if !hasTag(p.Tags, want) {
			return false
		}
	}

	// Free-text hint: any token of any term in name, description, or tags
	// keeps the candidate, so a synonym alternative is enough to stay in.
	// Ranking is the scorer's job, not the store's.
	if len(filter.Terms) > 0 && !textMatch(p, filter.Terms) {
		return false
	}

	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func textMatch(p *domain.Product, terms []string) bool {
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)

	for _, term := range terms {
		for _, tok := range strings.Fields(strings.ToLower(term)) {
			if strings.Contains(name, tok) || strings.Contains(desc, tok) {
				return true
			}
			for _, tag := range p.Tags {
				if strings.Contains(strings.ToLower(tag), tok) {
					return true
				}
			}
		}
	}
	return false
}
