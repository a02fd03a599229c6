package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshopco/searchcore/internal/cache"
	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/catalog/memory"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/normalize"
	"github.com/openshopco/searchcore/internal/queryopt"
	"github.com/openshopco/searchcore/internal/relevance"
	apperrors "github.com/openshopco/searchcore/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }

var seedTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestService(store catalog.Store) *Service {
	logger := newTestLogger()
	normalizer := normalize.New()
	return NewService(
		store,
		normalizer,
		relevance.NewScorer(relevance.DefaultWeights()),
		cache.New[domain.SearchResult]("test_results", logger),
		cache.New[int]("test_counts", logger),
		queryopt.NewAdvisor(normalizer, logger),
		logger,
	)
}

func seededStore() *memory.Store {
	store := memory.New()
	store.Put(domain.Product{
		ID: "p1", TenantID: "t1", Name: "Red Running Shoes",
		Description: "Lightweight shoes for daily runs", CategoryID: "shoes", CategoryName: "Shoes",
		BasePrice: 5999, Stock: 4, AvgRating: 4.5, Tags: []string{"running", "sale"},
		CreatedAt: seedTime.Add(3 * time.Hour),
	})
	store.Put(domain.Product{
		ID: "p2", TenantID: "t1", Name: "Blue Sneakers",
		Description: "Casual everyday wear", CategoryID: "shoes", CategoryName: "Shoes",
		BasePrice: 8999, SalePrice: int64Ptr(6999), Stock: 2, AvgRating: 4.0, Tags: []string{"running"},
		CreatedAt: seedTime.Add(2 * time.Hour),
	})
	store.Put(domain.Product{
		ID: "p3", TenantID: "t1", Name: "Leather Wallet",
		Description: "Slim leather wallet", CategoryID: "accessories", CategoryName: "Accessories",
		BasePrice: 2999, Stock: 10, AvgRating: 4.8,
		CreatedAt: seedTime.Add(time.Hour),
	})
	return store
}

// failingStore simulates a catalog outage.
type failingStore struct{}

func (failingStore) FindProducts(context.Context, string, catalog.ProductFilter) ([]domain.Product, error) {
	return nil, errors.New("connection refused")
}

func TestSearch_RequiresTenant(t *testing.T) {
	svc := newTestService(seededStore())

	_, err := svc.Search(context.Background(), domain.SearchRequest{Query: "shoes"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_EmptyQueryNeedsFilters(t *testing.T) {
	svc := newTestService(seededStore())

	_, err := svc.Search(context.Background(), domain.SearchRequest{TenantID: "t1"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_FilterOnlyRequestAllowed(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		TenantID: "t1",
		Filters:  domain.SearchFilters{InStock: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	for _, p := range result.Products {
		assert.Zero(t, p.Score)
	}
}

func TestSearch_RanksNameMatchesAboveTagMatches(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "running",
		TenantID: "t1",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)

	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Equal(t, "p2", result.Products[1].ID)
	assert.Greater(t, result.Products[0].Score, result.Products[1].Score)
	assert.Contains(t, result.Products[0].Highlights["name"], "<mark>Running</mark>")
}

func TestSearch_SynonymWidensResultSet(t *testing.T) {
	svc := newTestService(seededStore())

	// "Blue Sneakers" never mentions "shoes"; it must survive the catalog
	// pushdown and score via the expanded synonym.
	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "shoes",
		TenantID: "t1",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)

	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Equal(t, "p2", result.Products[1].ID)
	assert.Contains(t, result.Products[1].Highlights["name"], "<mark>Sneakers</mark>")
}

func TestSearch_DropsZeroScoreOnFreeTextQuery(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "wallet",
		TenantID: "t1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p3", result.Products[0].ID)
}

func TestSearch_ZeroResultsIsNotAnError(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "xyzzy123",
		TenantID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Products)

	zeroes := svc.ZeroResultQueries()
	require.Len(t, zeroes, 1)
	assert.Equal(t, "xyzzy123", zeroes[0].Query)
}

func TestSearch_SortByPrice(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		TenantID: "t1",
		Filters:  domain.SearchFilters{InStock: boolPtr(true)},
		Sort:     domain.SortSpec{Field: domain.SortPrice},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)

	// Ascending by default for price; p2 sorts by its sale price.
	assert.Equal(t, "p3", result.Products[0].ID)
	assert.Equal(t, "p1", result.Products[1].ID)
	assert.Equal(t, "p2", result.Products[2].ID)
}

func TestSearch_SortByRatingDesc(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		TenantID: "t1",
		Filters:  domain.SearchFilters{InStock: boolPtr(true)},
		Sort:     domain.SortSpec{Field: domain.SortRating},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	assert.Equal(t, "p3", result.Products[0].ID)
	assert.Equal(t, "p1", result.Products[1].ID)
}

func TestSearch_InvalidSortField(t *testing.T) {
	svc := newTestService(seededStore())

	_, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "shoes",
		TenantID: "t1",
		Sort:     domain.SortSpec{Field: "popularity"},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_PaginationCoversAllProductsOnce(t *testing.T) {
	store := memory.New()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		store.Put(domain.Product{
			ID: id, TenantID: "t1", Name: "Widget " + id, CategoryID: "widgets",
			BasePrice: 1000, Stock: 1, CreatedAt: seedTime,
		})
	}
	svc := newTestService(store)

	seen := map[string]int{}
	for page := 1; page <= 3; page++ {
		result, err := svc.Search(context.Background(), domain.SearchRequest{
			Query:    "widget",
			TenantID: "t1",
			Page:     page,
			Limit:    2,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Total)
		for _, p := range result.Products {
			seen[p.ID]++
		}
	}

	assert.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equal(t, 1, count, "product %s appeared %d times", id, count)
	}
}

func TestSearch_PageBeyondEnd(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "running",
		TenantID: "t1",
		Page:     10,
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Empty(t, result.Products)
}

func TestSearch_FacetsCoverFullCandidateSet(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		TenantID: "t1",
		Filters:  domain.SearchFilters{InStock: boolPtr(true)},
		Limit:    1,
		Facets:   []string{domain.FacetCategories, domain.FacetTags, domain.FacetPriceRanges},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Facets)
	require.Len(t, result.Products, 1)

	assert.ElementsMatch(t, []domain.CategoryFacet{
		{ID: "shoes", Name: "Shoes", Count: 2},
		{ID: "accessories", Name: "Accessories", Count: 1},
	}, result.Facets.Categories)

	assert.ElementsMatch(t, []domain.TagFacet{
		{Tag: "running", Count: 2},
		{Tag: "sale", Count: 1},
	}, result.Facets.Tags)

	total := 0
	for _, bucket := range result.Facets.PriceRanges {
		total += bucket.Count
	}
	assert.Equal(t, 3, total)
}

func TestSearch_UnknownFacetRejected(t *testing.T) {
	svc := newTestService(seededStore())

	_, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "shoes",
		TenantID: "t1",
		Facets:   []string{"brands"},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_CacheHitAndInvalidation(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	req := domain.SearchRequest{Query: "running", TenantID: "t1"}

	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Total, second.Total)

	// A catalog change invalidates the tenant's cached searches.
	store.Delete("p1")
	removed := svc.InvalidateTenantSearchCache("t1")
	assert.Greater(t, removed, 0)

	third, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 1, third.Total)
}

func TestSearch_DifferentRequestsMissSeparately(t *testing.T) {
	svc := newTestService(seededStore())

	first, err := svc.Search(context.Background(), domain.SearchRequest{Query: "running", TenantID: "t1"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// Same query, different limit: must be a distinct cache entry.
	second, err := svc.Search(context.Background(), domain.SearchRequest{Query: "running", TenantID: "t1", Limit: 5})
	require.NoError(t, err)
	assert.False(t, second.Cached)
}

func TestSearch_CatalogFailureIsDependencyErrorAndNotCached(t *testing.T) {
	svc := newTestService(failingStore{})

	req := domain.SearchRequest{Query: "shoes", TenantID: "t1"}

	_, err := svc.Search(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsDependency(err))

	// Still failing on retry: the error was never cached as a result.
	_, err = svc.Search(context.Background(), req)
	assert.True(t, apperrors.IsDependency(err))
}

func TestSearchCount(t *testing.T) {
	svc := newTestService(seededStore())

	count, err := svc.SearchCount(context.Background(), "running", "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSearchCount_RequiresQueryAndTenant(t *testing.T) {
	svc := newTestService(seededStore())

	_, err := svc.SearchCount(context.Background(), "", "t1")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.SearchCount(context.Background(), "shoes", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_ClampsPaging(t *testing.T) {
	svc := newTestService(seededStore())

	result, err := svc.Search(context.Background(), domain.SearchRequest{
		Query:    "running",
		TenantID: "t1",
		Page:     -2,
		Limit:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 100, result.Limit)
}
