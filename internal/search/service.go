package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openshopco/searchcore/internal/cache"
	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/normalize"
	"github.com/openshopco/searchcore/internal/queryopt"
	"github.com/openshopco/searchcore/internal/relevance"
	apperrors "github.com/openshopco/searchcore/pkg/errors"
)

const (
	maxLimit     = 100
	defaultLimit = 20
)

var searchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "search_request_duration_seconds",
		Help:    "Duration of search requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"cached"},
)

// Service is the search orchestrator. It normalizes the query, consults the
// result cache, fetches candidates from the catalog store on a miss, scores
// and sorts them, builds facets, and records every query in the optimization
// log.
type Service struct {
	store      catalog.Store
	normalizer *normalize.Normalizer
	scorer     *relevance.Scorer
	results    *cache.Cache[domain.SearchResult]
	counts     *cache.Cache[int]
	advisor    *queryopt.Advisor
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the search orchestrator.
func NewService(
	store catalog.Store,
	normalizer *normalize.Normalizer,
	scorer *relevance.Scorer,
	results *cache.Cache[domain.SearchResult],
	counts *cache.Cache[int],
	advisor *queryopt.Advisor,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		store:      store,
		normalizer: normalizer,
		scorer:     scorer,
		results:    results,
		counts:     counts,
		advisor:    advisor,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search executes a search request. Identical requests within the cache TTL
// are served from the result cache; catalog failures surface as dependency
// errors and are never cached.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	clampPaging(&req)

	key := cacheKey(req)
	tenantTag := TenantTag(req.TenantID)

	result, hit, err := s.results.GetOrSet(ctx, key, cache.TTLMedium, []string{tenantTag}, func() (domain.SearchResult, error) {
		return s.execute(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	result.Cached = hit
	if hit {
		searchDuration.WithLabelValues("true").Observe(0)
	} else {
		searchDuration.WithLabelValues("false").Observe(float64(result.TookMs) / 1000)
	}

	s.advisor.Record(req.Query, result.Total)

	s.logger.Debug("search executed",
		slog.String("tenant_id", req.TenantID),
		slog.String("query", req.Query),
		slog.Int("total", result.Total),
		slog.Bool("cached", hit),
	)
	return &result, nil
}

// SearchCount returns how many products match the query for the tenant,
// ignoring pagination. Counts are cached briefly under the tenant tag.
func (s *Service) SearchCount(ctx context.Context, query, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, apperrors.Validation("tenant_id is required")
	}
	if strings.TrimSpace(query) == "" {
		return 0, apperrors.Validation("query is required")
	}

	key := "count:" + hashKey(tenantID+"\x00"+strings.ToLower(strings.TrimSpace(query)))

	count, _, err := s.counts.GetOrSet(ctx, key, cache.TTLShort, []string{TenantTag(tenantID)}, func() (int, error) {
		q := s.normalizer.Normalize(query)
		candidates, err := s.fetchCandidates(ctx, tenantID, domain.SearchFilters{}, q)
		if err != nil {
			return 0, err
		}

		n := 0
		for i := range candidates {
			if score, _ := s.scorer.Score(&candidates[i], q); score > 0 {
				n++
			}
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// InvalidateTenantSearchCache drops every cached search and count for the
// tenant. The catalog-mutation consumer calls this whenever products change.
func (s *Service) InvalidateTenantSearchCache(tenantID string) int {
	tag := TenantTag(tenantID)
	removed := s.results.InvalidateByTag(tag) + s.counts.InvalidateByTag(tag)

	if removed > 0 {
		s.logger.Info("tenant search cache invalidated",
			slog.String("tenant_id", tenantID),
			slog.Int("removed", removed),
		)
	}
	return removed
}

// ZeroResultQueries surfaces queries that returned nothing, most frequent
// first.
func (s *Service) ZeroResultQueries() []queryopt.ZeroResultQuery {
	return s.advisor.ZeroResultQueries()
}

// BestOptimizations returns the advisor's top rewrite suggestions.
func (s *Service) BestOptimizations(limit int) []queryopt.Optimization {
	return s.advisor.BestOptimizations(limit)
}

// TenantTag returns the cache tag scoping entries to one tenant's catalog.
func TenantTag(tenantID string) string {
	return "tenant:" + tenantID
}

// execute runs the cache-miss path: normalize, fetch, score, sort, facet,
// paginate.
func (s *Service) execute(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	started := s.now()

	q := s.normalizer.Normalize(req.Query)

	candidates, err := s.fetchCandidates(ctx, req.TenantID, req.Filters, q)
	if err != nil {
		return domain.SearchResult{}, err
	}

	scored := s.scoreCandidates(candidates, q)
	sortProducts(scored, req.Sort)

	var facets *domain.Facets
	if len(req.Facets) > 0 {
		facets = buildFacets(scored, req.Facets)
	}

	total := len(scored)
	page := paginate(scored, req.Page, req.Limit)

	return domain.SearchResult{
		Products: page,
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
		TookMs:   s.now().Sub(started).Milliseconds(),
		Facets:   facets,
	}, nil
}

// fetchCandidates queries the catalog store with pushdown filters. Store
// failures become dependency errors so callers can tell an outage apart from
// an empty result set.
func (s *Service) fetchCandidates(ctx context.Context, tenantID string, filters domain.SearchFilters, q normalize.Query) ([]domain.Product, error) {
	filter := catalog.ProductFilter{
		CategoryID: filters.CategoryID,
		PriceMin:   filters.PriceMin,
		PriceMax:   filters.PriceMax,
		InStock:    filters.InStock,
		Tags:       filters.Tags,
	}
	if q.Normalized != "" {
		filter.Terms = append(filter.Terms, q.Normalized)
		for _, t := range q.ExpandedTerms {
			if t != "" {
				filter.Terms = append(filter.Terms, strings.ToLower(t))
			}
		}
	}

	candidates, err := s.store.FindProducts(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("catalog fetch failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Dependency("catalog", err)
	}
	return candidates, nil
}

// scoreCandidates scores every candidate. With a free-text query, zero-score
// candidates are dropped; filter-only requests keep everything at score 0 and
// rely on the requested sort order.
func (s *Service) scoreCandidates(candidates []domain.Product, q normalize.Query) []domain.ScoredProduct {
	scored := make([]domain.ScoredProduct, 0, len(candidates))
	hasQuery := q.Normalized != ""

	for i := range candidates {
		score, highlights := s.scorer.Score(&candidates[i], q)
		if hasQuery && score == 0 {
			continue
		}
		scored = append(scored, domain.ScoredProduct{
			Product:    candidates[i],
			Score:      score,
			Highlights: highlights,
		})
	}
	return scored
}

func validateRequest(req *domain.SearchRequest) error {
	if req.TenantID == "" {
		return apperrors.Validation("tenant_id is required")
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && !req.Filters.HasAny() {
		return apperrors.Validation("query is required when no filters are set")
	}

	if req.Sort.Field != "" && !domain.IsValidSortField(req.Sort.Field) {
		return apperrors.Validation(fmt.Sprintf("invalid sort field %q", req.Sort.Field))
	}
	if req.Sort.Direction != "" && req.Sort.Direction != domain.DirectionAsc && req.Sort.Direction != domain.DirectionDesc {
		return apperrors.Validation(fmt.Sprintf("invalid sort direction %q", req.Sort.Direction))
	}

	for _, f := range req.Facets {
		switch f {
		case domain.FacetCategories, domain.FacetTags, domain.FacetPriceRanges:
		default:
			return apperrors.Validation(fmt.Sprintf("unknown facet %q", f))
		}
	}

	return nil
}

func clampPaging(req *domain.SearchRequest) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}
}

func paginate(products []domain.ScoredProduct, page, limit int) []domain.ScoredProduct {
	skip := (page - 1) * limit
	if skip >= len(products) {
		return []domain.ScoredProduct{}
	}

	end := skip + limit
	if end > len(products) {
		end = len(products)
	}
	return products[skip:end]
}

// cacheKey hashes every request field so identical requests share an entry
// and any differing field misses. Facet order does not affect the key.
func cacheKey(req domain.SearchRequest) string {
	var b strings.Builder

	b.WriteString(req.TenantID)
	b.WriteByte(0)
	b.WriteString(strings.ToLower(req.Query))
	b.WriteByte(0)

	if req.Filters.CategoryID != nil {
		b.WriteString(*req.Filters.CategoryID)
	}
	b.WriteByte(0)
	if req.Filters.PriceMin != nil {
		fmt.Fprintf(&b, "%d", *req.Filters.PriceMin)
	}
	b.WriteByte(0)
	if req.Filters.PriceMax != nil {
		fmt.Fprintf(&b, "%d", *req.Filters.PriceMax)
	}
	b.WriteByte(0)
	if req.Filters.InStock != nil {
		fmt.Fprintf(&b, "%t", *req.Filters.InStock)
	}
	b.WriteByte(0)
	b.WriteString(strings.Join(req.Filters.Tags, ","))
	b.WriteByte(0)

	b.WriteString(req.Sort.Field)
	b.WriteByte(0)
	b.WriteString(req.Sort.Direction)
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d/%d", req.Page, req.Limit)
	b.WriteByte(0)

	facets := append([]string(nil), req.Facets...)
	sort.Strings(facets)
	b.WriteString(strings.Join(facets, ","))

	return "search:" + hashKey(b.String())
}

func hashKey(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
