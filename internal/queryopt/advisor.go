package queryopt

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openshopco/searchcore/internal/normalize"
)

// Optimization types.
const (
	TypeExpansion  = "expansion"
	TypeSynonym    = "synonym"
	TypeCorrection = "correction"
	TypeStemming   = "stemming"
	TypeRemoval    = "removal"
)

// maxLogEntries caps the in-memory log; the oldest entries are evicted first.
const maxLogEntries = 10000

// Estimated relative gains per rewrite kind. These drive the ordering of
// BestOptimizations, not any automatic rewriting.
const (
	improvementTruncate      = 0.75
	improvementExpansionZero = 0.5
	improvementExpansion     = 0.25
)

// Optimization is a recorded query rewrite suggestion.
type Optimization struct {
	OriginalQuery  string    `json:"original_query"`
	OptimizedQuery string    `json:"optimized_query"`
	Type           string    `json:"type"`
	Improvement    float64   `json:"improvement"`
	AppliedDate    time.Time `json:"applied_date"`
}

// ZeroResultQuery is a query that returned no results, with how often it was
// seen.
type ZeroResultQuery struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type record struct {
	query        string
	resultCount  int
	optimization Optimization
}

// Advisor records every executed query with its result count, surfaces
// zero-result queries, and suggests rewrites for future identical queries.
// It never rewrites queries itself; suggestions are advisory.
type Advisor struct {
	mu         sync.Mutex
	normalizer *normalize.Normalizer
	log        []record

	logger *slog.Logger
	now    func() time.Time
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithAdvisorClock overrides the time source for tests.
func WithAdvisorClock(now func() time.Time) AdvisorOption {
	return func(a *Advisor) {
		a.now = now
	}
}

// NewAdvisor creates an Advisor sharing the engine's normalizer so rewrite
// suggestions see the same stop words and synonyms as live searches.
func NewAdvisor(normalizer *normalize.Normalizer, logger *slog.Logger, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		normalizer: normalizer,
		log:        make([]record, 0),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record appends the executed query and its result count to the log, along
// with the rewrite the advisor would suggest. The log is capped; the oldest
// entry is evicted when full.
func (a *Advisor) Record(query string, resultCount int) {
	opt := a.Optimize(query, resultCount)

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.log) >= maxLogEntries {
		a.log = a.log[1:]
	}
	a.log = append(a.log, record{
		query:        query,
		resultCount:  resultCount,
		optimization: opt,
	})

	if resultCount == 0 {
		a.logger.Debug("zero-result query recorded", slog.String("query", query))
	}
}

// Optimize suggests a rewrite for the query given its result count. If the
// normalizer expanded synonyms, the suggestion is an OR-widened query. If the
// query returned nothing, removed no stop words, and has more than one token,
// the suggestion truncates to the first token. Otherwise a no-op removal
// record with zero improvement is returned so every query leaves a trace.
func (a *Advisor) Optimize(query string, resultCount int) Optimization {
	q := a.normalizer.Normalize(query)
	opt := Optimization{
		OriginalQuery:  query,
		OptimizedQuery: q.Normalized,
		Type:           TypeRemoval,
		AppliedDate:    a.now(),
	}

	if len(q.ExpandedTerms) > 0 {
		parts := append([]string{q.Normalized}, q.ExpandedTerms...)
		opt.OptimizedQuery = strings.Join(parts, " OR ")
		opt.Type = TypeExpansion
		opt.Improvement = improvementExpansion
		if resultCount == 0 {
			opt.Improvement = improvementExpansionZero
		}
		return opt
	}

	tokens := strings.Fields(q.Normalized)
	if resultCount == 0 && len(q.RemovedWords) == 0 && len(tokens) > 1 {
		opt.OptimizedQuery = tokens[0]
		opt.Improvement = improvementTruncate
		return opt
	}

	return opt
}

// ZeroResultQueries groups the logged zero-result queries and returns them
// sorted by frequency descending, ties by query ascending for determinism.
func (a *Advisor) ZeroResultQueries() []ZeroResultQuery {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[string]int)
	for _, r := range a.log {
		if r.resultCount == 0 {
			counts[r.query]++
		}
	}

	grouped := make([]ZeroResultQuery, 0, len(counts))
	for query, count := range counts {
		grouped = append(grouped, ZeroResultQuery{Query: query, Count: count})
	}

	sort.Slice(grouped, func(i, j int) bool {
		if grouped[i].Count != grouped[j].Count {
			return grouped[i].Count > grouped[j].Count
		}
		return grouped[i].Query < grouped[j].Query
	})
	return grouped
}

// BestOptimizations returns up to limit suggestions sorted by estimated
// improvement descending. No-op records are skipped.
func (a *Advisor) BestOptimizations(limit int) []Optimization {
	a.mu.Lock()
	defer a.mu.Unlock()

	best := make([]Optimization, 0, len(a.log))
	for _, r := range a.log {
		if r.optimization.Improvement > 0 {
			best = append(best, r.optimization)
		}
	}

	sort.SliceStable(best, func(i, j int) bool {
		return best[i].Improvement > best[j].Improvement
	})

	if limit > 0 && len(best) > limit {
		best = best[:limit]
	}
	return best
}
