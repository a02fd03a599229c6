package trending

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/openshopco/searchcore/internal/domain"
)

// Metric weights. Purchase and conversion-adjacent signals must outweigh
// passive views.
const (
	weightView      = 1.0
	weightSearch    = 2.0
	weightAddToCart = 3.0
	weightPurchase  = 5.0
	weightShare     = 4.0
)

// hotRankCeiling is the highest rank still eligible for hot-item flagging.
const hotRankCeiling = 10

// peakHorizon is how far ahead the estimated peak of a hot item is projected.
const peakHorizon = 24 * time.Hour

// Config holds the tunable thresholds of the tracker.
type Config struct {
	// MomentumThreshold is the minimum momentum for hot-item flagging.
	MomentumThreshold float64

	// MinPurchases is the purchase-count floor for hot-item flagging.
	MinPurchases int64
}

// DefaultConfig returns the standard hot-item thresholds.
func DefaultConfig() Config {
	return Config{
		MomentumThreshold: 0.5,
		MinPurchases:      3,
	}
}

type productMetrics struct {
	order    int
	current  domain.MetricCounts
	baseline domain.MetricCounts
}

// Tracker accumulates weighted interaction events per product and computes
// ranked trending lists plus a momentum-based hot-item detector. Counters
// accumulate continuously; the period on the output is a label, and callers
// wanting real windows roll counters over with ResetMetrics. Safe for
// concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	products map[string]*productMetrics
	hot      map[string]domain.HotItem
	nextSeq  int

	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a Tracker with the given thresholds.
func NewTracker(cfg Config, logger *slog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		products: make(map[string]*productMetrics),
		hot:      make(map[string]domain.HotItem),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordMetric adds value occurrences of metric to the product's counters.
// Unknown metric types and non-positive values are ignored.
func (t *Tracker) RecordMetric(productID string, metric domain.MetricType, value int64) {
	if productID == "" || value <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pm, ok := t.products[productID]
	if !ok {
		pm = &productMetrics{order: t.nextSeq}
		t.nextSeq++
		t.products[productID] = pm
	}

	switch metric {
	case domain.MetricView:
		pm.current.View += value
	case domain.MetricSearch:
		pm.current.Search += value
	case domain.MetricAddToCart:
		pm.current.AddToCart += value
	case domain.MetricPurchase:
		pm.current.Purchase += value
	case domain.MetricShare:
		pm.current.Share += value
	default:
		t.logger.Warn("unknown metric type ignored",
			slog.String("product_id", productID),
			slog.String("metric", string(metric)),
		)
	}
}

// CalculateTrending ranks all tracked products by weighted trend score,
// descending, with ties keeping first-seen order. Ranks are dense and
// 1-based. As a side effect, qualifying top-ranked products are (re)flagged
// as hot.
func (t *Tracker) CalculateTrending(period domain.TrendingPeriod) []domain.TrendingProduct {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	type scored struct {
		id    string
		order int
		entry domain.TrendingProduct
	}

	list := make([]scored, 0, len(t.products))
	for id, pm := range t.products {
		list = append(list, scored{
			id:    id,
			order: pm.order,
			entry: domain.TrendingProduct{
				ProductID:  id,
				TrendScore: weightedScore(pm.current),
				Period:     period,
				Metrics:    pm.current,
				Momentum:   momentum(pm.current, pm.baseline),
				Timestamp:  now,
			},
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].entry.TrendScore != list[j].entry.TrendScore {
			return list[i].entry.TrendScore > list[j].entry.TrendScore
		}
		return list[i].order < list[j].order
	})

	result := make([]domain.TrendingProduct, 0, len(list))
	for i, s := range list {
		s.entry.Rank = i + 1
		result = append(result, s.entry)
		t.flagHotLocked(s.entry, now)
	}
	return result
}

// GetHotItems returns up to limit currently flagged hot items, best rank
// first.
func (t *Tracker) GetHotItems(limit int) []domain.HotItem {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]domain.HotItem, 0, len(t.hot))
	for _, item := range t.hot {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank < items[j].Rank
		}
		return items[i].ProductID < items[j].ProductID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// ResetMetrics rolls the current counters into the baseline and zeroes them,
// starting a fresh window. Momentum on the next CalculateTrending compares
// against the window just closed. Hot flags are cleared.
func (t *Tracker) ResetMetrics(period domain.TrendingPeriod) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pm := range t.products {
		pm.baseline = pm.current
		pm.current = domain.MetricCounts{}
	}
	t.hot = make(map[string]domain.HotItem)

	t.logger.Info("trending metrics rolled over",
		slog.String("period", string(period)),
		slog.Int("products", len(t.products)),
	)
}

// flagHotLocked records or refreshes a hot flag for products in the top ranks
// with momentum above threshold and enough purchases. Caller holds the write
// lock.
func (t *Tracker) flagHotLocked(p domain.TrendingProduct, now time.Time) {
	if p.Rank > hotRankCeiling {
		return
	}
	if p.Momentum <= t.cfg.MomentumThreshold {
		return
	}
	if p.Metrics.Purchase < t.cfg.MinPurchases {
		return
	}

	t.hot[p.ProductID] = domain.HotItem{
		ProductID:     p.ProductID,
		Rank:          p.Rank,
		TrendScore:    p.TrendScore,
		Momentum:      p.Momentum,
		PurchaseCount: p.Metrics.Purchase,
		Confidence:    confidence(p.Momentum),
		EstimatedPeak: now.Add(peakHorizon),
		FlaggedAt:     now,
	}
}

func weightedScore(m domain.MetricCounts) float64 {
	return float64(m.View)*weightView +
		float64(m.Search)*weightSearch +
		float64(m.AddToCart)*weightAddToCart +
		float64(m.Purchase)*weightPurchase +
		float64(m.Share)*weightShare
}

// momentum is the relative change of the current weighted score against the
// baseline, clamped to [-1, 1] so a single spike cannot dominate.
func momentum(current, baseline domain.MetricCounts) float64 {
	cur := weightedScore(current)
	base := weightedScore(baseline)

	if base == 0 {
		if cur > 0 {
			return 1
		}
		return 0
	}

	m := (cur - base) / base
	if m > 1 {
		return 1
	}
	if m < -1 {
		return -1
	}
	return m
}

// confidence maps momentum into (0, 1]. Momentum at the clamp ceiling means
// full confidence.
func confidence(momentum float64) float64 {
	if momentum >= 1 {
		return 1
	}
	if momentum <= 0 {
		return 0
	}
	return momentum
}
