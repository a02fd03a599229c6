package domain

import "time"

// MetricType identifies a product interaction signal.
type MetricType string

const (
	MetricView      MetricType = "view"
	MetricSearch    MetricType = "search"
	MetricAddToCart MetricType = "add_to_cart"
	MetricPurchase  MetricType = "purchase"
	MetricShare     MetricType = "share"
)

// ValidMetricTypes returns the list of valid interaction metric types.
func ValidMetricTypes() []MetricType {
	return []MetricType{MetricView, MetricSearch, MetricAddToCart, MetricPurchase, MetricShare}
}

// IsValidMetricType checks whether the given string names a metric type.
func IsValidMetricType(s string) bool {
	for _, m := range ValidMetricTypes() {
		if string(m) == s {
			return true
		}
	}
	return false
}

// TrendingPeriod labels the window a trending result describes. The tracker
// accumulates continuously; the label is advisory unless the caller rolls
// counters over with ResetMetrics.
type TrendingPeriod string

const (
	PeriodHour  TrendingPeriod = "hour"
	PeriodDay   TrendingPeriod = "day"
	PeriodWeek  TrendingPeriod = "week"
	PeriodMonth TrendingPeriod = "month"
)

// IsValidPeriod checks whether the given string names a trending period.
func IsValidPeriod(s string) bool {
	switch TrendingPeriod(s) {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return true
	}
	return false
}

// MetricCounts holds the accumulated interaction counters for one product.
type MetricCounts struct {
	View      int64 `json:"view"`
	Search    int64 `json:"search"`
	AddToCart int64 `json:"add_to_cart"`
	Purchase  int64 `json:"purchase"`
	Share     int64 `json:"share"`
}

// TrendingProduct is one entry of a ranked trending list. Rank is 1-based
// and recomputed fresh on every trending query.
type TrendingProduct struct {
	ProductID  string         `json:"product_id"`
	Rank       int            `json:"rank"`
	TrendScore float64        `json:"trend_score"`
	Period     TrendingPeriod `json:"period"`
	Metrics    MetricCounts   `json:"metrics"`
	Momentum   float64        `json:"momentum"`
	Timestamp  time.Time      `json:"timestamp"`
}

// HotItem flags a product whose momentum and purchase volume qualify it as
// hot. The estimated peak is a heuristic projection, not a forecast.
type HotItem struct {
	ProductID     string    `json:"product_id"`
	Rank          int       `json:"rank"`
	TrendScore    float64   `json:"trend_score"`
	Momentum      float64   `json:"momentum"`
	PurchaseCount int64     `json:"purchase_count"`
	Confidence    float64   `json:"confidence"`
	EstimatedPeak time.Time `json:"estimated_peak"`
	FlaggedAt     time.Time `json:"flagged_at"`
}
