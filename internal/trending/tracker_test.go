package trending

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshopco/searchcore/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTracker(DefaultConfig(), logger, WithClock(func() time.Time { return testNow }))
}

func TestCalculateTrending_WeightedRanking(t *testing.T) {
	tr := newTestTracker()

	// p1: 10 views = 10. p2: 1 purchase = 5 plus 2 views = 7.
	tr.RecordMetric("p1", domain.MetricView, 10)
	tr.RecordMetric("p2", domain.MetricPurchase, 1)
	tr.RecordMetric("p2", domain.MetricView, 2)

	list := tr.CalculateTrending(domain.PeriodDay)
	require.Len(t, list, 2)

	assert.Equal(t, "p1", list[0].ProductID)
	assert.Equal(t, 1, list[0].Rank)
	assert.InDelta(t, 10, list[0].TrendScore, 1e-9)

	assert.Equal(t, "p2", list[1].ProductID)
	assert.Equal(t, 2, list[1].Rank)
	assert.InDelta(t, 7, list[1].TrendScore, 1e-9)
	assert.Equal(t, domain.PeriodDay, list[1].Period)
}

func TestCalculateTrending_PurchaseOutweighsView(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("viewed", domain.MetricView, 4)
	tr.RecordMetric("bought", domain.MetricPurchase, 1)

	list := tr.CalculateTrending(domain.PeriodHour)
	require.Len(t, list, 2)
	assert.Equal(t, "bought", list[0].ProductID)
}

func TestCalculateTrending_TiesKeepFirstSeenOrder(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("first", domain.MetricView, 3)
	tr.RecordMetric("second", domain.MetricView, 3)

	list := tr.CalculateTrending(domain.PeriodDay)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].ProductID)
	assert.Equal(t, "second", list[1].ProductID)
}

func TestCalculateTrending_PurchasesNeverLowerRank(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricView, 20)
	tr.RecordMetric("p2", domain.MetricView, 5)

	before := tr.CalculateTrending(domain.PeriodDay)
	require.Equal(t, "p2", before[1].ProductID)
	rankBefore := before[1].Rank
	scoreBefore := before[1].TrendScore

	tr.RecordMetric("p2", domain.MetricPurchase, 10)

	after := tr.CalculateTrending(domain.PeriodDay)
	var p2 domain.TrendingProduct
	for _, e := range after {
		if e.ProductID == "p2" {
			p2 = e
		}
	}

	assert.Greater(t, p2.TrendScore, scoreBefore)
	assert.LessOrEqual(t, p2.Rank, rankBefore)
}

func TestMomentum_FirstWindowIsFull(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricView, 5)

	list := tr.CalculateTrending(domain.PeriodDay)
	require.Len(t, list, 1)
	assert.InDelta(t, 1, list[0].Momentum, 1e-9)
}

func TestMomentum_ClampedAfterRollover(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricView, 2)
	tr.ResetMetrics(domain.PeriodDay)

	// Current window is a 50x spike; momentum must still clamp at 1.
	tr.RecordMetric("p1", domain.MetricView, 100)

	list := tr.CalculateTrending(domain.PeriodDay)
	require.Len(t, list, 1)
	assert.InDelta(t, 1, list[0].Momentum, 1e-9)
}

func TestMomentum_NegativeWhenActivityDrops(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricView, 10)
	tr.ResetMetrics(domain.PeriodDay)
	tr.RecordMetric("p1", domain.MetricView, 5)

	list := tr.CalculateTrending(domain.PeriodDay)
	require.Len(t, list, 1)
	assert.InDelta(t, -0.5, list[0].Momentum, 1e-9)
}

func TestGetHotItems_FlagsQualifyingProducts(t *testing.T) {
	tr := newTestTracker()

	// Momentum 1 (no baseline), 5 purchases, rank 1.
	tr.RecordMetric("hot", domain.MetricPurchase, 5)

	// High score but no purchases, so never hot.
	tr.RecordMetric("cold", domain.MetricView, 100)

	tr.CalculateTrending(domain.PeriodDay)

	items := tr.GetHotItems(10)
	require.Len(t, items, 1)
	assert.Equal(t, "hot", items[0].ProductID)
	assert.Equal(t, int64(5), items[0].PurchaseCount)
	assert.InDelta(t, 1, items[0].Confidence, 1e-9)
	assert.Equal(t, testNow.Add(24*time.Hour), items[0].EstimatedPeak)
	assert.Equal(t, testNow, items[0].FlaggedAt)
}

func TestGetHotItems_EmptyBeforeCalculation(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricPurchase, 10)

	assert.Empty(t, tr.GetHotItems(10))
}

func TestResetMetrics_ClearsHotFlags(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("p1", domain.MetricPurchase, 5)
	tr.CalculateTrending(domain.PeriodDay)
	require.NotEmpty(t, tr.GetHotItems(10))

	tr.ResetMetrics(domain.PeriodDay)

	assert.Empty(t, tr.GetHotItems(10))
}

func TestRecordMetric_IgnoresInvalidInput(t *testing.T) {
	tr := newTestTracker()

	tr.RecordMetric("", domain.MetricView, 1)
	tr.RecordMetric("p1", domain.MetricView, 0)
	tr.RecordMetric("p1", domain.MetricView, -3)

	assert.Empty(t, tr.CalculateTrending(domain.PeriodDay))
}
