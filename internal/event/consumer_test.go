package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeInvalidator struct {
	tenants []string
}

func (f *fakeInvalidator) InvalidateTenantSearchCache(tenantID string) int {
	f.tenants = append(f.tenants, tenantID)
	return 1
}

type recordedMetric struct {
	productID string
	metric    domain.MetricType
	value     int64
}

type fakeRecorder struct {
	metrics []recordedMetric
}

func (f *fakeRecorder) RecordMetric(productID string, metric domain.MetricType, value int64) {
	f.metrics = append(f.metrics, recordedMetric{productID, metric, value})
}

func newEvent(t *testing.T, eventType string, data any) *kafka.Event {
	t.Helper()
	evt, err := kafka.NewEvent(eventType, "agg-1", "product", "product-service", data)
	require.NoError(t, err)
	return evt
}

func TestProductHandler_InvalidatesTenant(t *testing.T) {
	inv := &fakeInvalidator{}
	handle := ProductHandler(inv, newTestLogger())

	evt := newEvent(t, "product.updated", map[string]string{
		"id":        "p1",
		"tenant_id": "t1",
	})

	require.NoError(t, handle(context.Background(), evt))
	assert.Equal(t, []string{"t1"}, inv.tenants)
}

func TestProductHandler_MissingTenantFails(t *testing.T) {
	inv := &fakeInvalidator{}
	handle := ProductHandler(inv, newTestLogger())

	evt := newEvent(t, "product.created", map[string]string{"id": "p1"})

	assert.Error(t, handle(context.Background(), evt))
	assert.Empty(t, inv.tenants)
}

func TestInteractionHandler_RecordsMetric(t *testing.T) {
	rec := &fakeRecorder{}
	handle := InteractionHandler(rec, newTestLogger())

	evt := newEvent(t, "interaction.recorded", map[string]any{
		"product_id":  "p1",
		"metric_type": "purchase",
		"value":       3,
	})

	require.NoError(t, handle(context.Background(), evt))
	require.Len(t, rec.metrics, 1)
	assert.Equal(t, recordedMetric{"p1", domain.MetricPurchase, 3}, rec.metrics[0])
}

func TestInteractionHandler_DefaultsValueToOne(t *testing.T) {
	rec := &fakeRecorder{}
	handle := InteractionHandler(rec, newTestLogger())

	evt := newEvent(t, "interaction.recorded", map[string]any{
		"product_id":  "p1",
		"metric_type": "view",
	})

	require.NoError(t, handle(context.Background(), evt))
	require.Len(t, rec.metrics, 1)
	assert.Equal(t, int64(1), rec.metrics[0].value)
}

func TestInteractionHandler_SkipsUnknownMetric(t *testing.T) {
	rec := &fakeRecorder{}
	handle := InteractionHandler(rec, newTestLogger())

	evt := newEvent(t, "interaction.recorded", map[string]any{
		"product_id":  "p1",
		"metric_type": "teleport",
	})

	// Unknown metrics are skipped without error so the message is not retried.
	require.NoError(t, handle(context.Background(), evt))
	assert.Empty(t, rec.metrics)
}
