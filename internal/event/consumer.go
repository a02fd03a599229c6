package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/pkg/kafka"
)

// Topics consumed by the search service.
var (
	TopicProductCreated      = kafka.Topic("product", "created")
	TopicProductUpdated      = kafka.Topic("product", "updated")
	TopicProductDeleted      = kafka.Topic("product", "deleted")
	TopicInteractionRecorded = kafka.Topic("interaction", "recorded")
)

// GroupID identifies this service's consumer group.
const GroupID = "search-service"

// CacheInvalidator drops cached searches for a tenant whose catalog changed.
type CacheInvalidator interface {
	InvalidateTenantSearchCache(tenantID string) int
}

// InteractionRecorder feeds interaction events into the trending tracker.
type InteractionRecorder interface {
	RecordMetric(productID string, metric domain.MetricType, value int64)
}

// productEvent is the payload of product lifecycle events.
type productEvent struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
}

// interactionEvent is the payload of interaction events.
type interactionEvent struct {
	ProductID  string `json:"product_id"`
	MetricType string `json:"metric_type"`
	Value      int64  `json:"value"`
}

// ProductHandler returns a handler that invalidates the tenant's cached
// searches whenever one of its products changes. Stale results for a changed
// catalog must not outlive the event.
func ProductHandler(invalidator CacheInvalidator, logger *slog.Logger) kafka.Handler {
	return func(_ context.Context, evt *kafka.Event) error {
		var payload productEvent
		if err := evt.UnmarshalData(&payload); err != nil {
			return fmt.Errorf("unmarshal product event: %w", err)
		}
		if payload.TenantID == "" {
			return fmt.Errorf("product event %s missing tenant_id", evt.EventID)
		}

		removed := invalidator.InvalidateTenantSearchCache(payload.TenantID)
		logger.Debug("product event processed",
			slog.String("event_type", evt.EventType),
			slog.String("product_id", payload.ID),
			slog.String("tenant_id", payload.TenantID),
			slog.Int("cache_entries_removed", removed),
		)
		return nil
	}
}

// InteractionHandler returns a handler that records interaction events in the
// trending tracker. Unknown metric types are skipped, not retried.
func InteractionHandler(recorder InteractionRecorder, logger *slog.Logger) kafka.Handler {
	return func(_ context.Context, evt *kafka.Event) error {
		var payload interactionEvent
		if err := evt.UnmarshalData(&payload); err != nil {
			return fmt.Errorf("unmarshal interaction event: %w", err)
		}

		if !domain.IsValidMetricType(payload.MetricType) {
			logger.Warn("interaction event with unknown metric type skipped",
				slog.String("event_id", evt.EventID),
				slog.String("metric_type", payload.MetricType),
			)
			return nil
		}

		value := payload.Value
		if value <= 0 {
			value = 1
		}
		recorder.RecordMetric(payload.ProductID, domain.MetricType(payload.MetricType), value)
		return nil
	}
}

// NewConsumers builds the consumer set for the search service: one consumer
// per product lifecycle topic plus the interaction topic.
func NewConsumers(brokers []string, invalidator CacheInvalidator, recorder InteractionRecorder, logger *slog.Logger) []*kafka.Consumer {
	productHandler := ProductHandler(invalidator, logger)

	consumers := make([]*kafka.Consumer, 0, 4)
	for _, topic := range []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted} {
		consumers = append(consumers, kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: brokers,
			GroupID: GroupID,
			Topic:   topic,
		}, productHandler, logger))
	}

	consumers = append(consumers, kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: brokers,
		GroupID: GroupID,
		Topic:   TopicInteractionRecorded,
	}, InteractionHandler(recorder, logger), logger))

	return consumers
}
