// Package kafka delivers audit events to a Kafka topic for downstream
// consumers (notification service, reporting). Delivery is fire-and-forget;
// the workflow core never blocks on broker availability.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "ardhi/pkg/platform/audit"
)

// Sink produces JSON-encoded events to a single topic, keyed by parcel ID so
// consumers see per-parcel ordering.
type Sink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// record is the wire shape published to the topic.
type record struct {
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id,omitempty"`
	ParcelID   string    `json:"parcel_id,omitempty"`
	TransferID string    `json:"transfer_id,omitempty"`
	County     string    `json:"county,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// New connects to the brokers and ensures the topic exists.
func New(brokers []string, topic string, logger *slog.Logger) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 3, 1, nil, topic); err != nil {
		// Topic may already exist; anything else surfaces on first produce.
		logger.Debug("kafka topic creation skipped", "topic", topic, "error", err)
	}

	return &Sink{client: client, topic: topic, logger: logger}, nil
}

// Emit produces the event asynchronously. Produce failures are logged by the
// callback and never propagated to the workflow operation.
func (s *Sink) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Name:       string(event.Name),
		Category:   string(event.Name.Category()),
		OccurredAt: event.Timestamp,
		ActorID:    nonNilString(event.ActorID.IsNil(), event.ActorID.String()),
		ParcelID:   nonNilString(event.ParcelID.IsNil(), event.ParcelID.String()),
		TransferID: nonNilString(event.TransferID.IsNil(), event.TransferID.String()),
		County:     event.County,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	s.client.Produce(ctx, &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ParcelID.String()),
		Value: payload,
	}, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("kafka produce failed",
				"topic", s.topic,
				"event", string(event.Name),
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes outstanding produces and releases the client.
func (s *Sink) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Flush(ctx); err != nil {
		s.logger.Warn("kafka flush on close failed", "error", err)
	}
	s.client.Close()
}

func nonNilString(isNil bool, s string) string {
	if isNil {
		return ""
	}
	return s
}
