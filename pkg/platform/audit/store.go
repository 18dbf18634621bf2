package audit

import (
	"context"

	id "ardhi/pkg/domain"
)

// Store persists emitted events. Implementations: in-memory (tests, dev),
// Postgres (durable log queried by the dashboard's history views).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByParcel(ctx context.Context, parcelID id.ParcelID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives events for fire-and-forget delivery to external consumers
// (Kafka topic feeding the notification service). Sink failures never fail the
// emitting operation.
type Sink interface {
	Emit(ctx context.Context, event Event) error
	Close()
}
