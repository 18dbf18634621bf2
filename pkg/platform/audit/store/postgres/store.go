package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "ardhi/pkg/domain"
	audit "ardhi/pkg/platform/audit"
	txcontext "ardhi/pkg/platform/tx"
)

// Store persists events in the audit_events table. When the emitting operation
// runs inside a SQL transaction (via pkg/platform/tx) the event write joins it,
// so the durable log never records a transition that was rolled back.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	const q = `
		INSERT INTO audit_events
			(id, name, category, occurred_at, actor_id, parcel_id, transfer_id, county, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.executor(ctx).ExecContext(ctx, q,
		uuid.New(),
		string(event.Name),
		string(event.Name.Category()),
		event.Timestamp,
		nullUUID(uuid.UUID(event.ActorID)),
		nullUUID(uuid.UUID(event.ParcelID)),
		nullUUID(uuid.UUID(event.TransferID)),
		event.County,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByParcel(ctx context.Context, parcelID id.ParcelID) ([]audit.Event, error) {
	const q = `
		SELECT name, occurred_at, actor_id, parcel_id, transfer_id, county, reason, request_id
		FROM audit_events
		WHERE parcel_id = $1
		ORDER BY occurred_at`

	rows, err := s.executor(ctx).QueryContext(ctx, q, uuid.UUID(parcelID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const q = `
		SELECT name, occurred_at, actor_id, parcel_id, transfer_id, county, reason, request_id
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := s.executor(ctx).QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event      audit.Event
			name       string
			actorID    uuid.NullUUID
			parcelID   uuid.NullUUID
			transferID uuid.NullUUID
		)
		if err := rows.Scan(&name, &event.Timestamp, &actorID, &parcelID, &transferID,
			&event.County, &event.Reason, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Name = audit.EventName(name)
		event.ActorID = id.UserID(actorID.UUID)
		event.ParcelID = id.ParcelID(parcelID.UUID)
		event.TransferID = id.TransferID(transferID.UUID)
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
