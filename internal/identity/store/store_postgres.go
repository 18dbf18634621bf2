package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ardhi/internal/identity/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
	txcontext "ardhi/pkg/platform/tx"
)

// PostgresStore persists directory users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) querier(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `id, name, national_id, kra_pin, role, county, created_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (id, name, national_id, kra_pin, role, county, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.querier(ctx).ExecContext(ctx, q,
		uuid.UUID(user.ID), user.Name, user.NationalID, user.KraPin,
		string(user.Role), user.County, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.querier(ctx).QueryRowContext(ctx, q, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE national_id = $1`
	return s.scanUser(s.querier(ctx).QueryRowContext(ctx, q, nationalID))
}

func (s *PostgresStore) scanUser(row *sql.Row) (*models.User, error) {
	var (
		user   models.User
		rawID  uuid.UUID
		role   string
		county sql.NullString
	)
	err := row.Scan(&rawID, &user.Name, &user.NationalID, &user.KraPin, &role, &county, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.Role = models.Role(role)
	user.County = county.String
	return &user, nil
}
