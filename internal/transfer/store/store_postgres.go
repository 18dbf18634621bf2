package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ardhi/internal/approval"
	"ardhi/internal/transfer/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
	txcontext "ardhi/pkg/platform/tx"
)

// PostgresStore persists transfers in PostgreSQL. The partial unique index on
// parcel_id over non-terminal rows enforces the one-active-transfer-per-parcel
// invariant; a losing concurrent insert surfaces ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const transferColumns = `
	id, number, parcel_id, county,
	seller_id, seller_name,
	buyer_id, buyer_name, buyer_national_id, buyer_kra_pin,
	agreed_price, status,
	recipient_review, county_verification, nlc_approval, rejection_reason,
	timeline, completed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, transfer *models.Transfer) error {
	const q = `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	review, countyRec, nlcRec, timeline, err := marshalTransferDocs(transfer)
	if err != nil {
		return err
	}

	_, err = s.executor(ctx).ExecContext(ctx, q,
		uuid.UUID(transfer.ID), transfer.Number, uuid.UUID(transfer.ParcelID), transfer.County,
		uuid.UUID(transfer.Seller), transfer.SellerName,
		uuid.UUID(transfer.Buyer), transfer.BuyerName, transfer.BuyerNationalID, transfer.BuyerKraPin,
		transfer.AgreedPrice, string(transfer.Status),
		review, countyRec, nlcRec, transfer.RejectionReason,
		timeline, transfer.CompletedAt, transfer.CreatedAt, transfer.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, transferID id.TransferID) (*models.Transfer, error) {
	const q = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return scanTransfer(s.executor(ctx).QueryRowContext(ctx, q, uuid.UUID(transferID)))
}

// FindActiveByParcel returns the non-terminal transfer on a parcel, if any.
func (s *PostgresStore) FindActiveByParcel(ctx context.Context, parcelID id.ParcelID) (*models.Transfer, error) {
	const q = `SELECT ` + transferColumns + ` FROM transfers
		WHERE parcel_id = $1
		AND status NOT IN ('rejected', 'county_rejected', 'cancelled', 'completed')`
	return scanTransfer(s.executor(ctx).QueryRowContext(ctx, q, uuid.UUID(parcelID)))
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Transfer, error) {
	q := `SELECT ` + transferColumns + ` FROM transfers WHERE true`
	var args []any
	if !filter.ParcelID.IsNil() {
		args = append(args, uuid.UUID(filter.ParcelID))
		q += fmt.Sprintf(" AND parcel_id = $%d", len(args))
	}
	if filter.County != "" {
		args = append(args, filter.County)
		q += fmt.Sprintf(" AND county = $%d", len(args))
	}
	if !filter.Party.IsNil() {
		args = append(args, uuid.UUID(filter.Party))
		q += fmt.Sprintf(" AND (seller_id = $%d OR buyer_id = $%d)", len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.executor(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransferRow(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}

// Execute locks the transfer row with SELECT ... FOR UPDATE, runs validate
// then mutate, and writes the result back. When the context already carries a
// transaction (completion runs the ownership flip in the same one), the lock
// joins it.
func (s *PostgresStore) Execute(ctx context.Context, transferID id.TransferID,
	validate func(*models.Transfer) error, mutate func(*models.Transfer) error) (*models.Transfer, error) {

	if tx, ok := txcontext.From(ctx); ok {
		return s.executeIn(ctx, tx, transferID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	transfer, err := s.executeIn(ctx, tx, transferID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer tx: %w", err)
	}
	return transfer, nil
}

func (s *PostgresStore) executeIn(ctx context.Context, tx *sql.Tx, transferID id.TransferID,
	validate func(*models.Transfer) error, mutate func(*models.Transfer) error) (*models.Transfer, error) {

	const lockQ = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	transfer, err := scanTransfer(tx.QueryRowContext(ctx, lockQ, uuid.UUID(transferID)))
	if err != nil {
		return nil, err
	}

	if err := validate(transfer); err != nil {
		return nil, err
	}
	if err := mutate(transfer); err != nil {
		return nil, err
	}

	review, countyRec, nlcRec, timeline, err := marshalTransferDocs(transfer)
	if err != nil {
		return nil, err
	}

	const updateQ = `
		UPDATE transfers SET
			status = $2,
			recipient_review = $3, county_verification = $4, nlc_approval = $5,
			rejection_reason = $6, timeline = $7, completed_at = $8, updated_at = $9
		WHERE id = $1`

	_, err = tx.ExecContext(ctx, updateQ,
		uuid.UUID(transfer.ID), string(transfer.Status),
		review, countyRec, nlcRec,
		transfer.RejectionReason, timeline, transfer.CompletedAt, transfer.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update transfer: %w", err)
	}
	return transfer, nil
}

func (s *PostgresStore) executor(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row *sql.Row) (*models.Transfer, error) {
	transfer, err := scanTransferRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return transfer, err
}

func scanTransferRow(row rowScanner) (*models.Transfer, error) {
	var (
		transfer    models.Transfer
		rawID       uuid.UUID
		rawParcel   uuid.UUID
		rawSeller   uuid.UUID
		rawBuyer    uuid.UUID
		status      string
		review      []byte
		countyRec   []byte
		nlcRec      []byte
		timeline    []byte
		completedAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &transfer.Number, &rawParcel, &transfer.County,
		&rawSeller, &transfer.SellerName,
		&rawBuyer, &transfer.BuyerName, &transfer.BuyerNationalID, &transfer.BuyerKraPin,
		&transfer.AgreedPrice, &status,
		&review, &countyRec, &nlcRec, &transfer.RejectionReason,
		&timeline, &completedAt, &transfer.CreatedAt, &transfer.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan transfer: %w", err)
	}

	transfer.ID = id.TransferID(rawID)
	transfer.ParcelID = id.ParcelID(rawParcel)
	transfer.Seller = id.UserID(rawSeller)
	transfer.Buyer = id.UserID(rawBuyer)
	transfer.Status = models.Status(status)
	if completedAt.Valid {
		transfer.CompletedAt = &completedAt.Time
	}
	if err := unmarshalDoc(review, &transfer.RecipientReview); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(countyRec, &transfer.CountyVerification); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(nlcRec, &transfer.NlcApproval); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(timeline, &transfer.Timeline); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func marshalTransferDocs(t *models.Transfer) (review, countyRec, nlcRec, timeline []byte, err error) {
	if t.RecipientReview != nil {
		if review, err = json.Marshal(t.RecipientReview); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal recipient review: %w", err)
		}
	}
	if countyRec, err = marshalStageRecord(t.CountyVerification); err != nil {
		return nil, nil, nil, nil, err
	}
	if nlcRec, err = marshalStageRecord(t.NlcApproval); err != nil {
		return nil, nil, nil, nil, err
	}
	if timeline, err = json.Marshal(t.Timeline); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal timeline: %w", err)
	}
	return review, countyRec, nlcRec, timeline, nil
}

func marshalStageRecord(rec *approval.StageRecord) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal stage record: %w", err)
	}
	return raw, nil
}

func unmarshalDoc(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
