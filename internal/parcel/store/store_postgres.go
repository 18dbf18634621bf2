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
	"ardhi/internal/parcel/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
	txcontext "ardhi/pkg/platform/tx"
)

// PostgresStore persists parcels in PostgreSQL. Structured sub-documents
// (history, stage records, encumbrances) are stored as JSONB; everything the
// registry filters on is a plain column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const parcelColumns = `
	id, title_number, lr_number,
	county, sub_county, constituency, ward,
	size_value, size_unit, zoning, land_use, market_value, description,
	encumbrances, has_disputes,
	owner_id, owner_name, transfer_history,
	approval_status, county_approval, nlc_approval,
	status, is_fraudulent, fraud_reason, flagged_by, flagged_at,
	archived, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, parcel *models.Parcel) error {
	const q = `
		INSERT INTO parcels (` + parcelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	encumbrances, history, countyRec, nlcRec, err := marshalParcelDocs(parcel)
	if err != nil {
		return err
	}

	_, err = s.executor(ctx).ExecContext(ctx, q,
		uuid.UUID(parcel.ID), parcel.TitleNumber, parcel.LRNumber,
		parcel.Location.County, parcel.Location.SubCounty, parcel.Location.Constituency, parcel.Location.Ward,
		parcel.Size.Value, parcel.Size.Unit, parcel.Zoning, parcel.LandUse, parcel.MarketValue, parcel.Description,
		encumbrances, parcel.HasDisputes,
		uuid.UUID(parcel.Owner), parcel.OwnerName, history,
		string(parcel.ApprovalStatus), countyRec, nlcRec,
		string(parcel.Status), parcel.IsFraudulent, parcel.FraudReason,
		nullUUID(uuid.UUID(parcel.FlaggedBy)), parcel.FlaggedAt,
		parcel.Archived, parcel.CreatedAt, parcel.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create parcel: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, parcelID id.ParcelID) (*models.Parcel, error) {
	const q = `SELECT ` + parcelColumns + ` FROM parcels WHERE id = $1`
	return scanParcel(s.executor(ctx).QueryRowContext(ctx, q, uuid.UUID(parcelID)))
}

func (s *PostgresStore) FindByTitleNumber(ctx context.Context, titleNumber string) (*models.Parcel, error) {
	const q = `SELECT ` + parcelColumns + ` FROM parcels WHERE title_number = $1`
	return scanParcel(s.executor(ctx).QueryRowContext(ctx, q, titleNumber))
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Parcel, error) {
	q := `SELECT ` + parcelColumns + ` FROM parcels WHERE archived = false`
	var args []any
	if filter.County != "" {
		args = append(args, filter.County)
		q += fmt.Sprintf(" AND county = $%d", len(args))
	}
	if !filter.Owner.IsNil() {
		args = append(args, uuid.UUID(filter.Owner))
		q += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.executor(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	defer rows.Close()

	var parcels []*models.Parcel
	for rows.Next() {
		parcel, err := scanParcelRow(rows)
		if err != nil {
			return nil, err
		}
		parcels = append(parcels, parcel)
	}
	return parcels, rows.Err()
}

// Execute locks the parcel row with SELECT ... FOR UPDATE, runs validate then
// mutate, and writes the result back. When the context does not already carry
// a transaction, a local one is opened so the lock spans both steps.
func (s *PostgresStore) Execute(ctx context.Context, parcelID id.ParcelID,
	validate func(*models.Parcel) error, mutate func(*models.Parcel)) (*models.Parcel, error) {

	if tx, ok := txcontext.From(ctx); ok {
		return s.executeIn(ctx, tx, parcelID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin parcel tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	parcel, err := s.executeIn(ctx, tx, parcelID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit parcel tx: %w", err)
	}
	return parcel, nil
}

func (s *PostgresStore) executeIn(ctx context.Context, tx *sql.Tx, parcelID id.ParcelID,
	validate func(*models.Parcel) error, mutate func(*models.Parcel)) (*models.Parcel, error) {

	const lockQ = `SELECT ` + parcelColumns + ` FROM parcels WHERE id = $1 FOR UPDATE`
	parcel, err := scanParcel(tx.QueryRowContext(ctx, lockQ, uuid.UUID(parcelID)))
	if err != nil {
		return nil, err
	}

	if err := validate(parcel); err != nil {
		return nil, err
	}
	mutate(parcel)

	encumbrances, history, countyRec, nlcRec, err := marshalParcelDocs(parcel)
	if err != nil {
		return nil, err
	}

	const updateQ = `
		UPDATE parcels SET
			encumbrances = $2, has_disputes = $3,
			owner_id = $4, owner_name = $5, transfer_history = $6,
			approval_status = $7, county_approval = $8, nlc_approval = $9,
			status = $10, is_fraudulent = $11, fraud_reason = $12,
			flagged_by = $13, flagged_at = $14,
			archived = $15, updated_at = $16
		WHERE id = $1`

	_, err = tx.ExecContext(ctx, updateQ,
		uuid.UUID(parcel.ID),
		encumbrances, parcel.HasDisputes,
		uuid.UUID(parcel.Owner), parcel.OwnerName, history,
		string(parcel.ApprovalStatus), countyRec, nlcRec,
		string(parcel.Status), parcel.IsFraudulent, parcel.FraudReason,
		nullUUID(uuid.UUID(parcel.FlaggedBy)), parcel.FlaggedAt,
		parcel.Archived, parcel.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update parcel: %w", err)
	}
	return parcel, nil
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

func scanParcel(row *sql.Row) (*models.Parcel, error) {
	parcel, err := scanParcelRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return parcel, err
}

func scanParcelRow(row rowScanner) (*models.Parcel, error) {
	var (
		parcel         models.Parcel
		rawID          uuid.UUID
		rawOwner       uuid.UUID
		encumbrances   []byte
		history        []byte
		countyRec      []byte
		nlcRec         []byte
		approvalStatus string
		status         string
		flaggedBy      uuid.NullUUID
		flaggedAt      sql.NullTime
	)
	err := row.Scan(
		&rawID, &parcel.TitleNumber, &parcel.LRNumber,
		&parcel.Location.County, &parcel.Location.SubCounty, &parcel.Location.Constituency, &parcel.Location.Ward,
		&parcel.Size.Value, &parcel.Size.Unit, &parcel.Zoning, &parcel.LandUse, &parcel.MarketValue, &parcel.Description,
		&encumbrances, &parcel.HasDisputes,
		&rawOwner, &parcel.OwnerName, &history,
		&approvalStatus, &countyRec, &nlcRec,
		&status, &parcel.IsFraudulent, &parcel.FraudReason, &flaggedBy, &flaggedAt,
		&parcel.Archived, &parcel.CreatedAt, &parcel.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan parcel: %w", err)
	}

	parcel.ID = id.ParcelID(rawID)
	parcel.Owner = id.UserID(rawOwner)
	parcel.ApprovalStatus = approval.Status(approvalStatus)
	parcel.Status = models.Status(status)
	parcel.FlaggedBy = id.UserID(flaggedBy.UUID)
	if flaggedAt.Valid {
		parcel.FlaggedAt = &flaggedAt.Time
	}
	if err := unmarshalDoc(encumbrances, &parcel.Encumbrances); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(history, &parcel.TransferHistory); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(countyRec, &parcel.CountyApproval); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(nlcRec, &parcel.NlcApproval); err != nil {
		return nil, err
	}
	return &parcel, nil
}

func marshalParcelDocs(parcel *models.Parcel) (encumbrances, history, countyRec, nlcRec []byte, err error) {
	if encumbrances, err = json.Marshal(parcel.Encumbrances); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal encumbrances: %w", err)
	}
	if history, err = json.Marshal(parcel.TransferHistory); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal transfer history: %w", err)
	}
	if countyRec, err = marshalDoc(parcel.CountyApproval); err != nil {
		return nil, nil, nil, nil, err
	}
	if nlcRec, err = marshalDoc(parcel.NlcApproval); err != nil {
		return nil, nil, nil, nil, err
	}
	return encumbrances, history, countyRec, nlcRec, nil
}

func marshalDoc(rec *approval.StageRecord) ([]byte, error) {
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

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
