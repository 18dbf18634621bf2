package models

import (
	"time"

	"ardhi/internal/approval"
	regionmodels "ardhi/internal/region/models"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
)

// Status is the parcel's transfer-lock state, orthogonal to approval status.
type Status string

const (
	StatusActive          Status = "active"
	StatusPendingTransfer Status = "pending_transfer"
	StatusTransferred     Status = "transferred"
	StatusDisputed        Status = "disputed"
)

// Size is a measured area with its unit.
type Size struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// TransferRecord is one entry in the parcel's append-only ownership history.
type TransferRecord struct {
	From id.UserID `json:"from"`
	To   id.UserID `json:"to"`
	Date time.Time `json:"date"`
}

// Parcel is the aggregate root for a registered unit of land.
//
// Invariants:
//   - TitleNumber and LRNumber are unique across the registry
//   - At most one transfer in a non-terminal state references the parcel;
//     Status == pending_transfer iff such a transfer exists
//   - TransferHistory is append-only
//   - A parcel with transfer history is never hard-deleted (archive only)
//
// OwnerName is a denormalized snapshot of the owner's name at the time of the
// last ownership change. It is not kept in sync with later directory edits.
type Parcel struct {
	ID          id.ParcelID `json:"id"`
	TitleNumber string      `json:"title_number"`
	LRNumber    string      `json:"lr_number"`

	Location regionmodels.Location `json:"location"`

	Size         Size     `json:"size"`
	Zoning       string   `json:"zoning,omitempty"`
	LandUse      string   `json:"land_use,omitempty"`
	MarketValue  float64  `json:"market_value,omitempty"`
	Description  string   `json:"description,omitempty"`
	Encumbrances []string `json:"encumbrances,omitempty"`
	HasDisputes  bool     `json:"has_disputes"`

	Owner           id.UserID        `json:"owner"`
	OwnerName       string           `json:"owner_name"`
	TransferHistory []TransferRecord `json:"transfer_history,omitempty"`

	ApprovalStatus approval.Status       `json:"approval_status"`
	CountyApproval *approval.StageRecord `json:"county_approval,omitempty"`
	NlcApproval    *approval.StageRecord `json:"nlc_approval,omitempty"`

	Status Status `json:"status"`

	IsFraudulent bool       `json:"is_fraudulent"`
	FraudReason  string     `json:"fraud_reason,omitempty"`
	FlaggedBy    id.UserID  `json:"flagged_by,omitempty"`
	FlaggedAt    *time.Time `json:"flagged_at,omitempty"`

	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewParcel constructs a parcel entering the registration pipeline.
func NewParcel(parcelID id.ParcelID, titleNumber, lrNumber string, loc regionmodels.Location,
	owner id.UserID, ownerName string, now time.Time) (*Parcel, error) {
	if titleNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title number is required")
	}
	if lrNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "lr number is required")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	return &Parcel{
		ID:             parcelID,
		TitleNumber:    titleNumber,
		LRNumber:       lrNumber,
		Location:       loc,
		Owner:          owner,
		OwnerName:      ownerName,
		ApprovalStatus: approval.StatusPendingCounty,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsTransferable reports whether the parcel may be the subject of a new
// transfer: fully approved, unlocked, and not archived. The fraud flag is an
// overlay consulted by verifiers, not a hard gate here.
func (p *Parcel) IsTransferable() bool {
	return p.ApprovalStatus == approval.StatusApproved &&
		p.Status == StatusActive &&
		!p.Archived
}

// CanLock checks that a transfer lock may be taken.
func (p *Parcel) CanLock() error {
	if !p.IsTransferable() {
		return dErrors.New(dErrors.CodeInvalidState, "parcel is not eligible for transfer")
	}
	return nil
}

// ApplyLock marks the parcel as the subject of an active transfer.
func (p *Parcel) ApplyLock(now time.Time) {
	p.Status = StatusPendingTransfer
	p.UpdatedAt = now
}

// ApplyRelease clears the transfer lock after a rejected, cancelled, or
// stopped transfer.
func (p *Parcel) ApplyRelease(now time.Time) {
	p.Status = StatusActive
	p.UpdatedAt = now
}

// CanTransferOwnership validates the ownership flip preconditions: the parcel
// must be locked by an active transfer and still owned by the seller.
func (p *Parcel) CanTransferOwnership(from id.UserID) error {
	if p.Status != StatusPendingTransfer {
		return dErrors.New(dErrors.CodeInvalidState, "parcel has no active transfer")
	}
	if p.Owner != from {
		return dErrors.New(dErrors.CodeInvalidState, "parcel is no longer owned by the seller")
	}
	return nil
}

// ApplyOwnershipTransfer appends the history entry, flips the owner, and
// releases the transfer lock in one mutation. Callers run it atomically with
// the transfer's completed transition.
func (p *Parcel) ApplyOwnershipTransfer(to id.UserID, toName string, now time.Time) {
	p.TransferHistory = append(p.TransferHistory, TransferRecord{From: p.Owner, To: to, Date: now})
	p.Owner = to
	p.OwnerName = toName
	p.Status = StatusActive
	p.UpdatedAt = now
}

// ApplyApprovalDecision stores a stage decision and the resulting status.
func (p *Parcel) ApplyApprovalDecision(stage approval.Stage, next approval.Status, rec *approval.StageRecord) {
	p.ApprovalStatus = next
	switch stage {
	case approval.StageCounty:
		p.CountyApproval = rec
	case approval.StageNlc:
		p.NlcApproval = rec
	}
	p.UpdatedAt = rec.DecidedAt
}

// CanFlagFraud checks the fraud overlay may be set.
func (p *Parcel) CanFlagFraud() error {
	if p.IsFraudulent {
		return dErrors.New(dErrors.CodeInvalidState, "parcel is already flagged as fraudulent")
	}
	return nil
}

// ApplyFraudFlag sets the fraud overlay. It does not change Status or
// ApprovalStatus; verification surfaces consult the flag.
func (p *Parcel) ApplyFraudFlag(by id.UserID, reason string, now time.Time) {
	p.IsFraudulent = true
	p.FraudReason = reason
	p.FlaggedBy = by
	p.FlaggedAt = &now
	p.UpdatedAt = now
}

// CanClearFraud checks the fraud overlay may be cleared.
func (p *Parcel) CanClearFraud() error {
	if !p.IsFraudulent {
		return dErrors.New(dErrors.CodeInvalidState, "parcel is not flagged as fraudulent")
	}
	return nil
}

// ApplyFraudClear removes the fraud overlay, recording the resolution.
func (p *Parcel) ApplyFraudClear(resolution string, now time.Time) {
	p.IsFraudulent = false
	p.FraudReason = resolution
	p.FlaggedBy = id.UserID{}
	p.FlaggedAt = nil
	p.UpdatedAt = now
}

// CanArchive enforces the soft-disable rule: a parcel mid-transfer cannot be
// archived.
func (p *Parcel) CanArchive() error {
	if p.Status == StatusPendingTransfer {
		return dErrors.New(dErrors.CodeInvalidState, "parcel has an active transfer")
	}
	if p.Archived {
		return dErrors.New(dErrors.CodeInvalidState, "parcel is already archived")
	}
	return nil
}

// ApplyArchive soft-disables the parcel.
func (p *Parcel) ApplyArchive(now time.Time) {
	p.Archived = true
	p.UpdatedAt = now
}
