// Package service implements the transfer workflow engine: the multi-party
// state machine that moves a parcel from seller to buyer through recipient
// acceptance, county verification, and national-commission approval.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"ardhi/internal/approval"
	identitymodels "ardhi/internal/identity/models"
	parcelmodels "ardhi/internal/parcel/models"
	transfermetrics "ardhi/internal/transfer/metrics"
	"ardhi/internal/transfer/models"
	"ardhi/internal/transfer/store"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/platform/audit"
	"ardhi/pkg/platform/sentinel"
	"ardhi/pkg/requestcontext"
)

var tracer = otel.Tracer("ardhi/transfer")

// Store abstracts transfer persistence. Create enforces the one active
// transfer per parcel invariant and returns sentinel.ErrConflict to the loser.
type Store interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	FindByID(ctx context.Context, transferID id.TransferID) (*models.Transfer, error)
	FindActiveByParcel(ctx context.Context, parcelID id.ParcelID) (*models.Transfer, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Transfer, error)
	Execute(ctx context.Context, transferID id.TransferID,
		validate func(*models.Transfer) error, mutate func(*models.Transfer) error) (*models.Transfer, error)
}

// ParcelRegistry is the engine's view of the parcel service: the transfer
// lock, the ownership flip on completion, and the fraud overlay for stops.
type ParcelRegistry interface {
	GetParcel(ctx context.Context, parcelID id.ParcelID) (*parcelmodels.Parcel, error)
	Lock(ctx context.Context, parcelID id.ParcelID) (*parcelmodels.Parcel, error)
	Release(ctx context.Context, parcelID id.ParcelID) error
	TransferOwnership(ctx context.Context, parcelID id.ParcelID, from, to id.UserID, toName string) (*parcelmodels.Parcel, error)
	FlagFraud(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, reason string) (*parcelmodels.Parcel, error)
}

// Directory resolves transfer counterparties by national ID.
type Directory interface {
	ResolveByNationalID(ctx context.Context, nationalID string) (*identitymodels.User, error)
}

// Emitter receives domain events; emission is best-effort.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the transfer state machine.
type Service struct {
	transfers Store
	parcels   ParcelRegistry
	directory Directory
	tx        StoreTx
	node      *snowflake.Node
	emitter   Emitter
	metrics   *transfermetrics.Metrics
	logger    *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithEmitter(emitter Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

func WithMetrics(m *transfermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(transfers Store, parcels ParcelRegistry, directory Directory,
	tx StoreTx, node *snowflake.Node, opts ...Option) *Service {
	s := &Service{
		transfers: transfers,
		parcels:   parcels,
		directory: directory,
		tx:        tx,
		node:      node,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateInput carries the seller's transfer request. Buyer identity fields
// are claims to be verified against the directory, never trusted as-is.
type InitiateInput struct {
	ParcelID        id.ParcelID
	BuyerNationalID string
	BuyerKraPin     string
	BuyerName       string
	AgreedPrice     float64
}

// Initiate creates a transfer in pending_recipient_review and locks the
// parcel. The buyer must resolve to a registered account whose KRA PIN matches
// the seller's claim; free-text buyer identity is never accepted.
func (s *Service) Initiate(ctx context.Context, seller *identitymodels.User, input InitiateInput) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.initiate")
	defer span.End()

	parcel, err := s.parcels.GetParcel(ctx, input.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.Owner != seller.ID {
		return nil, dErrors.New(dErrors.CodeAuthorization, "only the parcel owner may initiate a transfer")
	}
	if !parcel.IsTransferable() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "parcel is not eligible for transfer")
	}

	buyer, err := s.directory.ResolveByNationalID(ctx, input.BuyerNationalID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "buyer must be a registered user")
		}
		return nil, err
	}
	if buyer.KraPin != input.BuyerKraPin {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer KRA PIN does not match the registered account")
	}
	if buyer.ID == seller.ID {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer and seller must be different users")
	}

	now := requestcontext.Now(ctx)
	transfer := models.NewTransfer(
		id.TransferID(uuid.New()), s.transferNumber(),
		parcel.ID, parcel.Location.County,
		seller.ID, seller.Name,
		buyer.ID, buyer.Name, buyer.NationalID, buyer.KraPin,
		input.AgreedPrice, now,
	)

	// The parcel lock is the serialization point: of two concurrent
	// initiations exactly one takes the lock, so Create cannot conflict once
	// the lock is held. The pre-check keeps the in-memory path consistent too.
	err = s.tx.RunInTx(ctx, parcel.ID.String(), func(ctx context.Context) error {
		if _, err := s.transfers.FindActiveByParcel(ctx, parcel.ID); err == nil {
			return dErrors.New(dErrors.CodeInvalidState, "parcel already has an active transfer")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active transfers")
		}
		if _, err := s.parcels.Lock(ctx, parcel.ID); err != nil {
			return err
		}
		if err := s.transfers.Create(ctx, transfer); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeInvalidState, "parcel already has an active transfer")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Name:       audit.EventTransferInitiated,
		ActorID:    seller.ID,
		ParcelID:   parcel.ID,
		TransferID: transfer.ID,
		County:     transfer.County,
	})
	if s.metrics != nil {
		s.metrics.IncrementInitiated()
	}
	return transfer, nil
}

// Accept records the buyer's acceptance and moves the transfer to county
// verification. The parcel stays locked.
func (s *Service) Accept(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, remarks string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.accept")
	defer span.End()

	now := requestcontext.Now(ctx)
	transfer, err := s.transfers.Execute(ctx, transferID,
		func(t *models.Transfer) error { return t.CanRecipientReview(actor.ID) },
		func(t *models.Transfer) error { return t.ApplyAccept(actor.ID, remarks, now) },
	)
	if err != nil {
		return nil, translateTransferErr(err)
	}

	s.emitTransition(ctx, audit.EventTransferAccepted, transfer, actor.ID, "")
	s.observe(models.ActionAccepted)
	return transfer, nil
}

// Reject records the buyer's rejection and releases the parcel lock.
func (s *Service) Reject(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, reason string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.reject")
	defer span.End()

	current, err := s.load(ctx, transferID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var transfer *models.Transfer
	err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
		transfer, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanRecipientReview(actor.ID) },
			func(t *models.Transfer) error { return t.ApplyReject(actor.ID, reason, now) },
		)
		if err != nil {
			return translateTransferErr(err)
		}
		return s.parcels.Release(ctx, transfer.ParcelID)
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, audit.EventTransferRejected, transfer, actor.ID, reason)
	s.observe(models.ActionRejected)
	return transfer, nil
}

// CountyVerify records the county admin's decision. Verification moves the
// transfer to NLC review; rejection is terminal and releases the parcel lock.
func (s *Service) CountyVerify(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, d approval.Decision) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.county_verify")
	defer span.End()

	current, err := s.load(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !actor.IsCountyAdminFor(current.County) {
		return nil, dErrors.New(dErrors.CodeAuthorization, "county verification requires the county admin for "+current.County)
	}

	now := requestcontext.Now(ctx)
	rec := approval.NewStageRecord(d, actor.ID, now)

	if d.Approved {
		transfer, err := s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanCountyVerify() },
			func(t *models.Transfer) error { return t.ApplyCountyVerification(rec, now) },
		)
		if err != nil {
			return nil, translateTransferErr(err)
		}
		s.emitTransition(ctx, audit.EventTransferCountyVerified, transfer, actor.ID, "")
		s.observe(models.ActionCountyVerified)
		return transfer, nil
	}

	var transfer *models.Transfer
	err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
		transfer, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanCountyVerify() },
			func(t *models.Transfer) error { return t.ApplyCountyVerification(rec, now) },
		)
		if err != nil {
			return translateTransferErr(err)
		}
		return s.parcels.Release(ctx, transfer.ParcelID)
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, audit.EventTransferRejected, transfer, actor.ID, d.Remarks)
	s.observe(models.ActionCountyRejected)
	return transfer, nil
}

// NlcApprove records the final national-commission decision. Approval
// completes the transfer and flips parcel ownership in the same transaction;
// rejection is terminal and releases the parcel lock.
func (s *Service) NlcApprove(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, d approval.Decision) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.nlc_approve")
	defer span.End()

	current, err := s.load(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !actor.HasNationalRole() {
		return nil, dErrors.New(dErrors.CodeAuthorization, "nlc approval requires a national commission admin")
	}

	now := requestcontext.Now(ctx)
	rec := approval.NewStageRecord(d, actor.ID, now)
	var transfer *models.Transfer

	if d.Approved {
		// Ownership flip before the transfer transition: both are validated
		// up front under the parcel serialization key, and the database
		// transaction makes the pair atomic.
		err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
			cur, err := s.transfers.FindByID(ctx, transferID)
			if err != nil {
				return translateTransferErr(err)
			}
			if err := cur.CanNlcDecide(); err != nil {
				return err
			}
			if _, err := s.parcels.TransferOwnership(ctx, cur.ParcelID, cur.Seller, cur.Buyer, cur.BuyerName); err != nil {
				return err
			}
			transfer, err = s.transfers.Execute(ctx, transferID,
				func(t *models.Transfer) error { return t.CanNlcDecide() },
				func(t *models.Transfer) error { return t.ApplyNlcApproval(rec, now) },
			)
			return translateTransferErr(err)
		})
		if err != nil {
			return nil, err
		}
		s.emitTransition(ctx, audit.EventTransferCompleted, transfer, actor.ID, "")
		s.observe(models.ActionNlcApproved)
		return transfer, nil
	}

	err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
		transfer, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanNlcDecide() },
			func(t *models.Transfer) error { return t.ApplyNlcApproval(rec, now) },
		)
		if err != nil {
			return translateTransferErr(err)
		}
		return s.parcels.Release(ctx, transfer.ParcelID)
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, audit.EventTransferRejected, transfer, actor.ID, d.Remarks)
	s.observe(models.ActionNlcRejected)
	return transfer, nil
}

// Cancel ends a non-terminal transfer. The seller or an admin with
// jurisdiction over the parcel's county may cancel.
func (s *Service) Cancel(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, reason string) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.cancel")
	defer span.End()

	current, err := s.load(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.Seller && !actor.IsCountyAdminFor(current.County) {
		return nil, dErrors.New(dErrors.CodeAuthorization, "only the seller or an admin with jurisdiction may cancel")
	}

	now := requestcontext.Now(ctx)
	var transfer *models.Transfer
	err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
		transfer, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanCancel() },
			func(t *models.Transfer) error { return t.ApplyCancel(actor.ID, reason, now) },
		)
		if err != nil {
			return translateTransferErr(err)
		}
		return s.parcels.Release(ctx, transfer.ParcelID)
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, audit.EventTransferCancelled, transfer, actor.ID, reason)
	s.observe(models.ActionCancelled)
	return transfer, nil
}

// StopInput carries the county admin's emergency override.
type StopInput struct {
	Reason       string
	IsFraudulent bool
}

// Stop is the county-admin force-stop: ends the transfer like a cancel and
// optionally flags the parcel as fraudulent.
func (s *Service) Stop(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, input StopInput) (*models.Transfer, error) {
	ctx, span := tracer.Start(ctx, "transfer.stop")
	defer span.End()

	current, err := s.load(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !actor.IsCountyAdminFor(current.County) {
		return nil, dErrors.New(dErrors.CodeAuthorization, "only the county admin may stop this transfer")
	}

	now := requestcontext.Now(ctx)
	var transfer *models.Transfer
	err = s.tx.RunInTx(ctx, current.ParcelID.String(), func(ctx context.Context) error {
		transfer, err = s.transfers.Execute(ctx, transferID,
			func(t *models.Transfer) error { return t.CanCancel() },
			func(t *models.Transfer) error { return t.ApplyStop(actor.ID, input.Reason, now) },
		)
		if err != nil {
			return translateTransferErr(err)
		}
		if err := s.parcels.Release(ctx, transfer.ParcelID); err != nil {
			return err
		}
		if input.IsFraudulent {
			if _, err := s.parcels.FlagFraud(ctx, transfer.ParcelID, actor, input.Reason); err != nil {
				// An already-flagged parcel does not abort the stop.
				if !dErrors.HasCode(err, dErrors.CodeInvalidState) {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, audit.EventTransferStopped, transfer, actor.ID, input.Reason)
	s.observe(models.ActionStopped)
	return transfer, nil
}

// GetTransfer loads a transfer by ID.
func (s *Service) GetTransfer(ctx context.Context, transferID id.TransferID) (*models.Transfer, error) {
	return s.load(ctx, transferID)
}

// ListTransfers returns transfers matching the filter.
func (s *Service) ListTransfers(ctx context.Context, filter store.Filter) ([]*models.Transfer, error) {
	transfers, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return transfers, nil
}

func (s *Service) load(ctx context.Context, transferID id.TransferID) (*models.Transfer, error) {
	transfer, err := s.transfers.FindByID(ctx, transferID)
	if err != nil {
		return nil, translateTransferErr(err)
	}
	return transfer, nil
}

func (s *Service) transferNumber() string {
	return fmt.Sprintf("TRF-%s", s.node.Generate())
}

func (s *Service) emitTransition(ctx context.Context, name audit.EventName, t *models.Transfer, actor id.UserID, reason string) {
	s.emit(ctx, audit.Event{
		Name:       name,
		ActorID:    actor,
		ParcelID:   t.ParcelID,
		TransferID: t.ID,
		County:     t.County,
		Reason:     reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.emitter == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.emitter.Emit(ctx, event); err != nil {
		// Notification is best-effort; the state transition stands.
		s.logger.WarnContext(ctx, "event emission failed",
			"event", string(event.Name),
			"transfer_id", event.TransferID.String(),
			"error", err,
		)
	}
}

func (s *Service) observe(action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action)
	}
}

func translateTransferErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "transfer not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeInvalidState, "parcel already has an active transfer")
	default:
		return err
	}
}
