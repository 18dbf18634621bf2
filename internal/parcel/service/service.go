// Package service implements the parcel registry: parcel registration, the
// two-stage approval pipeline, the fraud overlay, and the controlled ownership
// mutation the transfer engine invokes on completion.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"ardhi/internal/approval"
	identitymodels "ardhi/internal/identity/models"
	parcelmetrics "ardhi/internal/parcel/metrics"
	"ardhi/internal/parcel/models"
	"ardhi/internal/parcel/store"
	regionmodels "ardhi/internal/region/models"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/platform/audit"
	"ardhi/pkg/platform/sentinel"
	pstrings "ardhi/pkg/platform/strings"
	"ardhi/pkg/requestcontext"
)

var tracer = otel.Tracer("ardhi/parcel")

// Store abstracts parcel persistence. Execute must hold its lock (mutex or
// FOR UPDATE) across validation and mutation.
type Store interface {
	Create(ctx context.Context, parcel *models.Parcel) error
	FindByID(ctx context.Context, parcelID id.ParcelID) (*models.Parcel, error)
	FindByTitleNumber(ctx context.Context, titleNumber string) (*models.Parcel, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Parcel, error)
	Execute(ctx context.Context, parcelID id.ParcelID,
		validate func(*models.Parcel) error, mutate func(*models.Parcel)) (*models.Parcel, error)
}

// RegionValidator checks locations against the administrative hierarchy.
type RegionValidator interface {
	ValidateLocation(ctx context.Context, loc regionmodels.Location) error
}

// UserDirectory resolves referenced users for ownership snapshots.
type UserDirectory interface {
	ResolveUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// Emitter receives domain events. Emission is best-effort: failures are
// logged, never propagated.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates parcel lifecycle operations.
type Service struct {
	parcels   Store
	regions   RegionValidator
	directory UserDirectory
	emitter   Emitter
	metrics   *parcelmetrics.Metrics
	logger    *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithEmitter(emitter Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

func WithMetrics(m *parcelmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(parcels Store, regions RegionValidator, directory UserDirectory, opts ...Option) *Service {
	s := &Service{
		parcels:   parcels,
		regions:   regions,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParcelInput carries the registration request.
type CreateParcelInput struct {
	TitleNumber  string
	LRNumber     string
	Location     regionmodels.Location
	Size         models.Size
	Zoning       string
	LandUse      string
	MarketValue  float64
	Description  string
	Encumbrances []string
	HasDisputes  bool
	OwnerID      id.UserID
}

// CreateParcel registers a parcel. The creator must be a county admin for the
// parcel's county; the new parcel enters the approval pipeline at
// pending_county_admin.
func (s *Service) CreateParcel(ctx context.Context, actor *identitymodels.User, input CreateParcelInput) (*models.Parcel, error) {
	ctx, span := tracer.Start(ctx, "parcel.create")
	defer span.End()

	if !actor.IsCountyAdminFor(input.Location.County) {
		return nil, dErrors.New(dErrors.CodeAuthorization, "only the county admin may register parcels in this county")
	}
	if err := s.regions.ValidateLocation(ctx, input.Location); err != nil {
		return nil, err
	}

	owner, err := s.directory.ResolveUser(ctx, input.OwnerID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "owner must be a registered user")
		}
		return nil, err
	}

	now := requestcontext.Now(ctx)
	parcel, err := models.NewParcel(id.ParcelID(uuid.New()), input.TitleNumber, input.LRNumber,
		input.Location, owner.ID, owner.Name, now)
	if err != nil {
		return nil, err
	}
	parcel.Size = input.Size
	parcel.Zoning = input.Zoning
	parcel.LandUse = input.LandUse
	parcel.MarketValue = input.MarketValue
	parcel.Description = input.Description
	parcel.Encumbrances = pstrings.DedupeAndTrim(input.Encumbrances)
	parcel.HasDisputes = input.HasDisputes

	if err := s.parcels.Create(ctx, parcel); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeValidation, "title number or LR number is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create parcel")
	}

	s.emit(ctx, audit.Event{
		Name:     audit.EventParcelCreated,
		ActorID:  actor.ID,
		ParcelID: parcel.ID,
		County:   parcel.Location.County,
	})
	if s.metrics != nil {
		s.metrics.IncrementParcelsCreated()
	}
	return parcel, nil
}

// GetParcel loads a parcel by ID.
func (s *Service) GetParcel(ctx context.Context, parcelID id.ParcelID) (*models.Parcel, error) {
	parcel, err := s.parcels.FindByID(ctx, parcelID)
	if err != nil {
		return nil, translateParcelErr(err)
	}
	return parcel, nil
}

// ListParcels returns parcels matching the filter.
func (s *Service) ListParcels(ctx context.Context, filter store.Filter) ([]*models.Parcel, error) {
	parcels, err := s.parcels.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list parcels")
	}
	return parcels, nil
}

// ApplyCountyApproval records the county admin's decision on a newly
// registered parcel. Approval forwards it to NLC review; rejection is
// terminal, re-submission requires a new parcel record.
func (s *Service) ApplyCountyApproval(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, decision approval.Decision) (*models.Parcel, error) {
	return s.applyApprovalDecision(ctx, parcelID, actor, approval.StageCounty, decision)
}

// ApplyNlcApproval records the national commission's decision. Approval makes
// the parcel transferable; rejection is terminal.
func (s *Service) ApplyNlcApproval(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, decision approval.Decision) (*models.Parcel, error) {
	return s.applyApprovalDecision(ctx, parcelID, actor, approval.StageNlc, decision)
}

func (s *Service) applyApprovalDecision(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, stage approval.Stage, decision approval.Decision) (*models.Parcel, error) {
	ctx, span := tracer.Start(ctx, "parcel.approval."+stage.String())
	defer span.End()

	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error {
			_, err := s.approvalWorkflow(p.Location.County).Decide(p.ApprovalStatus, stage, actor, decision)
			return err
		},
		func(p *models.Parcel) {
			next, _ := approval.Advance(p.ApprovalStatus, stage, decision.Approved)
			p.ApplyApprovalDecision(stage, next, approval.NewStageRecord(decision, actor.ID, now))
		},
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}

	switch parcel.ApprovalStatus {
	case approval.StatusApproved:
		s.emit(ctx, audit.Event{
			Name:     audit.EventParcelApproved,
			ActorID:  actor.ID,
			ParcelID: parcel.ID,
			County:   parcel.Location.County,
		})
	case approval.StatusRejected:
		s.emit(ctx, audit.Event{
			Name:     audit.EventParcelRejected,
			ActorID:  actor.ID,
			ParcelID: parcel.ID,
			County:   parcel.Location.County,
			Reason:   decision.Remarks,
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveApprovalDecision(stage.String(), decision.Approved)
	}
	return parcel, nil
}

func (s *Service) approvalWorkflow(county string) *approval.Workflow[*identitymodels.User] {
	return approval.New(func(actor *identitymodels.User, stage approval.Stage) error {
		switch stage {
		case approval.StageCounty:
			if !actor.IsCountyAdminFor(county) {
				return dErrors.New(dErrors.CodeAuthorization, "county approval requires the county admin for "+county)
			}
		case approval.StageNlc:
			if !actor.HasNationalRole() {
				return dErrors.New(dErrors.CodeAuthorization, "nlc approval requires a national commission admin")
			}
		}
		return nil
	})
}

// FlagFraud sets the fraud overlay on a parcel. The flag does not change the
// parcel's status or approval state.
func (s *Service) FlagFraud(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, reason string) (*models.Parcel, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "fraud reason is required")
	}

	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error {
			if !actor.IsCountyAdminFor(p.Location.County) {
				return dErrors.New(dErrors.CodeAuthorization, "only the county admin may flag parcels in this county")
			}
			return p.CanFlagFraud()
		},
		func(p *models.Parcel) {
			p.ApplyFraudFlag(actor.ID, reason, now)
		},
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}

	s.emit(ctx, audit.Event{
		Name:     audit.EventParcelFraudFlagged,
		ActorID:  actor.ID,
		ParcelID: parcel.ID,
		County:   parcel.Location.County,
		Reason:   reason,
	})
	if s.metrics != nil {
		s.metrics.IncrementFraudFlags()
	}
	return parcel, nil
}

// ClearFraud removes the fraud overlay, recording the resolution.
func (s *Service) ClearFraud(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, resolution string) (*models.Parcel, error) {
	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error {
			if !actor.IsCountyAdminFor(p.Location.County) {
				return dErrors.New(dErrors.CodeAuthorization, "only the county admin may clear flags in this county")
			}
			return p.CanClearFraud()
		},
		func(p *models.Parcel) {
			p.ApplyFraudClear(resolution, now)
		},
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}

	s.emit(ctx, audit.Event{
		Name:     audit.EventParcelFraudCleared,
		ActorID:  actor.ID,
		ParcelID: parcel.ID,
		County:   parcel.Location.County,
		Reason:   resolution,
	})
	return parcel, nil
}

// ArchiveParcel soft-disables a parcel. Parcels are never hard-deleted once
// they carry transfer history.
func (s *Service) ArchiveParcel(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User) (*models.Parcel, error) {
	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error {
			if !actor.IsCountyAdminFor(p.Location.County) {
				return dErrors.New(dErrors.CodeAuthorization, "only the county admin may archive parcels in this county")
			}
			return p.CanArchive()
		},
		func(p *models.Parcel) {
			p.ApplyArchive(now)
		},
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}
	return parcel, nil
}

// Lock marks the parcel as the subject of a new transfer. Engine-internal:
// called by the transfer workflow inside its transactional boundary.
func (s *Service) Lock(ctx context.Context, parcelID id.ParcelID) (*models.Parcel, error) {
	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error { return p.CanLock() },
		func(p *models.Parcel) { p.ApplyLock(now) },
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}
	return parcel, nil
}

// Release clears the transfer lock after a terminal, non-completed transfer
// outcome. Engine-internal.
func (s *Service) Release(ctx context.Context, parcelID id.ParcelID) error {
	now := requestcontext.Now(ctx)
	_, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error {
			if p.Status != models.StatusPendingTransfer {
				return dErrors.New(dErrors.CodeInvalidState, "parcel is not locked by a transfer")
			}
			return nil
		},
		func(p *models.Parcel) { p.ApplyRelease(now) },
	)
	if err != nil {
		return translateParcelErr(err)
	}
	return nil
}

// TransferOwnership flips ownership on transfer completion: appends the
// history entry, updates the owner snapshot, and releases the lock.
// Engine-internal: only the transfer workflow calls this, inside the same
// transaction that marks the transfer completed.
func (s *Service) TransferOwnership(ctx context.Context, parcelID id.ParcelID, from, to id.UserID, toName string) (*models.Parcel, error) {
	ctx, span := tracer.Start(ctx, "parcel.transfer_ownership")
	defer span.End()

	now := requestcontext.Now(ctx)
	parcel, err := s.parcels.Execute(ctx, parcelID,
		func(p *models.Parcel) error { return p.CanTransferOwnership(from) },
		func(p *models.Parcel) { p.ApplyOwnershipTransfer(to, toName, now) },
	)
	if err != nil {
		return nil, translateParcelErr(err)
	}
	return parcel, nil
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
			"parcel_id", event.ParcelID.String(),
			"error", err,
		)
	}
}

func translateParcelErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "parcel not found")
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "parcel was modified concurrently")
	default:
		return err
	}
}
