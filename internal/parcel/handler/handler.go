// Package handler exposes the parcel registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ardhi/internal/approval"
	identitymodels "ardhi/internal/identity/models"
	"ardhi/internal/parcel/models"
	parcelservice "ardhi/internal/parcel/service"
	"ardhi/internal/parcel/store"
	"ardhi/internal/platform/metrics"
	"ardhi/internal/platform/middleware"
	"ardhi/internal/transport/http/shared"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/parcel-mocks.go -package=mocks

// Service defines the parcel operations the handler exposes.
type Service interface {
	CreateParcel(ctx context.Context, actor *identitymodels.User, input parcelservice.CreateParcelInput) (*models.Parcel, error)
	GetParcel(ctx context.Context, parcelID id.ParcelID) (*models.Parcel, error)
	ListParcels(ctx context.Context, filter store.Filter) ([]*models.Parcel, error)
	ApplyCountyApproval(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, d approval.Decision) (*models.Parcel, error)
	ApplyNlcApproval(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, d approval.Decision) (*models.Parcel, error)
	FlagFraud(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, reason string) (*models.Parcel, error)
	ClearFraud(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User, resolution string) (*models.Parcel, error)
	ArchiveParcel(ctx context.Context, parcelID id.ParcelID, actor *identitymodels.User) (*models.Parcel, error)
}

// Directory resolves the authenticated actor.
type Directory interface {
	ResolveUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// Handler handles parcel endpoints.
type Handler struct {
	logger       *slog.Logger
	parcels      Service
	directory    Directory
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new parcel Handler.
func New(
	parcels Service,
	directory Directory,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		parcels:      parcels,
		directory:    directory,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the parcel routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	parcelRouter := chi.NewRouter()
	parcelRouter.Use(middleware.Recovery(h.logger))
	parcelRouter.Use(middleware.RequestID)
	parcelRouter.Use(middleware.Logger(h.logger))
	parcelRouter.Use(middleware.Timeout(30 * time.Second))
	parcelRouter.Use(middleware.ContentTypeJSON)
	parcelRouter.Use(middleware.Latency(h.metrics))
	parcelRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	parcelRouter.Post("/", h.handleCreateParcel)
	parcelRouter.Get("/", h.handleListParcels)
	parcelRouter.Get("/{parcelID}", h.handleGetParcel)
	parcelRouter.Post("/{parcelID}/county-approval", h.handleCountyApproval)
	parcelRouter.Post("/{parcelID}/nlc-approval", h.handleNlcApproval)
	parcelRouter.Post("/{parcelID}/fraud-flag", h.handleFraudFlag)
	parcelRouter.Post("/{parcelID}/fraud-clear", h.handleFraudClear)
	parcelRouter.Post("/{parcelID}/archive", h.handleArchive)

	r.Mount("/parcels", parcelRouter)
}

// actor loads the authenticated user set by the auth middleware.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*identitymodels.User, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return nil, false
	}
	user, err := h.directory.ResolveUser(ctx, userID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown user"))
		return nil, false
	}
	return user, true
}

func (h *Handler) parcelID(w http.ResponseWriter, r *http.Request) (id.ParcelID, bool) {
	parcelID, err := id.ParseParcelID(chi.URLParam(r, "parcelID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid parcel id"))
		return id.ParcelID{}, false
	}
	return parcelID, true
}

func (h *Handler) handleCreateParcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateParcelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create parcel request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	ownerID, err := id.ParseUserID(req.OwnerID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid owner id"))
		return
	}

	parcel, err := h.parcels.CreateParcel(ctx, actor, parcelservice.CreateParcelInput{
		TitleNumber:  req.TitleNumber,
		LRNumber:     req.LRNumber,
		Location:     req.Location,
		Size:         req.Size,
		Zoning:       req.Zoning,
		LandUse:      req.LandUse,
		MarketValue:  req.MarketValue,
		Description:  req.Description,
		Encumbrances: req.Encumbrances,
		HasDisputes:  req.HasDisputes,
		OwnerID:      ownerID,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create parcel", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, parcel)
}

func (h *Handler) handleGetParcel(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	parcelID, ok := h.parcelID(w, r)
	if !ok {
		return
	}
	parcel, err := h.parcels.GetParcel(r.Context(), parcelID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load parcel", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) handleListParcels(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	filter := store.Filter{
		County: r.URL.Query().Get("county"),
		Status: models.Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("owner"); raw != "" {
		owner, err := id.ParseUserID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid owner filter"))
			return
		}
		filter.Owner = owner
	}
	parcels, err := h.parcels.ListParcels(r.Context(), filter)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list parcels", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"parcels": parcels})
}

func (h *Handler) handleCountyApproval(w http.ResponseWriter, r *http.Request) {
	h.handleApproval(w, r, h.parcels.ApplyCountyApproval)
}

func (h *Handler) handleNlcApproval(w http.ResponseWriter, r *http.Request) {
	h.handleApproval(w, r, h.parcels.ApplyNlcApproval)
}

func (h *Handler) handleApproval(w http.ResponseWriter, r *http.Request,
	decide func(context.Context, id.ParcelID, *identitymodels.User, approval.Decision) (*models.Parcel, error)) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	parcelID, ok := h.parcelID(w, r)
	if !ok {
		return
	}

	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	parcel, err := decide(ctx, parcelID, actor, approval.Decision{Approved: req.Approved, Remarks: req.Remarks})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record approval decision", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) handleFraudFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	parcelID, ok := h.parcelID(w, r)
	if !ok {
		return
	}
	var req FraudFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	parcel, err := h.parcels.FlagFraud(ctx, parcelID, actor, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to flag parcel", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) handleFraudClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	parcelID, ok := h.parcelID(w, r)
	if !ok {
		return
	}
	var req FraudClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	parcel, err := h.parcels.ClearFraud(ctx, parcelID, actor, req.Resolution)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to clear fraud flag", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	parcelID, ok := h.parcelID(w, r)
	if !ok {
		return
	}
	parcel, err := h.parcels.ArchiveParcel(ctx, parcelID, actor)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to archive parcel", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
