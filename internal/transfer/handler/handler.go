// Package handler exposes the transfer workflow over HTTP.
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
	"ardhi/internal/platform/metrics"
	"ardhi/internal/platform/middleware"
	"ardhi/internal/transfer/models"
	transferservice "ardhi/internal/transfer/service"
	"ardhi/internal/transfer/store"
	"ardhi/internal/transport/http/shared"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/transfer-mocks.go -package=mocks

// Service defines the transfer operations the handler exposes.
type Service interface {
	Initiate(ctx context.Context, seller *identitymodels.User, input transferservice.InitiateInput) (*models.Transfer, error)
	GetTransfer(ctx context.Context, transferID id.TransferID) (*models.Transfer, error)
	ListTransfers(ctx context.Context, filter store.Filter) ([]*models.Transfer, error)
	Accept(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, remarks string) (*models.Transfer, error)
	Reject(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, reason string) (*models.Transfer, error)
	CountyVerify(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, d approval.Decision) (*models.Transfer, error)
	NlcApprove(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, d approval.Decision) (*models.Transfer, error)
	Cancel(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, reason string) (*models.Transfer, error)
	Stop(ctx context.Context, actor *identitymodels.User, transferID id.TransferID, input transferservice.StopInput) (*models.Transfer, error)
}

// Directory resolves the authenticated actor.
type Directory interface {
	ResolveUser(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// Handler handles transfer endpoints.
type Handler struct {
	logger       *slog.Logger
	transfers    Service
	directory    Directory
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new transfer Handler.
func New(
	transfers Service,
	directory Directory,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		transfers:    transfers,
		directory:    directory,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the transfer routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	transferRouter := chi.NewRouter()
	transferRouter.Use(middleware.Recovery(h.logger))
	transferRouter.Use(middleware.RequestID)
	transferRouter.Use(middleware.Logger(h.logger))
	transferRouter.Use(middleware.Timeout(30 * time.Second))
	transferRouter.Use(middleware.ContentTypeJSON)
	transferRouter.Use(middleware.Latency(h.metrics))
	transferRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	transferRouter.Post("/", h.handleInitiate)
	transferRouter.Get("/", h.handleListTransfers)
	transferRouter.Get("/{transferID}", h.handleGetTransfer)
	transferRouter.Post("/{transferID}/accept", h.handleAccept)
	transferRouter.Post("/{transferID}/reject", h.handleReject)
	transferRouter.Post("/{transferID}/county-verification", h.handleCountyVerification)
	transferRouter.Post("/{transferID}/nlc-approval", h.handleNlcApproval)
	transferRouter.Post("/{transferID}/cancel", h.handleCancel)
	transferRouter.Post("/{transferID}/stop", h.handleStop)

	r.Mount("/transfers", transferRouter)
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

func (h *Handler) transferID(w http.ResponseWriter, r *http.Request) (id.TransferID, bool) {
	transferID, err := id.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid transfer id"))
		return id.TransferID{}, false
	}
	return transferID, true
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req InitiateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid initiate transfer request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	parcelID, err := id.ParseParcelID(req.ParcelID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid parcel id"))
		return
	}

	transfer, err := h.transfers.Initiate(ctx, actor, transferservice.InitiateInput{
		ParcelID:        parcelID,
		BuyerNationalID: req.BuyerNationalID,
		BuyerKraPin:     req.BuyerKraPin,
		BuyerName:       req.BuyerName,
		AgreedPrice:     req.AgreedPrice,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to initiate transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, transfer)
}

func (h *Handler) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	transfer, err := h.transfers.GetTransfer(r.Context(), transferID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	filter := store.Filter{
		County: r.URL.Query().Get("county"),
		Status: models.Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("parcel"); raw != "" {
		parcelID, err := id.ParseParcelID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid parcel filter"))
			return
		}
		filter.ParcelID = parcelID
	}
	if raw := r.URL.Query().Get("party"); raw != "" {
		party, err := id.ParseUserID(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid party filter"))
			return
		}
		filter.Party = party
	}
	transfers, err := h.transfers.ListTransfers(r.Context(), filter)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list transfers", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	transfer, err := h.transfers.Accept(ctx, actor, transferID, req.Remarks)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to accept transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	transfer, err := h.transfers.Reject(ctx, actor, transferID, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to reject transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleCountyVerification(w http.ResponseWriter, r *http.Request) {
	h.handleVerification(w, r, h.transfers.CountyVerify)
}

func (h *Handler) handleNlcApproval(w http.ResponseWriter, r *http.Request) {
	h.handleVerification(w, r, h.transfers.NlcApprove)
}

func (h *Handler) handleVerification(w http.ResponseWriter, r *http.Request,
	decide func(context.Context, *identitymodels.User, id.TransferID, approval.Decision) (*models.Transfer, error)) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	transfer, err := decide(ctx, actor, transferID, approval.Decision{Approved: req.Approved, Remarks: req.Remarks})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record verification decision", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	transfer, err := h.transfers.Cancel(ctx, actor, transferID, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to cancel transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	transferID, ok := h.transferID(w, r)
	if !ok {
		return
	}
	var req StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	transfer, err := h.transfers.Stop(ctx, actor, transferID, transferservice.StopInput{
		Reason:       req.Reason,
		IsFraudulent: req.IsFraudulent,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to stop transfer", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
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
