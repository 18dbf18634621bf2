// Package models defines the transfer aggregate and its state machine.
package models

import (
	"time"

	"ardhi/internal/approval"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
)

// Status is a transfer's position in the workflow.
type Status string

const (
	StatusPendingRecipientReview Status = "pending_recipient_review"
	StatusRejected               Status = "rejected"
	StatusCountyVerification     Status = "county_verification"
	StatusCountyRejected         Status = "county_rejected"
	StatusNlcReview              Status = "nlc_review"
	StatusCompleted              Status = "completed"
	StatusCancelled              Status = "cancelled"
)

// legalTransitions is the authoritative transition table. Acceptance moves a
// transfer straight to county_verification; there is no persisted intermediate
// accepted state. County rejection and NLC rejection are terminal, there is no
// resubmission path.
var legalTransitions = map[Status][]Status{
	StatusPendingRecipientReview: {StatusCountyVerification, StatusRejected, StatusCancelled},
	StatusCountyVerification:     {StatusNlcReview, StatusCountyRejected, StatusCancelled},
	StatusNlcReview:              {StatusCompleted, StatusRejected, StatusCancelled},
	StatusRejected:               {},
	StatusCountyRejected:         {},
	StatusCancelled:              {},
	StatusCompleted:              {},
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return len(legalTransitions[s]) == 0
}

// CanTransitionTo reports whether the move is on the transition table.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Timeline actions, one per transition.
const (
	ActionInitiated      = "initiated"
	ActionAccepted       = "accepted"
	ActionRejected       = "rejected"
	ActionCountyVerified = "county_verified"
	ActionCountyRejected = "county_rejected"
	ActionNlcApproved    = "nlc_approved"
	ActionNlcRejected    = "nlc_rejected"
	ActionCancelled      = "cancelled"
	ActionStopped        = "stopped"
)

// TimelineEntry is one append-only history record.
type TimelineEntry struct {
	Action string    `json:"action"`
	Actor  id.UserID `json:"actor"`
	Date   time.Time `json:"date"`
}

// RecipientReview snapshots the buyer's accept/reject decision.
type RecipientReview struct {
	Accepted   bool      `json:"accepted"`
	Remarks    string    `json:"remarks,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Transfer is the aggregate for one ownership-transfer request.
//
// BuyerName, BuyerNationalID, and BuyerKraPin snapshot the buyer's identity at
// initiation time and are never re-synced. County is denormalized from the
// parcel so admin scoping needs no join.
type Transfer struct {
	ID     id.TransferID `json:"id"`
	Number string        `json:"number"`

	ParcelID id.ParcelID `json:"parcel_id"`
	County   string      `json:"county"`

	Seller     id.UserID `json:"seller"`
	SellerName string    `json:"seller_name"`

	Buyer           id.UserID `json:"buyer"`
	BuyerName       string    `json:"buyer_name"`
	BuyerNationalID string    `json:"buyer_national_id"`
	BuyerKraPin     string    `json:"buyer_kra_pin"`

	AgreedPrice float64 `json:"agreed_price,omitempty"`

	Status Status `json:"status"`

	RecipientReview    *RecipientReview      `json:"recipient_review,omitempty"`
	CountyVerification *approval.StageRecord `json:"county_verification,omitempty"`
	NlcApproval        *approval.StageRecord `json:"nlc_approval,omitempty"`
	RejectionReason    string                `json:"rejection_reason,omitempty"`

	Timeline    []TimelineEntry `json:"timeline"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTransfer constructs a transfer in pending_recipient_review with the
// initiation timeline entry.
func NewTransfer(transferID id.TransferID, number string, parcelID id.ParcelID, county string,
	seller id.UserID, sellerName string, buyer id.UserID, buyerName, buyerNationalID, buyerKraPin string,
	agreedPrice float64, now time.Time) *Transfer {
	return &Transfer{
		ID:              transferID,
		Number:          number,
		ParcelID:        parcelID,
		County:          county,
		Seller:          seller,
		SellerName:      sellerName,
		Buyer:           buyer,
		BuyerName:       buyerName,
		BuyerNationalID: buyerNationalID,
		BuyerKraPin:     buyerKraPin,
		AgreedPrice:     agreedPrice,
		Status:          StatusPendingRecipientReview,
		Timeline:        []TimelineEntry{{Action: ActionInitiated, Actor: seller, Date: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// transition moves the transfer along the table and appends the timeline
// entry. Every mutation funnels through here so terminal records stay frozen.
func (t *Transfer) transition(next Status, action string, actor id.UserID, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			"transfer in status "+string(t.Status)+" cannot move to "+string(next))
	}
	t.Status = next
	t.Timeline = append(t.Timeline, TimelineEntry{Action: action, Actor: actor, Date: now})
	t.UpdatedAt = now
	return nil
}

// CanRecipientReview checks the buyer-review preconditions. Actor identity is
// checked before state so an imposter gets an authorization error even on a
// terminal transfer.
func (t *Transfer) CanRecipientReview(actor id.UserID) error {
	if actor != t.Buyer {
		return dErrors.New(dErrors.CodeAuthorization, "only the named buyer may review this transfer")
	}
	if t.Status != StatusPendingRecipientReview {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is not awaiting recipient review")
	}
	return nil
}

// ApplyAccept records the buyer's acceptance and moves to county_verification.
func (t *Transfer) ApplyAccept(actor id.UserID, remarks string, now time.Time) error {
	if err := t.transition(StatusCountyVerification, ActionAccepted, actor, now); err != nil {
		return err
	}
	t.RecipientReview = &RecipientReview{Accepted: true, Remarks: remarks, ReviewedAt: now}
	return nil
}

// ApplyReject records the buyer's rejection; terminal.
func (t *Transfer) ApplyReject(actor id.UserID, reason string, now time.Time) error {
	if err := t.transition(StatusRejected, ActionRejected, actor, now); err != nil {
		return err
	}
	t.RecipientReview = &RecipientReview{Accepted: false, Remarks: reason, ReviewedAt: now}
	t.RejectionReason = reason
	return nil
}

// CanCountyVerify checks the state precondition for the county stage.
func (t *Transfer) CanCountyVerify() error {
	if t.Status != StatusCountyVerification {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is not awaiting county verification")
	}
	return nil
}

// ApplyCountyVerification records the county decision. Verification failure is
// terminal, not retryable.
func (t *Transfer) ApplyCountyVerification(rec *approval.StageRecord, now time.Time) error {
	next, action := StatusNlcReview, ActionCountyVerified
	if !rec.Approved {
		next, action = StatusCountyRejected, ActionCountyRejected
	}
	if err := t.transition(next, action, rec.DecidedBy, now); err != nil {
		return err
	}
	t.CountyVerification = rec
	if !rec.Approved {
		t.RejectionReason = rec.Remarks
	}
	return nil
}

// CanNlcDecide checks the state precondition for the final stage.
func (t *Transfer) CanNlcDecide() error {
	if t.Status != StatusNlcReview {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is not awaiting nlc review")
	}
	return nil
}

// ApplyNlcApproval records the final decision. Approval completes the
// transfer; the caller runs the parcel ownership flip in the same transaction.
func (t *Transfer) ApplyNlcApproval(rec *approval.StageRecord, now time.Time) error {
	next, action := StatusCompleted, ActionNlcApproved
	if !rec.Approved {
		next, action = StatusRejected, ActionNlcRejected
	}
	if err := t.transition(next, action, rec.DecidedBy, now); err != nil {
		return err
	}
	t.NlcApproval = rec
	if rec.Approved {
		t.CompletedAt = &now
	} else {
		t.RejectionReason = rec.Remarks
	}
	return nil
}

// CanCancel checks that the transfer is still cancellable.
func (t *Transfer) CanCancel() error {
	if t.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is already in a terminal state")
	}
	return nil
}

// ApplyCancel ends the transfer without completion.
func (t *Transfer) ApplyCancel(actor id.UserID, reason string, now time.Time) error {
	if err := t.transition(StatusCancelled, ActionCancelled, actor, now); err != nil {
		return err
	}
	t.RejectionReason = reason
	return nil
}

// ApplyStop is the county-admin emergency override; same terminal state as
// cancel but recorded distinctly on the timeline.
func (t *Transfer) ApplyStop(actor id.UserID, reason string, now time.Time) error {
	if err := t.transition(StatusCancelled, ActionStopped, actor, now); err != nil {
		return err
	}
	t.RejectionReason = reason
	return nil
}
