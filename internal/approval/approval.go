// Package approval implements the two-stage approve/reject state machine used
// by the registry: a county admin decides first, the national commission
// decides second, and rejection at either stage is terminal. The component is
// generic over the actor type; callers supply a stage-authorization predicate
// so the same transition rules serve differently scoped workflows.
package approval

import (
	"time"

	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
)

// Status is the position of a subject in the two-stage pipeline.
type Status string

const (
	StatusPendingCounty Status = "pending_county_admin"
	StatusPendingNlc    Status = "pending_nlc_admin"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// IsTerminal reports whether no further approval transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Stage identifies which reviewer is acting.
type Stage int

const (
	StageCounty Stage = iota
	StageNlc
)

func (s Stage) String() string {
	if s == StageCounty {
		return "county"
	}
	return "nlc"
}

// Decision is the reviewer's verdict at a stage.
type Decision struct {
	Approved bool   `json:"approved"`
	Remarks  string `json:"remarks"`
}

// StageRecord snapshots a stage decision for the audit trail.
type StageRecord struct {
	Approved  bool      `json:"approved"`
	Remarks   string    `json:"remarks,omitempty"`
	DecidedBy id.UserID `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

// NewStageRecord builds the stored snapshot of a decision.
func NewStageRecord(d Decision, by id.UserID, at time.Time) *StageRecord {
	return &StageRecord{Approved: d.Approved, Remarks: d.Remarks, DecidedBy: by, DecidedAt: at}
}

// Authorize checks that the actor may decide the given stage for the subject
// the workflow was instantiated for. Return a CodeAuthorization error to deny.
type Authorize[A any] func(actor A, stage Stage) error

// Workflow validates and advances two-stage approvals.
type Workflow[A any] struct {
	authorize Authorize[A]
}

func New[A any](authorize Authorize[A]) *Workflow[A] {
	return &Workflow[A]{authorize: authorize}
}

// Decide authorizes the actor and computes the next status. It never mutates
// the subject; callers persist the returned status and a StageRecord together.
func (w *Workflow[A]) Decide(current Status, stage Stage, actor A, d Decision) (Status, error) {
	if err := w.authorize(actor, stage); err != nil {
		return current, err
	}
	return Advance(current, stage, d.Approved)
}

// Advance returns the status that results from a decision at the given stage.
// Decisions out of stage order fail with CodeInvalidState.
func Advance(current Status, stage Stage, approved bool) (Status, error) {
	switch stage {
	case StageCounty:
		if current != StatusPendingCounty {
			return current, dErrors.New(dErrors.CodeInvalidState,
				"county decision requires status "+string(StatusPendingCounty))
		}
		if approved {
			return StatusPendingNlc, nil
		}
		return StatusRejected, nil
	case StageNlc:
		if current != StatusPendingNlc {
			return current, dErrors.New(dErrors.CodeInvalidState,
				"nlc decision requires status "+string(StatusPendingNlc))
		}
		if approved {
			return StatusApproved, nil
		}
		return StatusRejected, nil
	default:
		return current, dErrors.New(dErrors.CodeInvalidState, "unknown approval stage")
	}
}
