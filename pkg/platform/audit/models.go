// Package audit defines the domain-event model the workflow services emit after
// every state transition. Downstream collaborators (notifications, title-deed
// rendering, compliance reporting) consume these events; the workflow core only
// produces them, best-effort.
package audit

import (
	"time"

	id "ardhi/pkg/domain"
)

// EventCategory classifies events by their primary purpose. This enables
// different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: ownership
	// changes, approval decisions. These require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring and forensics.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine workflow activity useful for debugging
	// and notification fan-out; can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic after a state transition. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Name       EventName
	Timestamp  time.Time
	ActorID    id.UserID
	ParcelID   id.ParcelID
	TransferID id.TransferID
	County     string
	Reason     string
	RequestID  string
}

// EventName identifies a workflow state transition.
type EventName string

const (
	// Transfer workflow events
	EventTransferInitiated      EventName = "transfer.initiated"
	EventTransferAccepted       EventName = "transfer.accepted"
	EventTransferRejected       EventName = "transfer.rejected"
	EventTransferCountyVerified EventName = "transfer.county_verified"
	EventTransferCompleted      EventName = "transfer.completed"
	EventTransferCancelled      EventName = "transfer.cancelled"
	EventTransferStopped        EventName = "transfer.stopped"

	// Parcel registry events
	EventParcelCreated      EventName = "parcel.created"
	EventParcelApproved     EventName = "parcel.approved"
	EventParcelRejected     EventName = "parcel.rejected"
	EventParcelFraudFlagged EventName = "parcel.fraud_flagged"
	EventParcelFraudCleared EventName = "parcel.fraud_cleared"
)

// eventCategories maps each event to its category.
var eventCategories = map[EventName]EventCategory{
	// Compliance events - legal significance, long retention
	EventTransferCompleted: CategoryCompliance,
	EventParcelApproved:    CategoryCompliance,
	EventParcelRejected:    CategoryCompliance,

	// Security events - fraud monitoring and forensics
	EventTransferStopped:    CategorySecurity,
	EventParcelFraudFlagged: CategorySecurity,
	EventParcelFraudCleared: CategorySecurity,

	// Operations events - routine workflow activity
	EventTransferInitiated:      CategoryOperations,
	EventTransferAccepted:       CategoryOperations,
	EventTransferRejected:       CategoryOperations,
	EventTransferCountyVerified: CategoryOperations,
	EventTransferCancelled:      CategoryOperations,
	EventParcelCreated:          CategoryOperations,
}

// Category returns the EventCategory for this event.
// Unknown events default to CategoryOperations.
func (e EventName) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
