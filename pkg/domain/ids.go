// Package domain holds strongly typed identifiers shared across services.
//
// Each entity gets its own UUID-backed type so references cannot be mixed up at
// compile time. Parse functions enforce the trust-boundary invariant: IDs must
// be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "ardhi/pkg/domain-errors"
)

type (
	// UserID identifies a registered user in the directory.
	UserID uuid.UUID
	// ParcelID identifies a land parcel.
	ParcelID uuid.UUID
	// TransferID identifies an ownership transfer request.
	TransferID uuid.UUID
)

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id must not be nil")
	}
	return u, nil
}

// ParseUserID validates and converts a raw string into a UserID.
func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user")
	return UserID(u), err
}

// ParseParcelID validates and converts a raw string into a ParcelID.
func ParseParcelID(raw string) (ParcelID, error) {
	u, err := parseUUID(raw, "parcel")
	return ParcelID(u), err
}

// ParseTransferID validates and converts a raw string into a TransferID.
func ParseTransferID(raw string) (TransferID, error) {
	u, err := parseUUID(raw, "transfer")
	return TransferID(u), err
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ParcelID) String() string   { return uuid.UUID(id).String() }
func (id TransferID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ParcelID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TransferID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
