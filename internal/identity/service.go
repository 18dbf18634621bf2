// Package identity resolves users, roles and jurisdictions for the workflow
// services. It is the boundary to the account system: registration and role
// onboarding happen elsewhere, the workflow core only reads.
package identity

import (
	"context"
	"errors"

	"ardhi/internal/identity/models"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/platform/sentinel"
)

// Store abstracts user persistence.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.User, error)
}

// Service exposes directory lookups with coded errors.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ResolveUser loads a user by ID.
func (s *Service) ResolveUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, translateLookupErr(err, "user not found")
	}
	return user, nil
}

// ResolveByNationalID loads a user by national ID. Callers decide whether an
// absent user is a NotFound or a validation failure for their flow.
func (s *Service) ResolveByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	if nationalID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "national id is required")
	}
	user, err := s.store.FindByNationalID(ctx, nationalID)
	if err != nil {
		return nil, translateLookupErr(err, "no user registered with that national id")
	}
	return user, nil
}

// IsCountyAdminFor reports whether the user administers the given county.
func (s *Service) IsCountyAdminFor(ctx context.Context, userID id.UserID, county string) (bool, error) {
	user, err := s.ResolveUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsCountyAdminFor(county), nil
}

func translateLookupErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
}
