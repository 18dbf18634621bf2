// Package region validates parcel locations against the administrative
// hierarchy (county → sub-county → constituency → ward). The hierarchy is an
// external dataset consumed read-only.
package region

import (
	"context"
	"errors"

	"ardhi/internal/region/models"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/platform/sentinel"
)

// Store abstracts hierarchy lookups; implementations include the Postgres
// reference table, a seeded in-memory map, and a Redis read-through cache.
type Store interface {
	FindCounty(ctx context.Context, name string) (*models.County, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ValidateLocation confirms every level of the location resolves in the
// hierarchy. Returns a validation error naming the first level that fails.
func (s *Service) ValidateLocation(ctx context.Context, loc models.Location) error {
	if loc.County == "" || loc.SubCounty == "" || loc.Constituency == "" || loc.Ward == "" {
		return dErrors.New(dErrors.CodeValidation, "county, sub-county, constituency and ward are all required")
	}

	county, err := s.store.FindCounty(ctx, loc.County)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "unknown county: "+loc.County)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "region lookup failed")
	}

	if !county.Contains(loc) {
		return dErrors.New(dErrors.CodeValidation, "location does not resolve in the administrative hierarchy")
	}
	return nil
}

// CountyCode returns the short code for a county, used to prefix title numbers.
func (s *Service) CountyCode(ctx context.Context, name string) (string, error) {
	county, err := s.store.FindCounty(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeValidation, "unknown county: "+name)
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "region lookup failed")
	}
	return county.Code, nil
}
