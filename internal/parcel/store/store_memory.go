package store

import (
	"context"
	"sync"

	"ardhi/internal/parcel/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	County string
	Owner  id.UserID
	Status models.Status
}

// InMemory keeps parcels under a single lock. Execute holds the lock across
// validation and mutation so transitions observe a consistent snapshot, the
// same discipline the Postgres store gets from SELECT ... FOR UPDATE.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.ParcelID]*models.Parcel
	byTitle map[string]id.ParcelID
	byLR    map[string]id.ParcelID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.ParcelID]*models.Parcel),
		byTitle: make(map[string]id.ParcelID),
		byLR:    make(map[string]id.ParcelID),
	}
}

func (s *InMemory) Create(_ context.Context, parcel *models.Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byTitle[parcel.TitleNumber]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.byLR[parcel.LRNumber]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := clone(parcel)
	s.byID[parcel.ID] = cp
	s.byTitle[parcel.TitleNumber] = parcel.ID
	s.byLR[parcel.LRNumber] = parcel.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, parcelID id.ParcelID) (*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parcel, ok := s.byID[parcelID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(parcel), nil
}

func (s *InMemory) FindByTitleNumber(_ context.Context, titleNumber string) (*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parcelID, ok := s.byTitle[titleNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[parcelID]), nil
}

func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Parcel
	for _, parcel := range s.byID {
		if filter.County != "" && parcel.Location.County != filter.County {
			continue
		}
		if !filter.Owner.IsNil() && parcel.Owner != filter.Owner {
			continue
		}
		if filter.Status != "" && parcel.Status != filter.Status {
			continue
		}
		out = append(out, clone(parcel))
	}
	return out, nil
}

// Execute runs validate then mutate on the parcel while holding the write
// lock. A validation failure leaves the parcel untouched; mutate must not
// fail. Returns the mutated copy.
func (s *InMemory) Execute(_ context.Context, parcelID id.ParcelID,
	validate func(*models.Parcel) error, mutate func(*models.Parcel)) (*models.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parcel, ok := s.byID[parcelID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(parcel); err != nil {
		return nil, err
	}
	mutate(parcel)
	return clone(parcel), nil
}

func clone(p *models.Parcel) *models.Parcel {
	cp := *p
	cp.Encumbrances = append([]string(nil), p.Encumbrances...)
	cp.TransferHistory = append([]models.TransferRecord(nil), p.TransferHistory...)
	if p.CountyApproval != nil {
		rec := *p.CountyApproval
		cp.CountyApproval = &rec
	}
	if p.NlcApproval != nil {
		rec := *p.NlcApproval
		cp.NlcApproval = &rec
	}
	if p.FlaggedAt != nil {
		at := *p.FlaggedAt
		cp.FlaggedAt = &at
	}
	return &cp
}
