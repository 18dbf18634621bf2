package store

import (
	"context"
	"sync"

	"ardhi/internal/transfer/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
)

// Filter narrows List results. Zero values match everything. Party matches
// either side of the transfer.
type Filter struct {
	ParcelID id.ParcelID
	County   string
	Party    id.UserID
	Status   models.Status
}

// InMemory keeps transfers under a single lock. Create enforces the
// one-active-transfer-per-parcel invariant the Postgres store gets from its
// partial unique index.
type InMemory struct {
	mu             sync.RWMutex
	byID           map[id.TransferID]*models.Transfer
	activeByParcel map[id.ParcelID]id.TransferID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:           make(map[id.TransferID]*models.Transfer),
		activeByParcel: make(map[id.ParcelID]id.TransferID),
	}
}

func (s *InMemory) Create(_ context.Context, transfer *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.activeByParcel[transfer.ParcelID]; exists {
		return sentinel.ErrConflict
	}
	cp := clone(transfer)
	s.byID[transfer.ID] = cp
	if !transfer.Status.IsTerminal() {
		s.activeByParcel[transfer.ParcelID] = transfer.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, transferID id.TransferID) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transfer, ok := s.byID[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(transfer), nil
}

// FindActiveByParcel returns the non-terminal transfer on a parcel, if any.
func (s *InMemory) FindActiveByParcel(_ context.Context, parcelID id.ParcelID) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transferID, ok := s.activeByParcel[parcelID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[transferID]), nil
}

func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transfer
	for _, transfer := range s.byID {
		if !matches(transfer, filter) {
			continue
		}
		out = append(out, clone(transfer))
	}
	return out, nil
}

// Execute runs validate then mutate while holding the store lock, so the
// transition observes a consistent snapshot and racing writers serialize. The
// active-transfer index is maintained when a mutation lands in a terminal
// state.
func (s *InMemory) Execute(_ context.Context, transferID id.TransferID,
	validate func(*models.Transfer) error, mutate func(*models.Transfer) error) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transfer, ok := s.byID[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(transfer); err != nil {
		return nil, err
	}
	if err := mutate(transfer); err != nil {
		return nil, err
	}
	if transfer.Status.IsTerminal() {
		if active, ok := s.activeByParcel[transfer.ParcelID]; ok && active == transfer.ID {
			delete(s.activeByParcel, transfer.ParcelID)
		}
	}
	return clone(transfer), nil
}

func matches(t *models.Transfer, f Filter) bool {
	if !f.ParcelID.IsNil() && t.ParcelID != f.ParcelID {
		return false
	}
	if f.County != "" && t.County != f.County {
		return false
	}
	if !f.Party.IsNil() && t.Seller != f.Party && t.Buyer != f.Party {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func clone(t *models.Transfer) *models.Transfer {
	cp := *t
	cp.Timeline = append([]models.TimelineEntry(nil), t.Timeline...)
	if t.RecipientReview != nil {
		rr := *t.RecipientReview
		cp.RecipientReview = &rr
	}
	if t.CountyVerification != nil {
		cv := *t.CountyVerification
		cp.CountyVerification = &cv
	}
	if t.NlcApproval != nil {
		na := *t.NlcApproval
		cp.NlcApproval = &na
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}
