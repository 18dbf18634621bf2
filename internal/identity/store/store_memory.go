package store

import (
	"context"
	"strings"
	"sync"

	"ardhi/internal/identity/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
)

// InMemory keeps users in maps keyed by ID and national ID. Used by unit tests
// and dev mode; the Postgres store is the production implementation.
type InMemory struct {
	mu         sync.RWMutex
	byID       map[id.UserID]*models.User
	byNational map[string]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[id.UserID]*models.User),
		byNational: make(map[string]*models.User),
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeNationalID(user.NationalID)
	if _, exists := s.byNational[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *user
	s.byID[user.ID] = &cp
	s.byNational[key] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *InMemory) FindByNationalID(_ context.Context, nationalID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byNational[normalizeNationalID(nationalID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func normalizeNationalID(nationalID string) string {
	return strings.TrimSpace(nationalID)
}
