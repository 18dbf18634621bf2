package store

import (
	"context"
	"sync"

	"ardhi/internal/region/models"
	"ardhi/pkg/platform/sentinel"
)

// InMemory serves the administrative hierarchy from a seeded map.
type InMemory struct {
	mu       sync.RWMutex
	counties map[string]*models.County
}

func NewInMemory(counties ...*models.County) *InMemory {
	s := &InMemory{counties: make(map[string]*models.County)}
	for _, c := range counties {
		s.counties[c.Name] = c
	}
	return s
}

func (s *InMemory) FindCounty(_ context.Context, name string) (*models.County, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	county, ok := s.counties[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return county, nil
}
