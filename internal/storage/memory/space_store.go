package memory

import (
	"context"
	"sync"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// SpaceStore is an in-memory implementation of storage.SpaceStore.
type SpaceStore struct {
	mu     sync.RWMutex
	nextID int64
	spaces []*domain.Space
}

// NewSpaceStore creates a new in-memory space store.
func NewSpaceStore() *SpaceStore {
	return &SpaceStore{}
}

// Insert adds a new space and assigns its ID.
func (s *SpaceStore) Insert(_ context.Context, sp *domain.Space) error {
	if sp == nil || sp.Name == "" || !sp.Status.IsValid() || sp.CapacityKW < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sp.ID = s.nextID

	spaceCopy := *sp
	s.spaces = append(s.spaces, &spaceCopy)
	return nil
}

// TotalsByStatus returns the count and summed capacity of spaces in status.
func (s *SpaceStore) TotalsByStatus(_ context.Context, status domain.SpaceStatus) (domain.SpaceTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.SpaceTotals
	for _, sp := range s.spaces {
		if sp.Status == status {
			totals.Count++
			totals.CapacityKW += sp.CapacityKW
		}
	}
	return totals, nil
}

var _ storage.SpaceStore = (*SpaceStore)(nil)
