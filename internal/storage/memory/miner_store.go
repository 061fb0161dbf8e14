package memory

import (
	"context"
	"sync"
	"time"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// MinerStore is an in-memory implementation of storage.MinerStore.
type MinerStore struct {
	mu     sync.RWMutex
	nextID int64
	miners []*domain.Miner
}

// NewMinerStore creates a new in-memory miner store.
func NewMinerStore() *MinerStore {
	return &MinerStore{}
}

// Insert adds a new miner and assigns its ID.
func (s *MinerStore) Insert(_ context.Context, m *domain.Miner) error {
	if m == nil || m.UserID == 0 || !m.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	minerCopy := *m
	s.miners = append(s.miners, &minerCopy)
	return nil
}

// CountByStatus counts miners in the given lifecycle status.
func (s *MinerStore) CountByStatus(_ context.Context, status domain.MinerStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.miners {
		if m.Status == status {
			count++
		}
	}
	return count, nil
}

// ownersWithStatus returns the set of user IDs owning a miner in status.
func (s *MinerStore) ownersWithStatus(status domain.MinerStatus) map[int64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[int64]struct{})
	for _, m := range s.miners {
		if m.Status == status {
			owners[m.UserID] = struct{}{}
		}
	}
	return owners
}

var _ storage.MinerStore = (*MinerStore)(nil)
