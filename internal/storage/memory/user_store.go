package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
// Ownership queries consult the miner store it was built with.
type UserStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*domain.User
	byEmail map[string]int64
	miners  *MinerStore
}

// NewUserStore creates a new in-memory user store. miners may be nil.
func NewUserStore(miners *MinerStore) *UserStore {
	return &UserStore{
		byID:    make(map[int64]*domain.User),
		byEmail: make(map[string]int64),
		miners:  miners,
	}
}

// Insert adds a new user and assigns its ID. Returns ErrDuplicateKey if email exists.
func (s *UserStore) Insert(_ context.Context, u *domain.User) error {
	if u == nil || u.Email == "" || !u.Role.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	u.ID = s.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	s.byID[u.ID] = copyUser(u)
	s.byEmail[email] = u.ID
	return nil
}

// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

// CountByRole counts users holding the given role.
func (s *UserStore) CountByRole(_ context.Context, role domain.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, u := range s.byID {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

// CountWithMinerStatus counts users of the given role owning at least one miner in status.
func (s *UserStore) CountWithMinerStatus(_ context.Context, role domain.Role, status domain.MinerStatus) (int, error) {
	if s.miners == nil {
		return 0, nil
	}
	owners := s.miners.ownersWithStatus(status)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id := range owners {
		if u, ok := s.byID[id]; ok && u.Role == role {
			count++
		}
	}
	return count, nil
}

// ListExternalSubaccountNames returns every non-empty pool subaccount name, ordered by user ID.
func (s *UserStore) ListExternalSubaccountNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	names := make([]string, 0)
	for _, id := range ids {
		if name := strings.TrimSpace(s.byID[id].SubaccountName()); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func copyUser(u *domain.User) *domain.User {
	userCopy := *u
	if u.ExternalSubaccountName != nil {
		name := *u.ExternalSubaccountName
		userCopy.ExternalSubaccountName = &name
	}
	return &userCopy
}

var _ storage.UserStore = (*UserStore)(nil)
