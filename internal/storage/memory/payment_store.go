package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// PaymentStore is an in-memory implementation of storage.PaymentStore.
type PaymentStore struct {
	mu       sync.RWMutex
	nextID   int64
	payments []*domain.Payment
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{}
}

// Insert adds a new payment and assigns its ID.
func (s *PaymentStore) Insert(_ context.Context, p *domain.Payment) error {
	if p == nil || p.UserID == 0 || !p.Type.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	paymentCopy := *p
	s.payments = append(s.payments, &paymentCopy)
	return nil
}

// Sum returns the signed total of every payment.
func (s *PaymentStore) Sum(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range s.payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// SumByTypesSince returns the signed total of payments of the given types created at or after since.
func (s *PaymentStore) SumByTypesSince(_ context.Context, types []domain.PaymentType, since time.Time) (decimal.Decimal, error) {
	wanted := make(map[domain.PaymentType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range s.payments {
		if wanted[p.Type] && !p.CreatedAt.Before(since) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

var _ storage.PaymentStore = (*PaymentStore)(nil)
