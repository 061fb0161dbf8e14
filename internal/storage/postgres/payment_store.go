package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// PaymentStore implements storage.PaymentStore using PostgreSQL.
type PaymentStore struct {
	pool *Pool
}

// NewPaymentStore creates a new PaymentStore.
func NewPaymentStore(pool *Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PaymentStore = (*PaymentStore)(nil)

// Insert adds a new payment and assigns its ID. A zero CreatedAt defaults to now().
func (s *PaymentStore) Insert(ctx context.Context, p *domain.Payment) (err error) {
	if p == nil || p.UserID == 0 || !p.Type.IsValid() {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("payments.insert", start, err) }(time.Now())

	var createdAt *time.Time
	if !p.CreatedAt.IsZero() {
		createdAt = &p.CreatedAt
	}

	query := `
		INSERT INTO payments (user_id, type, amount, created_at)
		VALUES ($1, $2, $3::numeric, COALESCE($4, now()))
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query, p.UserID, string(p.Type), p.Amount.String(), createdAt).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isInvalidInputError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// Sum returns the signed total of every payment.
func (s *PaymentStore) Sum(ctx context.Context) (total decimal.Decimal, err error) {
	defer func(start time.Time) { observe("payments.sum", start, err) }(time.Now())

	total, err = scanDecimal(s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM payments`))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// SumByTypesSince returns the signed total of payments of the given types created at or after since.
func (s *PaymentStore) SumByTypesSince(ctx context.Context, types []domain.PaymentType, since time.Time) (total decimal.Decimal, err error) {
	if len(types) == 0 {
		return decimal.Zero, nil
	}
	defer func(start time.Time) { observe("payments.sum_by_types_since", start, err) }(time.Now())

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM payments
		WHERE type = ANY($1) AND created_at >= $2
	`

	total, err = scanDecimal(s.pool.QueryRow(ctx, query, names, since))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments by types: %w", err)
	}
	return total, nil
}
