package postgres

import (
	"context"
	"fmt"
	"time"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// SpaceStore implements storage.SpaceStore using PostgreSQL.
type SpaceStore struct {
	pool *Pool
}

// NewSpaceStore creates a new SpaceStore.
func NewSpaceStore(pool *Pool) *SpaceStore {
	return &SpaceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SpaceStore = (*SpaceStore)(nil)

// Insert adds a new space and assigns its ID.
func (s *SpaceStore) Insert(ctx context.Context, sp *domain.Space) (err error) {
	if sp == nil || sp.Name == "" || !sp.Status.IsValid() || sp.CapacityKW < 0 {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("spaces.insert", start, err) }(time.Now())

	query := `
		INSERT INTO spaces (name, capacity_kw, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err = s.pool.QueryRow(ctx, query, sp.Name, sp.CapacityKW, string(sp.Status)).Scan(&sp.ID); err != nil {
		return fmt.Errorf("insert space: %w", err)
	}
	return nil
}

// TotalsByStatus returns the count and summed capacity of spaces in status.
func (s *SpaceStore) TotalsByStatus(ctx context.Context, status domain.SpaceStatus) (totals domain.SpaceTotals, err error) {
	defer func(start time.Time) { observe("spaces.totals_by_status", start, err) }(time.Now())

	query := `
		SELECT count(*), COALESCE(SUM(capacity_kw), 0)
		FROM spaces
		WHERE status = $1
	`

	if err = s.pool.QueryRow(ctx, query, string(status)).Scan(&totals.Count, &totals.CapacityKW); err != nil {
		return domain.SpaceTotals{}, fmt.Errorf("space totals by status: %w", err)
	}
	return totals, nil
}
