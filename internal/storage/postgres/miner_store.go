package postgres

import (
	"context"
	"fmt"
	"time"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// MinerStore implements storage.MinerStore using PostgreSQL.
type MinerStore struct {
	pool *Pool
}

// NewMinerStore creates a new MinerStore.
func NewMinerStore(pool *Pool) *MinerStore {
	return &MinerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MinerStore = (*MinerStore)(nil)

// Insert adds a new miner and assigns its ID. Returns ErrInvalidInput for an unknown owner or space.
func (s *MinerStore) Insert(ctx context.Context, m *domain.Miner) (err error) {
	if m == nil || m.UserID == 0 || !m.Status.IsValid() {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("miners.insert", start, err) }(time.Now())

	query := `
		INSERT INTO miners (user_id, space_id, model, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query, m.UserID, m.SpaceID, m.Model, string(m.Status)).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isInvalidInputError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert miner: %w", err)
	}
	return nil
}

// CountByStatus counts miners in the given lifecycle status.
func (s *MinerStore) CountByStatus(ctx context.Context, status domain.MinerStatus) (count int, err error) {
	defer func(start time.Time) { observe("miners.count_by_status", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `SELECT count(*) FROM miners WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count miners by status: %w", err)
	}
	return count, nil
}
