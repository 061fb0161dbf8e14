package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"miner-hosting/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// Insert adds a new user and assigns its ID. Returns ErrDuplicateKey if email exists.
	Insert(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// CountByRole counts users holding the given role.
	CountByRole(ctx context.Context, role domain.Role) (int, error)

	// CountWithMinerStatus counts users of the given role owning at least one miner in status.
	CountWithMinerStatus(ctx context.Context, role domain.Role, status domain.MinerStatus) (int, error)

	// ListExternalSubaccountNames returns every non-empty pool subaccount name, ordered by user ID.
	ListExternalSubaccountNames(ctx context.Context) ([]string, error)
}

// MinerStore provides access to miners storage.
type MinerStore interface {
	// Insert adds a new miner and assigns its ID.
	Insert(ctx context.Context, m *domain.Miner) error

	// CountByStatus counts miners in the given lifecycle status.
	CountByStatus(ctx context.Context, status domain.MinerStatus) (int, error)
}

// SpaceStore provides access to spaces storage.
type SpaceStore interface {
	// Insert adds a new space and assigns its ID.
	Insert(ctx context.Context, s *domain.Space) error

	// TotalsByStatus returns the count and summed capacity of spaces in status.
	TotalsByStatus(ctx context.Context, status domain.SpaceStatus) (domain.SpaceTotals, error)
}

// PaymentStore provides access to payments storage.
type PaymentStore interface {
	// Insert adds a new payment and assigns its ID.
	Insert(ctx context.Context, p *domain.Payment) error

	// Sum returns the signed total of every payment. Zero when there are none.
	Sum(ctx context.Context) (decimal.Decimal, error)

	// SumByTypesSince returns the signed total of payments of the given types created at or after since.
	SumByTypesSince(ctx context.Context, types []domain.PaymentType, since time.Time) (decimal.Decimal, error)
}
