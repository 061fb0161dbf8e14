package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Insert adds a new user and assigns its ID. Returns ErrDuplicateKey if email exists.
func (s *UserStore) Insert(ctx context.Context, u *domain.User) (err error) {
	if u == nil || u.Email == "" || !u.Role.IsValid() {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("users.insert", start, err) }(time.Now())

	query := `
		INSERT INTO users (email, role, external_subaccount_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query, u.Email, string(u.Role), u.ExternalSubaccountName).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(ctx context.Context, id int64) (_ *domain.User, err error) {
	defer func(start time.Time) { observe("users.get", start, err) }(time.Now())

	query := `
		SELECT id, email, role, external_subaccount_name, created_at
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// CountByRole counts users holding the given role.
func (s *UserStore) CountByRole(ctx context.Context, role domain.Role) (count int, err error) {
	defer func(start time.Time) { observe("users.count_by_role", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// CountWithMinerStatus counts users of the given role owning at least one miner in status.
func (s *UserStore) CountWithMinerStatus(ctx context.Context, role domain.Role, status domain.MinerStatus) (count int, err error) {
	defer func(start time.Time) { observe("users.count_with_miner_status", start, err) }(time.Now())

	query := `
		SELECT count(*)
		FROM users u
		WHERE u.role = $1
		  AND EXISTS (SELECT 1 FROM miners m WHERE m.user_id = u.id AND m.status = $2)
	`

	err = s.pool.QueryRow(ctx, query, string(role), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users with miner status: %w", err)
	}
	return count, nil
}

// ListExternalSubaccountNames returns every non-empty pool subaccount name, ordered by user ID.
func (s *UserStore) ListExternalSubaccountNames(ctx context.Context) (_ []string, err error) {
	defer func(start time.Time) { observe("users.list_subaccounts", start, err) }(time.Now())

	query := `
		SELECT btrim(external_subaccount_name)
		FROM users
		WHERE external_subaccount_name IS NOT NULL
		  AND btrim(external_subaccount_name) <> ''
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subaccount names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan subaccount name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subaccount names: %w", err)
	}
	return names, nil
}

// scanUser scans a single row into User.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string

	if err := row.Scan(&u.ID, &u.Email, &role, &u.ExternalSubaccountName, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
