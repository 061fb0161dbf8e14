package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

func TestUserStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)

	u := &domain.User{Email: "client@example.com", Role: domain.RoleClient, ExternalSubaccountName: ptr("acct_a")}
	require.NoError(t, store.Insert(ctx, u))
	assert.NotZero(t, u.ID)
	assert.NotZero(t, u.CreatedAt)

	got, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, domain.RoleClient, got.Role)
	assert.Equal(t, "acct_a", got.SubaccountName())

	_, err = store.GetByID(ctx, u.ID+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_InsertDuplicateEmail(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.User{Email: "dup@example.com", Role: domain.RoleAdmin}))
	err := store.Insert(ctx, &domain.User{Email: "Dup@Example.com", Role: domain.RoleClient})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestUserStore_CustomerCounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)
	miners := NewMinerStore(pool)

	active := createTestUser(t, ctx, pool, "active@example.com", domain.RoleClient, nil)
	idle := createTestUser(t, ctx, pool, "idle@example.com", domain.RoleClient, nil)
	admin := createTestUser(t, ctx, pool, "admin@example.com", domain.RoleAdmin, nil)

	for _, m := range []*domain.Miner{
		{UserID: active.ID, Model: "S19", Status: domain.MinerStatusAuto},
		{UserID: active.ID, Model: "S21", Status: domain.MinerStatusAuto},
		{UserID: idle.ID, Model: "S19", Status: domain.MinerStatusDeploying},
		{UserID: admin.ID, Model: "S19", Status: domain.MinerStatusAuto},
	} {
		require.NoError(t, miners.Insert(ctx, m))
	}

	total, err := store.CountByRole(ctx, domain.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	activeCount, err := store.CountWithMinerStatus(ctx, domain.RoleClient, domain.MinerStatusAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, activeCount)
}

func TestUserStore_ListExternalSubaccountNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)

	names, err := store.ListExternalSubaccountNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	createTestUser(t, ctx, pool, "a@example.com", domain.RoleClient, ptr("acct_a"))
	createTestUser(t, ctx, pool, "b@example.com", domain.RoleClient, nil)
	createTestUser(t, ctx, pool, "c@example.com", domain.RoleClient, ptr(" "))
	createTestUser(t, ctx, pool, "d@example.com", domain.RoleClient, ptr(" acct_d "))

	names, err = store.ListExternalSubaccountNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acct_a", "acct_d"}, names)
}
