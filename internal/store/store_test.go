package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "filedash.db")
	s, err := store.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndFindUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := store.User{
		ID:           uuid.New(),
		Email:        "Admin@Example.com",
		PasswordHash: "hash",
		Role:         store.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.InsertUser(ctx, u))

	got, err := s.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Email, "email not lowercased")
	assert.Equal(t, u.ID, got.ID)
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := store.User{ID: uuid.New(), Email: "dup@example.com", PasswordHash: "h", Role: store.RoleUser, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, s.InsertUser(ctx, u))

	u2 := u
	u2.ID = uuid.New()
	err := s.InsertUser(ctx, u2)
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestFindUserNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.FindUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestCountAdmins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.InsertUser(ctx, store.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "h", Role: store.RoleAdmin, IsActive: true, CreatedAt: time.Now()}))
	n, err = s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRevokeTokenIdempotentAndVisible(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	jti, userID := uuid.New(), uuid.New()

	revoked, err := s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken(ctx, jti, userID))
	require.NoError(t, s.RevokeToken(ctx, jti, userID)) // idempotent

	revoked, err = s.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestSweepExpiredRevocations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	old, recent := uuid.New(), uuid.New()
	userID := uuid.New()

	require.NoError(t, s.RevokeToken(ctx, old, userID))
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now().UTC()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.RevokeToken(ctx, recent, userID))

	n, err := s.SweepExpiredRevocations(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	oldRevoked, _ := s.IsTokenRevoked(ctx, old)
	recentRevoked, _ := s.IsTokenRevoked(ctx, recent)
	assert.False(t, oldRevoked, "old revocation should have been swept")
	assert.True(t, recentRevoked, "recent revocation should remain")
}
