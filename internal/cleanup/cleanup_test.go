package cleanup_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedash/filedash/internal/cleanup"
	"github.com/filedash/filedash/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := t.TempDir() + "/test.db"
	st, err := store.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSweepRevocationsRemovesOnlyExpired(t *testing.T) {
	st := openTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	oldJTI, recentJTI := uuid.New(), uuid.New()
	userID := uuid.New()

	require.NoError(t, st.RevokeToken(ctx, oldJTI, userID))
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, st.RevokeToken(ctx, recentJTI, userID))

	removed := cleanup.SweepRevocations(ctx, st, time.Since(cutoff), logger)
	require.Equal(t, int64(1), removed)

	revoked, _ := st.IsTokenRevoked(ctx, oldJTI)
	assert.False(t, revoked, "old revocation should have been swept")
	revoked, _ = st.IsTokenRevoked(ctx, recentJTI)
	assert.True(t, revoked, "recent revocation should still be present")
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	st := openTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := cleanup.RunPeriodic(ctx, st, time.Hour, time.Hour, logger)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPeriodic did not stop after context cancellation")
	}
}
