// Package cleanup reclaims space from the revocation table.
//
// A revoked token is only ever rejected because its jti is present in
// revoked_tokens — once the token's own exp has passed it would be rejected
// anyway, so the revocation row no longer does any work and can be dropped.
// RunPeriodic removes any revocation row older than the longest possible
// token lifetime on a fixed interval, the same way a stale-session sweep
// would reclaim abandoned state past its TTL.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/filedash/filedash/internal/store"
)

// SweepRevocations deletes revocation rows recorded before now-maxTokenTTL
// and returns the number removed.
func SweepRevocations(ctx context.Context, st *store.Store, maxTokenTTL time.Duration, logger *slog.Logger) int64 {
	cutoff := time.Now().UTC().Add(-maxTokenTTL)
	n, err := st.SweepExpiredRevocations(ctx, cutoff)
	if err != nil {
		logger.Warn("cleanup: sweep revocations failed", "err", err)
		return 0
	}
	if n > 0 {
		logger.Info("cleanup: swept expired revocations", "removed", n)
	}
	return n
}

// RunPeriodic starts a background goroutine that calls SweepRevocations on
// every interval until ctx is cancelled. A first pass runs immediately at
// startup. The returned channel is closed once the goroutine observes
// ctx.Done and returns, so callers can wait for the in-flight pass to finish
// during shutdown.
func RunPeriodic(ctx context.Context, st *store.Store, maxTokenTTL, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		SweepRevocations(ctx, st, maxTokenTTL, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				SweepRevocations(ctx, st, maxTokenTTL, logger)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
