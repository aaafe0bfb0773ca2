// Package bootstrap ensures a default administrative user exists the first
// time filedashd starts against a fresh database.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/filedash/filedash/internal/authn"
	"github.com/filedash/filedash/internal/config"
	"github.com/filedash/filedash/internal/store"
)

// EnsureAdmin creates the configured default admin user if no admin exists
// yet. It is idempotent: once an admin exists, subsequent calls are no-ops.
func EnsureAdmin(ctx context.Context, cfg *config.Config, st *store.Store, hasher *authn.Hasher, logger *slog.Logger) error {
	n, err := st.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	password := cfg.Admin.DefaultPassword
	generated := password == ""
	if generated {
		password, err = randomPassword()
		if err != nil {
			return fmt.Errorf("bootstrap: generate password: %w", err)
		}
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("bootstrap: hash password: %w", err)
	}

	admin := store.User{
		ID:           uuid.New(),
		Email:        cfg.Admin.DefaultEmail,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.InsertUser(ctx, admin); err != nil {
		return fmt.Errorf("bootstrap: insert admin: %w", err)
	}

	if generated {
		logger.Warn("bootstrap admin created with a generated password — change it immediately",
			"email", admin.Email, "password", password)
	} else {
		logger.Warn("bootstrap admin created with the configured default password — change it immediately",
			"email", admin.Email)
	}
	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
