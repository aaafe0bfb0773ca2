package authn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Error kinds returned by Verify, switched on by errors.Is at the HTTP
// boundary.
var (
	ErrMalformed        = errors.New("authn: malformed token")
	ErrSignatureInvalid = errors.New("authn: signature invalid")
	ErrExpired          = errors.New("authn: token expired")
	ErrRevoked          = errors.New("authn: token has been revoked")
	ErrWeakSecret       = errors.New("authn: signing secret must be at least 32 bytes")
)

const minSecretLen = 32

// revocationStore is the subset of *store.Store the token service needs —
// named so tests can substitute a fake without a real database.
type revocationStore interface {
	IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
	RevokeToken(ctx context.Context, jti, userID uuid.UUID) error
}

// TokenService mints and verifies bearer tokens, consulting a revocation
// cache backed by the persistent store. revokedCache is an in-memory
// positive cache invalidated on every revoke, avoiding a DB round trip for
// tokens this process has already seen revoked.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	store  revocationStore

	revokedCache sync.Map // map[uuid.UUID]struct{} — positive cache only, read-through on miss
}

// NewTokenService constructs a TokenService. secret must be at least 32
// bytes; ttl is the token lifetime (exp - iat), defaulting to 24h if zero.
func NewTokenService(secret []byte, ttl time.Duration, st revocationStore) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: secret, ttl: ttl, store: st}, nil
}

// Issue signs a new token for user, returning the encoded string and its
// expiry instant.
func (ts *TokenService) Issue(userID uuid.UUID, email, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ts.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("authn: sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses tokenString, checks its signature, expiry, and revocation
// status in that order, short-circuiting on the first failure. No
// clock-skew leniency is applied past exp.
func (ts *TokenService) Verify(ctx context.Context, tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())

	if err != nil || !token.Valid {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, ErrMalformed
		}
	}

	if claims.ExpiresAt == nil || !time.Now().UTC().Before(claims.ExpiresAt.Time) {
		return Claims{}, ErrExpired
	}

	jti, err := claims.JTI()
	if err != nil {
		return Claims{}, ErrMalformed
	}

	revoked, err := ts.isRevoked(ctx, jti)
	if err != nil {
		return Claims{}, fmt.Errorf("authn: check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevoked
	}

	return claims, nil
}

// Revoke inserts a revocation record for jti and immediately updates the
// in-memory cache so the window between commit and the next Verify's read
// is zero for this process. Other processes still observe the usual
// commit-visibility latency of the underlying store.
func (ts *TokenService) Revoke(ctx context.Context, jti, userID uuid.UUID) error {
	if err := ts.store.RevokeToken(ctx, jti, userID); err != nil {
		return fmt.Errorf("authn: revoke: %w", err)
	}
	ts.revokedCache.Store(jti, struct{}{})
	return nil
}

func (ts *TokenService) isRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	if _, cached := ts.revokedCache.Load(jti); cached {
		return true, nil
	}
	revoked, err := ts.store.IsTokenRevoked(ctx, jti)
	if err != nil {
		return false, err
	}
	if revoked {
		ts.revokedCache.Store(jti, struct{}{})
	}
	return revoked, nil
}
