// Package authn implements password hashing and bearer-token
// issuance/verification with revocation.
package authn

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned by Verify when hash is not one of ours.
var ErrMalformedHash = errors.New("authn: malformed password hash")

// HashParams tunes the argon2id KDF. Defaults are chosen so a single Verify
// costs at least 50ms on typical server hardware.
type HashParams struct {
	MemoryKiB   uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultHashParams returns the reference tuning: 64 MiB memory, 3 passes,
// parallelism 2.
func DefaultHashParams() HashParams {
	return HashParams{
		MemoryKiB:   64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// Hasher hashes and verifies passwords with a per-call cryptographic salt.
type Hasher struct {
	params HashParams
}

// NewHasher creates a Hasher with the given parameters.
func NewHasher(params HashParams) *Hasher {
	return &Hasher{params: params}
}

// Hash derives an argon2id digest for password and encodes algorithm,
// parameters, salt and digest into a single self-describing string so
// Verify needs no side channel to know how the hash was produced.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("authn: generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLen)

	encoded := fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// Verify reports whether password matches encoded, using the parameters
// embedded in encoded (not the Hasher's current defaults), so rotating
// DefaultHashParams never breaks verification of existing hashes.
func Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil {
		return false, ErrMalformedHash
	}

	var memKiB, timeCost uint32
	var parallelism uint8
	if n, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memKiB, &timeCost, &parallelism); err != nil || n != 3 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memKiB, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
