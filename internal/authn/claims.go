package authn

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload. It embeds jwt.RegisteredClaims the way the
// pack's box.com backend embeds jwt.StandardClaims in a custom struct —
// Subject carries the user id, ID carries jti, Email/Role are ours.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserID parses the Subject claim back into a uuid.
func (c Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JTI parses the ID claim back into a uuid.
func (c Claims) JTI() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}
