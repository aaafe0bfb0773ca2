package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/filedash/filedash/internal/authn"
	"github.com/filedash/filedash/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	User      userView `json:"user"`
	ExpiresAt string   `json:"expires_at"`
}

func toUserView(u store.User) userView {
	return userView{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleLogin verifies credentials and issues a bearer token.
// POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "invalid JSON body")
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil || !user.IsActive {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	ok, err := authn.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	tokenStr, exp, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("login: issue token failed", "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     tokenStr,
		User:      toUserView(user),
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

// handleLogout revokes the caller's current token.
// POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "malformed token")
		return
	}
	jti, err := claims.JTI()
	if err != nil {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "malformed token")
		return
	}

	if err := s.tokens.Revoke(r.Context(), jti, userID); err != nil {
		s.logger.Error("logout: revoke failed", "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "failed to revoke token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleMe returns the authenticated caller's user record.
// GET /api/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "malformed token")
		return
	}
	user, err := s.store.FindUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// handleRegister creates a new user. Admin-only.
// POST /api/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", "email and password are required")
		return
	}
	role := req.Role
	if role != store.RoleAdmin && role != store.RoleUser {
		role = store.RoleUser
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("register: hash failed", "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	user := store.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserView(user))
}
