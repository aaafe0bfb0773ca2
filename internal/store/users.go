package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role values for User.Role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrUserNotFound is returned by FindUserByEmail / FindUserByID when no row matches.
var ErrUserNotFound = errors.New("store: user not found")

// ErrEmailTaken is returned by InsertUser on a unique-email conflict.
var ErrEmailTaken = errors.New("store: email already registered")

// User is an authenticated account record.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// InsertUser creates a new user row. Email is lowercased and trimmed so
// lookups are case-insensitive and each address maps to one account.
func (s *Store) InsertUser(ctx context.Context, u User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID.String(), email, u.PasswordHash, u.Role, boolToInt(u.IsActive), u.CreatedAt)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("store: insert user: %w", err)
	}
	return nil
}

// FindUserByEmail looks up a user by lowercased email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// FindUserByID looks up a user by id.
func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at FROM users WHERE id = ?`,
		id.String())
	return scanUser(row)
}

// SetUserActive flips a user's is_active flag. Deactivation is soft; users
// are never hard-deleted.
func (s *Store) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, boolToInt(active), id.String())
	if err != nil {
		return fmt.Errorf("store: set user active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountAdmins returns how many users hold the admin role, used by bootstrap
// to decide whether an initial admin account still needs to be created.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, RoleAdmin).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count admins: %w", err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (User, error) {
	var (
		u        User
		idStr    string
		isActive int
	)
	err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.Role, &isActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: scan user: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return User{}, fmt.Errorf("store: corrupt user id %q: %w", idStr, err)
	}
	u.ID = id
	u.IsActive = isActive != 0
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
