package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is a registered account. EncryptedAPIKey is empty when the user has
// not stored a model credential.
type User struct {
	ID              int64
	Email           string
	Username        string
	HashedPassword  string
	EncryptedAPIKey string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasAPIKey reports whether a credential is stored.
func (u User) HasAPIKey() bool {
	return u.EncryptedAPIKey != ""
}

const userColumns = `id, email, username, hashed_password, COALESCE(encrypted_api_key, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var (
		u                User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &u.EncryptedAPIKey, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = fromStamp(created)
	u.UpdatedAt = fromStamp(updated)
	return u, nil
}

// CreateUser inserts a user. Duplicate email or username yields
// ErrEmailTaken or ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, email, username, hashedPassword string) (User, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, username, hashed_password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		email, username, hashedPassword, now, now)
	switch {
	case uniqueViolation(err, "users.email"):
		return User{}, ErrEmailTaken
	case uniqueViolation(err, "users.username"):
		return User{}, ErrUsernameTaken
	case err != nil:
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return s.UserByID(ctx, id)
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// EmailExists reports whether email is registered.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email)
}

// UsernameExists reports whether username is taken.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// SetAPIKey stores an encrypted model credential for the user.
func (s *Store) SetAPIKey(ctx context.Context, userID int64, encrypted string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET encrypted_api_key = ?, updated_at = ? WHERE id = ?`, encrypted, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("failed to set api key: %w", err)
	}
	return affected(res)
}

// ClearAPIKey removes the user's stored credential.
func (s *Store) ClearAPIKey(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET encrypted_api_key = NULL, updated_at = ? WHERE id = ?`, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("failed to clear api key: %w", err)
	}
	return affected(res)
}

// SetPassword replaces the user's password hash.
func (s *Store) SetPassword(ctx context.Context, userID int64, hashedPassword string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET hashed_password = ?, updated_at = ? WHERE id = ?`, hashedPassword, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return affected(res)
}

// DeleteUser removes the user together with their sessions and messages.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(res)
}
