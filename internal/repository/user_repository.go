package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ykravets/contacts-api/internal/auth"
	"github.com/ykravets/contacts-api/internal/model"
)

// UserRepo is the MySQL-backed authoritative user store. It implements the
// auth.UserStore contract plus Create for registration.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user row with an already hashed password and returns the
// stored record. New accounts start unconfirmed.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	if _, err := res.LastInsertId(); err != nil {
		return model.User{}, err
	}
	// Re-select so DB defaults (confirmed, created_at) come back populated.
	return r.GetByEmail(ctx, email)
}

// GetByEmail fetches a user by normalized email. Returns auth.ErrUserNotFound
// when no row matches.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		u       model.User
		avatar  sql.NullString
		refresh sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,avatar,refresh_token,confirmed,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &avatar, &refresh, &u.Confirmed, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Avatar = avatar.String
	u.RefreshToken = refresh.String
	return u, nil
}

// SaveRefreshToken stores the single active refresh token for a user. An
// empty token clears the column, revoking the current session.
func (r *UserRepo) SaveRefreshToken(ctx context.Context, userID uint64, token string) error {
	var v any
	if token != "" {
		v = token
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=?", v, userID)
	return err
}

// MarkConfirmed flips the confirmation flag for the given email.
func (r *UserRepo) MarkConfirmed(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET confirmed=1 WHERE email=?", email)
	return err
}
