package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/contacts-api/internal/model"
)

const userColumns = "id, username, email, password, refresh_token, avatar, confirmed, created_at, updated_at"

// UserRepo persists users, including the single live refresh token.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &refresh, &u.Avatar, &u.Confirmed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// Create inserts u and fills in its ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password, avatar, confirmed) VALUES (?,?,?,?,?)",
		u.Username, u.Email, u.Password, u.Avatar, u.Confirmed)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return fmt.Errorf("reload user: %w", err)
	}
	*u = *created
	return nil
}

// SetRefreshToken stores token as the live refresh token. A nil token
// clears it and ends the session.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint64, token *string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", token, id)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

// SwapRefreshToken replaces old with next only if old is still the stored
// token. It reports whether the swap happened.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uint64, old, next string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?", next, id, old)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConfirmEmail marks the address as verified.
func (r *UserRepo) ConfirmEmail(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, "confirmed=TRUE", email)
}

// UpdatePassword overwrites the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, hash string) error {
	return r.updateByEmail(ctx, "password=?", email, hash)
}

// UpdateAvatar stores a new avatar URL and returns the updated user.
func (r *UserRepo) UpdateAvatar(ctx context.Context, email, url string) (*model.User, error) {
	if err := r.updateByEmail(ctx, "avatar=?", email, url); err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, email)
}

// updateByEmail relies on clientFoundRows in the DSN, so RowsAffected counts
// matched rows and zero means the user does not exist.
func (r *UserRepo) updateByEmail(ctx context.Context, set, email string, args ...any) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+set+" WHERE email=?", append(args, email)...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user; contacts go with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
